package services

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tradearena-io/tournament-engine/internal/clients/venueclient"
	"github.com/tradearena-io/tournament-engine/internal/db/model"
)

// buildSnapshot folds newly fetched records into a fresh immutable snapshot
// on top of prev (nil for a participant's first sync). Records at or below
// prev's sequence high-water mark are duplicates from a re-fetch after a
// lost cursor advance and are dropped, which makes the overall pipeline
// at-least-once with idempotent aggregation.
//
// The second return value is false when every record was a duplicate and no
// snapshot should be written.
func buildSnapshot(
	participant *model.Participant,
	prev *model.PerformanceSnapshot,
	records []venueclient.TradeRecord,
	now time.Time,
) (*model.PerformanceSnapshot, bool) {
	var lastSeq int64
	if prev != nil {
		lastSeq = prev.LastSeq
	}

	fresh := make([]venueclient.TradeRecord, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r.Seq <= lastSeq {
			continue
		}
		// the venue should never repeat an id within one response, but a
		// paginated fetch can straddle an upstream retry
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		fresh = append(fresh, r)
	}
	if len(fresh) == 0 {
		return nil, false
	}

	sort.Slice(fresh, func(i, j int) bool { return fresh[i].Seq < fresh[j].Seq })

	next := &model.PerformanceSnapshot{
		ID:            uuid.New().String(),
		ParticipantID: participant.ID,
		TournamentID:  participant.TournamentID,
		RecordedAt:    now.UTC(),
	}
	if prev != nil {
		next.RealizedPnl = prev.RealizedPnl
		next.TradeCount = prev.TradeCount
		next.SharesTraded = prev.SharesTraded
		next.NotionalTraded = prev.NotionalTraded
		next.PeakEquity = prev.PeakEquity
		next.MaxDrawdown = prev.MaxDrawdown
		// the snapshot series is append-only with non-decreasing RecordedAt
		if prev.RecordedAt.After(next.RecordedAt) {
			next.RecordedAt = prev.RecordedAt
		}
	} else {
		next.PeakEquity = participant.StartingBalance
	}

	for _, r := range fresh {
		next.RealizedPnl += r.RealizedPnl
		next.TradeCount++
		next.SharesTraded += abs64(r.Quantity)
		next.NotionalTraded += r.Notional

		next.LastSeq = r.Seq
		next.LastRecordID = r.ID
		// the open-position mark travels with each record; the newest one
		// wins because fresh is in sequence order
		next.UnrealizedPnl = r.UnrealizedPnl()

		next.TotalPnl = next.RealizedPnl + next.UnrealizedPnl
		equity := participant.StartingBalance + next.TotalPnl
		if equity > next.PeakEquity {
			next.PeakEquity = equity
		}
		if drawdown := next.PeakEquity - equity; drawdown > next.MaxDrawdown {
			next.MaxDrawdown = drawdown
		}
	}

	return next, true
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
