package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/tradearena-io/tournament-engine/internal/db/model"
	"github.com/tradearena-io/tournament-engine/internal/observability/metrics"
)

// computeEntries regenerates the full entry set for one tournament from the
// latest snapshot per active participant. A participant with no snapshot
// yet (registered but never synced) ranks with zero totals rather than
// being omitted: the entry set always has exactly one entry per active
// participant.
//
// Tie-break order: higher total P&L, lower max drawdown, earlier
// registration, participant id. The id fallback makes ranks a dense
// permutation of 1..N with no duplicates even under exact ties.
func computeEntries(
	participants []*model.Participant,
	snapshots []*model.PerformanceSnapshot,
) []model.LeaderboardEntry {
	latest := make(map[string]*model.PerformanceSnapshot, len(snapshots))
	for _, snap := range snapshots {
		latest[snap.ParticipantID] = snap
	}

	ranked := make([]*model.Participant, len(participants))
	copy(ranked, participants)
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		snapA, snapB := latest[a.ID], latest[b.ID]

		pnlA, ddA := snapshotKeys(snapA)
		pnlB, ddB := snapshotKeys(snapB)

		if pnlA != pnlB {
			return pnlA > pnlB
		}
		if ddA != ddB {
			return ddA < ddB
		}
		if !a.RegisteredAt.Equal(b.RegisteredAt) {
			return a.RegisteredAt.Before(b.RegisteredAt)
		}
		return a.ID < b.ID
	})

	entries := make([]model.LeaderboardEntry, len(ranked))
	for i, participant := range ranked {
		entry := model.LeaderboardEntry{
			Rank:          i + 1,
			ParticipantID: participant.ID,
			UserID:        participant.UserID,
		}
		if snap := latest[participant.ID]; snap != nil {
			entry.SnapshotID = snap.ID
			entry.TotalPnl = snap.TotalPnl
			entry.MaxDrawdown = snap.MaxDrawdown
			entry.TradeCount = snap.TradeCount
		}
		entries[i] = entry
	}
	return entries
}

func snapshotKeys(snap *model.PerformanceSnapshot) (totalPnl, maxDrawdown int64) {
	if snap == nil {
		return 0, 0
	}
	return snap.TotalPnl, snap.MaxDrawdown
}

// RankAndPublish recomputes and distributes the tournament's standings
// under the tournament's serialization token, so a pass never interleaves
// with another pass or with a registration transition.
func (s *Service) RankAndPublish(ctx context.Context, tournamentID string) error {
	var err error
	s.locks.Do(tournamentID, func() {
		err = s.rankAndPublishLocked(ctx, tournamentID)
	})
	return err
}

func (s *Service) rankAndPublishLocked(ctx context.Context, tournamentID string) error {
	participants, err := s.db.GetActiveParticipants(ctx, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to get active participants: %w", err)
	}
	if len(participants) == 0 {
		log.Ctx(ctx).Debug().Str("tournament_id", tournamentID).Msg("No active participants, skipping ranking pass")
		return nil
	}

	snapshots, err := s.db.GetLatestSnapshots(ctx, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to get latest snapshots: %w", err)
	}

	// a snapshot set smaller than the active participant count usually
	// means the read raced an in-flight apply (or some participants have
	// never synced); retry the read once, then rank with what is available
	if len(snapshots) < len(participants) {
		metrics.IncInconsistentRanking()
		log.Ctx(ctx).Warn().
			Str("tournament_id", tournamentID).
			Int("participants", len(participants)).
			Int("snapshots", len(snapshots)).
			Msg("Ranking pass observed fewer snapshots than synced participants, retrying read")

		snapshots, err = s.db.GetLatestSnapshots(ctx, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to re-read latest snapshots: %w", err)
		}
	}

	entries := computeEntries(participants, snapshots)
	return s.publishStandings(ctx, tournamentID, entries)
}
