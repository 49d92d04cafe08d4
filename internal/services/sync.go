package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/tradearena-io/tournament-engine/internal/clients/venueclient"
	"github.com/tradearena-io/tournament-engine/internal/db/model"
	"github.com/tradearena-io/tournament-engine/internal/observability/metrics"
	"github.com/tradearena-io/tournament-engine/internal/types"
)

// syncTournament runs one polling cycle: fetch venue activity for every
// active participant, fold it into snapshots, then recompute and publish
// standings. Individual participant failures degrade that participant to
// stale data; the rest of the cycle proceeds.
func (s *Service) syncTournament(ctx context.Context, tournamentID string) error {
	participants, err := s.db.GetActiveParticipants(ctx, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to get active participants: %w", err)
	}
	if len(participants) == 0 {
		log.Ctx(ctx).Debug().Str("tournament_id", tournamentID).Msg("No active participants to sync")
		return nil
	}

	workers := pool.New().WithMaxGoroutines(s.cfg.Scheduler.WorkerPoolSize)
	var mu sync.Mutex
	var syncErrs []error
	for _, participant := range participants {
		// cooperative cancellation checkpoint between participants
		if ctx.Err() != nil {
			break
		}
		workers.Go(func() {
			if err := s.syncParticipant(ctx, participant); err != nil {
				mu.Lock()
				syncErrs = append(syncErrs, err)
				mu.Unlock()
			}
		})
	}
	workers.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	// rank with whatever synced; failing participants keep their previous
	// snapshot and the standings degrade to stale rather than vanish
	if err := s.RankAndPublish(ctx, tournamentID); err != nil {
		syncErrs = append(syncErrs, err)
	}

	return errors.Join(syncErrs...)
}

func (s *Service) syncParticipant(ctx context.Context, participant *model.Participant) error {
	cursor, err := s.db.GetSyncCursor(ctx, participant.ID)
	if err != nil {
		return fmt.Errorf("failed to read cursor for participant %s: %w", participant.ID, err)
	}
	if cursor.Disabled {
		log.Ctx(ctx).Debug().
			Str("participant_id", participant.ID).
			Str("reason", cursor.DisabledReason).
			Msg("Sync disabled for participant, skipping")
		return nil
	}

	records, newCursor, err := s.venue.FetchSince(ctx, participant.VenueAccountRef, venueclient.Cursor{
		Seq:        cursor.LastSeq,
		RecordID:   cursor.LastRecordID,
		RecordTime: cursor.LastRecordTime,
	})
	if err != nil {
		return s.handleFetchFailure(ctx, participant, err)
	}

	// once records are in hand the apply runs to completion; cancellation
	// takes effect at the next checkpoint, never mid-aggregation
	applyCtx := context.WithoutCancel(ctx)

	if len(records) == 0 {
		return s.db.MarkSyncSuccess(applyCtx, participant.ID)
	}

	prev, err := s.db.GetLatestSnapshot(applyCtx, participant.ID)
	if err != nil {
		return fmt.Errorf("failed to read latest snapshot for participant %s: %w", participant.ID, err)
	}

	snapshot, applied := buildSnapshot(participant, prev, records, time.Now())
	if !applied {
		// every record was already reflected; an earlier cursor advance
		// was lost and this re-fetch confirms the data is safe
		return s.db.MarkSyncSuccess(applyCtx, participant.ID)
	}

	if err := s.db.SaveSnapshot(applyCtx, snapshot); err != nil {
		if merr := s.db.MarkSyncFailure(applyCtx, participant.ID); merr != nil {
			log.Ctx(ctx).Error().Err(merr).Str("participant_id", participant.ID).Msg("Failed to record sync failure")
		}
		return fmt.Errorf("failed to save snapshot for participant %s: %w", participant.ID, err)
	}

	// advance only after the snapshot is durable; a failed advance means
	// the next cycle re-fetches and the aggregator dedups
	if err := s.db.AdvanceSyncCursor(applyCtx, &model.SyncCursor{
		ParticipantID:   participant.ID,
		VenueAccountRef: participant.VenueAccountRef,
		LastSeq:         newCursor.Seq,
		LastRecordID:    newCursor.RecordID,
		LastRecordTime:  newCursor.RecordTime,
	}); err != nil {
		log.Ctx(ctx).Warn().Err(err).
			Str("participant_id", participant.ID).
			Int64("seq", newCursor.Seq).
			Msg("Cursor advance failed after durable apply, next cycle will re-fetch and dedup")
	}

	log.Ctx(ctx).Debug().
		Str("participant_id", participant.ID).
		Int("records", len(records)).
		Int64("total_pnl", snapshot.TotalPnl).
		Msg("Applied performance snapshot")
	return nil
}

func (s *Service) handleFetchFailure(
	ctx context.Context, participant *model.Participant, err error,
) error {
	switch types.KindOf(err) {
	case types.Permanent:
		// invalid account or revoked auth will not recover on its own;
		// stop polling this participant and surface for the operator
		metrics.IncParticipantSyncDisabled()
		log.Ctx(ctx).Error().Err(err).
			Str("participant_id", participant.ID).
			Str("account", participant.VenueAccountRef).
			Msg("Permanent venue error, disabling participant sync")
		if derr := s.db.DisableSync(context.WithoutCancel(ctx), participant.ID, err.Error()); derr != nil {
			return fmt.Errorf("failed to disable sync for participant %s: %w", participant.ID, derr)
		}
		return nil

	default:
		if merr := s.db.MarkSyncFailure(context.WithoutCancel(ctx), participant.ID); merr != nil {
			log.Ctx(ctx).Error().Err(merr).Str("participant_id", participant.ID).Msg("Failed to record sync failure")
		}
		return fmt.Errorf("participant %s: %w", participant.ID, err)
	}
}
