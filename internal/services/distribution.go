package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tradearena-io/tournament-engine/internal/db/model"
	"github.com/tradearena-io/tournament-engine/internal/observability/metrics"
	"github.com/tradearena-io/tournament-engine/internal/queue"
)

// publishStandings writes the entry set to the shared store and fans the
// new version out to queue consumers and websocket subscribers. The store
// write is the source of truth; fan-out failures are logged and counted but
// never fail the pass, since the next pass re-publishes anyway.
func (s *Service) publishStandings(
	ctx context.Context, tournamentID string, entries []model.LeaderboardEntry,
) error {
	version, err := s.db.ReplaceLeaderboard(ctx, tournamentID, entries)
	if err != nil {
		return fmt.Errorf("failed to replace leaderboard: %w", err)
	}
	metrics.SetLeaderboardVersion(tournamentID, version)

	computedAt := time.Now().UTC()
	event := &queue.StandingsUpdatedEvent{
		TournamentID: tournamentID,
		Version:      version,
		ComputedAt:   computedAt,
	}
	if err := s.queueManager.PublishStandingsUpdated(ctx, event); err != nil {
		metrics.IncPublishError()
		log.Ctx(ctx).Error().Err(err).
			Str("tournament_id", tournamentID).
			Int64("version", version).
			Msg("Failed to publish standings notification")
	}

	s.hub.Broadcast(tournamentID, &model.Leaderboard{
		TournamentID: tournamentID,
		Version:      version,
		ComputedAt:   computedAt,
		Entries:      entries,
	})

	log.Ctx(ctx).Debug().
		Str("tournament_id", tournamentID).
		Int64("version", version).
		Int("entries", len(entries)).
		Msg("Published standings")
	return nil
}
