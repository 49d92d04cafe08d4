package db

import (
	"context"
	"time"

	"github.com/tradearena-io/tournament-engine/internal/db/model"
	"github.com/tradearena-io/tournament-engine/internal/observability/metrics"
	"github.com/tradearena-io/tournament-engine/internal/types"
)

type DbWithMetrics struct {
	db DbInterface
}

func NewDbWithMetrics(db DbInterface) *DbWithMetrics {
	return &DbWithMetrics{db: db}
}

func (d *DbWithMetrics) Ping(ctx context.Context) error {
	return d.db.Ping(ctx)
}

func (d *DbWithMetrics) SaveTournament(ctx context.Context, tournament *model.Tournament) error {
	return d.run("SaveTournament", func() error {
		return d.db.SaveTournament(ctx, tournament)
	})
}

func (d *DbWithMetrics) GetTournament(ctx context.Context, id string) (result *model.Tournament, err error) {
	//nolint:errcheck
	d.run("GetTournament", func() error {
		result, err = d.db.GetTournament(ctx, id)
		return err
	})
	return
}

func (d *DbWithMetrics) GetTournamentsByState(ctx context.Context, state types.TournamentState) (result []*model.Tournament, err error) {
	//nolint:errcheck
	d.run("GetTournamentsByState", func() error {
		result, err = d.db.GetTournamentsByState(ctx, state)
		return err
	})
	return
}

func (d *DbWithMetrics) UpdateTournamentState(ctx context.Context, id string, newState types.TournamentState) error {
	return d.run("UpdateTournamentState", func() error {
		return d.db.UpdateTournamentState(ctx, id, newState)
	})
}

func (d *DbWithMetrics) IncrementTournamentParticipants(ctx context.Context, id string) error {
	return d.run("IncrementTournamentParticipants", func() error {
		return d.db.IncrementTournamentParticipants(ctx, id)
	})
}

func (d *DbWithMetrics) DecrementTournamentParticipants(ctx context.Context, id string) error {
	return d.run("DecrementTournamentParticipants", func() error {
		return d.db.DecrementTournamentParticipants(ctx, id)
	})
}

func (d *DbWithMetrics) SaveParticipant(ctx context.Context, participant *model.Participant) error {
	return d.run("SaveParticipant", func() error {
		return d.db.SaveParticipant(ctx, participant)
	})
}

func (d *DbWithMetrics) GetParticipant(ctx context.Context, id string) (result *model.Participant, err error) {
	//nolint:errcheck
	d.run("GetParticipant", func() error {
		result, err = d.db.GetParticipant(ctx, id)
		return err
	})
	return
}

func (d *DbWithMetrics) GetActiveParticipants(ctx context.Context, tournamentID string) (result []*model.Participant, err error) {
	//nolint:errcheck
	d.run("GetActiveParticipants", func() error {
		result, err = d.db.GetActiveParticipants(ctx, tournamentID)
		return err
	})
	return
}

func (d *DbWithMetrics) UpdateParticipantState(
	ctx context.Context,
	id string,
	qualifiedPreviousStates []types.ParticipantState,
	newState types.ParticipantState,
) error {
	return d.run("UpdateParticipantState", func() error {
		return d.db.UpdateParticipantState(ctx, id, qualifiedPreviousStates, newState)
	})
}

func (d *DbWithMetrics) GetSyncCursor(ctx context.Context, participantID string) (result *model.SyncCursor, err error) {
	//nolint:errcheck
	d.run("GetSyncCursor", func() error {
		result, err = d.db.GetSyncCursor(ctx, participantID)
		return err
	})
	return
}

func (d *DbWithMetrics) AdvanceSyncCursor(ctx context.Context, cursor *model.SyncCursor) error {
	return d.run("AdvanceSyncCursor", func() error {
		return d.db.AdvanceSyncCursor(ctx, cursor)
	})
}

func (d *DbWithMetrics) MarkSyncSuccess(ctx context.Context, participantID string) error {
	return d.run("MarkSyncSuccess", func() error {
		return d.db.MarkSyncSuccess(ctx, participantID)
	})
}

func (d *DbWithMetrics) MarkSyncFailure(ctx context.Context, participantID string) error {
	return d.run("MarkSyncFailure", func() error {
		return d.db.MarkSyncFailure(ctx, participantID)
	})
}

func (d *DbWithMetrics) DisableSync(ctx context.Context, participantID, reason string) error {
	return d.run("DisableSync", func() error {
		return d.db.DisableSync(ctx, participantID, reason)
	})
}

func (d *DbWithMetrics) SaveSnapshot(ctx context.Context, snapshot *model.PerformanceSnapshot) error {
	return d.run("SaveSnapshot", func() error {
		return d.db.SaveSnapshot(ctx, snapshot)
	})
}

func (d *DbWithMetrics) GetLatestSnapshot(ctx context.Context, participantID string) (result *model.PerformanceSnapshot, err error) {
	//nolint:errcheck
	d.run("GetLatestSnapshot", func() error {
		result, err = d.db.GetLatestSnapshot(ctx, participantID)
		return err
	})
	return
}

func (d *DbWithMetrics) GetLatestSnapshots(ctx context.Context, tournamentID string) (result []*model.PerformanceSnapshot, err error) {
	//nolint:errcheck
	d.run("GetLatestSnapshots", func() error {
		result, err = d.db.GetLatestSnapshots(ctx, tournamentID)
		return err
	})
	return
}

func (d *DbWithMetrics) ReplaceLeaderboard(ctx context.Context, tournamentID string, entries []model.LeaderboardEntry) (version int64, err error) {
	//nolint:errcheck
	d.run("ReplaceLeaderboard", func() error {
		version, err = d.db.ReplaceLeaderboard(ctx, tournamentID, entries)
		return err
	})
	return
}

func (d *DbWithMetrics) GetLeaderboard(ctx context.Context, tournamentID string) (result *model.Leaderboard, err error) {
	//nolint:errcheck
	d.run("GetLeaderboard", func() error {
		result, err = d.db.GetLeaderboard(ctx, tournamentID)
		return err
	})
	return
}

func (d *DbWithMetrics) SaveRegistrationEvent(ctx context.Context, event *model.RegistrationEvent) error {
	return d.run("SaveRegistrationEvent", func() error {
		return d.db.SaveRegistrationEvent(ctx, event)
	})
}

func (d *DbWithMetrics) GetRegistrationEvent(ctx context.Context, eventID string) (result *model.RegistrationEvent, err error) {
	//nolint:errcheck
	d.run("GetRegistrationEvent", func() error {
		result, err = d.db.GetRegistrationEvent(ctx, eventID)
		return err
	})
	return
}

func (d *DbWithMetrics) MarkRegistrationEventProcessed(ctx context.Context, eventID string) error {
	return d.run("MarkRegistrationEventProcessed", func() error {
		return d.db.MarkRegistrationEventProcessed(ctx, eventID)
	})
}

// run executes the passed lambda and records its duration, method name and
// outcome. It returns the lambda's error for convenience.
func (d *DbWithMetrics) run(method string, f func() error) error {
	start := time.Now()
	err := f()
	metrics.RecordDbLatency(method, time.Since(start), err)
	return err
}
