package db

import (
	"context"

	"github.com/tradearena-io/tournament-engine/internal/db/model"
	"github.com/tradearena-io/tournament-engine/internal/types"
)

type DbInterface interface {
	Ping(ctx context.Context) error

	SaveTournament(ctx context.Context, tournament *model.Tournament) error
	GetTournament(ctx context.Context, id string) (*model.Tournament, error)
	GetTournamentsByState(ctx context.Context, state types.TournamentState) ([]*model.Tournament, error)
	UpdateTournamentState(ctx context.Context, id string, newState types.TournamentState) error
	IncrementTournamentParticipants(ctx context.Context, id string) error
	DecrementTournamentParticipants(ctx context.Context, id string) error

	SaveParticipant(ctx context.Context, participant *model.Participant) error
	GetParticipant(ctx context.Context, id string) (*model.Participant, error)
	GetActiveParticipants(ctx context.Context, tournamentID string) ([]*model.Participant, error)
	UpdateParticipantState(
		ctx context.Context,
		id string,
		qualifiedPreviousStates []types.ParticipantState,
		newState types.ParticipantState,
	) error

	GetSyncCursor(ctx context.Context, participantID string) (*model.SyncCursor, error)
	AdvanceSyncCursor(ctx context.Context, cursor *model.SyncCursor) error
	MarkSyncSuccess(ctx context.Context, participantID string) error
	MarkSyncFailure(ctx context.Context, participantID string) error
	DisableSync(ctx context.Context, participantID, reason string) error

	SaveSnapshot(ctx context.Context, snapshot *model.PerformanceSnapshot) error
	GetLatestSnapshot(ctx context.Context, participantID string) (*model.PerformanceSnapshot, error)
	GetLatestSnapshots(ctx context.Context, tournamentID string) ([]*model.PerformanceSnapshot, error)

	ReplaceLeaderboard(ctx context.Context, tournamentID string, entries []model.LeaderboardEntry) (int64, error)
	GetLeaderboard(ctx context.Context, tournamentID string) (*model.Leaderboard, error)

	SaveRegistrationEvent(ctx context.Context, event *model.RegistrationEvent) error
	GetRegistrationEvent(ctx context.Context, eventID string) (*model.RegistrationEvent, error)
	MarkRegistrationEventProcessed(ctx context.Context, eventID string) error
}
