package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradearena-io/tournament-engine/internal/types"
)

func seedActiveParticipant(t *testing.T, env *testEnv, id string) {
	t.Helper()
	require.NoError(t, env.db.SaveParticipant(context.Background(), testParticipant(id)))
}

func TestSyncTournamentAppliesAndPublishes(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	seedActiveParticipant(t, env, "p-1")
	env.venue.records["acct-p-1"] = threeTrades()

	require.NoError(t, env.svc.syncTournament(ctx, "t-1"))

	cursor, err := env.db.GetSyncCursor(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), cursor.LastSeq)
	assert.Equal(t, "r3", cursor.LastRecordID)

	snapshot, err := env.db.GetLatestSnapshot(ctx, "p-1")
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, int64(-1200), snapshot.TotalPnl)

	board, err := env.db.GetLeaderboard(ctx, "t-1")
	require.NoError(t, err)
	require.Len(t, board.Entries, 1)
	assert.Equal(t, int64(-1200), board.Entries[0].TotalPnl)
	assert.Len(t, env.pub.published(), 1)
}

func TestSyncTournamentRateLimitedLeavesCursor(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	seedActiveParticipant(t, env, "p-1")
	env.venue.errs["acct-p-1"] = types.NewRateLimited(30*time.Second, fmt.Errorf("429 from venue"))

	err := env.svc.syncTournament(ctx, "t-1")
	require.Error(t, err)

	// the retry-after hint survives wrapping and joining so the scheduler
	// can defer the next cycle
	retryAfter, ok := types.RetryAfterOf(err)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, retryAfter)

	cursor, cerr := env.db.GetSyncCursor(ctx, "p-1")
	require.NoError(t, cerr)
	assert.Equal(t, int64(0), cursor.LastSeq)
	assert.Equal(t, 1, cursor.ConsecutiveFailures)

	snapshot, serr := env.db.GetLatestSnapshot(ctx, "p-1")
	require.NoError(t, serr)
	assert.Nil(t, snapshot)
}

func TestSyncTournamentPermanentErrorDisablesParticipant(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	seedActiveParticipant(t, env, "p-1")
	env.venue.errs["acct-p-1"] = types.NewPermanent(fmt.Errorf("account revoked"))

	// a permanent venue error is absorbed, not propagated
	require.NoError(t, env.svc.syncTournament(ctx, "t-1"))

	cursor, err := env.db.GetSyncCursor(ctx, "p-1")
	require.NoError(t, err)
	assert.True(t, cursor.Disabled)
	assert.Contains(t, cursor.DisabledReason, "account revoked")
	require.Equal(t, 1, env.venue.callCount("acct-p-1"))

	// the next cycle skips the disabled participant entirely
	require.NoError(t, env.svc.syncTournament(ctx, "t-1"))
	assert.Equal(t, 1, env.venue.callCount("acct-p-1"))
}

func TestSyncTournamentCursorAdvanceFailureRefetchDedups(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	seedActiveParticipant(t, env, "p-1")
	env.venue.records["acct-p-1"] = threeTrades()

	// cycle 1: the snapshot lands but the cursor advance is lost
	env.db.advanceCursorErr = errors.New("connection reset")
	require.NoError(t, env.svc.syncTournament(ctx, "t-1"))

	cursor, err := env.db.GetSyncCursor(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), cursor.LastSeq)

	// cycle 2: one new record appears; the re-fetch returns all four and
	// only the unseen one may change the totals
	env.db.advanceCursorErr = nil
	env.venue.records["acct-p-1"] = append(threeTrades(), trade("r4", 4, 300, 100_50, 100_00, 1_0000))
	require.NoError(t, env.svc.syncTournament(ctx, "t-1"))

	snapshot, err := env.db.GetLatestSnapshot(ctx, "p-1")
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, int64(4), snapshot.TradeCount)
	assert.Equal(t, int64(-650), snapshot.TotalPnl)
	assert.Equal(t, int64(4), snapshot.LastSeq)

	cursor, err = env.db.GetSyncCursor(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), cursor.LastSeq)
}

func TestSyncTournamentRefetchWithNoNewRecordsWritesNothing(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	seedActiveParticipant(t, env, "p-1")
	env.venue.records["acct-p-1"] = threeTrades()

	env.db.advanceCursorErr = errors.New("connection reset")
	require.NoError(t, env.svc.syncTournament(ctx, "t-1"))
	require.Len(t, env.db.snapshots, 1)

	// cycle 2 re-fetches the same three records; every one is a duplicate
	env.db.advanceCursorErr = nil
	require.NoError(t, env.svc.syncTournament(ctx, "t-1"))

	assert.Len(t, env.db.snapshots, 1)
	cursor, err := env.db.GetSyncCursor(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, 0, cursor.ConsecutiveFailures)
}

func TestSyncTournamentSnapshotWriteFailure(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	seedActiveParticipant(t, env, "p-1")
	env.venue.records["acct-p-1"] = threeTrades()
	env.db.saveSnapshotErr = errors.New("write concern timeout")

	err := env.svc.syncTournament(ctx, "t-1")
	require.Error(t, err)

	cursor, cerr := env.db.GetSyncCursor(ctx, "p-1")
	require.NoError(t, cerr)
	assert.Equal(t, int64(0), cursor.LastSeq)
	assert.Equal(t, 1, cursor.ConsecutiveFailures)

	// a clean retry applies the same records
	env.db.saveSnapshotErr = nil
	require.NoError(t, env.svc.syncTournament(ctx, "t-1"))
	snapshot, serr := env.db.GetLatestSnapshot(ctx, "p-1")
	require.NoError(t, serr)
	require.NotNil(t, snapshot)
	assert.Equal(t, int64(-1200), snapshot.TotalPnl)
}

func TestSyncTournamentPartialFailureStillRanksEveryone(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	seedActiveParticipant(t, env, "p-1")
	seedActiveParticipant(t, env, "p-2")
	env.venue.records["acct-p-1"] = threeTrades()
	env.venue.errs["acct-p-2"] = types.NewTransient(fmt.Errorf("venue 503"))

	err := env.svc.syncTournament(ctx, "t-1")
	require.Error(t, err)

	// the healthy participant synced and the board still covers both,
	// with the failing one at its previous (zero) totals
	board, berr := env.db.GetLeaderboard(ctx, "t-1")
	require.NoError(t, berr)
	require.Len(t, board.Entries, 2)
	assert.Equal(t, "p-2", board.Entries[0].ParticipantID)
	assert.Equal(t, int64(0), board.Entries[0].TotalPnl)
	assert.Equal(t, "p-1", board.Entries[1].ParticipantID)
	assert.Equal(t, int64(-1200), board.Entries[1].TotalPnl)
}

func TestSyncTournamentNoParticipants(t *testing.T) {
	env := newTestEnv()

	require.NoError(t, env.svc.syncTournament(context.Background(), "t-1"))
	assert.Empty(t, env.pub.published())
}
