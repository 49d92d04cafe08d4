package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tradearena-io/tournament-engine/internal/clients/venueclient"
	"github.com/tradearena-io/tournament-engine/internal/config"
	"github.com/tradearena-io/tournament-engine/internal/db"
	"github.com/tradearena-io/tournament-engine/internal/db/model"
	"github.com/tradearena-io/tournament-engine/internal/queue"
	"github.com/tradearena-io/tournament-engine/internal/types"
)

// fakeDb is an in-memory DbInterface with the same semantics as the mongo
// implementation: duplicate keys, qualified-state transitions, capacity
// guards and versioned leaderboard replaces.
type fakeDb struct {
	mu sync.Mutex

	tournaments  map[string]*model.Tournament
	participants map[string]*model.Participant
	cursors      map[string]*model.SyncCursor
	snapshots    []*model.PerformanceSnapshot
	leaderboards map[string]*model.Leaderboard
	events       map[string]*model.RegistrationEvent

	// failure injection
	advanceCursorErr error
	saveSnapshotErr  error
}

func newFakeDb() *fakeDb {
	return &fakeDb{
		tournaments:  make(map[string]*model.Tournament),
		participants: make(map[string]*model.Participant),
		cursors:      make(map[string]*model.SyncCursor),
		leaderboards: make(map[string]*model.Leaderboard),
		events:       make(map[string]*model.RegistrationEvent),
	}
}

func (f *fakeDb) Ping(ctx context.Context) error { return nil }

func (f *fakeDb) SaveTournament(ctx context.Context, t *model.Tournament) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tournaments[t.ID]; ok {
		return &db.DuplicateKeyError{Key: t.ID, Message: "tournament already exists"}
	}
	clone := *t
	f.tournaments[t.ID] = &clone
	return nil
}

func (f *fakeDb) GetTournament(ctx context.Context, id string) (*model.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tournaments[id]
	if !ok {
		return nil, &db.NotFoundError{Key: id, Message: "tournament not found by id"}
	}
	clone := *t
	return &clone, nil
}

func (f *fakeDb) GetTournamentsByState(
	ctx context.Context, state types.TournamentState,
) ([]*model.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Tournament
	for _, t := range f.tournaments {
		if t.State == state {
			clone := *t
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeDb) UpdateTournamentState(
	ctx context.Context, id string, newState types.TournamentState,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tournaments[id]
	if !ok || t.State.Terminal() {
		return &db.NotFoundError{Key: id, Message: "tournament not found or already terminal"}
	}
	t.State = newState
	return nil
}

func (f *fakeDb) IncrementTournamentParticipants(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tournaments[id]
	if !ok {
		return &db.NotFoundError{Key: id, Message: "tournament not found by id"}
	}
	if t.State.Terminal() {
		return &db.TournamentClosedError{TournamentID: id}
	}
	if t.CurrentParticipants >= t.MaxParticipants {
		return &db.TournamentFullError{TournamentID: id}
	}
	t.CurrentParticipants++
	return nil
}

func (f *fakeDb) DecrementTournamentParticipants(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tournaments[id]
	if !ok || t.CurrentParticipants == 0 {
		return &db.NotFoundError{Key: id, Message: "tournament not found or participant count already zero"}
	}
	t.CurrentParticipants--
	return nil
}

func (f *fakeDb) SaveParticipant(ctx context.Context, p *model.Participant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.participants[p.ID]; ok {
		return &db.DuplicateKeyError{Key: p.ID, Message: "participant already exists"}
	}
	clone := *p
	f.participants[p.ID] = &clone
	return nil
}

func (f *fakeDb) GetParticipant(ctx context.Context, id string) (*model.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.participants[id]
	if !ok {
		return nil, &db.NotFoundError{Key: id, Message: "participant not found by id"}
	}
	clone := *p
	return &clone, nil
}

func (f *fakeDb) GetActiveParticipants(
	ctx context.Context, tournamentID string,
) ([]*model.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Participant
	for _, p := range f.participants {
		if p.TournamentID == tournamentID && p.State == types.ParticipantActive {
			clone := *p
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeDb) UpdateParticipantState(
	ctx context.Context,
	id string,
	qualifiedPreviousStates []types.ParticipantState,
	newState types.ParticipantState,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.participants[id]
	if !ok {
		return &db.NotFoundError{Key: id, Message: "participant not found or not in a qualified state"}
	}
	for _, state := range qualifiedPreviousStates {
		if p.State == state {
			p.State = newState
			return nil
		}
	}
	return &db.NotFoundError{Key: id, Message: "participant not found or not in a qualified state"}
}

func (f *fakeDb) GetSyncCursor(ctx context.Context, participantID string) (*model.SyncCursor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cursors[participantID]
	if !ok {
		return &model.SyncCursor{ParticipantID: participantID}, nil
	}
	clone := *c
	return &clone, nil
}

func (f *fakeDb) AdvanceSyncCursor(ctx context.Context, cursor *model.SyncCursor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.advanceCursorErr != nil {
		return f.advanceCursorErr
	}
	existing, ok := f.cursors[cursor.ParticipantID]
	if ok && existing.LastSeq >= cursor.LastSeq {
		return &db.StaleCursorError{ParticipantID: cursor.ParticipantID}
	}
	clone := *cursor
	clone.LastSyncedAt = time.Now().UTC()
	f.cursors[cursor.ParticipantID] = &clone
	return nil
}

func (f *fakeDb) MarkSyncSuccess(ctx context.Context, participantID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.cursorLocked(participantID)
	c.ConsecutiveFailures = 0
	c.LastSyncedAt = time.Now().UTC()
	return nil
}

func (f *fakeDb) MarkSyncFailure(ctx context.Context, participantID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursorLocked(participantID).ConsecutiveFailures++
	return nil
}

func (f *fakeDb) DisableSync(ctx context.Context, participantID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.cursorLocked(participantID)
	c.Disabled = true
	c.DisabledReason = reason
	return nil
}

func (f *fakeDb) cursorLocked(participantID string) *model.SyncCursor {
	c, ok := f.cursors[participantID]
	if !ok {
		c = &model.SyncCursor{ParticipantID: participantID}
		f.cursors[participantID] = c
	}
	return c
}

func (f *fakeDb) SaveSnapshot(ctx context.Context, snapshot *model.PerformanceSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveSnapshotErr != nil {
		return f.saveSnapshotErr
	}
	clone := *snapshot
	f.snapshots = append(f.snapshots, &clone)
	return nil
}

func (f *fakeDb) GetLatestSnapshot(
	ctx context.Context, participantID string,
) (*model.PerformanceSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *model.PerformanceSnapshot
	for _, snap := range f.snapshots {
		if snap.ParticipantID != participantID {
			continue
		}
		if latest == nil || snap.RecordedAt.After(latest.RecordedAt) || snap.LastSeq > latest.LastSeq {
			latest = snap
		}
	}
	if latest == nil {
		return nil, nil
	}
	clone := *latest
	return &clone, nil
}

func (f *fakeDb) GetLatestSnapshots(
	ctx context.Context, tournamentID string,
) ([]*model.PerformanceSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	latest := make(map[string]*model.PerformanceSnapshot)
	for _, snap := range f.snapshots {
		if snap.TournamentID != tournamentID {
			continue
		}
		current, ok := latest[snap.ParticipantID]
		if !ok || snap.LastSeq > current.LastSeq {
			latest[snap.ParticipantID] = snap
		}
	}
	var out []*model.PerformanceSnapshot
	for _, snap := range latest {
		clone := *snap
		out = append(out, &clone)
	}
	return out, nil
}

func (f *fakeDb) ReplaceLeaderboard(
	ctx context.Context, tournamentID string, entries []model.LeaderboardEntry,
) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	board, ok := f.leaderboards[tournamentID]
	if !ok {
		board = &model.Leaderboard{TournamentID: tournamentID}
		f.leaderboards[tournamentID] = board
	}
	board.Version++
	board.ComputedAt = time.Now().UTC()
	board.Entries = append([]model.LeaderboardEntry(nil), entries...)
	return board.Version, nil
}

func (f *fakeDb) GetLeaderboard(ctx context.Context, tournamentID string) (*model.Leaderboard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	board, ok := f.leaderboards[tournamentID]
	if !ok {
		return nil, &db.NotFoundError{Key: tournamentID, Message: "leaderboard not found by tournament id"}
	}
	clone := *board
	clone.Entries = append([]model.LeaderboardEntry(nil), board.Entries...)
	return &clone, nil
}

func (f *fakeDb) SaveRegistrationEvent(ctx context.Context, event *model.RegistrationEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[event.ID]; ok {
		return &db.DuplicateKeyError{Key: event.ID, Message: "registration event already processed"}
	}
	clone := *event
	f.events[event.ID] = &clone
	return nil
}

func (f *fakeDb) GetRegistrationEvent(ctx context.Context, eventID string) (*model.RegistrationEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[eventID]
	if !ok {
		return nil, &db.NotFoundError{Key: eventID, Message: "registration event not found by id"}
	}
	clone := *event
	return &clone, nil
}

func (f *fakeDb) MarkRegistrationEventProcessed(ctx context.Context, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[eventID]
	if !ok {
		return &db.NotFoundError{Key: eventID, Message: "registration event not found by id"}
	}
	event.Processed = true
	return nil
}

// fakeVenue serves canned records per account and tracks call times for
// rate-limit assertions.
type fakeVenue struct {
	mu      sync.Mutex
	records map[string][]venueclient.TradeRecord
	errs    map[string]error
	calls   map[string][]time.Time
}

func newFakeVenue() *fakeVenue {
	return &fakeVenue{
		records: make(map[string][]venueclient.TradeRecord),
		errs:    make(map[string]error),
		calls:   make(map[string][]time.Time),
	}
}

func (f *fakeVenue) FetchSince(
	ctx context.Context, accountRef string, cursor venueclient.Cursor,
) ([]venueclient.TradeRecord, venueclient.Cursor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[accountRef] = append(f.calls[accountRef], time.Now())

	if err := f.errs[accountRef]; err != nil {
		return nil, cursor, err
	}

	var out []venueclient.TradeRecord
	newCursor := cursor
	for _, r := range f.records[accountRef] {
		if r.Seq <= cursor.Seq {
			continue
		}
		out = append(out, r)
		if r.Seq > newCursor.Seq {
			newCursor = venueclient.Cursor{Seq: r.Seq, RecordID: r.ID, RecordTime: r.ExecutedAt}
		}
	}
	return out, newCursor, nil
}

func (f *fakeVenue) callCount(accountRef string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls[accountRef])
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*queue.StandingsUpdatedEvent
	err    error
}

func (f *fakePublisher) PublishStandingsUpdated(ctx context.Context, event *queue.StandingsUpdatedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	clone := *event
	f.events = append(f.events, &clone)
	return nil
}

func (f *fakePublisher) Shutdown() {}

func (f *fakePublisher) published() []*queue.StandingsUpdatedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*queue.StandingsUpdatedEvent(nil), f.events...)
}

type broadcastMsg struct {
	tournamentID string
	payload      any
}

type fakeHub struct {
	mu       sync.Mutex
	messages []broadcastMsg
}

func (f *fakeHub) Broadcast(tournamentID string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, broadcastMsg{tournamentID: tournamentID, payload: payload})
}

func (f *fakeHub) broadcasts() []broadcastMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]broadcastMsg(nil), f.messages...)
}

type testEnv struct {
	svc   *Service
	db    *fakeDb
	venue *fakeVenue
	pub   *fakePublisher
	hub   *fakeHub
}

func newTestEnv() *testEnv {
	fdb := newFakeDb()
	venue := newFakeVenue()
	pub := &fakePublisher{}
	hub := &fakeHub{}

	cfg := &config.Config{
		Scheduler: config.SchedulerConfig{
			SyncInterval:       30 * time.Second,
			LifecycleInterval:  time.Minute,
			WorkerPoolSize:     4,
			FailureThreshold:   3,
			MaxBackoffInterval: 10 * time.Minute,
		},
	}

	return &testEnv{
		// the latency wrapper sits between the service and the store in
		// production, so the whole suite runs through it
		svc:   NewService(cfg, db.NewDbWithMetrics(fdb), venue, pub, hub),
		db:    fdb,
		venue: venue,
		pub:   pub,
		hub:   hub,
	}
}
