package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tradearena-io/tournament-engine/internal/observability/metrics"
	"github.com/tradearena-io/tournament-engine/internal/observability/tracing"
	"github.com/tradearena-io/tournament-engine/internal/types"
	"github.com/tradearena-io/tournament-engine/internal/utils/poller"
)

// tournamentSchedule is one tournament's polling handle: its poller, its
// cancel function and its backoff state. Cycles are single-flight by
// construction: the poller's timer only rearms after the previous cycle
// returns, so an overdue tick is absorbed, never queued.
type tournamentSchedule struct {
	cancel context.CancelFunc
	poller *poller.Poller

	mu                  sync.Mutex
	consecutiveFailures int
	interval            time.Duration
	// floor defers the next cycle past a venue retry-after, then resets
	floor time.Duration

	base      time.Duration
	cap       time.Duration
	threshold int
}

func (t *tournamentSchedule) nextInterval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	interval := t.interval
	if t.floor > interval {
		interval = t.floor
	}
	t.floor = 0
	return interval
}

func (t *tournamentSchedule) recordSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consecutiveFailures = 0
	t.interval = t.base
}

func (t *tournamentSchedule) recordFailure(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consecutiveFailures++
	if t.consecutiveFailures >= t.threshold {
		t.interval = min(t.interval*2, t.cap)
	}
	if retryAfter, ok := types.RetryAfterOf(err); ok && retryAfter > 0 {
		t.floor = retryAfter
	}
}

// StartLifecyclePoller keeps the scheduling registry reconciled against the
// database's set of active tournaments.
func (s *Service) StartLifecyclePoller(ctx context.Context) {
	if err := s.reconcileSchedules(ctx); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Initial schedule reconciliation failed")
	}

	lifecyclePoller := poller.NewFixedPoller(s.cfg.Scheduler.LifecycleInterval, s.reconcileSchedules)
	go lifecyclePoller.Start(ctx)
}

// reconcileSchedules starts pollers for newly active tournaments and
// cancels pollers for tournaments that left the active state. The registry
// is the single owner of scheduling handles; teardown cancels and removes
// the handle.
func (s *Service) reconcileSchedules(ctx context.Context) error {
	active, err := s.db.GetTournamentsByState(ctx, types.TournamentActive)
	if err != nil {
		return err
	}

	want := make(map[string]struct{}, len(active))
	for _, tournament := range active {
		want[tournament.ID] = struct{}{}
	}

	s.schedMu.Lock()
	defer s.schedMu.Unlock()

	for id := range want {
		if _, ok := s.schedules[id]; !ok {
			s.startSchedule(ctx, id)
			log.Ctx(ctx).Info().Str("tournament_id", id).Msg("Scheduled tournament for sync")
		}
	}

	for id, sched := range s.schedules {
		if _, ok := want[id]; !ok {
			sched.cancel()
			delete(s.schedules, id)
			log.Ctx(ctx).Info().Str("tournament_id", id).Msg("Cancelled sync schedule for inactive tournament")
		}
	}

	metrics.SetActiveTournaments(len(s.schedules))
	return nil
}

// startSchedule registers and starts one tournament's poller. Caller holds
// schedMu.
func (s *Service) startSchedule(ctx context.Context, tournamentID string) {
	cycleCtx, cancel := context.WithCancel(ctx)

	sched := &tournamentSchedule{
		cancel:    cancel,
		interval:  s.cfg.Scheduler.SyncInterval,
		base:      s.cfg.Scheduler.SyncInterval,
		cap:       s.cfg.Scheduler.MaxBackoffInterval,
		threshold: s.cfg.Scheduler.FailureThreshold,
	}
	sched.poller = poller.NewPoller(sched.nextInterval, func(ctx context.Context) error {
		return s.runSyncCycle(ctx, tournamentID, sched)
	})
	s.schedules[tournamentID] = sched

	go sched.poller.Start(cycleCtx)
}

// cycleKey namespaces the scheduler's single-flight token away from the
// tournament's serialization token, which a cycle takes later when ranking.
func cycleKey(tournamentID string) string {
	return "sync-cycle/" + tournamentID
}

func (s *Service) runSyncCycle(ctx context.Context, tournamentID string, sched *tournamentSchedule) error {
	ctx = tracing.InjectTraceID(ctx)

	var err error
	// the poller never overlaps its own ticks, but a reconcile can restart
	// a schedule while the previous cycle is still draining; an overlapping
	// cycle is skipped, not queued
	ran := s.locks.TryDo(cycleKey(tournamentID), func() {
		start := time.Now()
		err = s.syncTournament(ctx, tournamentID)
		metrics.RecordSyncCycleDuration(time.Since(start), err)
	})
	if !ran {
		log.Ctx(ctx).Debug().Str("tournament_id", tournamentID).Msg("Previous sync cycle still running, skipping tick")
		return nil
	}

	if err != nil {
		sched.recordFailure(err)
		return err
	}
	sched.recordSuccess()
	return nil
}
