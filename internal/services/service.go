package services

import (
	"context"
	"sync"

	"github.com/tradearena-io/tournament-engine/internal/clients/venueclient"
	"github.com/tradearena-io/tournament-engine/internal/config"
	"github.com/tradearena-io/tournament-engine/internal/db"
	"github.com/tradearena-io/tournament-engine/internal/queue"
	"github.com/tradearena-io/tournament-engine/internal/utils/keylock"
	"github.com/tradearena-io/tournament-engine/internal/ws"
)

type Service struct {
	cfg          *config.Config
	db           db.DbInterface
	venue        venueclient.VenueInterface
	queueManager queue.PublisherInterface
	hub          ws.Broadcaster

	// locks is the per-tournament serialization token shared by ranking
	// passes and registration transitions
	locks *keylock.KeyLock

	schedMu   sync.Mutex
	schedules map[string]*tournamentSchedule
}

func NewService(
	cfg *config.Config,
	db db.DbInterface,
	venue venueclient.VenueInterface,
	qm queue.PublisherInterface,
	hub ws.Broadcaster,
) *Service {
	return &Service{
		cfg:          cfg,
		db:           db,
		venue:        venue,
		queueManager: qm,
		hub:          hub,
		locks:        keylock.New(),
		schedules:    make(map[string]*tournamentSchedule),
	}
}

// StartEngineSync brings the scheduling registry in line with the database
// and keeps it reconciled until ctx is cancelled.
func (s *Service) StartEngineSync(ctx context.Context) {
	s.StartLifecyclePoller(ctx)
}
