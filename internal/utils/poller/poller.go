package poller

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Poller fires pollMethod on a timer. The delay before each fire is taken
// from intervalMethod, which lets the owner stretch the interval while the
// upstream is failing and restore it after a clean run.
type Poller struct {
	intervalMethod func() time.Duration
	quit           chan struct{}
	pollMethod     func(ctx context.Context) error
}

func NewPoller(intervalMethod func() time.Duration, pollMethod func(ctx context.Context) error) *Poller {
	return &Poller{
		intervalMethod: intervalMethod,
		quit:           make(chan struct{}),
		pollMethod:     pollMethod,
	}
}

// NewFixedPoller is a Poller whose interval never changes.
func NewFixedPoller(interval time.Duration, pollMethod func(ctx context.Context) error) *Poller {
	return NewPoller(func() time.Duration { return interval }, pollMethod)
}

func (p *Poller) Start(ctx context.Context) {
	interval := p.intervalMethod()
	timer := time.NewTimer(interval)
	defer timer.Stop()

	log.Ctx(ctx).Info().Msgf("Starting poller with interval %s", interval)

	for {
		select {
		case <-timer.C:
			if err := p.pollMethod(ctx); err != nil {
				log.Ctx(ctx).Error().Err(err).Msg("Error polling")
			}
			timer.Reset(p.intervalMethod())
		case <-ctx.Done():
			log.Ctx(ctx).Info().Msg("Poller stopped due to context cancellation")
			return
		case <-p.quit:
			log.Ctx(ctx).Info().Msg("Poller stopped")
			return
		}
	}
}

func (p *Poller) Stop() {
	close(p.quit)
}
