// Package api exposes the engine's HTTP surface: the ticketing webhook
// endpoint, leaderboard reads and the websocket stream.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/tradearena-io/tournament-engine/internal/config"
	"github.com/tradearena-io/tournament-engine/internal/db/model"
	"github.com/tradearena-io/tournament-engine/internal/observability/tracing"
	"github.com/tradearena-io/tournament-engine/internal/services"
)

// RegistrationGate applies a webhook delivery to the engine.
type RegistrationGate interface {
	ApplyRegistrationEvent(ctx context.Context, event *model.RegistrationEvent) (services.ApplyResult, error)
}

// LeaderboardStore reads published standings from the shared store.
type LeaderboardStore interface {
	Ping(ctx context.Context) error
	GetLeaderboard(ctx context.Context, tournamentID string) (*model.Leaderboard, error)
}

// StreamHub owns websocket connections subscribed to a tournament's topic.
type StreamHub interface {
	ServeConn(ctx context.Context, tournamentID string, conn *websocket.Conn)
}

type Server struct {
	cfg      *config.ApiConfig
	gate     RegistrationGate
	store    LeaderboardStore
	hub      StreamHub
	upgrader websocket.Upgrader

	httpServer *http.Server

	// baseCtx outlives individual requests; cancelling it tells streaming
	// connections to close cleanly during shutdown
	baseCtx context.Context
}

func New(cfg *config.ApiConfig, gate RegistrationGate, store LeaderboardStore, hub StreamHub) *Server {
	return &Server{
		cfg:   cfg,
		gate:  gate,
		store: store,
		hub:   hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(tracing.InjectTraceID(req.Context())))
		})
	})

	r.Get("/healthcheck", s.handleHealthcheck)
	r.Post("/webhooks/registration", s.handleRegistrationWebhook)
	r.Route("/v1/tournaments/{tournamentID}", func(r chi.Router) {
		r.Get("/leaderboard", s.handleGetLeaderboard)
		r.Get("/stream", s.handleStream)
	})
	return r
}

// Start serves until ctx is cancelled, then drains with a grace period.
func (s *Server) Start(ctx context.Context) error {
	s.baseCtx = ctx
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Ctx(ctx).Info().Str("addr", s.cfg.Addr()).Msg("Starting API server")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleHealthcheck(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
