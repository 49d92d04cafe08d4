package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/tradearena-io/tournament-engine/internal/db"
)

func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	tournamentID := chi.URLParam(r, "tournamentID")

	board, err := s.store.GetLeaderboard(r.Context(), tournamentID)
	if err != nil {
		if db.IsNotFoundError(err) {
			writeError(w, http.StatusNotFound, "leaderboard not found")
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Str("tournament_id", tournamentID).Msg("Failed to read leaderboard")
		writeError(w, http.StatusInternalServerError, "failed to read leaderboard")
		return
	}

	writeJSON(w, http.StatusOK, board)
}

// handleStream upgrades to a websocket and hands the connection to the hub,
// which pushes every published leaderboard version until the client leaves.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	tournamentID := chi.URLParam(r, "tournamentID")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		log.Ctx(r.Context()).Debug().Err(err).Msg("Websocket upgrade failed")
		return
	}

	ctx := r.Context()
	if s.baseCtx != nil {
		ctx = s.baseCtx
	}
	go s.hub.ServeConn(ctx, tournamentID, conn)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
