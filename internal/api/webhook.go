package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/tradearena-io/tournament-engine/internal/db/model"
	"github.com/tradearena-io/tournament-engine/internal/services"
	"github.com/tradearena-io/tournament-engine/internal/types"
)

const (
	signatureHeader = "X-Signature"
	maxWebhookBody  = 1 << 20
)

// registrationWebhookPayload is the ticketing provider's wire shape. The
// starting balance arrives as a decimal string and is converted to minor
// units on decode.
type registrationWebhookPayload struct {
	EventID         string    `json:"event_id"`
	Type            string    `json:"type"`
	TournamentID    string    `json:"tournament_id"`
	ParticipantID   string    `json:"participant_id"`
	UserID          string    `json:"user_id"`
	VenueAccountRef string    `json:"venue_account_ref"`
	StartingBalance string    `json:"starting_balance"`
	OccurredAt      time.Time `json:"occurred_at"`
}

func (s *Server) handleRegistrationWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if !verifySignature(s.cfg.WebhookSecret, body, r.Header.Get(signatureHeader)) {
		log.Ctx(r.Context()).Warn().Msg("Rejected registration webhook with bad signature")
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var payload registrationWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "malformed payload")
		return
	}
	if payload.EventID == "" || payload.TournamentID == "" || payload.ParticipantID == "" {
		writeError(w, http.StatusBadRequest, "event_id, tournament_id and participant_id are required")
		return
	}

	startingBalance, err := parseBalance(payload.StartingBalance)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid starting_balance")
		return
	}

	receivedAt := payload.OccurredAt
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}

	event := &model.RegistrationEvent{
		ID:              payload.EventID,
		Type:            types.RegistrationEventType(payload.Type),
		TournamentID:    payload.TournamentID,
		ParticipantID:   payload.ParticipantID,
		UserID:          payload.UserID,
		VenueAccountRef: payload.VenueAccountRef,
		StartingBalance: startingBalance,
		ReceivedAt:      receivedAt,
	}

	result, err := s.gate.ApplyRegistrationEvent(r.Context(), event)
	if err != nil {
		if types.KindOf(err) == types.Permanent {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		// retryable; the provider redelivers and the stored event is
		// re-applied, since only a completed apply replays as a no-op
		log.Ctx(r.Context()).Error().Err(err).Str("event_id", event.ID).Msg("Failed to apply registration event")
		writeError(w, http.StatusInternalServerError, "failed to apply event")
		return
	}

	status := http.StatusOK
	if result == services.ApplyResultFull {
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{
		"event_id": event.ID,
		"result":   strings.ToLower(string(result)),
	})
}

// verifySignature checks an HMAC-SHA256 hex digest of the raw body. A
// "sha256=" prefix on the header value is accepted.
func verifySignature(secret string, body []byte, header string) bool {
	header = strings.TrimPrefix(header, "sha256=")
	got, err := hex.DecodeString(header)
	if err != nil || len(got) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// parseBalance converts a decimal currency string to int64 cents.
func parseBalance(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.Shift(2).Round(0).IntPart(), nil
}
