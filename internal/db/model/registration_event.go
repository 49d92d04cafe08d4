package model

import (
	"time"

	"github.com/tradearena-io/tournament-engine/internal/types"
)

const RegistrationEventCollection = "registration_events"

// RegistrationEvent is a ticketing webhook delivery. The external event id
// is the document id, so redelivery hits a duplicate key instead of a
// second state transition.
type RegistrationEvent struct {
	ID              string                      `bson:"_id"`
	Type            types.RegistrationEventType `bson:"type"`
	TournamentID    string                      `bson:"tournament_id"`
	ParticipantID   string                      `bson:"participant_id"`
	UserID          string                      `bson:"user_id"`
	VenueAccountRef string                      `bson:"venue_account_ref"`
	StartingBalance int64                       `bson:"starting_balance"`
	ReceivedAt      time.Time                   `bson:"received_at"`
	Processed       bool                        `bson:"processed"`
}
