package model

import (
	"time"

	"github.com/tradearena-io/tournament-engine/internal/types"
)

const ParticipantCollection = "participants"

type Participant struct {
	ID              string                 `bson:"_id"`
	UserID          string                 `bson:"user_id"`
	TournamentID    string                 `bson:"tournament_id"`
	VenueAccountRef string                 `bson:"venue_account_ref"`
	StartingBalance int64                  `bson:"starting_balance"`
	RegisteredAt    time.Time              `bson:"registered_at"`
	State           types.ParticipantState `bson:"state"`
}

// Active reports whether the participant counts toward standings.
func (p *Participant) Active() bool {
	return p.State == types.ParticipantActive
}
