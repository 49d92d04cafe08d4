package model

import (
	"time"

	"github.com/tradearena-io/tournament-engine/internal/types"
)

const TournamentCollection = "tournaments"

type Tournament struct {
	ID                  string                `bson:"_id"`
	Name                string                `bson:"name"`
	Division            string                `bson:"division"`
	State               types.TournamentState `bson:"state"`
	StartTime           time.Time             `bson:"start_time"`
	EndTime             time.Time             `bson:"end_time"`
	MaxParticipants     int                   `bson:"max_participants"`
	CurrentParticipants int                   `bson:"current_participants"`
}
