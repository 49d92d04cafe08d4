package model

import "time"

const LeaderboardCollection = "leaderboards"

// Leaderboard is the shared-store value for one tournament: the complete
// entry set at some version. It is replaced in a single document write, so
// readers always observe an internally consistent ranking.
type Leaderboard struct {
	TournamentID string             `bson:"_id" json:"tournamentId"`
	Version      int64              `bson:"version" json:"version"`
	ComputedAt   time.Time          `bson:"computed_at" json:"computedAt"`
	Entries      []LeaderboardEntry `bson:"entries" json:"entries"`
}

type LeaderboardEntry struct {
	Rank          int    `bson:"rank" json:"rank"`
	ParticipantID string `bson:"participant_id" json:"participantId"`
	UserID        string `bson:"user_id" json:"userId"`
	SnapshotID    string `bson:"snapshot_id" json:"snapshotId"`
	TotalPnl      int64  `bson:"total_pnl" json:"totalPnl"`
	MaxDrawdown   int64  `bson:"max_drawdown" json:"maxDrawdown"`
	TradeCount    int64  `bson:"trade_count" json:"tradeCount"`
}
