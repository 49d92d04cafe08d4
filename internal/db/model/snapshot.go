package model

import "time"

const SnapshotCollection = "performance_snapshots"

// PerformanceSnapshot is an immutable point-in-time performance record.
// All monetary figures are int64 minor units, quantities are int64 in
// 1e-4 share units. The series is append-only per participant with
// non-decreasing RecordedAt.
type PerformanceSnapshot struct {
	ID             string    `bson:"_id"`
	ParticipantID  string    `bson:"participant_id"`
	TournamentID   string    `bson:"tournament_id"`
	RecordedAt     time.Time `bson:"recorded_at"`
	RealizedPnl    int64     `bson:"realized_pnl"`
	UnrealizedPnl  int64     `bson:"unrealized_pnl"`
	TotalPnl       int64     `bson:"total_pnl"`
	TradeCount     int64     `bson:"trade_count"`
	SharesTraded   int64     `bson:"shares_traded"`
	NotionalTraded int64     `bson:"notional_traded"`
	PeakEquity     int64     `bson:"peak_equity"`
	MaxDrawdown    int64     `bson:"max_drawdown"`
	LastSeq        int64     `bson:"last_seq"`
	LastRecordID   string    `bson:"last_record_id"`
}
