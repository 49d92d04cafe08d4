package model

import "time"

const SyncCursorCollection = "sync_cursors"

// SyncCursor is the per-participant watermark for incremental venue polling.
// It is advanced only after the corresponding records have been durably
// folded into a snapshot, so a lost advance re-fetches instead of losing data.
type SyncCursor struct {
	ParticipantID       string    `bson:"_id"`
	VenueAccountRef     string    `bson:"venue_account_ref"`
	LastSeq             int64     `bson:"last_seq"`
	LastRecordID        string    `bson:"last_record_id"`
	LastRecordTime      time.Time `bson:"last_record_time"`
	LastSyncedAt        time.Time `bson:"last_synced_at"`
	ConsecutiveFailures int       `bson:"consecutive_failures"`
	Disabled            bool      `bson:"disabled"`
	DisabledReason      string    `bson:"disabled_reason,omitempty"`
}
