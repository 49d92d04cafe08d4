package db

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tradearena-io/tournament-engine/internal/db/model"
)

// GetSyncCursor returns the participant's watermark, or a zero cursor if the
// participant has never been synced.
func (db *Database) GetSyncCursor(ctx context.Context, participantID string) (*model.SyncCursor, error) {
	res := db.collection(model.SyncCursorCollection).
		FindOne(ctx, bson.M{"_id": participantID})

	var cursor model.SyncCursor
	if err := res.Decode(&cursor); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &model.SyncCursor{ParticipantID: participantID}, nil
		}
		return nil, err
	}
	return &cursor, nil
}

// AdvanceSyncCursor moves the watermark forward and clears the failure
// count. The guard on last_seq keeps a delayed write from moving the cursor
// backwards; the caller re-fetches and dedups in that case.
func (db *Database) AdvanceSyncCursor(ctx context.Context, cursor *model.SyncCursor) error {
	filter := bson.M{
		"_id": cursor.ParticipantID,
		"$or": bson.A{
			bson.M{"last_seq": bson.M{"$lt": cursor.LastSeq}},
			bson.M{"last_seq": bson.M{"$exists": false}},
		},
	}
	update := bson.M{"$set": bson.M{
		"venue_account_ref":    cursor.VenueAccountRef,
		"last_seq":             cursor.LastSeq,
		"last_record_id":       cursor.LastRecordID,
		"last_record_time":     cursor.LastRecordTime,
		"last_synced_at":       time.Now().UTC(),
		"consecutive_failures": 0,
	}}
	opts := options.Update().SetUpsert(true)

	res, err := db.collection(model.SyncCursorCollection).
		UpdateOne(ctx, filter, update, opts)
	if err != nil {
		// upsert racing an existing doc whose last_seq is already ahead
		if mongo.IsDuplicateKeyError(err) {
			return &StaleCursorError{ParticipantID: cursor.ParticipantID}
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return &StaleCursorError{ParticipantID: cursor.ParticipantID}
	}
	return nil
}

// MarkSyncSuccess clears the failure count without moving the watermark,
// used when a cycle fetched nothing new.
func (db *Database) MarkSyncSuccess(ctx context.Context, participantID string) error {
	update := bson.M{"$set": bson.M{
		"last_synced_at":       time.Now().UTC(),
		"consecutive_failures": 0,
	}}
	opts := options.Update().SetUpsert(true)
	_, err := db.collection(model.SyncCursorCollection).
		UpdateOne(ctx, bson.M{"_id": participantID}, update, opts)
	return err
}

func (db *Database) MarkSyncFailure(ctx context.Context, participantID string) error {
	update := bson.M{"$inc": bson.M{"consecutive_failures": 1}}
	opts := options.Update().SetUpsert(true)
	_, err := db.collection(model.SyncCursorCollection).
		UpdateOne(ctx, bson.M{"_id": participantID}, update, opts)
	return err
}

// DisableSync stops polling for a participant after a permanent venue
// error. Cleared manually by an operator.
func (db *Database) DisableSync(ctx context.Context, participantID, reason string) error {
	update := bson.M{"$set": bson.M{
		"disabled":        true,
		"disabled_reason": reason,
	}}
	opts := options.Update().SetUpsert(true)
	_, err := db.collection(model.SyncCursorCollection).
		UpdateOne(ctx, bson.M{"_id": participantID}, update, opts)
	return err
}
