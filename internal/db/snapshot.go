package db

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tradearena-io/tournament-engine/internal/db/model"
)

func (db *Database) SaveSnapshot(ctx context.Context, snapshot *model.PerformanceSnapshot) error {
	_, err := db.collection(model.SnapshotCollection).
		InsertOne(ctx, snapshot)
	if err != nil {
		var writeErr mongo.WriteException
		if errors.As(err, &writeErr) {
			for _, e := range writeErr.WriteErrors {
				if mongo.IsDuplicateKeyError(e) {
					return &DuplicateKeyError{
						Key:     snapshot.ID,
						Message: "snapshot already exists",
					}
				}
			}
		}
		return err
	}
	return nil
}

// GetLatestSnapshot returns the newest snapshot for one participant, or nil
// if the participant has no snapshots yet.
func (db *Database) GetLatestSnapshot(
	ctx context.Context, participantID string,
) (*model.PerformanceSnapshot, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "recorded_at", Value: -1}})
	res := db.collection(model.SnapshotCollection).
		FindOne(ctx, bson.M{"participant_id": participantID}, opts)

	var snapshot model.PerformanceSnapshot
	if err := res.Decode(&snapshot); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &snapshot, nil
}

// GetLatestSnapshots returns the newest snapshot per participant for one
// tournament, using an aggregation so the full series never leaves mongo.
func (db *Database) GetLatestSnapshots(
	ctx context.Context, tournamentID string,
) ([]*model.PerformanceSnapshot, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"tournament_id": tournamentID}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "participant_id", Value: 1},
			{Key: "recorded_at", Value: -1},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":    "$participant_id",
			"latest": bson.M{"$first": "$$ROOT"},
		}}},
		{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$latest"}}},
	}

	cursor, err := db.collection(model.SnapshotCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var snapshots []*model.PerformanceSnapshot
	if err := cursor.All(ctx, &snapshots); err != nil {
		return nil, err
	}
	return snapshots, nil
}
