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

// ReplaceLeaderboard swaps in the full entry set for a tournament in a
// single document write and returns the new version. Readers always see a
// complete ranking at some version; partial sets are impossible.
func (db *Database) ReplaceLeaderboard(
	ctx context.Context, tournamentID string, entries []model.LeaderboardEntry,
) (int64, error) {
	update := bson.M{
		"$set": bson.M{
			"entries":     entries,
			"computed_at": time.Now().UTC(),
		},
		"$inc": bson.M{"version": int64(1)},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	res := db.collection(model.LeaderboardCollection).
		FindOneAndUpdate(ctx, bson.M{"_id": tournamentID}, update, opts)

	var board model.Leaderboard
	if err := res.Decode(&board); err != nil {
		return 0, err
	}
	return board.Version, nil
}

func (db *Database) GetLeaderboard(ctx context.Context, tournamentID string) (*model.Leaderboard, error) {
	res := db.collection(model.LeaderboardCollection).
		FindOne(ctx, bson.M{"_id": tournamentID})

	var board model.Leaderboard
	if err := res.Decode(&board); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     tournamentID,
				Message: "leaderboard not found by tournament id",
			}
		}
		return nil, err
	}
	return &board, nil
}
