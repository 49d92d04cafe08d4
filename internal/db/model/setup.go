package model

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tradearena-io/tournament-engine/internal/config"
)

// index of the collections and their indexes
var collectionIndexes = map[string][]mongo.IndexModel{
	TournamentCollection: {
		{Keys: bson.D{{Key: "state", Value: 1}}},
	},
	ParticipantCollection: {
		{Keys: bson.D{{Key: "tournament_id", Value: 1}, {Key: "state", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	},
	SyncCursorCollection: {
		{Keys: bson.D{{Key: "disabled", Value: 1}}},
	},
	SnapshotCollection: {
		{Keys: bson.D{{Key: "participant_id", Value: 1}, {Key: "recorded_at", Value: -1}}},
		{Keys: bson.D{{Key: "tournament_id", Value: 1}}},
	},
	LeaderboardCollection: nil,
	RegistrationEventCollection: {
		{Keys: bson.D{{Key: "tournament_id", Value: 1}}},
	},
}

// Setup creates the collections and indexes used by the engine. It is safe
// to call on every startup.
func Setup(ctx context.Context, cfg *config.DbConfig) error {
	credential := options.Credential{
		Username: cfg.Username,
		Password: cfg.Password,
	}
	clientOps := options.Client().ApplyURI(cfg.Address).SetAuth(credential)
	client, err := mongo.Connect(ctx, clientOps)
	if err != nil {
		return fmt.Errorf("failed to connect to mongo: %w", err)
	}
	defer func() {
		_ = client.Disconnect(ctx)
	}()

	database := client.Database(cfg.DbName)
	for collection, indexes := range collectionIndexes {
		if err := createCollection(ctx, database, collection); err != nil {
			return err
		}
		if len(indexes) == 0 {
			continue
		}
		if _, err := database.Collection(collection).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", collection, err)
		}
	}

	return nil
}

func createCollection(ctx context.Context, database *mongo.Database, collectionName string) error {
	// CreateCollection errors if the collection already exists, which is
	// fine on restart
	if err := database.CreateCollection(ctx, collectionName); err != nil {
		var cmdErr mongo.CommandError
		if errors.As(err, &cmdErr) && cmdErr.Name == "NamespaceExists" {
			return nil
		}
		return fmt.Errorf("failed to create collection %s: %w", collectionName, err)
	}
	return nil
}
