package db

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tradearena-io/tournament-engine/internal/db/model"
	"github.com/tradearena-io/tournament-engine/internal/types"
)

func (db *Database) SaveTournament(ctx context.Context, tournament *model.Tournament) error {
	_, err := db.collection(model.TournamentCollection).
		InsertOne(ctx, tournament)
	if err != nil {
		var writeErr mongo.WriteException
		if errors.As(err, &writeErr) {
			for _, e := range writeErr.WriteErrors {
				if mongo.IsDuplicateKeyError(e) {
					return &DuplicateKeyError{
						Key:     tournament.ID,
						Message: "tournament already exists",
					}
				}
			}
		}
		return err
	}
	return nil
}

func (db *Database) GetTournament(ctx context.Context, id string) (*model.Tournament, error) {
	res := db.collection(model.TournamentCollection).
		FindOne(ctx, bson.M{"_id": id})

	var tournament model.Tournament
	if err := res.Decode(&tournament); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     id,
				Message: "tournament not found by id",
			}
		}
		return nil, err
	}
	return &tournament, nil
}

func (db *Database) GetTournamentsByState(
	ctx context.Context, state types.TournamentState,
) ([]*model.Tournament, error) {
	cursor, err := db.collection(model.TournamentCollection).
		Find(ctx, bson.M{"state": state.String()})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tournaments []*model.Tournament
	if err := cursor.All(ctx, &tournaments); err != nil {
		return nil, err
	}
	return tournaments, nil
}

func (db *Database) UpdateTournamentState(
	ctx context.Context, id string, newState types.TournamentState,
) error {
	// completed and cancelled tournaments are immutable
	filter := bson.M{
		"_id": id,
		"state": bson.M{"$nin": []string{
			types.TournamentCompleted.String(),
			types.TournamentCancelled.String(),
		}},
	}
	res := db.collection(model.TournamentCollection).
		FindOneAndUpdate(ctx, filter, bson.M{"$set": bson.M{"state": newState.String()}})
	if res.Err() != nil {
		if errors.Is(res.Err(), mongo.ErrNoDocuments) {
			return &NotFoundError{
				Key:     id,
				Message: "tournament not found or already terminal",
			}
		}
		return res.Err()
	}
	return nil
}

// IncrementTournamentParticipants admits one participant, guarded against
// capacity and against terminal tournament states, so a confirmed purchase
// for a full or already-closed tournament is rejected rather than admitted
// and later evicted.
func (db *Database) IncrementTournamentParticipants(ctx context.Context, id string) error {
	filter := bson.M{
		"_id": id,
		"state": bson.M{"$nin": []string{
			types.TournamentCompleted.String(),
			types.TournamentCancelled.String(),
		}},
		"$expr": bson.M{"$lt": bson.A{"$current_participants", "$max_participants"}},
	}
	update := bson.M{"$inc": bson.M{"current_participants": 1}}

	res := db.collection(model.TournamentCollection).
		FindOneAndUpdate(ctx, filter, update)
	if res.Err() != nil {
		if errors.Is(res.Err(), mongo.ErrNoDocuments) {
			// distinguish missing tournament from a closed or full one
			tournament, err := db.GetTournament(ctx, id)
			if err != nil {
				return err
			}
			if tournament.State.Terminal() {
				return &TournamentClosedError{TournamentID: id}
			}
			return &TournamentFullError{TournamentID: id}
		}
		return res.Err()
	}
	return nil
}

func (db *Database) DecrementTournamentParticipants(ctx context.Context, id string) error {
	filter := bson.M{
		"_id":                  id,
		"current_participants": bson.M{"$gt": 0},
	}
	update := bson.M{"$inc": bson.M{"current_participants": -1}}

	res := db.collection(model.TournamentCollection).
		FindOneAndUpdate(ctx, filter, update)
	if res.Err() != nil {
		if errors.Is(res.Err(), mongo.ErrNoDocuments) {
			return &NotFoundError{
				Key:     id,
				Message: "tournament not found or participant count already zero",
			}
		}
		return res.Err()
	}
	return nil
}
