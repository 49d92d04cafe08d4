package db

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tradearena-io/tournament-engine/internal/db/model"
	"github.com/tradearena-io/tournament-engine/internal/types"
)

func (db *Database) SaveParticipant(ctx context.Context, participant *model.Participant) error {
	_, err := db.collection(model.ParticipantCollection).
		InsertOne(ctx, participant)
	if err != nil {
		var writeErr mongo.WriteException
		if errors.As(err, &writeErr) {
			for _, e := range writeErr.WriteErrors {
				if mongo.IsDuplicateKeyError(e) {
					return &DuplicateKeyError{
						Key:     participant.ID,
						Message: "participant already exists",
					}
				}
			}
		}
		return err
	}
	return nil
}

func (db *Database) GetParticipant(ctx context.Context, id string) (*model.Participant, error) {
	res := db.collection(model.ParticipantCollection).
		FindOne(ctx, bson.M{"_id": id})

	var participant model.Participant
	if err := res.Decode(&participant); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     id,
				Message: "participant not found by id",
			}
		}
		return nil, err
	}
	return &participant, nil
}

func (db *Database) GetActiveParticipants(
	ctx context.Context, tournamentID string,
) ([]*model.Participant, error) {
	filter := bson.M{
		"tournament_id": tournamentID,
		"state":         types.ParticipantActive.String(),
	}
	cursor, err := db.collection(model.ParticipantCollection).Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var participants []*model.Participant
	if err := cursor.All(ctx, &participants); err != nil {
		return nil, err
	}
	return participants, nil
}

// UpdateParticipantState transitions a participant only from one of the
// qualified previous states, so replayed or out-of-order events cannot
// resurrect a terminal participant.
func (db *Database) UpdateParticipantState(
	ctx context.Context,
	id string,
	qualifiedPreviousStates []types.ParticipantState,
	newState types.ParticipantState,
) error {
	qualifiedStateStrs := make([]string, len(qualifiedPreviousStates))
	for i, state := range qualifiedPreviousStates {
		qualifiedStateStrs[i] = state.String()
	}

	filter := bson.M{
		"_id":   id,
		"state": bson.M{"$in": qualifiedStateStrs},
	}
	update := bson.M{"$set": bson.M{"state": newState.String()}}

	res := db.collection(model.ParticipantCollection).
		FindOneAndUpdate(ctx, filter, update)
	if res.Err() != nil {
		if errors.Is(res.Err(), mongo.ErrNoDocuments) {
			return &NotFoundError{
				Key:     id,
				Message: "participant not found or not in a qualified state",
			}
		}
		return res.Err()
	}
	return nil
}
