package db

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tradearena-io/tournament-engine/internal/db/model"
)

// SaveRegistrationEvent stores the webhook delivery before any side effect.
// The external event id is the document id, so a redelivered event returns
// DuplicateKeyError and the caller acknowledges it as a no-op.
func (db *Database) SaveRegistrationEvent(ctx context.Context, event *model.RegistrationEvent) error {
	_, err := db.collection(model.RegistrationEventCollection).
		InsertOne(ctx, event)
	if err != nil {
		var writeErr mongo.WriteException
		if errors.As(err, &writeErr) {
			for _, e := range writeErr.WriteErrors {
				if mongo.IsDuplicateKeyError(e) {
					return &DuplicateKeyError{
						Key:     event.ID,
						Message: "registration event already processed",
					}
				}
			}
		}
		return err
	}
	return nil
}

func (db *Database) GetRegistrationEvent(ctx context.Context, eventID string) (*model.RegistrationEvent, error) {
	res := db.collection(model.RegistrationEventCollection).
		FindOne(ctx, bson.M{"_id": eventID})

	var event model.RegistrationEvent
	if err := res.Decode(&event); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     eventID,
				Message: "registration event not found by id",
			}
		}
		return nil, err
	}
	return &event, nil
}

func (db *Database) MarkRegistrationEventProcessed(ctx context.Context, eventID string) error {
	res := db.collection(model.RegistrationEventCollection).
		FindOneAndUpdate(ctx, bson.M{"_id": eventID}, bson.M{"$set": bson.M{"processed": true}})
	if res.Err() != nil {
		if errors.Is(res.Err(), mongo.ErrNoDocuments) {
			return &NotFoundError{
				Key:     eventID,
				Message: "registration event not found by id",
			}
		}
		return res.Err()
	}
	return nil
}
