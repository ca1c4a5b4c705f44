package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lewisian8787/wrestleguess/logging"
	"github.com/lewisian8787/wrestleguess/models"
)

// MongoEventRepository reads events with embedded matches
type MongoEventRepository struct {
	collection *mongo.Collection
}

// NewMongoEventRepository creates a new MongoDB event repository
func NewMongoEventRepository(db *MongoDB) *MongoEventRepository {
	collection := db.GetCollection(CollectionEvents)

	ctx, cancel := WithMediumTimeout()
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "date", Value: -1}}},
		{Keys: bson.D{{Key: "scored", Value: 1}}},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		logging.WithPrefix("MongoDB").Warnf("Failed to create event indexes: %v", err)
	}

	return &MongoEventRepository{collection: collection}
}

// GetEventWithMatches finds an event by id. Returns nil, nil when it does not exist.
func (r *MongoEventRepository) GetEventWithMatches(ctx context.Context, eventID string) (*models.Event, error) {
	var event models.Event
	err := r.collection.FindOne(ctx, bson.M{"_id": eventID}).Decode(&event)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find event %s: %w", eventID, err)
	}
	return &event, nil
}

// MarkEventScored sets scored on an event that is not scored yet
func (r *MongoEventRepository) MarkEventScored(ctx context.Context, eventID string, scoredAt time.Time) (bool, error) {
	filter := bson.M{
		"_id":    eventID,
		"scored": bson.M{"$ne": true},
	}
	update := bson.M{
		"$set": bson.M{
			"scored":     true,
			"scored_at":  scoredAt,
			"updated_at": scoredAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to mark event %s scored: %w", eventID, err)
	}
	return result.MatchedCount == 1, nil
}
