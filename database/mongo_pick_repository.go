package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lewisian8787/wrestleguess/logging"
	"github.com/lewisian8787/wrestleguess/models"
)

// pickDocument is the stored shape of a pick. choices holds either
// matchId -> winner (version 1) or matchId -> {winner, confidence} (version 2),
// so it is decoded only after the version is known.
type pickDocument struct {
	ID          string        `bson:"_id"`
	EventID     string        `bson:"event_id"`
	UserID      string        `bson:"user_id"`
	Version     int           `bson:"version,omitempty"`
	Choices     bson.RawValue `bson:"choices"`
	SubmittedAt time.Time     `bson:"submitted_at"`
	UpdatedAt   time.Time     `bson:"updated_at"`
}

// toPick decodes choices according to version. A missing version is legacy.
func (d *pickDocument) toPick() (*models.Pick, error) {
	pick := &models.Pick{
		ID:          d.ID,
		EventID:     d.EventID,
		UserID:      d.UserID,
		Version:     models.PickVersion(d.Version),
		SubmittedAt: d.SubmittedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if len(d.Choices.Value) == 0 {
		return pick, nil
	}

	if !pick.IsLegacy() {
		choices := make(map[string]models.Choice)
		if err := d.Choices.Unmarshal(&choices); err != nil {
			return nil, fmt.Errorf("failed to decode choices of pick %s: %w", d.ID, err)
		}
		pick.Choices = choices
		return pick, nil
	}

	winners := make(map[string]string)
	if err := d.Choices.Unmarshal(&winners); err == nil {
		pick.LegacyChoices = winners
		return pick, nil
	}

	// Unversioned documents written in the newer shape are still legacy; keep the winners only
	weighted := make(map[string]models.Choice)
	if err := d.Choices.Unmarshal(&weighted); err != nil {
		return nil, fmt.Errorf("failed to decode legacy choices of pick %s: %w", d.ID, err)
	}
	for matchID, c := range weighted {
		winners[matchID] = c.Winner
	}
	pick.LegacyChoices = winners
	return pick, nil
}

// MongoPickRepository implements PickRepository for MongoDB
type MongoPickRepository struct {
	collection *mongo.Collection
}

// NewMongoPickRepository creates a new MongoDB pick repository
func NewMongoPickRepository(db *MongoDB) *MongoPickRepository {
	collection := db.GetCollection(CollectionPicks)

	ctx, cancel := WithMediumTimeout()
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		logging.WithPrefix("MongoDB").Warnf("Could not create pick indexes: %v", err)
	}

	return &MongoPickRepository{collection: collection}
}

// GetPicksForEvent returns every pick submitted for an event
func (r *MongoPickRepository) GetPicksForEvent(ctx context.Context, eventID string) ([]models.Pick, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"event_id": eventID},
		options.Find().SetSort(bson.D{{Key: "user_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find picks for event %s: %w", eventID, err)
	}
	defer cursor.Close(ctx)

	var picks []models.Pick
	for cursor.Next(ctx) {
		var doc pickDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode pick: %w", err)
		}
		pick, err := doc.toPick()
		if err != nil {
			return nil, err
		}
		picks = append(picks, *pick)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error reading picks for event %s: %w", eventID, err)
	}
	return picks, nil
}

// GetPick returns one user's pick for an event, or nil, nil
func (r *MongoPickRepository) GetPick(ctx context.Context, eventID, userID string) (*models.Pick, error) {
	var doc pickDocument
	err := r.collection.FindOne(ctx, bson.M{"event_id": eventID, "user_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find pick: %w", err)
	}
	return doc.toPick()
}

// pickUpsert builds the update for UpsertPick. Legacy picks carry no
// total_confidence, matching the NULL the Postgres backend stores.
func pickUpsert(pick *models.Pick, id string) bson.M {
	set := bson.M{
		"version":    int(pick.Version),
		"updated_at": pick.UpdatedAt,
	}
	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"_id":          id,
			"submitted_at": pick.SubmittedAt,
		},
	}

	if pick.IsLegacy() {
		set["choices"] = pick.LegacyChoices
		update["$unset"] = bson.M{"total_confidence": ""}
	} else {
		set["choices"] = pick.Choices
		set["total_confidence"] = pick.TotalConfidence()
	}
	return update
}

// UpsertPick writes the pick keyed by (event_id, user_id) and sets pick.ID
func (r *MongoPickRepository) UpsertPick(ctx context.Context, pick *models.Pick) error {
	id := pick.ID
	if id == "" {
		id = uuid.NewString()
	}

	filter := bson.M{"event_id": pick.EventID, "user_id": pick.UserID}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc pickDocument
	if err := r.collection.FindOneAndUpdate(ctx, filter, pickUpsert(pick, id), opts).Decode(&doc); err != nil {
		return fmt.Errorf("failed to upsert pick: %w", err)
	}
	pick.ID = doc.ID
	pick.SubmittedAt = doc.SubmittedAt
	return nil
}
