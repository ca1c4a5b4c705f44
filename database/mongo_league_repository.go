package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lewisian8787/wrestleguess/logging"
	"github.com/lewisian8787/wrestleguess/models"
)

// MongoLeagueRepository reads leagues and memberships and applies event scores to standings
type MongoLeagueRepository struct {
	leagues *mongo.Collection
	members *mongo.Collection
	logger  *logging.Logger
}

// NewMongoLeagueRepository creates the repository and its membership indexes
func NewMongoLeagueRepository(db *MongoDB) *MongoLeagueRepository {
	r := &MongoLeagueRepository{
		leagues: db.GetCollection(CollectionLeagues),
		members: db.GetCollection(CollectionLeagueMembers),
		logger:  logging.WithPrefix("MongoDB"),
	}

	ctx, cancel := WithMediumTimeout()
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "league_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "league_id", Value: 1}, {Key: "total_points", Value: -1}}},
	}
	if _, err := r.members.Indexes().CreateMany(ctx, indexes); err != nil {
		r.logger.Warnf("Could not create league member indexes: %v", err)
	}

	return r
}

// GetLeague finds a league by id. Returns nil, nil when absent.
func (r *MongoLeagueRepository) GetLeague(ctx context.Context, leagueID string) (*models.League, error) {
	var league models.League
	err := r.leagues.FindOne(ctx, bson.M{"_id": leagueID}).Decode(&league)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find league %s: %w", leagueID, err)
	}
	return &league, nil
}

// GetLeagueIDsForUser lists the leagues the user is a member of
func (r *MongoLeagueRepository) GetLeagueIDsForUser(ctx context.Context, userID string) ([]string, error) {
	values, err := r.members.Distinct(ctx, "league_id", bson.M{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list leagues for user %s: %w", userID, err)
	}

	ids := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// GetMembership finds one membership. Returns nil, nil when absent.
func (r *MongoLeagueRepository) GetMembership(ctx context.Context, leagueID, userID string) (*models.LeagueMember, error) {
	var member models.LeagueMember
	err := r.members.FindOne(ctx, bson.M{"league_id": leagueID, "user_id": userID}).Decode(&member)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find membership: %w", err)
	}
	return &member, nil
}

// GetLeagueMembers returns the league's members by total points desc, then display name
func (r *MongoLeagueRepository) GetLeagueMembers(ctx context.Context, leagueID string) ([]models.LeagueMember, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "total_points", Value: -1},
		{Key: "display_name", Value: 1},
	})
	cursor, err := r.members.Find(ctx, bson.M{"league_id": leagueID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find members of league %s: %w", leagueID, err)
	}
	defer cursor.Close(ctx)

	var members []models.LeagueMember
	if err := cursor.All(ctx, &members); err != nil {
		return nil, fmt.Errorf("failed to decode league members: %w", err)
	}
	return members, nil
}

// leaderboardRow is the shape produced by the global leaderboard pipeline
type leaderboardRow struct {
	UserID      string  `bson:"_id"`
	DisplayName string  `bson:"display_name"`
	TotalScore  float64 `bson:"total_score"`
	Leagues     int     `bson:"leagues"`
}

// GetGlobalLeaderboard sums total_points over every membership of each user
func (r *MongoLeagueRepository) GetGlobalLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$user_id"},
			{Key: "display_name", Value: bson.D{{Key: "$first", Value: "$display_name"}}},
			{Key: "total_score", Value: bson.D{{Key: "$sum", Value: "$total_points"}}},
			{Key: "leagues", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "total_score", Value: -1},
			{Key: "display_name", Value: 1},
		}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}

	cursor, err := r.members.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate global leaderboard: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []leaderboardRow
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode global leaderboard: %w", err)
	}

	entries := make([]models.LeaderboardEntry, len(rows))
	for i, row := range rows {
		entries[i] = models.LeaderboardEntry{
			Rank:        i + 1,
			UserID:      row.UserID,
			DisplayName: row.DisplayName,
			TotalScore:  row.TotalScore,
			Leagues:     row.Leagues,
		}
	}
	return entries, nil
}

// ApplyEventScores commits one chunk as an unordered bulk write. Each update
// only matches a membership whose event_scores.<eventID>.scored is not true,
// so a membership already credited is left alone and counted as skipped.
func (r *MongoLeagueRepository) ApplyEventScores(ctx context.Context, eventID string, scoredAt time.Time, chunk []models.MembershipScore) (int, int, error) {
	if len(chunk) == 0 {
		return 0, 0, nil
	}
	if !validFieldKey(eventID) {
		return 0, 0, fmt.Errorf("%w: event id %q cannot be used as a field name", ErrInvalidKey, eventID)
	}

	scoreField := "event_scores." + eventID
	operations := make([]mongo.WriteModel, 0, len(chunk))
	for _, ms := range chunk {
		filter := bson.M{
			"league_id":             ms.LeagueID,
			"user_id":               ms.UserID,
			scoreField + ".scored": bson.M{"$ne": true},
		}
		update := bson.M{
			"$inc": bson.M{"total_points": ms.Score.Points},
			"$set": bson.M{scoreField: ms.Score.ToEventScore(scoredAt)},
		}
		operations = append(operations, mongo.NewUpdateOneModel().SetFilter(filter).SetUpdate(update))
	}

	opts := options.BulkWrite().SetOrdered(false)
	result, err := r.members.BulkWrite(ctx, operations, opts)
	if err != nil {
		applied := 0
		if result != nil {
			applied = int(result.MatchedCount)
		}
		return applied, 0, fmt.Errorf("failed to apply %d standings updates for event %s: %w", len(chunk), eventID, err)
	}

	applied := int(result.MatchedCount)
	return applied, len(chunk) - applied, nil
}
