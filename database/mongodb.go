package database

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lewisian8787/wrestleguess/logging"
)

// Collection names
const (
	CollectionEvents        = "events"
	CollectionPicks         = "picks"
	CollectionLeagues       = "leagues"
	CollectionLeagueMembers = "league_members"
	CollectionUsers         = "users"
)

type MongoDB struct {
	client   *mongo.Client
	database *mongo.Database
}

// NewMongoConnection connects to uri, pings, and selects dbName
func NewMongoConnection(uri, dbName string, timeout time.Duration) (*MongoDB, error) {
	logger := logging.WithPrefix("MongoDB")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger.Debugf("Connection URI: %s", redactURI(uri))

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetTimeout(timeout))
	if err != nil {
		logger.Errorf("Failed to connect: %v", err)
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		logger.Errorf("Failed to ping: %v", err)
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Infof("Successfully connected to %s database=%s", redactURI(uri), dbName)

	return &MongoDB{
		client:   client,
		database: client.Database(dbName),
	}, nil
}

func (m *MongoDB) Close() error {
	logger := logging.WithPrefix("MongoDB")
	ctx, cancel := WithShortTimeout()
	defer cancel()

	err := m.client.Disconnect(ctx)
	if err != nil {
		logger.Errorf("Error disconnecting: %v", err)
	} else {
		logger.Info("Connection closed successfully")
	}
	return err
}

// Ping is used by the health endpoint
func (m *MongoDB) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("MongoDB ping failed: %w", err)
	}
	return nil
}

func (m *MongoDB) GetCollection(name string) *mongo.Collection {
	return m.database.Collection(name)
}

// redactURI hides the password in a connection string for logging
func redactURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "<unparseable uri>"
	}
	return u.Redacted()
}
