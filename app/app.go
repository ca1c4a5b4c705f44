// Package app wires configuration, storage and services together for the
// server and the command line tools.
package app

import (
	"context"
	"fmt"

	"github.com/lewisian8787/wrestleguess/config"
	"github.com/lewisian8787/wrestleguess/database"
	"github.com/lewisian8787/wrestleguess/logging"
	"github.com/lewisian8787/wrestleguess/metrics"
	"github.com/lewisian8787/wrestleguess/services"
)

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Stores groups the repositories of one backend
type Stores struct {
	Driver    string
	Events    services.EventRepository
	Picks     services.PickRepository
	Leagues   services.LeagueRepository
	Standings services.StandingsStore
	Users     services.UserRepository
	DB        Pinger
	closers   []func()
}

// Close releases the backend's connections
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// OpenStores connects to the configured backend. In development an
// unreachable database falls back to a seeded in-memory store.
func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	logger := logging.WithPrefix("App")

	stores, err := Open(ctx, cfg)
	if err == nil {
		return stores, nil
	}
	if !cfg.IsDevelopment() {
		return nil, err
	}

	logger.Warnf("Database connection failed: %v", err)
	logger.Warn("Continuing with in-memory demo data")
	return memoryStores(SeedDemo(database.NewMemoryStore())), nil
}

// Open connects to the configured backend with no fallback
func Open(ctx context.Context, cfg *config.Config) (*Stores, error) {
	switch cfg.DBDriver {
	case config.DriverMongo:
		db, err := database.NewMongoConnection(cfg.MongoURI, cfg.MongoDB, cfg.DBTimeout)
		if err != nil {
			return nil, err
		}
		leagues := database.NewMongoLeagueRepository(db)
		return &Stores{
			Driver:    config.DriverMongo,
			Events:    database.NewMongoEventRepository(db),
			Picks:     database.NewMongoPickRepository(db),
			Leagues:   leagues,
			Standings: leagues,
			Users:     database.NewMongoUserRepository(db),
			DB:        db,
			closers:   []func(){func() { _ = db.Close() }},
		}, nil

	case config.DriverPostgres:
		pg, err := database.NewPostgres(ctx, cfg.PostgresURL, cfg.DBTimeout)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		leagues := database.NewPostgresLeagueRepository(pg)
		return &Stores{
			Driver:    config.DriverPostgres,
			Events:    database.NewPostgresEventRepository(pg),
			Picks:     database.NewPostgresPickRepository(pg),
			Leagues:   leagues,
			Standings: leagues,
			Users:     database.NewPostgresUserRepository(pg),
			DB:        pg,
			closers:   []func(){pg.Close},
		}, nil

	case config.DriverMemory:
		return memoryStores(SeedDemo(database.NewMemoryStore())), nil
	}
	return nil, fmt.Errorf("%w: unknown db_driver %q", config.ErrInvalidConfig, cfg.DBDriver)
}

func memoryStores(store *database.MemoryStore) *Stores {
	return &Stores{
		Driver:    config.DriverMemory,
		Events:    store,
		Picks:     store,
		Leagues:   store,
		Standings: store,
		Users:     store,
		DB:        store,
	}
}

// Services holds the domain services built on one set of stores
type Services struct {
	Auth         *services.AuthService
	Scoring      *services.ScoringService
	Picks        *services.PickService
	Leaderboards *services.LeaderboardService
	Seeder       *services.UserSeeder
}

// NewServices builds every service. notifier may be nil.
func NewServices(cfg *config.Config, stores *Stores, notifier services.Notifier, m *metrics.Manager) *Services {
	updater := services.NewStandingsUpdater(stores.Standings, cfg.ScoringBatchSize)
	return &Services{
		Auth:         services.NewAuthService(stores.Users, cfg.JWTSecret),
		Scoring:      services.NewScoringService(stores.Events, stores.Picks, stores.Leagues, updater, notifier, m),
		Picks:        services.NewPickService(stores.Events, stores.Picks, m),
		Leaderboards: services.NewLeaderboardService(stores.Leagues, cfg.LeaderboardDefaultLim, cfg.LeaderboardMaxLimit),
		Seeder:       services.NewUserSeeder(stores.Users),
	}
}
