package server

import (
	"context"
	"fmt"

	"github.com/flowhq/flow/internal/adapters/memory"
	"github.com/flowhq/flow/internal/adapters/mongorepo"
	"github.com/flowhq/flow/internal/adapters/repository"
	"github.com/flowhq/flow/internal/infrastructure/config"
	"github.com/flowhq/flow/internal/infrastructure/database"
	"github.com/flowhq/flow/internal/infrastructure/logger"
	"github.com/flowhq/flow/internal/ports"
)

// Store is the repository set for the configured driver plus the hooks the
// health endpoints and shutdown need.
type Store struct {
	Driver string
	Repos  *ports.Repositories

	// Postgres and Mongo are set for their respective drivers only.
	Postgres *database.DB
	Mongo    *database.Mongo
}

// OpenStore connects to the configured database and builds its repositories.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := database.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log.Infow("Connected to postgres", "host", cfg.Host, "database", cfg.Name)
		return &Store{Driver: cfg.Driver, Repos: repository.NewRepositories(db), Postgres: db}, nil

	case config.DriverMongo:
		m, err := database.NewMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := mongorepo.EnsureIndexes(ctx, m.Database); err != nil {
			_ = m.Close()
			return nil, err
		}
		log.Infow("Connected to mongo", "database", cfg.MongoDatabase)
		return &Store{Driver: cfg.Driver, Repos: mongorepo.NewRepositories(m.Database), Mongo: m}, nil

	case config.DriverMemory:
		log.Warnw("Using in-memory store; data is lost on restart")
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// NewMemoryStore returns a Store backed by process memory.
func NewMemoryStore() *Store {
	return &Store{Driver: config.DriverMemory, Repos: memory.NewRepositories()}
}

// HealthCheck pings the underlying database.
func (s *Store) HealthCheck(ctx context.Context) error {
	switch {
	case s.Postgres != nil:
		return s.Postgres.HealthCheck(ctx)
	case s.Mongo != nil:
		return s.Mongo.HealthCheck(ctx)
	}
	return nil
}

// Info returns driver details for the detailed health check.
func (s *Store) Info() map[string]interface{} {
	switch {
	case s.Postgres != nil:
		return s.Postgres.GetConnectionInfo()
	case s.Mongo != nil:
		return s.Mongo.GetConnectionInfo()
	}
	return map[string]interface{}{"driver": s.Driver}
}

// Close releases the database connection.
func (s *Store) Close() error {
	switch {
	case s.Postgres != nil:
		return s.Postgres.Close()
	case s.Mongo != nil:
		return s.Mongo.Close()
	}
	return nil
}
