package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/flowhq/flow/internal/infrastructure/config"
)

// Mongo holds a connected client and the application database.
type Mongo struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// NewMongo connects to MongoDB and verifies the primary is reachable.
func NewMongo(ctx context.Context, cfg config.DatabaseConfig) (*Mongo, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetMaxPoolSize(uint64(cfg.MaxOpenConns)).
		SetMaxConnIdleTime(cfg.ConnMaxIdleTime)

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &Mongo{
		Client:   client,
		Database: client.Database(cfg.MongoDatabase),
	}, nil
}

// Close disconnects the client.
func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.Client.Disconnect(ctx)
}

// HealthCheck pings the primary.
func (m *Mongo) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := m.Client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo health check failed: %w", err)
	}
	return nil
}

// GetConnectionInfo mirrors DB.GetConnectionInfo for the health endpoint.
func (m *Mongo) GetConnectionInfo() map[string]interface{} {
	return map[string]interface{}{
		"driver":   config.DriverMongo,
		"database": m.Database.Name(),
	}
}
