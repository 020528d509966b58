package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig carries the cart-store connection settings the server loads
// from its environment. Zero values fall back to defaults sized for one
// storefront backend instance.
type MongoConfig struct {
	URI              string
	Database         string
	ConnectTimeout   time.Duration
	SelectionTimeout time.Duration
	MaxPoolSize      uint64
	MinPoolSize      uint64
}

const (
	defaultConnectTimeout   = 10 * time.Second
	defaultSelectionTimeout = 5 * time.Second
	defaultMaxPoolSize      = 100
	defaultMinPoolSize      = 10
)

func (c MongoConfig) withDefaults() MongoConfig {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.SelectionTimeout == 0 {
		c.SelectionTimeout = defaultSelectionTimeout
	}
	if c.MaxPoolSize == 0 {
		c.MaxPoolSize = defaultMaxPoolSize
	}
	if c.MinPoolSize == 0 {
		c.MinPoolSize = defaultMinPoolSize
	}
	return c
}

// ConnectMongoDB opens the cart database and verifies it answers before any
// repository is built on it.
func ConnectMongoDB(ctx context.Context, cfg MongoConfig) (*mongo.Database, error) {
	cfg = cfg.withDefaults()

	clientOpts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.SelectionTimeout).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(cfg.Database), nil
}
