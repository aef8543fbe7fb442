package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/world-in-progress/surfpool/config"
	"github.com/world-in-progress/surfpool/core/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoClient struct {
	Client   *mongo.Client
	Database *mongo.Database
	Config   config.MongoConfig
}

// Connect opens a MongoDB client, retrying with exponential backoff until
// the server answers a ping or maxElapsed passes.
func Connect(ctx context.Context, cfg config.MongoConfig, maxElapsed time.Duration) (*MongoClient, error) {
	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(time.Duration(cfg.Timeout) * time.Second).
		SetServerSelectionTimeout(time.Duration(cfg.Timeout) * time.Second).
		SetMaxPoolSize(100)

	var client *mongo.Client

	// exponential backoff retry connection
	retry := backoff.NewExponentialBackOff()
	retry.MaxElapsedTime = maxElapsed
	err := backoff.Retry(func() error {
		if client == nil {
			c, err := mongo.Connect(ctx, clientOptions)
			if err != nil {
				logger.Warn("failed to connect MongoDB: %v", err)
				return err
			}
			client = c
		}
		return client.Ping(ctx, nil)
	}, backoff.WithContext(retry, ctx))

	if err != nil {
		if client != nil {
			_ = client.Disconnect(context.Background())
		}
		return nil, fmt.Errorf("MongoDB connection to %s failed: %w", cfg.URI, err)
	}

	logger.Info("MongoDB connection successful: %s", cfg.URI)
	return &MongoClient{
		Client:   client,
		Database: client.Database(cfg.Database),
		Config:   cfg,
	}, nil
}

func (m *MongoClient) Close() {
	if m.Client != nil {
		if err := m.Client.Disconnect(context.Background()); err != nil {
			logger.Error("Failed to close MongoDB connection: %v", err)
		}
	}
}
