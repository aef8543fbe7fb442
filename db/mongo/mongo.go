package mongo

import (
	"context"
	"time"

	"github.com/world-in-progress/surfpool/core/logger"
	"github.com/world-in-progress/surfpool/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProbeRepository stores probe records in one MongoDB collection.
type ProbeRepository struct {
	coll    *mongo.Collection
	timeout time.Duration
}

func NewProbeRepository(client *MongoClient) *ProbeRepository {
	return &ProbeRepository{
		coll:    client.Database.Collection(client.Config.Collection),
		timeout: time.Duration(client.Config.Timeout) * time.Second,
	}
}

func (r *ProbeRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *ProbeRepository) Insert(ctx context.Context, records ...db.ProbeRecord) error {
	if len(records) == 0 {
		return nil
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	docs := make([]any, len(records))
	for i, record := range records {
		docs[i] = record
	}
	if _, err := r.coll.InsertMany(ctx, docs); err != nil {
		logger.Error("Insert failed: %v", err)
		return err
	}
	return nil
}

func (r *ProbeRepository) Recent(ctx context.Context, pool string, limit int) ([]db.ProbeRecord, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "startedAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.coll.Find(ctx, bson.M{"pool": pool}, opts)
	if err != nil {
		logger.Error("Query failed: %v", err)
		return nil, err
	}
	defer cursor.Close(ctx)

	results := make([]db.ProbeRecord, 0)
	if err := cursor.All(ctx, &results); err != nil {
		logger.Error("Failed to decode results: %v", err)
		return nil, err
	}
	return results, nil
}

func (r *ProbeRepository) Count(ctx context.Context, pool string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return r.coll.CountDocuments(ctx, bson.M{"pool": pool})
}

// EnsureIndexes creates the index Recent relies on.
func (r *ProbeRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "pool", Value: 1}, {Key: "startedAt", Value: -1}},
	})
	if err != nil {
		logger.Error("Index creation failed: %v", err)
		return err
	}
	logger.Info("Index created successfully for collection %s", r.coll.Name())
	return nil
}

// Drop removes every record of pool.
func (r *ProbeRepository) Drop(ctx context.Context, pool string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := r.coll.DeleteMany(ctx, bson.M{"pool": pool})
	return err
}

var _ db.ProbeRepository = (*ProbeRepository)(nil)
