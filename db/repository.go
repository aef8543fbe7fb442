package db

import (
	"context"
	"time"
)

type (
	// ProbeRecord is the stored form of a pool.Probe.
	ProbeRecord struct {
		ID         string    `bson:"_id" json:"id"`
		Pool       string    `bson:"pool" json:"pool"`
		Slot       int       `bson:"slot" json:"slot"`
		StartedAt  time.Time `bson:"startedAt" json:"startedAt"`
		LatencyMS  float64   `bson:"latencyMs" json:"latencyMs"`
		StatusCode int       `bson:"statusCode,omitempty" json:"statusCode,omitempty"`
		Error      string    `bson:"error,omitempty" json:"error,omitempty"`
		Healthy    bool      `bson:"healthy" json:"healthy"`
	}

	// ProbeRepository stores probe records.
	ProbeRepository interface {
		Insert(ctx context.Context, records ...ProbeRecord) error
		// Recent returns up to limit records of pool, newest first.
		Recent(ctx context.Context, pool string, limit int) ([]ProbeRecord, error)
		Count(ctx context.Context, pool string) (int64, error)
	}
)
