package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/world-in-progress/surfpool/pool"
)

// ProbeRecorder stores pool probes in a ProbeRepository.
type ProbeRecorder struct {
	repo ProbeRepository
}

func NewProbeRecorder(repo ProbeRepository) *ProbeRecorder {
	return &ProbeRecorder{repo: repo}
}

func (r *ProbeRecorder) Record(ctx context.Context, poolName string, probes []pool.Probe) error {
	records := make([]ProbeRecord, 0, len(probes))
	for _, probe := range probes {
		records = append(records, NewProbeRecord(poolName, probe))
	}
	if err := r.repo.Insert(ctx, records...); err != nil {
		return fmt.Errorf("failed to record %d probes of pool %s: %w", len(records), poolName, err)
	}
	return nil
}

func NewProbeRecord(poolName string, probe pool.Probe) ProbeRecord {
	return ProbeRecord{
		ID:         uuid.New().String(),
		Pool:       poolName,
		Slot:       probe.Slot,
		StartedAt:  probe.StartedAt,
		LatencyMS:  float64(probe.Latency.Microseconds()) / 1000,
		StatusCode: probe.StatusCode,
		Error:      probe.Err,
		Healthy:    probe.Healthy(),
	}
}

var _ pool.Recorder = (*ProbeRecorder)(nil)
