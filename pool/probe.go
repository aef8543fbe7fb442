package pool

import (
	"context"
	"time"
)

type (
	// Probe is the outcome of one health check sent through one slot's client.
	Probe struct {
		Slot       int           `json:"slot"`
		StartedAt  time.Time     `json:"startedAt"`
		Latency    time.Duration `json:"latency"`
		StatusCode int           `json:"statusCode,omitempty"`
		Err        string        `json:"error,omitempty"`
	}

	// Recorder persists probes. The pool hands them over in batches and may call Record concurrently.
	Recorder interface {
		Record(ctx context.Context, pool string, probes []Probe) error
	}

	// RecorderFunc adapts a function to Recorder.
	RecorderFunc func(ctx context.Context, pool string, probes []Probe) error

	// Metrics receives pool events, e.g. to export them to Prometheus.
	Metrics interface {
		HandlerAcquired(wait time.Duration)
		HandlerReleased()
		ProbeObserved(probe Probe)
	}

	noopMetrics struct{}
)

func (p Probe) Healthy() bool {
	return p.Err == ""
}

func (f RecorderFunc) Record(ctx context.Context, pool string, probes []Probe) error {
	return f(ctx, pool, probes)
}

func (noopMetrics) HandlerAcquired(time.Duration) {}
func (noopMetrics) HandlerReleased()              {}
func (noopMetrics) ProbeObserved(Probe)           {}
