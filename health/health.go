// Package health serves pool health and statistics over HTTP.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/world-in-progress/surfpool/core/logger"
	"github.com/world-in-progress/surfpool/pool"
)

type (
	// Checker is the part of *pool.Pool the service needs.
	Checker interface {
		Check(ctx context.Context) pool.Report
		Stats() pool.Stats
		Probes() []pool.Probe
	}

	// LatencySummary describes recent probe latencies in milliseconds.
	LatencySummary struct {
		Samples int     `json:"samples"`
		P50     float64 `json:"p50"`
		P90     float64 `json:"p90"`
		P99     float64 `json:"p99"`
		Max     float64 `json:"max"`
	}

	StatsResponse struct {
		pool.Stats
		Latency LatencySummary `json:"latency"`
	}

	// Service provides health check endpoints for one pool.
	Service struct {
		checker Checker
		timeout time.Duration
	}
)

// New creates a health service. Each /healthz request probes for at most timeout.
func New(checker Checker, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{checker: checker, timeout: timeout}
}

// RegisterRoutes adds /healthz and /stats to mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)
}

// handleHealth probes idle clients and answers 200 when every known probe succeeded.
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	report := s.checker.Check(ctx)
	status := http.StatusOK
	if !report.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		Stats:   s.checker.Stats(),
		Latency: Summarize(s.checker.Probes()),
	})
}

// Summarize computes latency percentiles of successful probes.
func Summarize(probes []pool.Probe) LatencySummary {
	var data stats.Float64Data
	for _, probe := range probes {
		if probe.Healthy() {
			data = append(data, float64(probe.Latency.Microseconds())/1000)
		}
	}

	summary := LatencySummary{Samples: len(data)}
	if len(data) == 0 {
		return summary
	}
	summary.P50, _ = data.Percentile(50)
	summary.P90, _ = data.Percentile(90)
	summary.P99, _ = data.Percentile(99)
	summary.Max, _ = data.Max()
	return summary
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to write response: %v", err)
	}
}
