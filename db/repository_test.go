package db

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/world-in-progress/surfpool/caller"
	"github.com/world-in-progress/surfpool/pool"
)

func TestMemoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(3)
	base := time.Now()

	for i := range 5 {
		require.NoError(t, repo.Insert(ctx, ProbeRecord{
			ID:        string(rune('a' + i)),
			Pool:      "p",
			Slot:      i,
			StartedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, repo.Insert(ctx, ProbeRecord{ID: "other", Pool: "q"}))

	count, err := repo.Count(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	recent, err := repo.Recent(ctx, "p", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 4, recent[0].Slot)
	assert.Equal(t, 3, recent[1].Slot)

	recent, err = repo.Recent(ctx, "missing", 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestNewProbeRecord(t *testing.T) {
	started := time.Now()
	record := NewProbeRecord("p", pool.Probe{
		Slot:       1,
		StartedAt:  started,
		Latency:    1500 * time.Microsecond,
		StatusCode: 503,
		Err:        "unexpected status",
	})

	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "p", record.Pool)
	assert.Equal(t, 1.5, record.LatencyMS)
	assert.Equal(t, 503, record.StatusCode)
	assert.False(t, record.Healthy)
	assert.True(t, record.StartedAt.Equal(started))
}

type failingRepository struct {
	*MemoryRepository
}

func (failingRepository) Insert(context.Context, ...ProbeRecord) error {
	return errors.New("disk full")
}

func TestProbeRecorderWithPool(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	repo := NewMemoryRepository(0)
	b, err := pool.NewBuilder(3)
	require.NoError(t, err)
	p := b.Name("stored").
		HealthCheck(caller.Get(srv.URL)).
		PreConnect(true).
		Recorder(NewProbeRecorder(repo)).
		Build(context.Background())
	require.NoError(t, p.Close())

	count, err := repo.Count(context.Background(), "stored")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	recent, err := repo.Recent(context.Background(), "stored", 0)
	require.NoError(t, err)
	for _, record := range recent {
		assert.True(t, record.Healthy)
		assert.Equal(t, http.StatusOK, record.StatusCode)
	}
}

func TestProbeRecorderError(t *testing.T) {
	rec := NewProbeRecorder(failingRepository{NewMemoryRepository(0)})
	err := rec.Record(context.Background(), "p", []pool.Probe{{Slot: 0}})
	assert.ErrorContains(t, err, "disk full")
}
