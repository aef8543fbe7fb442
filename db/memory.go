package db

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository keeps the newest records of every pool in memory.
type MemoryRepository struct {
	mu      sync.RWMutex
	limit   int
	records map[string][]ProbeRecord
}

// NewMemoryRepository keeps at most limit records per pool. A limit <= 0 keeps 1024.
func NewMemoryRepository(limit int) *MemoryRepository {
	if limit <= 0 {
		limit = 1024
	}
	return &MemoryRepository{
		limit:   limit,
		records: make(map[string][]ProbeRecord),
	}
}

func (r *MemoryRepository) Insert(_ context.Context, records ...ProbeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, record := range records {
		list := append(r.records[record.Pool], record)
		if len(list) > r.limit {
			list = list[len(list)-r.limit:]
		}
		r.records[record.Pool] = list
	}
	return nil
}

func (r *MemoryRepository) Recent(_ context.Context, pool string, limit int) ([]ProbeRecord, error) {
	r.mu.RLock()
	list := make([]ProbeRecord, len(r.records[pool]))
	copy(list, r.records[pool])
	r.mu.RUnlock()

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].StartedAt.After(list[j].StartedAt)
	})
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (r *MemoryRepository) Count(_ context.Context, pool string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.records[pool])), nil
}
