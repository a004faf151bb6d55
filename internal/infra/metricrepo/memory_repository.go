package metricrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/yanqian/healthsync/internal/domain/healthsync"
)

// MemoryRepository is an in-memory RecordStore used for tests/dev.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[healthsync.RecordKey]healthsync.MetricRecord
}

// NewMemoryRepository constructs a repo backed by memory.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[healthsync.RecordKey]healthsync.MetricRecord)}
}

// Upsert implements healthsync.RecordStore.
func (r *MemoryRepository) Upsert(_ context.Context, records []healthsync.MetricRecord) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, record := range records {
		record.RecordedAt = record.RecordedAt.UTC()
		record.Value = cloneValue(record.Value)
		r.records[record.Key()] = record
	}
	return len(records), nil
}

// List implements healthsync.RecordStore.
func (r *MemoryRepository) List(_ context.Context, filter healthsync.RecordFilter) ([]healthsync.MetricRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]healthsync.MetricRecord, 0)
	for _, record := range r.records {
		if !matches(filter, record) {
			continue
		}
		record.Value = cloneValue(record.Value)
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].RecordedAt.Before(out[j].RecordedAt)
		}
		return out[i].MetricType < out[j].MetricType
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Len reports the number of stored rows.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

func matches(filter healthsync.RecordFilter, record healthsync.MetricRecord) bool {
	if filter.UserID != "" && record.UserID != filter.UserID {
		return false
	}
	if filter.IntegrationID != "" && record.IntegrationID != filter.IntegrationID {
		return false
	}
	if filter.MetricType != "" && record.MetricType != filter.MetricType {
		return false
	}
	if !filter.From.IsZero() && record.RecordedAt.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && !record.RecordedAt.Before(filter.To) {
		return false
	}
	return true
}

func cloneValue(value map[string]any) map[string]any {
	out := make(map[string]any, len(value))
	for k, v := range value {
		out[k] = v
	}
	return out
}

var _ healthsync.RecordStore = (*MemoryRepository)(nil)
