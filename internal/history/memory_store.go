package history

import (
	"context"
	"sort"
	"sync"
)

// maxMemoryRecords bounds the in-memory store. Oldest records are
// evicted first; the postgres store is the durable option.
const maxMemoryRecords = 10000

// MemoryStore is an in-memory implementation of Store, used when no
// DATABASE_URL is configured and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
	order   []string // insertion order, oldest first
}

// NewMemoryStore creates a new in-memory history store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
	}
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// Insert stores a record, evicting the oldest once the cap is reached.
func (m *MemoryStore) Insert(ctx context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.order) >= maxMemoryRecords {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.records, oldest)
	}

	cp := cloneRecord(rec)
	m.records[cp.ID] = cp
	m.order = append(m.order, cp.ID)
	return nil
}

// Get retrieves a record by ID.
func (m *MemoryStore) Get(ctx context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return cloneRecord(rec), nil
}

// List returns matching records, newest first.
func (m *MemoryStore) List(ctx context.Context, opts ListOptions) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Record
	for _, rec := range m.records {
		if opts.Level != "" && rec.RiskLevel != opts.Level {
			continue
		}
		if opts.UserID != "" && rec.UserID != opts.UserID {
			continue
		}
		out = append(out, cloneRecord(rec))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// SetOutcome labels a record with its actual return outcome.
func (m *MemoryStore) SetOutcome(ctx context.Context, id string, returned bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return ErrRecordNotFound
	}
	rec.Returned = &returned
	return nil
}

// Stats aggregates the stored corpus.
func (m *MemoryStore) Stats(ctx context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &Stats{ByLevel: make(map[string]int)}
	var sum float64
	for _, rec := range m.records {
		stats.Total++
		stats.ByLevel[rec.RiskLevel]++
		sum += rec.RiskScore
		if rec.CacheHit {
			stats.CacheHits++
		}
		if rec.Returned != nil {
			stats.LabeledCount++
		}
	}
	if stats.Total > 0 {
		stats.AvgScore = sum / float64(stats.Total)
	}
	return stats, nil
}

// TrainingRows returns labeled records, oldest first.
func (m *MemoryStore) TrainingRows(ctx context.Context, limit int) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Record
	for _, id := range m.order {
		rec := m.records[id]
		if rec.Returned == nil {
			continue
		}
		out = append(out, cloneRecord(rec))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func cloneRecord(rec *Record) *Record {
	cp := *rec
	if rec.TopFactors != nil {
		cp.TopFactors = append([]string(nil), rec.TopFactors...)
	}
	if rec.Contributions != nil {
		cp.Contributions = make(map[string]float64, len(rec.Contributions))
		for k, v := range rec.Contributions {
			cp.Contributions[k] = v
		}
	}
	if rec.Returned != nil {
		v := *rec.Returned
		cp.Returned = &v
	}
	return &cp
}
