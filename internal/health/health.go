// Package health aggregates dependency checks behind the /health
// endpoint.
//
// The scoring service runs in two storage configurations: Postgres-backed
// prediction history, probed with a ping, and the in-memory fallback,
// which has nothing to probe and reports a static entry. Both register
// through the same Registry so the health report keeps one shape.
package health

import (
	"context"
	"sync"
)

// Check names registered by the server. Dashboards key on these.
const (
	CheckDatabase     = "database"
	CheckHistoryStore = "history_store"
)

// Status is one dependency's health in the report.
type Status struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

// Checker probes one dependency. A nil return means healthy; a non-nil
// error's message becomes the status detail.
type Checker func(ctx context.Context) error

type entry struct {
	name   string
	detail string // shown while healthy
	check  Checker
}

// Registry holds named checkers and reports them in registration order.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a named checker.
func (r *Registry) Register(name string, check Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry{name: name, check: check})
}

// RegisterStatic adds an always-healthy entry carrying a fixed detail,
// for configurations with no probe-able dependency.
func (r *Registry) RegisterStatic(name, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry{name: name, detail: detail})
}

// CheckAll runs every checker and reports the aggregate plus the
// per-dependency statuses, in registration order.
func (r *Registry) CheckAll(ctx context.Context) (bool, []Status) {
	r.mu.RLock()
	entries := make([]entry, len(r.entries))
	copy(entries, r.entries)
	r.mu.RUnlock()

	healthy := true
	statuses := make([]Status, 0, len(entries))
	for _, e := range entries {
		st := Status{Name: e.name, Healthy: true, Detail: e.detail}
		if e.check != nil {
			if err := e.check(ctx); err != nil {
				st.Healthy = false
				st.Detail = err.Error()
				healthy = false
			}
		}
		statuses = append(statuses, st)
	}
	return healthy, statuses
}
