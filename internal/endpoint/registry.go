// Package endpoint implements the in-memory device registry (spec.md
// §2 Endpoint registry, §3 Endpoint, §4.1 subscribe/unsubscribe).
package endpoint

import (
	"sync"

	"github.com/peeredge-io/shadowbridge/internal/metrics"
	"github.com/peeredge-io/shadowbridge/internal/model"
)

// Registry is the bridge's device → {type, topic-set, subscription
// flags, credential material} map (spec.md §2). One Registry instance
// is shared by all per-cloud processors for a given peer.
//
// Invariant: for any live endpoint exactly one entry exists keyed by
// ep_name (spec.md §3).
type Registry struct {
	mu        sync.RWMutex
	endpoints map[string]*model.Endpoint
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{endpoints: make(map[string]*model.Endpoint)}
}

// Get returns the endpoint registered under name, if any.
func (r *Registry) Get(name string) (*model.Endpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ep, ok := r.endpoints[name]
	return ep, ok
}

// GetOrCreate returns the existing endpoint for name, creating one of
// the given type if it did not already exist. The second return value
// reports whether the endpoint was newly created.
func (r *Registry) GetOrCreate(name, epType string) (*model.Endpoint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ep, ok := r.endpoints[name]; ok {
		return ep, false
	}

	ep := model.NewEndpoint(name, epType)
	r.endpoints[name] = ep
	metrics.EndpointsRegistered.Set(float64(len(r.endpoints)))
	return ep, true
}

// Put inserts or replaces the endpoint registered under its own Name.
func (r *Registry) Put(ep *model.Endpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints[ep.Name] = ep
	metrics.EndpointsRegistered.Set(float64(len(r.endpoints)))
}

// Remove deletes the endpoint registered under name. A no-op if absent.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.endpoints, name)
	metrics.EndpointsRegistered.Set(float64(len(r.endpoints)))
}

// TypeOf returns the recorded ep_type for name, the ep → ept mapping
// spec.md §4.1 unsubscribe clears.
func (r *Registry) TypeOf(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ep, ok := r.endpoints[name]
	if !ok {
		return "", false
	}
	return ep.Type, true
}

// Names returns every endpoint name currently registered, in no
// particular order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.endpoints))
	for name := range r.endpoints {
		names = append(names, name)
	}
	return names
}

// Len returns the current number of registered endpoints.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.endpoints)
}

// Snapshot returns a new slice holding the pointer of every registered
// endpoint, for read-only inspection (debug endpoint, status command)
// without holding the registry lock for the duration of the caller's work.
// The endpoints themselves are not copied.
func (r *Registry) Snapshot() []*model.Endpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Endpoint, 0, len(r.endpoints))
	for _, ep := range r.endpoints {
		out = append(out, ep)
	}
	return out
}
