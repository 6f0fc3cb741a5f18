// Package subscription tracks which (domain, endpoint, type,
// resource-path) tuples the backend is observing (spec.md §2
// Subscription manager, §3 SubscriptionKey).
package subscription

import (
	"sync"

	"github.com/peeredge-io/shadowbridge/internal/metrics"
	"github.com/peeredge-io/shadowbridge/internal/model"
)

// Manager enforces SubscriptionKey uniqueness and records, per key,
// whether the resource is observable.
type Manager struct {
	mu      sync.RWMutex
	entries map[model.SubscriptionKey]bool
}

// NewManager returns an empty subscription manager.
func NewManager() *Manager {
	return &Manager{entries: make(map[model.SubscriptionKey]bool)}
}

// Contains reports whether key is currently tracked.
func (m *Manager) Contains(key model.SubscriptionKey) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[key]
	return ok
}

// Put records key with the given observable flag, inserting or
// refreshing the entry (spec.md §4.1 processRegistration: "refreshes
// the subscription-manager entry with the observable flag").
func (m *Manager) Put(key model.SubscriptionKey, observable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = observable
	metrics.SubscriptionsActive.Set(float64(len(m.entries)))
}

// Observable reports whether key is tracked and flagged observable.
func (m *Manager) Observable(key model.SubscriptionKey) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries[key]
}

// Remove drops key. A no-op if the key was never tracked.
func (m *Manager) Remove(key model.SubscriptionKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	metrics.SubscriptionsActive.Set(float64(len(m.entries)))
}

// RemoveEndpoint drops every key belonging to epName, the bulk removal
// unsubscribe/deregistration performs.
func (m *Manager) RemoveEndpoint(epName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if key.EpName == epName {
			delete(m.entries, key)
		}
	}
	metrics.SubscriptionsActive.Set(float64(len(m.entries)))
}

// Len returns the number of currently tracked subscriptions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
