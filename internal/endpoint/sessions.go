package endpoint

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/peeredge-io/shadowbridge/pkg/mqtt"
)

// SessionCreator starts (or validates) the MQTT session for one
// endpoint. Implemented per peer cloud: Google mints per-device
// sessions; Watson and generic clouds share one session across endpoints
// and supply no SessionCreator.
type SessionCreator func(ctx context.Context, epName, epType string) (mqtt.Client, error)

// Sessions is the per-endpoint MQTT-session map (spec.md §5's second
// shared mutable structure). createAndStartMQTTForEndpoint is
// serialized per endpoint via singleflight so two concurrent
// registrations for the same ep_name produce exactly one session.
type Sessions struct {
	mu       sync.RWMutex
	byEp     map[string]mqtt.Client
	inflight singleflight.Group
}

// NewSessions returns an empty session map.
func NewSessions() *Sessions {
	return &Sessions{byEp: make(map[string]mqtt.Client)}
}

// GetOrCreate returns the existing session for epName if one exists;
// otherwise it calls create exactly once even under concurrent callers
// for the same epName, stores the result, and returns it.
func (s *Sessions) GetOrCreate(ctx context.Context, epName, epType string, create SessionCreator) (mqtt.Client, error) {
	s.mu.RLock()
	existing, ok := s.byEp[epName]
	s.mu.RUnlock()
	if ok {
		return existing, nil
	}

	v, err, _ := s.inflight.Do(epName, func() (interface{}, error) {
		s.mu.RLock()
		existing, ok := s.byEp[epName]
		s.mu.RUnlock()
		if ok {
			return existing, nil
		}

		client, err := create(ctx, epName, epType)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.byEp[epName] = client
		s.mu.Unlock()
		return client, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(mqtt.Client), nil
}

// Get returns the session for epName, if one exists.
func (s *Sessions) Get(epName string) (mqtt.Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byEp[epName]
	return c, ok
}

// Remove disconnects and removes the session for epName, if any. Safe
// to call on an endpoint with no session (spec.md §5 cancellation:
// "safe to call on an already-stopped target").
func (s *Sessions) Remove(ctx context.Context, epName string) {
	s.mu.Lock()
	client, ok := s.byEp[epName]
	delete(s.byEp, epName)
	s.mu.Unlock()

	if ok {
		client.Disconnect(ctx)
	}
}

// Len returns the number of live per-endpoint sessions.
func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byEp)
}
