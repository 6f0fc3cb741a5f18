package credential

import (
	"context"
	"sync"
	"time"

	"github.com/peeredge-io/shadowbridge/internal/metrics"
	"github.com/peeredge-io/shadowbridge/pkg/log"
)

// RefreshFunc performs one credential refresh cycle for ep: mint, stop
// receive loop, disconnect, reconnect with the new credential,
// re-subscribe, restart receive loop (spec.md §4.3 steps a-g). The
// caller (a per-cloud processor) owns all of that; the scheduler only
// owns the timing.
type RefreshFunc func(ctx context.Context, ep string) error

// Scheduler owns the credential-refresh-timer map (spec.md §5's third
// shared mutable structure): one time.Timer per per-device session.
type Scheduler struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	refresh RefreshFunc
}

// NewScheduler returns an empty scheduler driving refresh on each fire.
func NewScheduler(refresh RefreshFunc) *Scheduler {
	return &Scheduler{timers: make(map[string]*time.Timer), refresh: refresh}
}

// Schedule arms (or re-arms) the refresh timer for ep to fire after
// delay. Replaces any existing timer for ep.
func (s *Scheduler) Schedule(ctx context.Context, ep string, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.timers[ep]; ok {
		existing.Stop()
	}

	s.timers[ep] = time.AfterFunc(delay, func() {
		err := s.refresh(ctx, ep)
		result := "ok"
		if err != nil {
			result = "error"
			log.Error(err, "credential refresh failed", "ep", ep)
		}
		metrics.JwtRefreshTotal.WithLabelValues(ep, result).Inc()
	})
}

// Stop cancels the refresh timer for ep. Idempotent — safe to call on
// an endpoint with no scheduled timer (spec.md §4.3
// stopJwTRefresherThread).
func (s *Scheduler) Stop(ep string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[ep]; ok {
		t.Stop()
		delete(s.timers, ep)
	}
}

// StopAll cancels every outstanding timer, used on process shutdown.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ep, t := range s.timers {
		t.Stop()
		delete(s.timers, ep)
	}
}

// Len returns the number of currently scheduled refresh timers.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
