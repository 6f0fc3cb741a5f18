// Package fsm implements the per-device Google Cloud IoT session state
// machine (spec.md §4.2): Disconnected -> Connecting -> Connected ->
// Refreshing -> Connected -> Disconnecting -> Disconnected, using
// github.com/looplab/fsm in the teacher's idiom (guard callbacks named
// before_*, side-effect callbacks named enter_*).
package fsm

import (
	"context"
	"fmt"
	"time"

	"github.com/looplab/fsm"

	utilfsm "github.com/peeredge-io/shadowbridge/internal/pkg/util/fsm"
	"github.com/peeredge-io/shadowbridge/pkg/log"
)

const (
	StateDisconnected  = "disconnected"
	StateConnecting    = "connecting"
	StateConnected     = "connected"
	StateRefreshing    = "refreshing"
	StateDisconnecting = "disconnecting"
)

const (
	EventConnect      = "connect"
	EventConnectOK    = "connect_ok"
	EventRefresh      = "refresh"
	EventRefreshOK    = "refresh_ok"
	EventDisconnect   = "disconnect"
	EventDisconnected = "disconnected"
)

// Hooks are the side effects the session FSM drives; Session wires them
// to the actual MQTT connect/subscribe/reconnect calls.
type Hooks struct {
	// Connect dials a fresh MQTT session for the device, or mints and
	// applies a new credential for a refresh.
	Connect func(ctx context.Context) error
	// Resubscribe re-subscribes to the full topic_string_list; called on
	// every successful transition into Connected, preserving the
	// invariant that subscriptions never silently drop after a
	// credential rotation (spec.md §4.2).
	Resubscribe func(ctx context.Context) error
	// Disconnect closes the MQTT session.
	Disconnect func(ctx context.Context)
}

// Session is one device's connection state machine.
type Session struct {
	EpName string

	fsm *fsm.FSM

	maxRetries  int
	refreshWait time.Duration
}

// NewSession builds a Session wired to hooks, starting in Disconnected.
//
// The before_connect/before_refresh guards perform the actual blocking
// connect/reconnect call; if it errors, the guard cancels the
// transition, so a failed connect leaves the state Disconnected and a
// failed refresh leaves it Connected. No separate failure event is used.
func NewSession(epName string, hooks Hooks, maxRetries int, refreshWait time.Duration) *Session {
	s := &Session{EpName: epName, maxRetries: maxRetries, refreshWait: refreshWait}

	s.fsm = fsm.NewFSM(
		StateDisconnected,
		fsm.Events{
			{Name: EventConnect, Src: []string{StateDisconnected}, Dst: StateConnecting},
			{Name: EventConnectOK, Src: []string{StateConnecting}, Dst: StateConnected},
			{Name: EventRefresh, Src: []string{StateConnected}, Dst: StateRefreshing},
			{Name: EventRefreshOK, Src: []string{StateRefreshing}, Dst: StateConnected},
			{Name: EventDisconnect, Src: []string{StateConnected, StateConnecting, StateRefreshing}, Dst: StateDisconnecting},
			{Name: EventDisconnected, Src: []string{StateDisconnecting}, Dst: StateDisconnected},
		},
		fsm.Callbacks{
			"before_" + EventConnect: func(ctx context.Context, e *fsm.Event) {
				if err := hooks.Connect(ctx); err != nil {
					e.Cancel(err)
				}
			},
			"before_" + EventRefresh: func(ctx context.Context, e *fsm.Event) {
				if err := hooks.Connect(ctx); err != nil {
					e.Cancel(err)
				}
			},
			"enter_" + StateConnected: utilfsm.WrapEvent(func(ctx context.Context, e *fsm.Event) error {
				if hooks.Resubscribe == nil {
					return nil
				}
				if err := hooks.Resubscribe(ctx); err != nil {
					log.Error(err, "failed to re-subscribe after connect/refresh", "ep", epName)
					return err
				}
				return nil
			}),
			"enter_" + StateDisconnecting: utilfsm.WrapEvent(func(ctx context.Context, e *fsm.Event) error {
				if hooks.Disconnect != nil {
					hooks.Disconnect(ctx)
				}
				return nil
			}),
		},
	)

	return s
}

// Current returns the session's current state.
func (s *Session) Current() string { return s.fsm.Current() }

// Adopt marks the session Connected without dialing: used when a
// session was already established outside the FSM (the endpoint's
// first subscribe, driven directly by processor.Base.Subscribe) and the
// FSM should simply track that fact so a later Refresh has a valid
// Connected starting state.
func (s *Session) Adopt() {
	s.fsm.SetState(StateConnected)
}

// Connect drives Disconnected -> Connecting -> Connected, retrying up
// to maxRetries times with exponentially spaced sleeps of refreshWait on
// failure, per spec.md §4.2.
func (s *Session) Connect(ctx context.Context) error {
	return s.driveWithRetry(ctx, EventConnect, EventConnectOK)
}

// Refresh drives Connected -> Refreshing -> Connected the same way.
func (s *Session) Refresh(ctx context.Context) error {
	return s.driveWithRetry(ctx, EventRefresh, EventRefreshOK)
}

func (s *Session) driveWithRetry(ctx context.Context, start, ok string) error {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		err := s.fsm.Event(ctx, start)
		if err == nil {
			if err := s.fsm.Event(ctx, ok); err != nil {
				return fmt.Errorf("ep %s: %w", s.EpName, err)
			}
			return nil
		}
		lastErr = err

		if attempt < s.maxRetries {
			sleep := s.refreshWait * time.Duration(1<<uint(attempt))
			time.Sleep(sleep)
		}
	}
	return fmt.Errorf("ep %s: exhausted %d retries: %w", s.EpName, s.maxRetries, lastErr)
}

// Disconnect drives the session to Disconnected from any active state.
// Safe to call when already Disconnected.
func (s *Session) Disconnect(ctx context.Context) {
	if s.Current() == StateDisconnected {
		return
	}
	_ = s.fsm.Event(ctx, EventDisconnect)
	_ = s.fsm.Event(ctx, EventDisconnected)
}
