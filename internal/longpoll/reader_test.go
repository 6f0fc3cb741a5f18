package longpoll

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/peeredge-io/shadowbridge/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedTransport replays a fixed sequence of responses, then cancels
// the run loop's context once exhausted so tests don't spin forever.
type scriptedTransport struct {
	mu        sync.Mutex
	responses []response
	idx       int
	cancel    context.CancelFunc
}

type response struct {
	body   []byte
	status int
	err    error
}

func (s *scriptedTransport) Get(ctx context.Context, url string) ([]byte, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx >= len(s.responses) {
		if s.cancel != nil {
			s.cancel()
		}
		return nil, 0, errors.New("scriptedTransport: exhausted")
	}
	r := s.responses[s.idx]
	s.idx++
	return r.body, r.status, r.err
}

func (s *scriptedTransport) Post(ctx context.Context, url string, body []byte) ([]byte, int, error) {
	return nil, 0, errors.New("unused")
}

func (s *scriptedTransport) Put(ctx context.Context, url string, body []byte) ([]byte, int, error) {
	return nil, 0, errors.New("unused")
}

func runToExhaustion(t *testing.T, st *scriptedTransport, dispatch Dispatch) error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	st.cancel = cancel
	r := NewReader(st, "https://example.invalid/pull", dispatch)
	return r.Run(ctx)
}

func TestRunDispatchesNonEmptyBody(t *testing.T) {
	st := &scriptedTransport{responses: []response{
		{body: nil, status: 200},
		{body: []byte(`{"hello":"world"}`), status: 200},
	}}

	var dispatched [][]byte
	err := runToExhaustion(t, st, func(ctx context.Context, body []byte) {
		dispatched = append(dispatched, body)
	})

	require.ErrorIs(t, err, apperrors.ErrCancelled)
	require.Len(t, dispatched, 1)
	assert.Equal(t, `{"hello":"world"}`, string(dispatched[0]))
}

func TestRunSkipsDispatchOn400And401(t *testing.T) {
	st := &scriptedTransport{responses: []response{
		{status: 400},
		{status: 401},
	}}

	called := false
	err := runToExhaustion(t, st, func(ctx context.Context, body []byte) {
		called = true
	})

	require.ErrorIs(t, err, apperrors.ErrCancelled)
	assert.False(t, called)
}

// TestRunContinuesPollingAfter410 covers scenario 6: a 410 Gone logs
// critical and keeps polling — it must not terminate the loop — and a
// subsequent 200 with a body is still dispatched.
func TestRunContinuesPollingAfter410(t *testing.T) {
	st := &scriptedTransport{responses: []response{
		{status: 410},
		{body: []byte(`{"after":"410"}`), status: 200},
	}}

	var dispatched [][]byte
	err := runToExhaustion(t, st, func(ctx context.Context, body []byte) {
		dispatched = append(dispatched, body)
	})

	require.ErrorIs(t, err, apperrors.ErrCancelled)
	require.Len(t, dispatched, 1)
	assert.Equal(t, `{"after":"410"}`, string(dispatched[0]))
}

func TestRunStopsOnContextCancellation(t *testing.T) {
	st := &scriptedTransport{}
	r := NewReader(st, "https://example.invalid/pull", func(ctx context.Context, body []byte) {})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Run(ctx)
	require.ErrorIs(t, err, apperrors.ErrCancelled)
}
