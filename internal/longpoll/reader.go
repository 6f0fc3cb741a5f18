// Package longpoll implements the backend long-poll reader (spec.md
// §4.4): a single unbounded GET loop against the backend's pull
// channel, dispatching whatever it receives into the same message path
// webhook-originated notifications take. Grounded line-for-line on
// original_source/.../LongPollProcessor.java.
package longpoll

import (
	"context"
	"strconv"

	"github.com/peeredge-io/shadowbridge/internal/apperrors"
	"github.com/peeredge-io/shadowbridge/internal/backend/transport"
	"github.com/peeredge-io/shadowbridge/internal/metrics"
	"github.com/peeredge-io/shadowbridge/pkg/log"
)

// Dispatch hands a non-empty long-poll body to the same processing path
// webhook notifications use (processDeviceServerMessage in the
// original).
type Dispatch func(ctx context.Context, body []byte)

// Reader drives the unbounded GET loop against url using t, handing
// every non-empty response body to dispatch.
type Reader struct {
	Transport transport.Transport
	URL       string
	Dispatch  Dispatch
}

// NewReader builds a Reader polling url via t.
func NewReader(t transport.Transport, url string, dispatch Dispatch) *Reader {
	return &Reader{Transport: t, URL: url, Dispatch: dispatch}
}

// Run polls until ctx is cancelled. A 410 Gone means the pull channel
// needs a new API key, but per the original's pollingLooper this is
// logged as a critical failure, not a reason to stop polling — Run
// keeps looping so a subsequent 200 is still dispatched.
func (r *Reader) Run(ctx context.Context) error {
	log.Info("long-poll: beginning polling")

	for {
		select {
		case <-ctx.Done():
			return apperrors.ErrCancelled
		default:
		}

		body, status, err := r.Transport.Get(ctx, r.URL)
		metrics.LongpollStatusTotal.WithLabelValues(strconv.Itoa(status)).Inc()

		if err != nil {
			if ctx.Err() != nil {
				return apperrors.ErrCancelled
			}
			log.Warn(err, "long-poll: transport error, retrying")
			continue
		}

		switch status {
		case 400:
			log.Warn(apperrors.ErrCredentialExpired, "long-poll: API key already has a callback webhook set up; please use another key")
		case 401:
			log.Warn(apperrors.ErrCredentialExpired, "long-poll: API key does not appear to be valid (401 Unauthorized); check the key")
		case 410:
			log.Error(apperrors.ErrFatalLongPoll, "long-poll: pull channel is not functioning properly; create and use another API key")
		default:
			if len(body) > 0 {
				log.Info("long-poll: processing received message")
				r.Dispatch(ctx, body)
			} else {
				log.Info("long-poll: nothing to process")
			}
		}
	}
}
