// Package asyncreply implements the async-response correlator
// (spec.md §2, §3 AsyncRecord, §4.5): it records outstanding CoAP
// async ids and resumes them when the backend emits a matching
// completion.
package asyncreply

import (
	"encoding/base64"
	"encoding/json"
	"sync"
	"time"

	"github.com/peeredge-io/shadowbridge/internal/metrics"
	"github.com/peeredge-io/shadowbridge/internal/model"
)

// DefaultTimeout bounds how long a record is kept if the backend never
// emits a matching completion (async_reply_timeout, default 5 minutes).
// This is a memory bound only — spec.md §4.5 does not require it for
// correctness, since records are normally resolved by a completion.
const DefaultTimeout = 5 * time.Minute

// Correlator stores in-flight AsyncRecords keyed by async_id.
type Correlator struct {
	mu      sync.Mutex
	records map[string]*model.AsyncRecord
	timeout time.Duration
}

// NewCorrelator returns an empty correlator with the given record
// timeout. A zero timeout uses DefaultTimeout.
func NewCorrelator(timeout time.Duration) *Correlator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Correlator{records: make(map[string]*model.AsyncRecord), timeout: timeout}
}

// Put records rec under its AsyncID, overwriting any prior record with
// the same id.
func (c *Correlator) Put(rec *model.AsyncRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[rec.AsyncID] = rec
	metrics.AsyncPending.Set(float64(len(c.records)))
}

// Resolve removes and returns the record for asyncID, if any. Called
// when the backend emits a completion carrying that id.
func (c *Correlator) Resolve(asyncID string) (*model.AsyncRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[asyncID]
	if ok {
		delete(c.records, asyncID)
		metrics.AsyncPending.Set(float64(len(c.records)))
	}
	return rec, ok
}

// Len returns the number of records currently outstanding.
func (c *Correlator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// SweepExpired removes every record older than the correlator's
// timeout, as of now. Intended to run on a periodic timer; returns the
// number of records dropped.
func (c *Correlator) SweepExpired(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := 0
	for id, rec := range c.records {
		if rec.Expired(c.timeout, now) {
			delete(c.records, id)
			dropped++
		}
	}
	if dropped > 0 {
		metrics.AsyncPending.Set(float64(len(c.records)))
	}
	return dropped
}

// IsAsyncResponse reports whether a decoded orchestrator response
// matches the "is-async-response" predicate: presence of the
// "async-response-id" key (spec.md §4.5 scenario 2).
func IsAsyncResponse(raw []byte) (asyncID string, ok bool) {
	var probe struct {
		AsyncResponseID string `json:"async-response-id"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return "", false
	}
	if probe.AsyncResponseID == "" {
		return "", false
	}
	return probe.AsyncResponseID, true
}

// FormatAsyncResponseAsReply builds the ObservationPayload published to
// rec.ReplyTopic once the backend's completion payload (base64-encoded
// string form, per spec.md's base64 decode convention) arrives.
func FormatAsyncResponseAsReply(rec *model.AsyncRecord, base64Payload string) (*model.ObservationPayload, error) {
	decoded, err := base64.StdEncoding.DecodeString(base64Payload)
	if err != nil {
		return nil, err
	}

	return &model.ObservationPayload{
		Path:     rec.URI,
		Ep:       rec.EpName,
		Value:    string(decoded),
		CoapVerb: rec.Verb,
	}, nil
}
