package model

import "time"

// AsyncRecord tracks one outstanding CoAP async reply (spec.md §3, §4.5).
// Created when the orchestrator returns a response matching the
// is-async-response predicate; destroyed when the backend later emits a
// completion carrying the same AsyncID, at which point the reply is
// formatted as an observation and published to ReplyTopic.
type AsyncRecord struct {
	AsyncID         string
	Verb            string
	TransportHandle string
	ReplyTopic      string
	OriginalTopic   string
	OriginalMessage []byte
	EpName          string
	URI             string
	CreatedAt       time.Time
}

// Expired reports whether this record has outlived ttl since creation.
// Used by the optional timeout sweep (spec.md §4.5) — not required for
// correctness, since records are normally resolved by a matching
// completion, but bounds memory if the backend never replies.
func (r *AsyncRecord) Expired(ttl time.Duration, now time.Time) bool {
	return now.Sub(r.CreatedAt) > ttl
}
