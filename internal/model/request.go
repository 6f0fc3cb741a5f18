package model

import "encoding/json"

// MaxAPIRequestID is the exclusive upper bound of the request-id
// sequence (spec.md §3, §4.1): ids live in [1, MaxAPIRequestID) and
// wrap back to 1 rather than 0, matching the original bridge's
// MAX_API_REQUEST_ID = 32768 constant.
const MaxAPIRequestID = 32768

// ApiRequest is extracted from an inbound JSON envelope carrying the
// recognized keys api_uri/api_request_data/api_options/api_verb/
// api_key/api_caller_id/api_content_type (spec.md §3).
type ApiRequest struct {
	RequestID   int
	URI         string
	RequestData string
	Options     string
	Verb        string
	Key         string
	CallerID    string
	ContentType string
}

// LooksLikeAPIRequest reports whether a raw JSON payload carries the
// api_verb key, the sufficient condition spec.md §4.1 gives for routing
// a message down the API-request path instead of the CoAP-command path.
func LooksLikeAPIRequest(raw []byte) bool {
	var probe struct {
		Verb json.RawMessage `json:"api_verb"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	return len(probe.Verb) > 0
}

// CoapCommand is either carried explicitly in a message body or
// derived from positional topic segments, per cloud policy (spec.md §3).
type CoapCommand struct {
	Path     string
	CoapVerb string
	NewValue string
	Ep       string
	Options  string
}

// RequestIDSequence is the monotonically increasing, wrapping counter
// described in spec.md §4.1: starts at 0, increments before return,
// wraps to 1 (not 0) when it reaches MaxAPIRequestID. Not required to
// be monotonic across process restarts and is not safe for concurrent
// use without external synchronization — callers serialize access the
// same way the rest of the per-peer processor state is serialized.
type RequestIDSequence struct {
	next int
}

// Next returns the next request id in the sequence.
func (s *RequestIDSequence) Next() int {
	s.next++
	if s.next >= MaxAPIRequestID {
		s.next = 1
	}
	return s.next
}
