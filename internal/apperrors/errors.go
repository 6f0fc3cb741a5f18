// Package apperrors defines the sentinel error taxonomy the processor
// pipeline classifies failures into, so callers can decide retry vs.
// give-up behavior by errors.Is rather than string matching.
package apperrors

import "errors"

var (
	// ErrTransientTransport marks a failure the caller should retry:
	// broker unreachable, connect timeout, a 5xx from the backend.
	ErrTransientTransport = errors.New("apperrors: transient transport failure")

	// ErrCredentialExpired marks a 401/403 from a peer cloud or the
	// backend, signaling the credential-refresh scheduler should mint a
	// new token and reconnect rather than retry the same session.
	ErrCredentialExpired = errors.New("apperrors: credential expired")

	// ErrFatalLongPoll marks a long-poll response of 410 Gone. The
	// reader logs it as critical and keeps polling.
	ErrFatalLongPoll = errors.New("apperrors: long-poll channel gone")

	// ErrDecode marks a malformed payload: invalid JSON, unexpected
	// value shape, unknown key type. Always recoverable — the caller
	// substitutes a diagnostic payload and continues.
	ErrDecode = errors.New("apperrors: payload decode failure")

	// ErrBackendRejection marks a non-2xx, non-401, non-410 response
	// from the orchestrator — the request itself was rejected.
	ErrBackendRejection = errors.New("apperrors: backend rejected request")

	// ErrCancelled marks a caller-initiated shutdown (context
	// cancellation), never logged as an error.
	ErrCancelled = errors.New("apperrors: operation cancelled")
)
