// Package transport is the HTTP transport primitive the long-poll
// reader and the orchestrator facade consume (spec.md §1: "the HTTP
// transport primitive" is explicitly out of scope as something the
// core reimplements — it is modeled here as a thin interface over
// net/http so callers never depend on *http.Client directly).
package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"
)

// Transport issues HTTP requests against the backend.
type Transport interface {
	Get(ctx context.Context, url string) (body []byte, status int, err error)
	Post(ctx context.Context, url string, body []byte) ([]byte, int, error)
	Put(ctx context.Context, url string, body []byte) ([]byte, int, error)
}

// HTTPTransport is the default Transport, backed by net/http.
type HTTPTransport struct {
	Client *http.Client

	// APIKey, if set, is sent as a Bearer token on every request — the
	// backend long-poll and orchestrator calls authenticate this way.
	APIKey string
}

// NewHTTPTransport returns an HTTPTransport with the given request
// timeout. A zero timeout means no client-side timeout (appropriate
// for the long-poll GET, which blocks intentionally).
func NewHTTPTransport(timeout time.Duration, apiKey string) *HTTPTransport {
	return &HTTPTransport{
		Client: &http.Client{Timeout: timeout},
		APIKey: apiKey,
	}
}

func (t *HTTPTransport) do(ctx context.Context, method, url string, body []byte) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, 0, err
	}
	if t.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.APIKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return respBody, resp.StatusCode, nil
}

func (t *HTTPTransport) Get(ctx context.Context, url string) ([]byte, int, error) {
	return t.do(ctx, http.MethodGet, url, nil)
}

func (t *HTTPTransport) Post(ctx context.Context, url string, body []byte) ([]byte, int, error) {
	return t.do(ctx, http.MethodPost, url, body)
}

func (t *HTTPTransport) Put(ctx context.Context, url string, body []byte) ([]byte, int, error) {
	return t.do(ctx, http.MethodPut, url, body)
}
