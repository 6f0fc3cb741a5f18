// Package orchestrator defines the facade the processor subsystem
// consumes for backend operations (spec.md §2 Orchestrator facade):
// processApiRequestOperation, processEndpointResourceOperation,
// subscribeToEndpointResource, pullDeviceMetadata. It is a consumed
// interface per spec.md §1 — this package only supplies the interface
// and a default HTTP-based implementation.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/peeredge-io/shadowbridge/internal/backend/transport"
	"github.com/peeredge-io/shadowbridge/internal/model"
)

// Orchestrator is the interface the processor subsystem calls into for
// every backend-bound operation.
type Orchestrator interface {
	// ProcessAPIRequest forwards an ApiRequest to the backend and
	// returns its raw JSON response body.
	ProcessAPIRequest(ctx context.Context, req model.ApiRequest) ([]byte, error)

	// ProcessEndpointResourceOperation issues the CoAP command to the
	// backend for ep and returns the raw JSON response body, which may
	// be an async-response envelope or a synchronous result.
	ProcessEndpointResourceOperation(ctx context.Context, ep string, cmd model.CoapCommand) ([]byte, error)

	// SubscribeToEndpointResource tells the backend to start observing
	// a resource path for ep.
	SubscribeToEndpointResource(ctx context.Context, ep string, path model.ResourcePath) error

	// PullDeviceMetadata fetches device attributes the backend holds
	// for ep (firmware version, manufacturer, etc).
	PullDeviceMetadata(ctx context.Context, ep string) (map[string]string, error)
}

// HTTPOrchestrator is the default Orchestrator implementation, issuing
// REST calls over the given transport to a backend base URL.
type HTTPOrchestrator struct {
	BaseURL   string
	Transport transport.Transport
}

// NewHTTPOrchestrator returns an Orchestrator backed by t.
func NewHTTPOrchestrator(baseURL string, t transport.Transport) *HTTPOrchestrator {
	return &HTTPOrchestrator{BaseURL: baseURL, Transport: t}
}

func (o *HTTPOrchestrator) ProcessAPIRequest(ctx context.Context, req model.ApiRequest) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, _, err := o.Transport.Post(ctx, o.BaseURL+req.URI, body)
	return resp, err
}

func (o *HTTPOrchestrator) ProcessEndpointResourceOperation(ctx context.Context, ep string, cmd model.CoapCommand) ([]byte, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/endpoints/%s%s", o.BaseURL, ep, cmd.Path)
	resp, _, err := o.Transport.Post(ctx, url, body)
	return resp, err
}

func (o *HTTPOrchestrator) SubscribeToEndpointResource(ctx context.Context, ep string, path model.ResourcePath) error {
	url := fmt.Sprintf("%s/subscriptions/%s%s", o.BaseURL, ep, path)
	_, _, err := o.Transport.Put(ctx, url, nil)
	return err
}

func (o *HTTPOrchestrator) PullDeviceMetadata(ctx context.Context, ep string) (map[string]string, error) {
	url := fmt.Sprintf("%s/endpoints/%s/metadata", o.BaseURL, ep)
	body, _, err := o.Transport.Get(ctx, url)
	if err != nil {
		return nil, err
	}

	var meta map[string]string
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, err
	}
	return meta, nil
}
