// Package bridge wires the endpoint registry, subscription manager,
// async-response correlator, per-cloud processors, credential-refresh
// scheduler, long-poll reader, and admin server into one running
// application (spec.md §2 SYSTEM OVERVIEW), grounded on the teacher's
// internal/bridge.Config/NewHubServer assembly pattern.
package bridge

import (
	"fmt"

	"github.com/peeredge-io/shadowbridge/internal/adminserver"
	"github.com/peeredge-io/shadowbridge/internal/asyncreply"
	"github.com/peeredge-io/shadowbridge/internal/backend/transport"
	"github.com/peeredge-io/shadowbridge/internal/endpoint"
	"github.com/peeredge-io/shadowbridge/internal/longpoll"
	"github.com/peeredge-io/shadowbridge/internal/orchestrator"
	"github.com/peeredge-io/shadowbridge/internal/processor"
	"github.com/peeredge-io/shadowbridge/internal/subscription"
	"github.com/peeredge-io/shadowbridge/pkg/options"
)

// Config bundles the option groups every collaborator is built from,
// mirroring the teacher's one-field-per-option-group Config plus a
// single assembly method.
type Config struct {
	Processor *options.ProcessorOptions
	Backend   *options.BackendOptions
	Http      *options.HttpOptions
	Google    *options.GoogleOptions
	Watson    *options.WatsonOptions
	Generic   *options.GenericOptions
}

// NewBridge assembles every enabled peer cloud's processor.Base around
// the shared registry/subscription/correlator/session state, then wires
// the backend long-poll reader and admin server around them.
func (cfg *Config) NewBridge() (*Bridge, error) {
	registry := endpoint.NewRegistry()
	sessions := endpoint.NewSessions()
	subs := subscription.NewManager()
	correlator := asyncreply.NewCorrelator(cfg.Processor.AsyncReplyTimeout)

	httpTransport := transport.NewHTTPTransport(cfg.Backend.Timeout, cfg.Backend.APIKey)
	orch := orchestrator.NewHTTPOrchestrator(cfg.Backend.BaseURL, httpTransport)

	procCfg := processor.Config{
		Domain:                 cfg.Processor.Domain,
		AutoSubscribe:          cfg.Processor.AutoSubscribe,
		DeleteOnDeregistration: cfg.Processor.DeleteOnDeregistration,
		DraftFormat:            cfg.Processor.DraftFormat,
		DraftTenant:            cfg.Processor.DraftTenant,
		LockWaitMs:             cfg.Processor.LockWaitMs,
		AsyncReplyTimeout:      cfg.Processor.AsyncReplyTimeout,
	}

	b := &Bridge{
		registry:        registry,
		sessions:        sessions,
		subs:            subs,
		correlator:      correlator,
		asyncSweepEvery: procCfg.AsyncReplyTimeout,
	}

	if cfg.Google != nil && cfg.Google.Enabled {
		if err := b.wireGoogle(cfg, procCfg, orch, registry, subs, correlator, sessions); err != nil {
			return nil, fmt.Errorf("wire google peer: %w", err)
		}
	}
	if cfg.Watson != nil && cfg.Watson.Enabled {
		b.wireWatson(cfg, procCfg, orch, registry, subs, correlator, sessions)
	}
	if cfg.Generic != nil && cfg.Generic.Enabled {
		b.wireGeneric(cfg, procCfg, orch, registry, subs, correlator, sessions)
	}
	if len(b.peers) == 0 {
		return nil, fmt.Errorf("bridge: no peer cloud is enabled (google/watson/generic)")
	}

	b.longpoll = longpoll.NewReader(transport.NewHTTPTransport(0, cfg.Backend.APIKey), cfg.Backend.LongPollURL, b.dispatchBackendEvent)
	b.admin = adminserver.NewServer(cfg.Http, registry, b.readiness)

	return b, nil
}
