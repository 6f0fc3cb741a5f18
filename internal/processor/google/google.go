// Package google implements the processor.PeerProcessor variant for
// Google Cloud IoT Core (spec.md §4.2, §9 Design Notes), grounded on
// original_source/.../google/GoogleCloudMQTTProcessor.java. Unlike
// Watson, each device gets its own MQTT session because each JWT is
// device-scoped; credential refresh disconnects, mints a new JWT, and
// reconnects under github.com/looplab/fsm session-state tracking
// (internal/processor/fsm).
package google

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/peeredge-io/shadowbridge/internal/credential"
	"github.com/peeredge-io/shadowbridge/internal/endpoint"
	"github.com/peeredge-io/shadowbridge/internal/model"
	gfsm "github.com/peeredge-io/shadowbridge/internal/processor/fsm"
	"github.com/peeredge-io/shadowbridge/pkg/log"
	"github.com/peeredge-io/shadowbridge/pkg/mqtt"
	"github.com/peeredge-io/shadowbridge/pkg/mqtt/topic"
)

// Config holds the google_cloud_* configuration keys spec.md §6 lists.
type Config struct {
	ProjectID    string
	CloudRegion  string
	RegistryName string

	MQTTHost string // e.g. mqtt.googleapis.com:8883

	ConfigTopicTemplate string // subscribed, e.g. /devices/__EPNAME__/config
	EventTopicTemplate  string // published, e.g. /devices/__EPNAME__/events
	StateTopicTemplate  string // published, e.g. /devices/__EPNAME__/state

	JWTExpiration time.Duration // default 23h, spec.md §4.3
	RefreshSlack  time.Duration // default: credential.RefreshSlack(JWTExpiration, 5h)
	RefreshWaitMs int           // base sleep between connect/refresh retry attempts, doubled per attempt, default 15000
	MaxRetries    int           // connect/refresh retry budget, spec.md §4.2

	// DeviceManagerRetries: supplemental feature recovered from
	// original_source (GoogleCloudDeviceManager registerNewDevice) — the
	// shadow-create path retries registry creation independently of MQTT
	// connect retries.
	DeviceManagerRetries int

	InsecureSkipVerify bool
}

// DeviceRegistrar provisions/deletes the Cloud IoT Core device-registry
// entry for one device. Modeled as an interface because the
// device-registry CRUD SDK is explicitly out of scope for this core
// (spec.md §1); the bridge wiring supplies a concrete implementation.
type DeviceRegistrar interface {
	RegisterDevice(ctx context.Context, ep, ept string, publicKey string) error
	DeleteDevice(ctx context.Context, ep string) error
}

// Processor is the Google Cloud IoT Core PeerProcessor.
type Processor struct {
	cfg Config
	key *rsa.PrivateKey

	sessions  *endpoint.Sessions
	registrar DeviceRegistrar

	mu          sync.Mutex
	epType      map[string]string
	fsmSessions map[string]*gfsm.Session

	onResubscribe func(ctx context.Context, ep, ept string) error
}

// New builds a Google processor signing JWTs with key.
func New(cfg Config, key *rsa.PrivateKey, sessions *endpoint.Sessions, registrar DeviceRegistrar) *Processor {
	if cfg.JWTExpiration == 0 {
		cfg.JWTExpiration = 23 * time.Hour
	}
	if cfg.RefreshSlack == 0 {
		cfg.RefreshSlack = credential.RefreshSlack(cfg.JWTExpiration, 5*time.Hour)
	}
	if cfg.RefreshWaitMs == 0 {
		cfg.RefreshWaitMs = 15000
	}
	return &Processor{
		cfg:         cfg,
		key:         key,
		sessions:    sessions,
		registrar:   registrar,
		epType:      make(map[string]string),
		fsmSessions: make(map[string]*gfsm.Session),
	}
}

// SetResubscriber wires the callback that re-establishes an endpoint's
// command-topic subscription after a successful (re)connect — the
// bridge wiring supplies processor.Base.Subscribe here, since the FSM's
// enter_connected hook needs access to Base's topic/session bookkeeping
// that Processor itself does not own.
func (p *Processor) SetResubscriber(f func(ctx context.Context, ep, ept string) error) {
	p.onResubscribe = f
}

func (p *Processor) Cloud() string { return "google" }

// RequestTopicFilter: Google carries API-request envelopes over the
// same per-device config topic space is not applicable — API requests
// arrive on a dedicated administrative topic shared across the
// registry.
func (p *Processor) RequestTopicFilter() string {
	return fmt.Sprintf("/registries/%s/api/#", p.cfg.RegistryName)
}

// Connect returns nil, nil: Google has no shared default session
// (spec.md §4.2 session topology); every device dials its own.
func (p *Processor) Connect(ctx context.Context) (mqtt.Client, error) {
	return nil, nil
}

// SessionCreator returns the per-device session factory used by
// processor.Base.Subscribe on first connect.
func (p *Processor) SessionCreator() endpoint.SessionCreator {
	return p.dial
}

func (p *Processor) clientID(ep string) string {
	return fmt.Sprintf("projects/%s/locations/%s/registries/%s/devices/%s",
		p.cfg.ProjectID, p.cfg.CloudRegion, p.cfg.RegistryName, ep)
}

// dial mints a fresh JWT and opens ep's MQTT session. Implements the
// connect() primitive the FSM's Connect/Refresh hooks call.
func (p *Processor) dial(ctx context.Context, ep, ept string) (mqtt.Client, error) {
	tok, err := credential.MintJWT(p.key, p.cfg.ProjectID, p.cfg.JWTExpiration, time.Now())
	if err != nil {
		return nil, fmt.Errorf("google: mint jwt for %s: %w", ep, err)
	}

	client, err := mqtt.NewClient(&mqtt.ClientConfig{
		BrokerURL:          p.cfg.MQTTHost,
		ClientID:           p.clientID(ep),
		Username:           "unused",
		Password:           tok,
		CleanStart:         false,
		InsecureSkipVerify: p.cfg.InsecureSkipVerify,
	})
	if err != nil {
		return nil, err
	}
	if err := client.Start(ctx); err != nil {
		return nil, err
	}
	if err := client.AwaitConnection(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

func (p *Processor) getOrCreateFSM(ep, ept string) *gfsm.Session {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.epType[ep] = ept
	if sess, ok := p.fsmSessions[ep]; ok {
		return sess
	}

	sess := gfsm.NewSession(ep, gfsm.Hooks{
		Connect: func(ctx context.Context) error {
			// Drop any stale session first so the replacement dial does
			// not race the old one's redelivery.
			p.sessions.Remove(ctx, ep)
			_, err := p.sessions.GetOrCreate(ctx, ep, ept, p.dial)
			return err
		},
		Resubscribe: func(ctx context.Context) error {
			if p.onResubscribe == nil {
				return nil
			}
			return p.onResubscribe(ctx, ep, ept)
		},
		Disconnect: func(ctx context.Context) {
			p.sessions.Remove(ctx, ep)
		},
	}, p.cfg.MaxRetries, time.Duration(p.cfg.RefreshWaitMs)*time.Millisecond)

	p.fsmSessions[ep] = sess
	return sess
}

// MarkConnected records that ep's session was already established
// directly by processor.Base.Subscribe, so a later RefreshCredentials
// call has a valid Connected state to transition out of.
func (p *Processor) MarkConnected(ep, ept string) {
	p.getOrCreateFSM(ep, ept).Adopt()
}

// CreateEndpointTopicData renders the config (subscribe), event and
// state (publish) topics for ep (spec.md §4.2 createEndpointTopicData).
func (p *Processor) CreateEndpointTopicData(ep, ept string) (model.TopicSet, error) {
	p.mu.Lock()
	p.epType[ep] = ept
	p.mu.Unlock()

	vars := topic.Vars{Endpoint: ep, DeviceType: ept, ProjectID: p.cfg.ProjectID, CloudRegion: p.cfg.CloudRegion, RegistryName: p.cfg.RegistryName}
	ts := model.TopicSet{
		model.VerbConfig: topic.Render(p.cfg.ConfigTopicTemplate, vars),
		model.VerbEvent:  topic.Render(p.cfg.EventTopicTemplate, vars),
		model.VerbState:  topic.Render(p.cfg.StateTopicTemplate, vars),
	}
	return ts, nil
}

// SubscribeCommandTopics subscribes only to the config topic — Google
// Cloud IoT Core's sole inbound channel (spec.md §4.2: "config topic is
// the only one to listen on for Google"). It does not change the
// session's FSM state.
func (p *Processor) SubscribeCommandTopics(ctx context.Context, client mqtt.Client, ts model.TopicSet, handler mqtt.MessageHandler) error {
	configTopic, ok := ts[model.VerbConfig]
	if !ok || configTopic == "" {
		return fmt.Errorf("google: config topic not set")
	}
	if err := client.Subscribe(ctx, configTopic, 1, handler); err != nil {
		return fmt.Errorf("google: subscribe config topic: %w", err)
	}
	return nil
}

// CreateObservation wraps the canonical payload. Google wraps nothing
// additional (spec.md §4.2 notification wrapping).
func (p *Processor) CreateObservation(verb, ep, uri string, value interface{}) *model.ObservationPayload {
	return &model.ObservationPayload{Path: uri, Ep: ep, Value: value, CoapVerb: verb}
}

// DecodeCommand decodes the JSON body of a Google Cloud IoT Core config
// message. Google's config topic carries no verb/path in its topic
// string, so the full command travels in the body (unlike Watson's
// positional decoding).
func (p *Processor) DecodeCommand(t string, payload []byte) (*model.CoapCommand, error) {
	var cmd model.CoapCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return nil, fmt.Errorf("google: decode command body: %w", err)
	}
	if cmd.Ep == "" {
		segs := topic.Segments(t)
		if len(segs) >= 3 {
			cmd.Ep = segs[2] // /devices/<ep>/config
		}
	}
	if cmd.Ep == "" {
		return nil, fmt.Errorf("google: unable to determine endpoint from topic %q", t)
	}
	return &cmd, nil
}

// ReplyTopicFor returns the events topic (spec.md §4.2: observations
// publish on /devices/<device_id>/events).
func (p *Processor) ReplyTopicFor(ts model.TopicSet) string {
	return ts[model.VerbEvent]
}

// NotificationTopicFor returns the same events topic as ReplyTopicFor:
// Google has no separate notify/cmd-response split.
func (p *Processor) NotificationTopicFor(ts model.TopicSet) string {
	return ts[model.VerbEvent]
}

// CreateShadow provisions the Cloud IoT Core device-registry entry,
// retrying up to cfg.DeviceManagerRetries times (supplemental feature
// recovered from GoogleCloudDeviceManager.registerNewDevice, which
// retries registry creation independently of MQTT connect retries).
func (p *Processor) CreateShadow(ctx context.Context, ep, ept string) error {
	if p.registrar == nil {
		return nil
	}
	retries := p.cfg.DeviceManagerRetries
	if retries <= 0 {
		retries = 3
	}

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		if err := p.registrar.RegisterDevice(ctx, ep, ept, ""); err != nil {
			lastErr = err
			log.Warn(err, "google: registry creation failed, retrying", "ep", ep, "attempt", attempt+1)
			continue
		}
		return nil
	}
	return fmt.Errorf("google: registry creation exhausted %d retries: %w", retries, lastErr)
}

// DeleteShadow removes the device-registry entry and tears down any FSM
// tracking state.
func (p *Processor) DeleteShadow(ctx context.Context, ep string) error {
	p.mu.Lock()
	delete(p.fsmSessions, ep)
	delete(p.epType, ep)
	p.mu.Unlock()

	if p.registrar == nil {
		return nil
	}
	return p.registrar.DeleteDevice(ctx, ep)
}

// RefreshCredentials drives the per-device FSM through
// Connected -> Refreshing -> Connected: disconnects, mints a new JWT,
// reconnects, and re-subscribes (spec.md §8 scenario 3).
func (p *Processor) RefreshCredentials(ctx context.Context, ep string) error {
	p.mu.Lock()
	ept := p.epType[ep]
	p.mu.Unlock()

	sess := p.getOrCreateFSM(ep, ept)
	return sess.Refresh(ctx)
}

// CommandDispatchSerialized is true: Google maps each inbound config
// message 1:1 onto a backend REST call and needs the process-wide
// command-dispatch lock (spec.md §5).
func (p *Processor) CommandDispatchSerialized() bool { return true }
