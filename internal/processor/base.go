// Package processor implements the generic MQTT processor (spec.md
// §4.1, SPEC_FULL §4.1): the base type every per-cloud PeerProcessor
// variant is driven by.
package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/peeredge-io/shadowbridge/internal/asyncreply"
	"github.com/peeredge-io/shadowbridge/internal/endpoint"
	"github.com/peeredge-io/shadowbridge/internal/metrics"
	"github.com/peeredge-io/shadowbridge/internal/model"
	"github.com/peeredge-io/shadowbridge/internal/orchestrator"
	"github.com/peeredge-io/shadowbridge/internal/subscription"
	"github.com/peeredge-io/shadowbridge/pkg/log"
	"github.com/peeredge-io/shadowbridge/pkg/mqtt"
)

// SentinelDefaultHost is the unconfigured-MQTT-host placeholder.
// initListener fails without retry when the configured host equals this.
const SentinelDefaultHost = "0.0.0.0"

// Config holds the generic-processor policy knobs spec.md §6 lists as
// environment/configuration keys.
type Config struct {
	Domain                 string
	AutoSubscribe           bool
	DeleteOnDeregistration  bool
	DraftFormat             bool
	DraftTenant             string
	LockWaitMs              int
	AsyncReplyTimeout       time.Duration
}

// Base is the generic MQTT processor (spec.md §4.1). A Base is always
// paired with exactly one PeerProcessor variant.
type Base struct {
	cfg  Config
	peer PeerProcessor
	orch orchestrator.Orchestrator

	registry   *endpoint.Registry
	subs       *subscription.Manager
	correlator *asyncreply.Correlator
	sessions   *endpoint.Sessions

	client mqtt.Client // shared default session; nil for per-device-session clouds

	seqMu  sync.Mutex
	reqSeq model.RequestIDSequence

	cmdLock sync.Mutex

	// deleteHook, if set, is called for every endpoint removed by
	// ProcessDeviceDeletions. Used by clouds with a per-endpoint
	// credential-refresh timer (Google) to stop it on deletion, so the
	// timer doesn't keep firing against a torn-down session (spec.md
	// §8 invariant: removing an endpoint removes its refresh timer).
	deleteHook func(ep string)
}

// SetDeleteHook registers fn to run for every endpoint removed by
// ProcessDeviceDeletions, after its session and shadow are torn down.
func (b *Base) SetDeleteHook(fn func(ep string)) {
	b.deleteHook = fn
}

// NewBase wires a Base around peer and its shared collaborators.
func NewBase(
	cfg Config,
	peer PeerProcessor,
	orch orchestrator.Orchestrator,
	registry *endpoint.Registry,
	subs *subscription.Manager,
	correlator *asyncreply.Correlator,
	sessions *endpoint.Sessions,
) *Base {
	return &Base{
		cfg:        cfg,
		peer:       peer,
		orch:       orch,
		registry:   registry,
		subs:       subs,
		correlator: correlator,
		sessions:   sessions,
	}
}

// InitListener establishes the default session, subscribes to the
// request-topic filter, and starts the receive loop (spec.md §4.1).
// Fails without retry if the MQTT host is unconfigured or equals
// SentinelDefaultHost.
func (b *Base) InitListener(ctx context.Context, host string) error {
	if host == "" || host == SentinelDefaultHost {
		return fmt.Errorf("%s: mqtt host is unconfigured", b.peer.Cloud())
	}

	client, err := b.peer.Connect(ctx)
	if err != nil {
		return fmt.Errorf("%s: connect: %w", b.peer.Cloud(), err)
	}
	if client == nil {
		// Per-device-session cloud: no default session to listen on.
		return nil
	}
	b.client = client

	if err := client.Subscribe(ctx, b.peer.RequestTopicFilter(), 1, b.OnMessageReceive); err != nil {
		return fmt.Errorf("%s: subscribe request topic: %w", b.peer.Cloud(), err)
	}

	log.Info("listener started", "cloud", b.peer.Cloud())
	return nil
}

// StopListener closes the default session. Idempotent.
func (b *Base) StopListener(ctx context.Context) {
	if b.client == nil {
		return
	}
	b.client.Disconnect(ctx)
	b.client = nil
}

// OnMessageReceive is the receive-loop callback (spec.md §4.1). It
// never lets a panic escape, matching the propagation policy in
// spec.md §7: every previously-silent catch is logged at Warn.
func (b *Base) OnMessageReceive(ctx context.Context, topic string, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn(fmt.Errorf("panic: %v", r), "recovered in OnMessageReceive", "cloud", b.peer.Cloud(), "topic", topic)
		}
	}()

	metrics.MqttMessagesReceivedTotal.WithLabelValues(b.peer.Cloud()).Inc()

	if model.LooksLikeAPIRequest(payload) {
		b.handleAPIRequest(ctx, topic, payload)
		return
	}
	b.handlePeerMessage(ctx, topic, payload)
}

func (b *Base) handleAPIRequest(ctx context.Context, topic string, payload []byte) {
	var obj map[string]interface{}
	if err := json.Unmarshal(payload, &obj); err != nil {
		log.Warn(err, "malformed api-request envelope", "topic", topic)
		return
	}

	req := model.ApiRequest{RequestID: b.nextRequestID()}
	req.URI, _ = ExtractKey(obj, "api_uri")
	req.RequestData, _ = ExtractKey(obj, "api_request_data")
	req.Options, _ = ExtractKey(obj, "api_options")
	req.Verb, _ = ExtractKey(obj, "api_verb")
	req.Key, _ = ExtractKey(obj, "api_key")
	req.CallerID, _ = ExtractKey(obj, "api_caller_id")
	req.ContentType, _ = ExtractKey(obj, "api_content_type")

	body, err := b.orch.ProcessAPIRequest(ctx, req)
	status := 200
	if err != nil {
		log.Warn(err, "api-request processing failed", "uri", req.URI)
		status = 500
		body = nil
	}

	resp := model.NewApiResponse(req.RequestID, status, string(body))
	respBody, err := json.Marshal(resp)
	if err != nil {
		log.Warn(err, "failed to marshal api-response")
		return
	}

	replyTopic := b.replyTopicForEndpoint(req.CallerID)
	if err := b.publish(ctx, req.CallerID, replyTopic, respBody); err != nil {
		log.Warn(err, "failed to publish api-response", "topic", replyTopic)
	}
}

func (b *Base) handlePeerMessage(ctx context.Context, topic string, payload []byte) {
	cmd, err := b.peer.DecodeCommand(topic, payload)
	if err != nil {
		log.Warn(err, "failed to decode coap command", "topic", topic)
		return
	}

	ep, ok := b.registry.Get(cmd.Ep)
	if !ok {
		log.Warn(fmt.Errorf("unknown endpoint"), "command for unregistered endpoint", "ep", cmd.Ep)
		return
	}

	releaseLock := func() {}
	if b.peer.CommandDispatchSerialized() {
		waited, acquired := b.acquireCommandLock()
		metrics.CommandLockWaitSeconds.Observe(waited.Seconds())
		if !acquired {
			// The command is logged and dropped. It is not retried, and
			// it is not redelivered either: the MQTT router reports every
			// message as handled before its handler runs.
			log.Warn(fmt.Errorf("command lock unavailable"), "dropping command", "ep", cmd.Ep)
			return
		}
		releaseLock = func() { b.cmdLock.Unlock() }
	}
	defer releaseLock()

	body, err := b.orch.ProcessEndpointResourceOperation(ctx, cmd.Ep, *cmd)
	if err != nil {
		log.Warn(err, "backend rejected endpoint resource operation", "ep", cmd.Ep)
		return
	}

	replyTopic := b.peer.ReplyTopicFor(ep.TopicSet)

	if asyncID, ok := asyncreply.IsAsyncResponse(body); ok {
		if cmd.CoapVerb == "GET" || cmd.CoapVerb == "PUT" {
			b.correlator.Put(&model.AsyncRecord{
				AsyncID:       asyncID,
				Verb:          cmd.CoapVerb,
				ReplyTopic:    replyTopic,
				OriginalTopic: topic,
				EpName:        cmd.Ep,
				URI:           cmd.Path,
				CreatedAt:     time.Now(),
			})
		}
		// Async responses for other verbs are dropped by policy
		// (spec.md §4.2: "we do not bridge HTTP status back").
		return
	}

	if cmd.CoapVerb == "GET" {
		obs := b.peer.CreateObservation(cmd.CoapVerb, cmd.Ep, cmd.Path, FundamentalValue(jsonDecodeAny(body)))
		b.publishObservation(ctx, cmd.Ep, replyTopic, obs)
	}
}

// acquireCommandLock attempts to take the command-dispatch critical
// section, bounded by cfg.LockWaitMs (spec.md §5).
func (b *Base) acquireCommandLock() (waited time.Duration, ok bool) {
	start := time.Now()
	deadline := time.Duration(b.cfg.LockWaitMs) * time.Millisecond
	if deadline <= 0 {
		deadline = 2500 * time.Millisecond
	}

	for {
		if b.cmdLock.TryLock() {
			return time.Since(start), true
		}
		if time.Since(start) >= deadline {
			return time.Since(start), false
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// ResolveAsyncCompletion is called when the backend emits a completion
// with a matching async-id (spec.md §4.5). It decodes the base64
// payload and publishes the formatted observation to the stored
// reply-topic.
func (b *Base) ResolveAsyncCompletion(ctx context.Context, asyncID, base64Payload string) {
	rec, ok := b.correlator.Resolve(asyncID)
	if !ok {
		log.Warn(fmt.Errorf("unknown async id"), "completion for untracked async id", "async_id", asyncID)
		return
	}

	payload, err := asyncreply.FormatAsyncResponseAsReply(rec, base64Payload)
	if err != nil {
		log.Warn(err, "failed to decode async completion payload", "async_id", asyncID)
		return
	}
	if base64Payload == "" && rec.Verb == "PUT" {
		payload.Value = asyncID
	}

	b.publishObservation(ctx, rec.EpName, rec.ReplyTopic, payload)
}

// SendMessage publishes on ep's session (spec.md §4.1 sendMessage). If
// draft MQTT format is enabled, the topic is rewritten to
// <tenant>/lwm2m/ob/<ep> and the body is re-encoded as CBOR.
func (b *Base) SendMessage(ctx context.Context, ep, topic string, payload []byte) error {
	if b.cfg.DraftFormat {
		draftTopic := fmt.Sprintf("%s/lwm2m/ob/%s", b.cfg.DraftTenant, ep)
		draftBody, err := encodeDraftFormat(payload)
		if err != nil {
			return fmt.Errorf("draft format encode: %w", err)
		}
		return b.publish(ctx, ep, draftTopic, draftBody)
	}
	return b.publish(ctx, ep, topic, payload)
}

type draftEnvelope struct {
	Operation int    `cbor:"operation"`
	Token     string `cbor:"token"`
	Paths     string `cbor:"paths"`
	Payload   []byte `cbor:"payload"`
}

func encodeDraftFormat(payload []byte) ([]byte, error) {
	env := draftEnvelope{Operation: 19, Payload: payload}
	return cbor.Marshal(env)
}

// clientFor resolves the MQTT session that should carry traffic for ep:
// its per-device session if this cloud uses one (Google), else the
// shared default session (Watson, generic).
func (b *Base) clientFor(ep string) mqtt.Client {
	if b.peer.SessionCreator() != nil {
		if client, ok := b.sessions.Get(ep); ok {
			return client
		}
	}
	return b.client
}

func (b *Base) publish(ctx context.Context, ep, topic string, payload []byte) error {
	client := b.clientFor(ep)
	if client == nil {
		return fmt.Errorf("%s: no mqtt session for endpoint %s", b.peer.Cloud(), ep)
	}
	metrics.MqttMessagesPublishedTotal.WithLabelValues(b.peer.Cloud(), "reply").Inc()
	return client.Publish(ctx, topic, 1, false, payload)
}

func (b *Base) publishObservation(ctx context.Context, ep, topic string, obs *model.ObservationPayload) {
	body, err := json.Marshal(obs)
	if err != nil {
		log.Warn(err, "failed to marshal observation")
		return
	}
	metrics.MqttMessagesPublishedTotal.WithLabelValues(b.peer.Cloud(), "observation").Inc()
	client := b.clientFor(ep)
	if client == nil {
		log.Warn(fmt.Errorf("no mqtt session"), "cannot publish observation", "ep", ep, "topic", topic)
		return
	}
	if err := client.Publish(ctx, topic, 1, false, body); err != nil {
		log.Warn(err, "failed to publish observation", "topic", topic)
	}
}

func (b *Base) replyTopicForEndpoint(callerID string) string {
	if ep, ok := b.registry.Get(callerID); ok {
		return b.peer.ReplyTopicFor(ep.TopicSet)
	}
	return b.peer.RequestTopicFilter()
}

// nextRequestID returns the next request id in [1, model.MaxAPIRequestID).
func (b *Base) nextRequestID() int {
	b.seqMu.Lock()
	defer b.seqMu.Unlock()
	return b.reqSeq.Next()
}

func jsonDecodeAny(raw []byte) interface{} {
	var v interface{}
	_ = json.Unmarshal(raw, &v)
	return v
}
