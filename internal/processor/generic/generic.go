// Package generic implements the processor.PeerProcessor variant for a
// bare MQTT broker speaking no cloud-specific dialect (spec.md §4.2),
// grounded on original_source/.../arm/GenericMQTTProcessor.java. It
// shares one MQTT session across all endpoints and listens on a single
// wildcard request topic built from a topic root, request tag, and
// domain, with an optional second subscription for the draft LwM2M
// uplink format (spec.md §4.1 sendMessage, §1).
package generic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/peeredge-io/shadowbridge/internal/endpoint"
	"github.com/peeredge-io/shadowbridge/internal/model"
	"github.com/peeredge-io/shadowbridge/pkg/mqtt"
	"github.com/peeredge-io/shadowbridge/pkg/mqtt/topic"
)

// Config holds the generic broker's connection and topic-layout keys.
type Config struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string

	TopicRoot  string // mqtt_mds_topic_root
	RequestTag string // mds_mqtt_request_tag
	Domain     string

	// DraftUplinkTopic, if non-empty, is subscribed alongside the
	// request topic: <tenant>/lwm2m/rd/+/uplink (spec.md §1, §4.1).
	DraftUplinkTopic string

	InsecureSkipVerify bool
}

// Processor is the generic-broker PeerProcessor.
type Processor struct {
	cfg Config

	newClient func(*mqtt.ClientConfig) (mqtt.Client, error)
}

// New builds a generic-broker Processor.
func New(cfg Config) *Processor {
	return &Processor{cfg: cfg, newClient: mqtt.NewClient}
}

func (p *Processor) Cloud() string { return "generic" }

// RequestTopicFilter is <topic_root><request_tag><domain>/#
// (subscribeToMQTTTopics in the original).
func (p *Processor) RequestTopicFilter() string {
	return fmt.Sprintf("%s%s%s/#", p.cfg.TopicRoot, p.cfg.RequestTag, p.cfg.Domain)
}

// Connect opens the one shared MQTT session every endpoint publishes
// and subscribes through, optionally adding the draft-format uplink
// subscription.
func (p *Processor) Connect(ctx context.Context) (mqtt.Client, error) {
	client, err := p.newClient(&mqtt.ClientConfig{
		BrokerURL:          p.cfg.BrokerURL,
		ClientID:           p.cfg.ClientID,
		Username:           p.cfg.Username,
		Password:           p.cfg.Password,
		CleanStart:         true,
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

// SessionCreator returns nil: generic brokers use one shared session.
func (p *Processor) SessionCreator() endpoint.SessionCreator { return nil }

// CreateEndpointTopicData holds only the shared wildcard request topic
// (VerbAPI) and, when a draft uplink topic is configured, the endpoint's
// rendered uplink topic (VerbEvent): the generic processor listens on
// one wildcard request topic rather than per-endpoint command topics.
func (p *Processor) CreateEndpointTopicData(ep, ept string) (model.TopicSet, error) {
	ts := model.TopicSet{model.VerbAPI: p.RequestTopicFilter()}
	if p.cfg.DraftUplinkTopic != "" {
		ts[model.VerbEvent] = topic.Render(p.cfg.DraftUplinkTopic, topic.Vars{Endpoint: ep, DeviceType: ept})
	}
	return ts, nil
}

// SubscribeCommandTopics is a no-op beyond the draft uplink topic (if
// configured): the shared request-topic subscription is already
// established once in Connect/InitListener, not per endpoint.
func (p *Processor) SubscribeCommandTopics(ctx context.Context, client mqtt.Client, ts model.TopicSet, handler mqtt.MessageHandler) error {
	draftTopic, ok := ts[model.VerbEvent]
	if !ok || draftTopic == "" {
		return nil
	}
	return client.Subscribe(ctx, draftTopic, 1, handler)
}

// CreateObservation wraps the canonical payload with no additional
// envelope.
func (p *Processor) CreateObservation(verb, ep, uri string, value interface{}) *model.ObservationPayload {
	return &model.ObservationPayload{Path: uri, Ep: ep, Value: value, CoapVerb: verb}
}

// DecodeCommand decodes the JSON command body carried in every generic
// message; the topic itself carries no positional fields.
func (p *Processor) DecodeCommand(t string, payload []byte) (*model.CoapCommand, error) {
	var cmd model.CoapCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return nil, fmt.Errorf("generic: decode command body: %w", err)
	}
	if cmd.Ep == "" {
		return nil, fmt.Errorf("generic: command body missing endpoint name")
	}
	return &cmd, nil
}

// ReplyTopicFor returns def (the request topic filter) since the
// generic base class's getReplyTopic simply returns its def parameter.
func (p *Processor) ReplyTopicFor(ts model.TopicSet) string {
	return p.RequestTopicFilter()
}

// NotificationTopicFor returns the draft uplink topic stored under
// VerbEvent when configured, falling back to the request topic filter
// otherwise — the generic base class has no distinct notify topic of
// its own, only whatever uplink topic the deployment configures.
func (p *Processor) NotificationTopicFor(ts model.TopicSet) string {
	if t, ok := ts[model.VerbEvent]; ok && t != "" {
		return t
	}
	return p.RequestTopicFilter()
}

// CreateShadow is a no-op: generic brokers have no cloud-side shadow.
func (p *Processor) CreateShadow(ctx context.Context, ep, ept string) error { return nil }

// DeleteShadow is a no-op for the same reason.
func (p *Processor) DeleteShadow(ctx context.Context, ep string) error { return nil }

// RefreshCredentials is a no-op: the generic broker uses long-lived
// static credentials.
func (p *Processor) RefreshCredentials(ctx context.Context, ep string) error { return nil }

// CommandDispatchSerialized is false: generic brokers do not require
// the command-dispatch lock.
func (p *Processor) CommandDispatchSerialized() bool { return false }
