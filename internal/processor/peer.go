package processor

import (
	"context"

	"github.com/peeredge-io/shadowbridge/internal/endpoint"
	"github.com/peeredge-io/shadowbridge/internal/model"
	"github.com/peeredge-io/shadowbridge/pkg/mqtt"
)

// PeerProcessor is the capability set each per-cloud variant implements
// (spec.md §4.2, §9 Design Notes): topic layout, connection policy,
// session topology, notification wrapping, command decoding, and reply
// topic computation. Base drives these hooks; it never embeds
// cloud-specific behavior itself.
type PeerProcessor interface {
	// Cloud names this peer for metric labels and logging ("google",
	// "watson", "generic").
	Cloud() string

	// RequestTopicFilter is the wildcard topic Base subscribes to for
	// API-request envelopes (spec.md §4.1 initListener).
	RequestTopicFilter() string

	// Connect establishes the shared default MQTT session. Per-device
	// session clouds (Google) return nil, nil here — their sessions are
	// created lazily through SessionCreator instead.
	Connect(ctx context.Context) (mqtt.Client, error)

	// SessionCreator returns the per-endpoint session factory for
	// per-device-session clouds, or nil for clouds that share one
	// session (Watson, generic).
	SessionCreator() endpoint.SessionCreator

	// CreateEndpointTopicData renders the full topic set for one
	// endpoint from this cloud's topic templates.
	CreateEndpointTopicData(ep, ept string) (model.TopicSet, error)

	// SubscribeCommandTopics subscribes to every inbound (command/config)
	// topic in ts on client, wiring handler as the callback.
	SubscribeCommandTopics(ctx context.Context, client mqtt.Client, ts model.TopicSet, handler mqtt.MessageHandler) error

	// CreateObservation wraps the canonical observation shape per this
	// cloud's envelope policy (spec.md §3, §4.2).
	CreateObservation(verb, ep, uri string, value interface{}) *model.ObservationPayload

	// DecodeCommand extracts a CoapCommand from an inbound MQTT message,
	// either from positional topic segments or, for wildcarded topics,
	// from the JSON body (spec.md §4.2 command decoding).
	DecodeCommand(topic string, payload []byte) (*model.CoapCommand, error)

	// ReplyTopicFor computes where async and synchronous command replies
	// for an endpoint's topic set publish (spec.md §4.2 reply topic).
	ReplyTopicFor(ts model.TopicSet) string

	// NotificationTopicFor computes where telemetry/observation
	// notifications for an endpoint's topic set publish. Distinct from
	// ReplyTopicFor for clouds whose wire layout separates the
	// notification topic from the command-reply topic (Watson); clouds
	// that conflate the two return the same topic from both.
	NotificationTopicFor(ts model.TopicSet) string

	// CreateShadow provisions the cloud-side device shadow.
	CreateShadow(ctx context.Context, ep, ept string) error

	// DeleteShadow removes the cloud-side device shadow.
	DeleteShadow(ctx context.Context, ep string) error

	// RefreshCredentials mints and applies new credentials for ep,
	// reconnecting without losing subscriptions. A no-op for clouds with
	// long-lived credentials.
	RefreshCredentials(ctx context.Context, ep string) error

	// CommandDispatchSerialized reports whether this cloud maps inbound
	// commands 1:1 onto backend REST calls and therefore needs the
	// process-wide command-dispatch lock (spec.md §5) — true for Google.
	CommandDispatchSerialized() bool
}
