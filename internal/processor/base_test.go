package processor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peeredge-io/shadowbridge/internal/asyncreply"
	"github.com/peeredge-io/shadowbridge/internal/endpoint"
	"github.com/peeredge-io/shadowbridge/internal/model"
	"github.com/peeredge-io/shadowbridge/internal/subscription"
	"github.com/peeredge-io/shadowbridge/pkg/mqtt"
)

// recordingClient is a fake mqtt.Client that records every publish.
type recordingClient struct {
	mu        sync.Mutex
	published []publishedMsg
}

type publishedMsg struct {
	topic   string
	payload []byte
}

func (c *recordingClient) Start(ctx context.Context) error { return nil }
func (c *recordingClient) Disconnect(ctx context.Context)  {}
func (c *recordingClient) Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, publishedMsg{topic: topic, payload: payload})
	return nil
}
func (c *recordingClient) Subscribe(ctx context.Context, topic string, qos int, handler mqtt.MessageHandler) error {
	return nil
}
func (c *recordingClient) Unsubscribe(ctx context.Context, topic string) error { return nil }
func (c *recordingClient) AwaitConnection(ctx context.Context) error          { return nil }
func (c *recordingClient) SubscribedTopics() []string                        { return nil }

func (c *recordingClient) last() publishedMsg {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.published[len(c.published)-1]
}

// stubPeer is a minimal PeerProcessor standing in for a generic cloud.
type stubPeer struct {
	replyTopic  string
	notifyTopic string
	serialized  bool
	topicSet    model.TopicSet
}

func (s *stubPeer) Cloud() string                { return "stub" }
func (s *stubPeer) RequestTopicFilter() string    { return "stub/request/#" }
func (s *stubPeer) Connect(ctx context.Context) (mqtt.Client, error) {
	return &recordingClient{}, nil
}
func (s *stubPeer) SessionCreator() endpoint.SessionCreator { return nil }
func (s *stubPeer) CreateEndpointTopicData(ep, ept string) (model.TopicSet, error) {
	return s.topicSet, nil
}
func (s *stubPeer) SubscribeCommandTopics(ctx context.Context, client mqtt.Client, ts model.TopicSet, handler mqtt.MessageHandler) error {
	return nil
}
func (s *stubPeer) CreateObservation(verb, ep, uri string, value interface{}) *model.ObservationPayload {
	return &model.ObservationPayload{Path: uri, Ep: ep, Value: value, CoapVerb: verb}
}
func (s *stubPeer) DecodeCommand(topic string, payload []byte) (*model.CoapCommand, error) {
	var cmd model.CoapCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return nil, err
	}
	if cmd.Ep == "" {
		parts := strings.Split(topic, "/")
		if len(parts) > 0 {
			cmd.Ep = parts[len(parts)-1]
		}
	}
	return &cmd, nil
}
func (s *stubPeer) ReplyTopicFor(ts model.TopicSet) string { return s.replyTopic }
func (s *stubPeer) NotificationTopicFor(ts model.TopicSet) string {
	if s.notifyTopic != "" {
		return s.notifyTopic
	}
	return s.replyTopic
}
func (s *stubPeer) CreateShadow(ctx context.Context, ep, ept string) error   { return nil }
func (s *stubPeer) DeleteShadow(ctx context.Context, ep string) error       { return nil }
func (s *stubPeer) RefreshCredentials(ctx context.Context, ep string) error { return nil }
func (s *stubPeer) CommandDispatchSerialized() bool                        { return s.serialized }

// stubOrchestrator lets each test script the orchestrator's response.
type stubOrchestrator struct {
	resourceResponse []byte
	resourceErr      error
	apiResponse      []byte
	apiErr           error
}

func (o *stubOrchestrator) ProcessAPIRequest(ctx context.Context, req model.ApiRequest) ([]byte, error) {
	return o.apiResponse, o.apiErr
}
func (o *stubOrchestrator) ProcessEndpointResourceOperation(ctx context.Context, ep string, cmd model.CoapCommand) ([]byte, error) {
	return o.resourceResponse, o.resourceErr
}
func (o *stubOrchestrator) SubscribeToEndpointResource(ctx context.Context, ep string, path model.ResourcePath) error {
	return nil
}
func (o *stubOrchestrator) PullDeviceMetadata(ctx context.Context, ep string) (map[string]string, error) {
	return map[string]string{}, nil
}

func newTestBase(t *testing.T, peer *stubPeer, orch *stubOrchestrator) (*Base, *recordingClient) {
	t.Helper()
	registry := endpoint.NewRegistry()
	subs := subscription.NewManager()
	correlator := asyncreply.NewCorrelator(0)
	sessions := endpoint.NewSessions()

	b := NewBase(Config{Domain: "acme", AutoSubscribe: true, LockWaitMs: 100}, peer, orch, registry, subs, correlator, sessions)
	require.NoError(t, b.InitListener(context.Background(), "mqtt.example.com"))

	client, ok := b.client.(*recordingClient)
	require.True(t, ok)
	return b, client
}

// TestCommandGetAsyncScenario exercises spec.md §8 scenario 2: an
// inbound GET command whose orchestrator response is async records an
// AsyncRecord; a later completion with the matching id publishes the
// resolved observation to the reply topic.
func TestCommandGetAsyncScenario(t *testing.T) {
	peer := &stubPeer{replyTopic: "iot-2/type/light/id/d1/evt/notify/fmt/json"}
	orch := &stubOrchestrator{resourceResponse: []byte(`{"async-response-id":"abc123"}`)}
	b, client := newTestBase(t, peer, orch)

	ep, _ := b.registry.GetOrCreate("d1", "light")
	ep.TopicSet = model.TopicSet{model.VerbEvent: peer.replyTopic}

	cmd := model.CoapCommand{Path: "/3303/0/5700", CoapVerb: "GET", Ep: "d1"}
	payload, _ := json.Marshal(cmd)

	b.OnMessageReceive(context.Background(), "iot-2/type/light/id/d1/cmd/get/fmt/json", payload)

	assert.Equal(t, 1, b.correlator.Len())

	rec, ok := b.correlator.Resolve("abc123")
	require.True(t, ok)
	assert.Equal(t, "d1", rec.EpName)

	b.correlator.Put(rec)
	b.ResolveAsyncCompletion(context.Background(), "abc123", base64.StdEncoding.EncodeToString([]byte("29.75")))

	last := client.last()
	assert.Equal(t, peer.replyTopic, last.topic)

	var obs model.ObservationPayload
	require.NoError(t, json.Unmarshal(last.payload, &obs))
	assert.Equal(t, "29.75", obs.Value)
	assert.Equal(t, "d1", obs.Ep)
}

func TestOnMessageReceiveRoutesAPIRequest(t *testing.T) {
	peer := &stubPeer{replyTopic: "reply/topic"}
	orch := &stubOrchestrator{apiResponse: []byte(`{"ok":true}`)}
	b, client := newTestBase(t, peer, orch)

	payload := []byte(`{"api_verb":"GET","api_uri":"/endpoints","api_caller_id":"d1"}`)
	b.OnMessageReceive(context.Background(), "stub/request/d1", payload)

	last := client.last()
	var resp model.ApiResponse
	require.NoError(t, json.Unmarshal(last.payload, &resp))
	assert.Equal(t, 1, resp.RequestID)
	assert.Equal(t, 200, resp.Status)
}

func TestCommandDispatchLockTimesOutGracefully(t *testing.T) {
	peer := &stubPeer{replyTopic: "reply/topic", serialized: true}
	orch := &stubOrchestrator{resourceResponse: []byte(`{}`)}
	b, _ := newTestBase(t, peer, orch)

	ep, _ := b.registry.GetOrCreate("d1", "light")
	ep.TopicSet = model.TopicSet{model.VerbEvent: peer.replyTopic}

	b.cmdLock.Lock()
	defer b.cmdLock.Unlock()

	cmd := model.CoapCommand{Path: "/3303/0/5700", CoapVerb: "GET", Ep: "d1"}
	payload, _ := json.Marshal(cmd)

	assert.NotPanics(t, func() {
		b.OnMessageReceive(context.Background(), "cmd/topic/d1", payload)
	})
}

func TestOnMessageReceiveRecoversFromPanic(t *testing.T) {
	peer := &panicPeer{}
	orch := &stubOrchestrator{}
	b, _ := newTestBase(t, &stubPeer{replyTopic: "x"}, orch)
	b.peer = peer

	assert.NotPanics(t, func() {
		b.OnMessageReceive(context.Background(), "any/topic", []byte(`{"path":"/x"}`))
	})
}

type panicPeer struct{ stubPeer }

func (p *panicPeer) DecodeCommand(topic string, payload []byte) (*model.CoapCommand, error) {
	panic(fmt.Sprintf("boom on %s", topic))
}
