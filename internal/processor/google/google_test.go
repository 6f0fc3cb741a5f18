package google

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peeredge-io/shadowbridge/internal/endpoint"
	"github.com/peeredge-io/shadowbridge/internal/model"
	"github.com/peeredge-io/shadowbridge/pkg/mqtt"
)

type fakeClient struct {
	mu            sync.Mutex
	subscriptions []string
	disconnected  bool
}

func (c *fakeClient) Start(ctx context.Context) error { return nil }
func (c *fakeClient) Disconnect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
}
func (c *fakeClient) Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error {
	return nil
}
func (c *fakeClient) Subscribe(ctx context.Context, topic string, qos int, handler mqtt.MessageHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions = append(c.subscriptions, topic)
	return nil
}
func (c *fakeClient) Unsubscribe(ctx context.Context, topic string) error { return nil }
func (c *fakeClient) AwaitConnection(ctx context.Context) error          { return nil }
func (c *fakeClient) SubscribedTopics() []string                        { return nil }

type fakeRegistrar struct {
	failUntilAttempt int
	attempts         int
	deleted          []string
}

func (r *fakeRegistrar) RegisterDevice(ctx context.Context, ep, ept, publicKey string) error {
	r.attempts++
	if r.attempts <= r.failUntilAttempt {
		return assertErr
	}
	return nil
}
func (r *fakeRegistrar) DeleteDevice(ctx context.Context, ep string) error {
	r.deleted = append(r.deleted, ep)
	return nil
}

var assertErr = &testErr{"registry creation failed"}

type testErr struct{ msg string }

func (e *testErr) Error() string { return e.msg }

func testConfig() Config {
	return Config{
		ProjectID:           "proj",
		CloudRegion:         "us-central1",
		RegistryName:        "reg1",
		MQTTHost:            "mqtt.googleapis.com:8883",
		ConfigTopicTemplate: "/devices/__EPNAME__/config",
		EventTopicTemplate:  "/devices/__EPNAME__/events",
		StateTopicTemplate:  "/devices/__EPNAME__/state",
	}
}

func newTestProcessor(t *testing.T) (*Processor, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	p := New(testConfig(), key, endpoint.NewSessions(), nil)
	return p, key
}

func TestCreateEndpointTopicDataRendersAllThreeTopics(t *testing.T) {
	p, _ := newTestProcessor(t)
	ts, err := p.CreateEndpointTopicData("d1", "light")
	require.NoError(t, err)
	assert.Equal(t, "/devices/d1/config", ts[model.VerbConfig])
	assert.Equal(t, "/devices/d1/events", ts[model.VerbEvent])
	assert.Equal(t, "/devices/d1/state", ts[model.VerbState])
}

func TestDecodeCommandFromJSONBody(t *testing.T) {
	p, _ := newTestProcessor(t)
	body, _ := json.Marshal(model.CoapCommand{Ep: "d1", CoapVerb: "PUT", Path: "/3303/0/5700", NewValue: "30"})
	cmd, err := p.DecodeCommand("/devices/d1/config", body)
	require.NoError(t, err)
	assert.Equal(t, "d1", cmd.Ep)
	assert.Equal(t, "PUT", cmd.CoapVerb)
}

func TestCommandDispatchSerialized(t *testing.T) {
	p, _ := newTestProcessor(t)
	assert.True(t, p.CommandDispatchSerialized())
}

func TestCreateShadowRetriesThenSucceeds(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	reg := &fakeRegistrar{failUntilAttempt: 2}
	cfg := testConfig()
	cfg.DeviceManagerRetries = 5
	p := New(cfg, key, endpoint.NewSessions(), reg)

	err = p.CreateShadow(context.Background(), "d1", "light")
	require.NoError(t, err)
	assert.Equal(t, 3, reg.attempts)
}

func TestRefreshCredentialsDisconnectsStaleSession(t *testing.T) {
	sessions := endpoint.NewSessions()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	p := New(testConfig(), key, sessions, nil)

	// Seed an initial session directly (bypassing the real dialer, which
	// would hit a real broker) and mark it Connected in the FSM.
	initial := &fakeClient{}
	_, err = sessions.GetOrCreate(context.Background(), "d1", "light", func(ctx context.Context, ep, ept string) (mqtt.Client, error) {
		return initial, nil
	})
	require.NoError(t, err)
	p.MarkConnected("d1", "light")

	var resubscribed []string
	p.SetResubscriber(func(ctx context.Context, ep, ept string) error {
		resubscribed = append(resubscribed, ep)
		return nil
	})

	// RefreshCredentials will attempt a real dial since p.dial hits a
	// real MQTT broker; override by wiring a short-circuited FSM
	// connect hook is not exposed, so instead verify the disconnect
	// side effect on the stale session, which is all RefreshCredentials
	// can meaningfully assert without a live broker.
	_ = p.RefreshCredentials(context.Background(), "d1")
	assert.True(t, initial.disconnected)
}
