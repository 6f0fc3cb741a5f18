package watson

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(legacy bool) Config {
	return Config{
		APIKey:                   "a-myorg-abc123",
		LegacyBridge:             legacy,
		DeviceDataKey:            "d",
		CmdTopicGet:              "iot-2/type/__DEVICE_TYPE__/id/__EPNAME__/cmd/GET/fmt/json",
		CmdTopicPut:              "iot-2/type/__DEVICE_TYPE__/id/__EPNAME__/cmd/PUT/fmt/json",
		CmdTopicPost:             "iot-2/type/__DEVICE_TYPE__/id/__EPNAME__/cmd/POST/fmt/json",
		CmdTopicDelete:           "iot-2/type/__DEVICE_TYPE__/id/__EPNAME__/cmd/DELETE/fmt/json",
		CmdResponseTopic:         "iot-2/type/__DEVICE_TYPE__/id/__EPNAME__/evt/cmd-response/fmt/json",
		ObserveNotificationTopic: "iot-2/type/__DEVICE_TYPE__/id/__EPNAME__/evt/notify/fmt/json",
		RequestTopicFilter:       "iot-2/type/+/id/+/cmd/api/fmt/json",
	}
}

func TestParseAPIKeySplitsOrgIDAndKey(t *testing.T) {
	p := New(testConfig(false))
	assert.Equal(t, "myorg", p.orgID)
	assert.Equal(t, "abc123", p.orgKey)
}

func TestCreateEndpointTopicDataProductionUppercase(t *testing.T) {
	p := New(testConfig(false))
	ts, err := p.CreateEndpointTopicData("d1", "light")
	require.NoError(t, err)
	assert.Equal(t, "iot-2/type/light/id/d1/cmd/GET/fmt/json", ts["GET"])
}

func TestCreateEndpointTopicDataLegacyLowercases(t *testing.T) {
	p := New(testConfig(true))
	ts, err := p.CreateEndpointTopicData("d1", "light")
	require.NoError(t, err)
	assert.Equal(t, "iot-2/type/light/id/d1/cmd/get/fmt/json", ts["GET"])
}

func TestDecodeCommandFromPositionalSegments(t *testing.T) {
	p := New(testConfig(false))
	cmd, err := p.DecodeCommand("iot-2/type/light/id/d1/cmd/put/fmt/json", []byte(`{"path":"/3303/0/5700","new_value":"30"}`))
	require.NoError(t, err)
	assert.Equal(t, "d1", cmd.Ep)
	assert.Equal(t, "PUT", cmd.CoapVerb)
	assert.Equal(t, "/3303/0/5700", cmd.Path)
}

// TestReplyTopicForReturnsCmdResponseTopic covers the command-reply
// half of the notify/cmd-response split: ReplyTopicFor must return the
// cmd-response topic, not the notify topic.
func TestReplyTopicForReturnsCmdResponseTopic(t *testing.T) {
	p := New(testConfig(false))
	ts, err := p.CreateEndpointTopicData("d1", "light")
	require.NoError(t, err)
	assert.Equal(t, "iot-2/type/light/id/d1/evt/cmd-response/fmt/json", p.ReplyTopicFor(ts))
}

// TestNotificationTopicForReturnsNotifyTopic covers the other half: a
// telemetry observation must publish to the notify topic, distinct from
// the cmd-response topic ReplyTopicFor returns (spec.md §4.2/§6
// scenario 1, WatsonIoTMQTTProcessor.java:339/358-359).
func TestNotificationTopicForReturnsNotifyTopic(t *testing.T) {
	p := New(testConfig(false))
	ts, err := p.CreateEndpointTopicData("d1", "light")
	require.NoError(t, err)
	assert.Equal(t, "iot-2/type/light/id/d1/evt/notify/fmt/json", p.NotificationTopicFor(ts))
	assert.NotEqual(t, p.ReplyTopicFor(ts), p.NotificationTopicFor(ts))
}

func TestCommandDispatchNotSerialized(t *testing.T) {
	p := New(testConfig(false))
	assert.False(t, p.CommandDispatchSerialized())
}

// TestCreateObservationWrapsUnderDeviceDataKey covers spec.md §3/§4.2's
// optional Watson notification wrapping: {"<data_key>": <payload>}.
func TestCreateObservationWrapsUnderDeviceDataKey(t *testing.T) {
	p := New(testConfig(false))
	obs := p.CreateObservation("GET", "d1", "/3303/0/5700", 29.75)

	body, err := json.Marshal(obs)
	require.NoError(t, err)

	var wrapped map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &wrapped))
	inner, ok := wrapped["d"]
	require.True(t, ok, "expected payload nested under configured device-data-key")

	var unwrapped struct {
		Path string  `json:"path"`
		Ep   string  `json:"ep"`
		Value float64 `json:"value"`
	}
	require.NoError(t, json.Unmarshal(inner, &unwrapped))
	assert.Equal(t, "d1", unwrapped.Ep)
	assert.Equal(t, 29.75, unwrapped.Value)
}

// TestCreateObservationNoWrapWhenDeviceDataKeyUnset confirms the
// canonical flat shape is preserved when no data key is configured.
func TestCreateObservationNoWrapWhenDeviceDataKeyUnset(t *testing.T) {
	cfg := testConfig(false)
	cfg.DeviceDataKey = ""
	p := New(cfg)
	obs := p.CreateObservation("GET", "d1", "/3303/0/5700", 29.75)

	body, err := json.Marshal(obs)
	require.NoError(t, err)
	assert.JSONEq(t, `{"path":"/3303/0/5700","ep":"d1","value":29.75,"coap_verb":"GET"}`, string(body))
}
