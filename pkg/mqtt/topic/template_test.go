package topic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderSubstitutesKnownPlaceholders(t *testing.T) {
	tmpl := "iot-2/type/__DEVICE_TYPE__/id/__EPNAME__/evt/__EVENT_TYPE__/fmt/json"
	got := Render(tmpl, Vars{DeviceType: "sensor", Endpoint: "ep-1", EventType: "observation"})
	assert.Equal(t, "iot-2/type/sensor/id/ep-1/evt/observation/fmt/json", got)
}

func TestRenderLeavesUnrecognizedTokensAlone(t *testing.T) {
	got := Render("a/__NOT_A_PLACEHOLDER__/b", Vars{})
	assert.Equal(t, "a/__NOT_A_PLACEHOLDER__/b", got)
}

func TestRenderGoogleStyleTemplate(t *testing.T) {
	tmpl := "/devices/__EPNAME__/events"
	got := Render(tmpl, Vars{Endpoint: "device-42"})
	assert.Equal(t, "/devices/device-42/events", got)
}

func TestRenderLegacyLowercases(t *testing.T) {
	tmpl := "iot-2/type/__DEVICE_TYPE__/id/__EPNAME__/cmd/__COMMAND_TYPE__/fmt/JSON"
	got := RenderLegacy(tmpl, Vars{DeviceType: "Light", Endpoint: "EP-1", CommandType: "PUT"})
	assert.Equal(t, "iot-2/type/light/id/ep-1/cmd/put/fmt/json", got)
}

func TestMatchesWildcards(t *testing.T) {
	cases := []struct {
		filter, topic string
		want          bool
	}{
		{"devices/+/events", "devices/ep-1/events", true},
		{"devices/+/events", "devices/ep-1/ep-2/events", false},
		{"iot-2/type/+/id/+/cmd/#", "iot-2/type/light/id/ep-1/cmd/put/fmt/json", true},
		{"devices/ep-1/events", "devices/ep-2/events", false},
		{"exact/topic", "exact/topic", true},
	}

	for _, tc := range cases {
		assert.Equalf(t, tc.want, Matches(tc.filter, tc.topic), "filter=%q topic=%q", tc.filter, tc.topic)
	}
}

func TestSegments(t *testing.T) {
	assert.Equal(t, []string{"iot-2", "type", "light", "id", "ep-1", "cmd", "put", "fmt", "json"},
		Segments("iot-2/type/light/id/ep-1/cmd/put/fmt/json"))
}
