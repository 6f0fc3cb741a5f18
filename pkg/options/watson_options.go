package options

import (
	"github.com/spf13/pflag"
)

var _ IOptions = (*WatsonOptions)(nil)

// WatsonOptions carries the iotf_* config-key family (spec.md §6): the
// API key (which encodes the org id/key pair), auth token, topic
// templates, and the legacy-bridge verb-casing flag.
type WatsonOptions struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	BrokerURL string `json:"broker-url" mapstructure:"broker-url"`
	ClientID  string `json:"client-id" mapstructure:"client-id"`
	APIKey    string `json:"api-key" mapstructure:"api-key"`
	AuthToken string `json:"auth-token" mapstructure:"auth-token"`

	// LegacyBridge selects iotf's legacy lower-case verb topics instead
	// of the production upper-case scheme (spec.md §9 Open Questions).
	LegacyBridge bool `json:"legacy-bridge" mapstructure:"legacy-bridge"`

	DeviceDataKey string `json:"device-data-key" mapstructure:"device-data-key"`

	CmdTopicGet              string `json:"cmd-topic-get" mapstructure:"cmd-topic-get"`
	CmdTopicPut              string `json:"cmd-topic-put" mapstructure:"cmd-topic-put"`
	CmdTopicPost             string `json:"cmd-topic-post" mapstructure:"cmd-topic-post"`
	CmdTopicDelete           string `json:"cmd-topic-delete" mapstructure:"cmd-topic-delete"`
	ObserveNotificationTopic string `json:"observe-notification-topic" mapstructure:"observe-notification-topic"`
	CmdResponseTopic         string `json:"cmd-response-topic" mapstructure:"cmd-response-topic"`
	RequestTopicFilter       string `json:"request-topic-filter" mapstructure:"request-topic-filter"`

	InsecureSkipVerify bool `json:"insecure-skip-verify" mapstructure:"insecure-skip-verify"`
}

// NewWatsonOptions creates a WatsonOptions with defaults matching IBM
// Watson IoT Platform's documented MQTT topic layout.
func NewWatsonOptions() *WatsonOptions {
	return &WatsonOptions{
		Enabled:                  false,
		BrokerURL:                "ssl://__ORG_ID__.messaging.internetofthings.ibmcloud.com:8883",
		DeviceDataKey:            "ep",
		CmdTopicGet:              "iot-2/type/__DEVICE_TYPE__/id/__EPNAME__/cmd/get/fmt/json",
		CmdTopicPut:              "iot-2/type/__DEVICE_TYPE__/id/__EPNAME__/cmd/put/fmt/json",
		CmdTopicPost:             "iot-2/type/__DEVICE_TYPE__/id/__EPNAME__/cmd/post/fmt/json",
		CmdTopicDelete:           "iot-2/type/__DEVICE_TYPE__/id/__EPNAME__/cmd/delete/fmt/json",
		ObserveNotificationTopic: "iot-2/type/__DEVICE_TYPE__/id/__EPNAME__/evt/notify/fmt/json",
		CmdResponseTopic:         "iot-2/type/__DEVICE_TYPE__/id/__EPNAME__/evt/resp/fmt/json",
		RequestTopicFilter:       "iot-2/type/+/id/+/cmd/+/fmt/json",
	}
}

func (o *WatsonOptions) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}
	var errs []error
	if o.APIKey == "" {
		errs = append(errs, errMissing("watson.api-key"))
	}
	if o.AuthToken == "" {
		errs = append(errs, errMissing("watson.auth-token"))
	}
	return errs
}

func (o *WatsonOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enabled, "watson.enabled", o.Enabled, "Enable the IBM Watson IoT peer.")
	fs.StringVar(&o.BrokerURL, "watson.broker-url", o.BrokerURL, "Watson IoT MQTT broker URL (iotf_broker_url).")
	fs.StringVar(&o.ClientID, "watson.client-id", o.ClientID, "Explicit MQTT client id (optional).")
	fs.StringVar(&o.APIKey, "watson.api-key", o.APIKey, "Watson IoT API key, encodes org id and key (iotf_api_key).")
	fs.StringVar(&o.AuthToken, "watson.auth-token", o.AuthToken, "Watson IoT auth token (iotf_auth_token).")
	fs.BoolVar(&o.LegacyBridge, "watson.legacy-bridge", o.LegacyBridge, "Use legacy lower-case verb topics (iotf_legacy_bridge).")
	fs.StringVar(&o.DeviceDataKey, "watson.device-data-key", o.DeviceDataKey, "JSON key each published observation is nested under; empty publishes it unwrapped.")
	fs.StringVar(&o.CmdTopicGet, "watson.cmd-topic-get", o.CmdTopicGet, "GET command topic template.")
	fs.StringVar(&o.CmdTopicPut, "watson.cmd-topic-put", o.CmdTopicPut, "PUT command topic template.")
	fs.StringVar(&o.CmdTopicPost, "watson.cmd-topic-post", o.CmdTopicPost, "POST command topic template.")
	fs.StringVar(&o.CmdTopicDelete, "watson.cmd-topic-delete", o.CmdTopicDelete, "DELETE command topic template.")
	fs.StringVar(&o.ObserveNotificationTopic, "watson.observe-notification-topic", o.ObserveNotificationTopic, "Observation notification topic template.")
	fs.StringVar(&o.CmdResponseTopic, "watson.cmd-response-topic", o.CmdResponseTopic, "Command response topic template.")
	fs.StringVar(&o.RequestTopicFilter, "watson.request-topic-filter", o.RequestTopicFilter, "Wildcard filter subscribed for incoming commands.")
	fs.BoolVar(&o.InsecureSkipVerify, "watson.insecure-skip-verify", o.InsecureSkipVerify, "Skip TLS certificate verification for the Watson IoT broker.")
}
