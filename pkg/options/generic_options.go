package options

import (
	"github.com/spf13/pflag"
)

var _ IOptions = (*GenericOptions)(nil)

// GenericOptions carries the bare-broker (non-cloud) peer's config,
// grounded on original_source's GenericMQTTProcessor constructor args
// (topic root, request tag, domain) plus the optional draft LwM2M
// uplink-format subscription (spec.md §1, §4.1).
type GenericOptions struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	BrokerURL string `json:"broker-url" mapstructure:"broker-url"`
	ClientID  string `json:"client-id" mapstructure:"client-id"`
	Username  string `json:"username" mapstructure:"username"`
	Password  string `json:"password" mapstructure:"password"`

	TopicRoot  string `json:"topic-root" mapstructure:"topic-root"`
	RequestTag string `json:"request-tag" mapstructure:"request-tag"`
	Domain     string `json:"domain" mapstructure:"domain"`

	DraftUplinkTopic string `json:"draft-uplink-topic" mapstructure:"draft-uplink-topic"`

	InsecureSkipVerify bool `json:"insecure-skip-verify" mapstructure:"insecure-skip-verify"`
}

// NewGenericOptions creates a GenericOptions with defaults.
func NewGenericOptions() *GenericOptions {
	return &GenericOptions{
		Enabled:    false,
		BrokerURL:  "tcp://localhost:1883",
		TopicRoot:  "mbed",
		RequestTag: "/request/",
		Domain:     "domain",
	}
}

func (o *GenericOptions) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}
	var errs []error
	if o.BrokerURL == "" {
		errs = append(errs, errMissing("generic.broker-url"))
	}
	return errs
}

func (o *GenericOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enabled, "generic.enabled", o.Enabled, "Enable the generic bare-broker peer.")
	fs.StringVar(&o.BrokerURL, "generic.broker-url", o.BrokerURL, "Bare-broker MQTT URL.")
	fs.StringVar(&o.ClientID, "generic.client-id", o.ClientID, "Explicit MQTT client id (optional).")
	fs.StringVar(&o.Username, "generic.username", o.Username, "MQTT username.")
	fs.StringVar(&o.Password, "generic.password", o.Password, "MQTT password.")
	fs.StringVar(&o.TopicRoot, "generic.topic-root", o.TopicRoot, "Topic root (mqtt_mds_topic_root).")
	fs.StringVar(&o.RequestTag, "generic.request-tag", o.RequestTag, "Request tag segment (mds_mqtt_request_tag).")
	fs.StringVar(&o.Domain, "generic.domain", o.Domain, "Tenant/domain segment of the request topic.")
	fs.StringVar(&o.DraftUplinkTopic, "generic.draft-uplink-topic", o.DraftUplinkTopic, "Optional draft LwM2M uplink topic template.")
	fs.BoolVar(&o.InsecureSkipVerify, "generic.insecure-skip-verify", o.InsecureSkipVerify, "Skip TLS certificate verification for the bare broker.")
}
