package options

import (
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*GoogleOptions)(nil)

// GoogleOptions carries the google_cloud_* config-key family (spec.md
// §6): project/region/registry identity, the MQTT bridge host, JWT
// lifetime and refresh slack, and the device-manager retry budget
// recovered from original_source's GoogleCloudDeviceManager retry loop.
type GoogleOptions struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	ProjectID    string `json:"project-id" mapstructure:"project-id"`
	CloudRegion  string `json:"cloud-region" mapstructure:"cloud-region"`
	RegistryName string `json:"registry-name" mapstructure:"registry-name"`
	MQTTHost     string `json:"mqtt-host" mapstructure:"mqtt-host"`

	PrivateKeyPath string `json:"private-key-path" mapstructure:"private-key-path"`

	ConfigTopicTemplate string `json:"config-topic-template" mapstructure:"config-topic-template"`
	EventTopicTemplate  string `json:"event-topic-template" mapstructure:"event-topic-template"`
	StateTopicTemplate  string `json:"state-topic-template" mapstructure:"state-topic-template"`

	JWTExpiration time.Duration `json:"jwt-expiration" mapstructure:"jwt-expiration"`
	RefreshSlack  time.Duration `json:"refresh-slack" mapstructure:"refresh-slack"`

	// WaitForLockMs is google_wait_for_lock_ms. The bridge passes it to
	// the Google processor as RefreshWaitMs, the base sleep between
	// per-device connect/refresh retry attempts (doubled after each
	// failed attempt). It is not a lock wait: command dispatch waits
	// processor.lock-wait-ms for its lock.
	WaitForLockMs int `json:"wait-for-lock-ms" mapstructure:"wait-for-lock-ms"`

	MaxRetries            int `json:"max-retries" mapstructure:"max-retries"`
	DeviceManagerRetries  int `json:"device-manager-retries" mapstructure:"device-manager-retries"`

	InsecureSkipVerify bool `json:"insecure-skip-verify" mapstructure:"insecure-skip-verify"`
}

// NewGoogleOptions creates a GoogleOptions with defaults matching
// Google Cloud IoT Core's documented bridge endpoint and JWT guidance.
func NewGoogleOptions() *GoogleOptions {
	return &GoogleOptions{
		Enabled:              false,
		MQTTHost:             "mqtt.googleapis.com:8883",
		ConfigTopicTemplate:  "/devices/__EPNAME__/config",
		EventTopicTemplate:   "/devices/__EPNAME__/events",
		StateTopicTemplate:   "/devices/__EPNAME__/state",
		JWTExpiration:        23 * time.Hour,
		RefreshSlack:         5 * time.Hour,
		WaitForLockMs:        15000,
		MaxRetries:           3,
		DeviceManagerRetries: 3,
	}
}

func (o *GoogleOptions) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}
	var errs []error
	if o.ProjectID == "" {
		errs = append(errs, errMissing("google.project-id"))
	}
	if o.RegistryName == "" {
		errs = append(errs, errMissing("google.registry-name"))
	}
	if o.PrivateKeyPath == "" {
		errs = append(errs, errMissing("google.private-key-path"))
	}
	return errs
}

func (o *GoogleOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enabled, "google.enabled", o.Enabled, "Enable the Google Cloud IoT Core peer.")
	fs.StringVar(&o.ProjectID, "google.project-id", o.ProjectID, "Google Cloud project id (google_cloud_project_id).")
	fs.StringVar(&o.CloudRegion, "google.cloud-region", o.CloudRegion, "Cloud IoT Core region (google_cloud_region).")
	fs.StringVar(&o.RegistryName, "google.registry-name", o.RegistryName, "Cloud IoT Core device registry name (google_cloud_registry_name).")
	fs.StringVar(&o.MQTTHost, "google.mqtt-host", o.MQTTHost, "Cloud IoT Core MQTT bridge host:port (google_cloud_mqtt_host).")
	fs.StringVar(&o.PrivateKeyPath, "google.private-key-path", o.PrivateKeyPath, "Path to the RS256 private key used to sign device JWTs (google_cloud_key_path).")
	fs.StringVar(&o.ConfigTopicTemplate, "google.config-topic-template", o.ConfigTopicTemplate, "Config topic template (google_cloud_config_topic).")
	fs.StringVar(&o.EventTopicTemplate, "google.event-topic-template", o.EventTopicTemplate, "Event topic template (google_cloud_event_topic).")
	fs.StringVar(&o.StateTopicTemplate, "google.state-topic-template", o.StateTopicTemplate, "State topic template (google_cloud_state_topic).")
	fs.DurationVar(&o.JWTExpiration, "google.jwt-expiration", o.JWTExpiration, "Device JWT lifetime (google_cloud_jwt_expiration).")
	fs.DurationVar(&o.RefreshSlack, "google.refresh-slack", o.RefreshSlack, "How long before JWT expiry to refresh credentials.")
	fs.IntVar(&o.WaitForLockMs, "google.wait-for-lock-ms", o.WaitForLockMs, "Base sleep in ms between per-device connect/refresh retries, doubled per attempt (google_wait_for_lock_ms).")
	fs.IntVar(&o.MaxRetries, "google.max-retries", o.MaxRetries, "Max MQTT connect retries per device (mqtt_connect_retries).")
	fs.IntVar(&o.DeviceManagerRetries, "google.device-manager-retries", o.DeviceManagerRetries, "Max device-registry creation retries (google_device_manager_retries).")
	fs.BoolVar(&o.InsecureSkipVerify, "google.insecure-skip-verify", o.InsecureSkipVerify, "Skip TLS certificate verification for the Cloud IoT Core MQTT bridge.")
}

func errMissing(key string) error {
	return &missingOptionError{key: key}
}

type missingOptionError struct{ key string }

func (e *missingOptionError) Error() string { return e.key + " is required" }
