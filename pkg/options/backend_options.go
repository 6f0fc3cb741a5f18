package options

import (
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*BackendOptions)(nil)

// BackendOptions carries the device-management backend's connection
// details: the REST base URL the orchestrator issues calls against, the
// long-poll pull-channel URL, and the API key both authenticate with
// (spec.md §4.4, §2 Orchestrator facade).
type BackendOptions struct {
	BaseURL     string        `json:"base-url" mapstructure:"base-url"`
	LongPollURL string        `json:"long-poll-url" mapstructure:"long-poll-url"`
	APIKey      string        `json:"api-key" mapstructure:"api-key"`
	Timeout     time.Duration `json:"timeout" mapstructure:"timeout"`
}

// NewBackendOptions creates a BackendOptions with defaults.
func NewBackendOptions() *BackendOptions {
	return &BackendOptions{
		BaseURL:     "http://localhost:8080",
		LongPollURL: "http://localhost:8080/notification/pull",
		Timeout:     30 * time.Second,
	}
}

func (o *BackendOptions) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.BaseURL == "" {
		errs = append(errs, errMissing("backend.base-url"))
	}
	if o.LongPollURL == "" {
		errs = append(errs, errMissing("backend.long-poll-url"))
	}
	return errs
}

func (o *BackendOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.BaseURL, "backend.base-url", o.BaseURL, "Device-management backend REST base URL.")
	fs.StringVar(&o.LongPollURL, "backend.long-poll-url", o.LongPollURL, "Backend long-poll pull-channel URL.")
	fs.StringVar(&o.APIKey, "backend.api-key", o.APIKey, "Backend API key, sent as a bearer token.")
	fs.DurationVar(&o.Timeout, "backend.timeout", o.Timeout, "REST request timeout (the long-poll GET itself is not bounded by this).")
}
