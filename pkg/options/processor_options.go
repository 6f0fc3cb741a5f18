package options

import (
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*ProcessorOptions)(nil)

// ProcessorOptions carries the generic-processor policy knobs spec.md
// §6 lists outside any single cloud's config-key family: the tenant
// domain, auto-subscribe and delete-on-deregistration policy, the draft
// MQTT uplink format toggle, the command-dispatch lock wait budget
// (spec.md §5 `lock_wait_ms`), the async-response sweep timeout,
// `max_shadows` (validated as positive; the endpoint registry enforces
// no size cap), and the shadow-creation worker pool's concurrency bound.
type ProcessorOptions struct {
	Domain                 string        `json:"domain" mapstructure:"domain"`
	AutoSubscribe          bool          `json:"auto-subscribe" mapstructure:"auto-subscribe"`
	DeleteOnDeregistration bool          `json:"delete-on-deregistration" mapstructure:"delete-on-deregistration"`
	DraftFormat            bool          `json:"draft-format" mapstructure:"draft-format"`
	DraftTenant            string        `json:"draft-tenant" mapstructure:"draft-tenant"`
	LockWaitMs             int           `json:"lock-wait-ms" mapstructure:"lock-wait-ms"`
	AsyncReplyTimeout      time.Duration `json:"async-reply-timeout" mapstructure:"async-reply-timeout"`
	MaxShadows             int           `json:"max-shadows" mapstructure:"max-shadows"`
	ShadowCreationConcurrency int        `json:"shadow-creation-concurrency" mapstructure:"shadow-creation-concurrency"`
}

// NewProcessorOptions creates a ProcessorOptions with defaults matching
// spec.md §6 (`max_shadows` default 100000, `lock_wait_ms` default
// 2500ms, `async_reply_timeout` default 5 minutes).
func NewProcessorOptions() *ProcessorOptions {
	return &ProcessorOptions{
		Domain:                    "domain",
		AutoSubscribe:             true,
		LockWaitMs:                2500,
		AsyncReplyTimeout:         5 * time.Minute,
		MaxShadows:                100000,
		ShadowCreationConcurrency: 8,
	}
}

func (o *ProcessorOptions) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.Domain == "" {
		errs = append(errs, errMissing("processor.domain"))
	}
	if o.LockWaitMs <= 0 {
		errs = append(errs, errMissing("processor.lock-wait-ms"))
	}
	if o.MaxShadows <= 0 {
		errs = append(errs, errMissing("processor.max-shadows"))
	}
	if o.ShadowCreationConcurrency <= 0 {
		errs = append(errs, errMissing("processor.shadow-creation-concurrency"))
	}
	return errs
}

func (o *ProcessorOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Domain, "processor.domain", o.Domain, "Tenant/domain segment used in subscription keys and generic-broker topics.")
	fs.BoolVar(&o.AutoSubscribe, "processor.auto-subscribe", o.AutoSubscribe, "Auto-subscribe to observable resources on registration (mqtt_obs_auto_subscribe).")
	fs.BoolVar(&o.DeleteOnDeregistration, "processor.delete-on-deregistration", o.DeleteOnDeregistration, "Delete the cloud shadow on deregistration, not just on expiry.")
	fs.BoolVar(&o.DraftFormat, "processor.draft-format", o.DraftFormat, "Encode outbound notifications in the draft CBOR LwM2M MQTT format.")
	fs.StringVar(&o.DraftTenant, "processor.draft-tenant", o.DraftTenant, "Tenant segment for the draft-format uplink topic.")
	fs.IntVar(&o.LockWaitMs, "processor.lock-wait-ms", o.LockWaitMs, "Command-dispatch lock wait budget in ms (lock_wait_ms).")
	fs.DurationVar(&o.AsyncReplyTimeout, "processor.async-reply-timeout", o.AsyncReplyTimeout, "Async-response record expiry (async_reply_timeout).")
	fs.IntVar(&o.MaxShadows, "processor.max-shadows", o.MaxShadows, "Maximum tracked endpoint shadows (max_shadows); validated only, the endpoint registry enforces no size cap.")
	fs.IntVar(&o.ShadowCreationConcurrency, "processor.shadow-creation-concurrency", o.ShadowCreationConcurrency, "Bounded worker-pool size for concurrent shadow creation.")
}
