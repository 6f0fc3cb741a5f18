package model

import (
	"encoding/json"
	"fmt"
)

// SubscriptionKey identifies one backend observation the subscription
// manager tracks (spec.md §3): the tuple must be unique.
type SubscriptionKey struct {
	Domain   string
	EpName   string
	EpType   string
	Resource ResourcePath
}

// String renders a key in a stable, human-readable form, used for
// logging and as a map key when a comparable struct key is inconvenient.
func (k SubscriptionKey) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", k.Domain, k.EpName, k.EpType, k.Resource)
}

// Registration is one entry of a backend registration event's
// "registrations" list: an endpoint together with the resources it is
// reporting, each optionally flagged observable (spec.md §4.1
// processRegistration, original_source DeviceRegistrationEvent).
type Registration struct {
	Ep        string                 `json:"ep"`
	Ept       string                 `json:"ept"`
	Resources []RegistrationResource `json:"resources,omitempty"`

	// Context carries additional registration metadata the backend
	// device-manager attaches (firmware version, manufacturer, serial
	// number) — supplemental to spec.md, recovered from the original
	// processNewRegistration's context map handling.
	Context map[string]string `json:"context,omitempty"`
}

// RegistrationResource is one resource entry within a Registration.
type RegistrationResource struct {
	Path       ResourcePath
	Observable bool
}

// registrationResourceWire mirrors the backend's wire shape, where "obs"
// is a string ("true"/"false"), not a JSON boolean — confirmed by
// GoogleCloudDeviceManager.java's `(String)resource.get("obs")`.
type registrationResourceWire struct {
	Path ResourcePath `json:"path"`
	Obs  string       `json:"obs"`
}

// UnmarshalJSON decodes the backend's string-typed "obs" field into the
// Observable flag.
func (r *RegistrationResource) UnmarshalJSON(data []byte) error {
	var wire registrationResourceWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	r.Path = wire.Path
	r.Observable = wire.Obs == "true"
	return nil
}

// MarshalJSON re-encodes Observable as the backend's string-typed "obs"
// field, keeping the wire shape symmetric with UnmarshalJSON.
func (r RegistrationResource) MarshalJSON() ([]byte, error) {
	wire := registrationResourceWire{Path: r.Path}
	if r.Observable {
		wire.Obs = "true"
	} else {
		wire.Obs = "false"
	}
	return json.Marshal(wire)
}
