package model

import "encoding/json"

// BackendEvent is the top-level envelope the long-poll reader and any
// webhook deliver (spec.md §4.1 processDeviceServerMessage, §3 Payload
// envelopes): `{"notifications":[…], "reg-updates":[…],
// "de-registrations":[…], "registrations":[…],
// "registrations-expired":[…]}`. The generic processor routes each key
// to its own handler.
type BackendEvent struct {
	Registrations        []Registration `json:"registrations,omitempty"`
	RegUpdates           []Registration `json:"reg-updates,omitempty"`
	DeRegistrations      []string       `json:"de-registrations,omitempty"`
	RegistrationsExpired []string       `json:"registrations-expired,omitempty"`
	Notifications        []Notification `json:"notifications,omitempty"`
}

// Notification is one entry of the "notifications" list: either a
// device telemetry sample ({ep,path,payload}) or an async-response
// completion ({id,payload}) — distinguished by which of ID/Ep is set
// (spec.md §3 Payload envelopes, §4.5 scenario 2).
type Notification struct {
	Ep      string `json:"ep,omitempty"`
	Path    string `json:"path,omitempty"`
	Payload string `json:"payload"`
	ID      string `json:"id,omitempty"`
}

// IsCompletion reports whether this notification is an async-response
// completion rather than a telemetry sample.
func (n Notification) IsCompletion() bool {
	return n.ID != ""
}

// ParseBackendEvent decodes a raw long-poll/webhook body into a
// BackendEvent. Unrecognized keys are ignored.
func ParseBackendEvent(raw []byte) (*BackendEvent, error) {
	var ev BackendEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
