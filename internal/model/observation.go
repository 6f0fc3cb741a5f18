package model

import "encoding/json"

// ObservationPayload is the canonical shape published to a peer cloud
// for a device notification or a command reply (spec.md §3).
//
// The UnifiedFormat fields are only marshaled when that feature is
// enabled (see EnableUnifiedFormat), giving the draft/unified envelope
// some clouds expect alongside the legacy path/ep/value/coap_verb shape.
type ObservationPayload struct {
	Path     string      `json:"path"`
	Ep       string      `json:"ep"`
	Value    interface{} `json:"value"`
	CoapVerb string      `json:"coap_verb"`

	ResourceID string `json:"resourceId,omitempty"`
	DeviceID   string `json:"deviceId,omitempty"`
	Payload    string `json:"payload,omitempty"`
	Method     string `json:"method,omitempty"`

	// WrapKey, if set, nests the marshaled payload under
	// {"<WrapKey>": {...}} instead of publishing it flat — Watson's
	// optional device-data-key wrapping (spec.md §3/§4.2).
	WrapKey string `json:"-"`
}

// MarshalJSON nests the canonical payload under WrapKey when set.
func (p *ObservationPayload) MarshalJSON() ([]byte, error) {
	type alias ObservationPayload
	body, err := json.Marshal((*alias)(p))
	if err != nil {
		return nil, err
	}
	if p.WrapKey == "" {
		return body, nil
	}
	return json.Marshal(map[string]json.RawMessage{p.WrapKey: body})
}

// EnableUnifiedFormat fills in the unified-format fields (resourceId,
// deviceId, payload, method) from the canonical fields already set on p.
func (p *ObservationPayload) EnableUnifiedFormat(base64Payload string) {
	p.ResourceID = trimLeadingSlash(p.Path)
	p.DeviceID = p.Ep
	p.Payload = base64Payload
	p.Method = p.CoapVerb
}

func trimLeadingSlash(s string) string {
	if len(s) > 0 && s[0] == '/' {
		return s[1:]
	}
	return s
}
