package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseBackendEventDecodesStringObsFlag covers spec.md §8 scenario 1:
// the backend sends "obs" as a string ("true"/"false"), not a JSON
// boolean, confirmed by GoogleCloudDeviceManager.java's
// `(String)resource.get("obs")`. ParseBackendEvent must still populate
// RegistrationResource.Observable so ProcessRegistration auto-subscribes.
func TestParseBackendEventDecodesStringObsFlag(t *testing.T) {
	raw := []byte(`{
		"registrations": [
			{
				"ep": "d1",
				"ept": "light",
				"resources": [
					{"path": "/3303/0/5700", "obs": "true"},
					{"path": "/3311/0/5850", "obs": "false"}
				]
			}
		]
	}`)

	ev, err := ParseBackendEvent(raw)
	require.NoError(t, err)
	require.Len(t, ev.Registrations, 1)

	reg := ev.Registrations[0]
	assert.Equal(t, "d1", reg.Ep)
	require.Len(t, reg.Resources, 2)
	assert.True(t, reg.Resources[0].Observable)
	assert.False(t, reg.Resources[1].Observable)
}

func TestRegistrationResourceMarshalRoundTrips(t *testing.T) {
	res := RegistrationResource{Path: "/3303/0/5700", Observable: true}
	body, err := res.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"path":"/3303/0/5700","obs":"true"}`, string(body))

	var decoded RegistrationResource
	require.NoError(t, decoded.UnmarshalJSON(body))
	assert.Equal(t, res, decoded)
}
