package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEndpointStartsWithNoSubscriptions(t *testing.T) {
	ep := NewEndpoint("d1", "light")
	assert.Equal(t, "d1", ep.Name)
	assert.False(t, ep.HasSubscription("/3303/0/5700"))
}

func TestEndpointSubscriptionLifecycle(t *testing.T) {
	ep := NewEndpoint("d1", "light")
	ep.AddSubscription("/3303/0/5700")
	assert.True(t, ep.HasSubscription("/3303/0/5700"))

	ep.RemoveSubscription("/3303/0/5700")
	assert.False(t, ep.HasSubscription("/3303/0/5700"))

	// Removing an untracked path is a no-op, not an error.
	ep.RemoveSubscription("/9999/0/0")
}

func TestTopicSetTopicStrings(t *testing.T) {
	ts := TopicSet{
		VerbEvent: "iot-2/type/light/id/d1/evt/notify/fmt/json",
		VerbGet:   "iot-2/type/light/id/d1/cmd/get/fmt/json",
	}
	strs := ts.TopicStrings()
	assert.Len(t, strs, 2)
	assert.Contains(t, strs, "iot-2/type/light/id/d1/evt/notify/fmt/json")
	assert.Contains(t, strs, "iot-2/type/light/id/d1/cmd/get/fmt/json")
}

func TestCredentialsIsToken(t *testing.T) {
	assert.False(t, Credentials{Username: "u", Password: "p"}.IsToken())
	assert.True(t, Credentials{Token: "jwt"}.IsToken())
}
