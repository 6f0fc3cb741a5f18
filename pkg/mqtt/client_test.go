package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_ValidatesConfig(t *testing.T) {
	_, err := NewClient(nil)
	require.Error(t, err)

	_, err = NewClient(&ClientConfig{})
	require.Error(t, err)

	c, err := NewClient(&ClientConfig{BrokerURL: "tcp://localhost:1883"})
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestSetDefaultConfig(t *testing.T) {
	cfg := &ClientConfig{BrokerURL: "tcp://localhost:1883"}
	setDefaultConfig(cfg)
	assert.Equal(t, uint16(60), cfg.KeepAlive)
	assert.NotZero(t, cfg.ConnectTimeout)
}

func TestTopicsMatch(t *testing.T) {
	cases := []struct {
		filter, topic string
		want          bool
	}{
		{"devices/d1/config", "devices/d1/config", true},
		{"devices/+/config", "devices/d1/config", true},
		{"devices/+/config", "devices/d1/d2/config", false},
		{"iot-2/type/+/id/+/cmd/#", "iot-2/type/light/id/d1/cmd/get/fmt/json", true},
		{"devices/d1/events", "devices/d2/events", false},
		{"$share/grp/devices/d1/config", "devices/d1/config", true},
	}

	for _, tc := range cases {
		got := topicsMatch(topicFilter(tc.filter), tc.topic)
		assert.Equalf(t, tc.want, got, "filter=%q topic=%q", tc.filter, tc.topic)
	}
}

func TestSubscribedTopicsKeepsOrderAfterRemoval(t *testing.T) {
	c := &pahoClient{byTopic: make(map[string]int)}

	c.mu.Lock()
	for _, topic := range []string{"a/1", "a/2", "a/3"} {
		c.byTopic[topic] = len(c.subscriptions)
		c.subscriptions = append(c.subscriptions, subscriptionEntry{topic: topic})
	}
	c.mu.Unlock()

	assert.Equal(t, []string{"a/1", "a/2", "a/3"}, c.SubscribedTopics())

	c.mu.Lock()
	if idx, ok := c.byTopic["a/2"]; ok {
		c.subscriptions = append(c.subscriptions[:idx], c.subscriptions[idx+1:]...)
		delete(c.byTopic, "a/2")
		for i := idx; i < len(c.subscriptions); i++ {
			c.byTopic[c.subscriptions[i].topic] = i
		}
	}
	c.mu.Unlock()

	assert.Equal(t, []string{"a/1", "a/3"}, c.SubscribedTopics())

	// The removed topic is no longer indexed.
	c.mu.Lock()
	_, ok := c.byTopic["a/2"]
	c.mu.Unlock()
	assert.False(t, ok)
}
