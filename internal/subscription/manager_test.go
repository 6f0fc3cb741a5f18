package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/peeredge-io/shadowbridge/internal/model"
)

func key(ep string, path model.ResourcePath) model.SubscriptionKey {
	return model.SubscriptionKey{Domain: "acme", EpName: ep, EpType: "light", Resource: path}
}

func TestPutAndContains(t *testing.T) {
	m := NewManager()
	k := key("d1", "/3303/0/5700")

	assert.False(t, m.Contains(k))
	m.Put(k, true)
	assert.True(t, m.Contains(k))
	assert.True(t, m.Observable(k))
}

func TestPutRefreshesObservableFlag(t *testing.T) {
	m := NewManager()
	k := key("d1", "/3303/0/5700")

	m.Put(k, true)
	m.Put(k, false)
	assert.True(t, m.Contains(k))
	assert.False(t, m.Observable(k))
	assert.Equal(t, 1, m.Len())
}

func TestRemoveEndpointDropsAllItsKeys(t *testing.T) {
	m := NewManager()
	m.Put(key("d1", "/3303/0/5700"), true)
	m.Put(key("d1", "/3303/0/5701"), true)
	m.Put(key("d2", "/3303/0/5700"), true)

	m.RemoveEndpoint("d1")

	assert.Equal(t, 1, m.Len())
	assert.False(t, m.Contains(key("d1", "/3303/0/5700")))
	assert.True(t, m.Contains(key("d2", "/3303/0/5700")))
}
