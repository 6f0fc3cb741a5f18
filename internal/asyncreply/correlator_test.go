package asyncreply

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peeredge-io/shadowbridge/internal/model"
)

func TestPutAndResolve(t *testing.T) {
	c := NewCorrelator(0)
	rec := &model.AsyncRecord{AsyncID: "abc123", EpName: "d1", URI: "/3303/0/5700", Verb: "GET", CreatedAt: time.Now()}

	c.Put(rec)
	assert.Equal(t, 1, c.Len())

	got, ok := c.Resolve("abc123")
	require.True(t, ok)
	assert.Equal(t, rec, got)
	assert.Equal(t, 0, c.Len())

	_, ok = c.Resolve("abc123")
	assert.False(t, ok)
}

func TestIsAsyncResponse(t *testing.T) {
	id, ok := IsAsyncResponse([]byte(`{"async-response-id":"abc123"}`))
	assert.True(t, ok)
	assert.Equal(t, "abc123", id)

	_, ok = IsAsyncResponse([]byte(`{"status":"ok"}`))
	assert.False(t, ok)

	_, ok = IsAsyncResponse([]byte(`not json`))
	assert.False(t, ok)
}

func TestFormatAsyncResponseAsReply(t *testing.T) {
	rec := &model.AsyncRecord{EpName: "d1", URI: "/3303/0/5700", Verb: "GET"}

	payload, err := FormatAsyncResponseAsReply(rec, "MjkuNzU=")
	require.NoError(t, err)
	assert.Equal(t, "d1", payload.Ep)
	assert.Equal(t, "/3303/0/5700", payload.Path)
	assert.Equal(t, "GET", payload.CoapVerb)
	assert.Equal(t, "29.75", payload.Value)
}

func TestSweepExpiredDropsOnlyOldRecords(t *testing.T) {
	c := NewCorrelator(time.Minute)
	now := time.Now()

	c.Put(&model.AsyncRecord{AsyncID: "old", CreatedAt: now.Add(-2 * time.Minute)})
	c.Put(&model.AsyncRecord{AsyncID: "fresh", CreatedAt: now})

	dropped := c.SweepExpired(now)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, 1, c.Len())

	_, ok := c.Resolve("fresh")
	assert.True(t, ok)
}
