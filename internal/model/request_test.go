package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestIDSequenceWrapsAtMax(t *testing.T) {
	seq := &RequestIDSequence{next: MaxAPIRequestID - 1}
	assert.Equal(t, 1, seq.Next())
	assert.Equal(t, 2, seq.Next())
}

func TestRequestIDSequenceStartsAtOne(t *testing.T) {
	seq := &RequestIDSequence{}
	assert.Equal(t, 1, seq.Next())
}

func TestLooksLikeAPIRequest(t *testing.T) {
	assert.True(t, LooksLikeAPIRequest([]byte(`{"api_verb":"GET","api_uri":"/x"}`)))
	assert.False(t, LooksLikeAPIRequest([]byte(`{"path":"/3303/0/5700","coap_verb":"get"}`)))
	assert.False(t, LooksLikeAPIRequest([]byte(`not json`)))
}
