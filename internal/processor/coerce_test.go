package processor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoerceJSONValueStrings(t *testing.T) {
	assert.Equal(t, "hello", CoerceJSONValue("hello"))
	assert.Equal(t, "", CoerceJSONValue(""))
	assert.Equal(t, "", CoerceJSONValue(nil))
}

func TestCoerceJSONValueNumbers(t *testing.T) {
	assert.Equal(t, "5", CoerceJSONValue(float64(5)))
	assert.Equal(t, "5.5", CoerceJSONValue(float64(5.5)))
}

func TestCoerceJSONValueMapAndList(t *testing.T) {
	var m interface{}
	_ = json.Unmarshal([]byte(`{"a":1}`), &m)
	assert.JSONEq(t, `{"a":1}`, CoerceJSONValue(m))

	var l interface{}
	_ = json.Unmarshal([]byte(`[1,2,3]`), &l)
	assert.JSONEq(t, `[1,2,3]`, CoerceJSONValue(l))
}

func TestCoerceJSONValueUnknownShapeIsDiagnostic(t *testing.T) {
	got := CoerceJSONValue(true)
	assert.JSONEq(t, `{"type":"bool"}`, got)
}

func TestExtractKeyMissing(t *testing.T) {
	_, ok := ExtractKey(map[string]interface{}{"a": "b"}, "missing")
	assert.False(t, ok)
}

// TestFundamentalValuePreservesNumericType covers spec.md §8 scenario 1:
// a numeric reading must round-trip as a JSON number, not a quoted
// string, unlike CoerceJSONValue's stringified form.
func TestFundamentalValuePreservesNumericType(t *testing.T) {
	assert.Equal(t, float64(29.75), FundamentalValue(float64(29.75)))
	assert.Equal(t, "on", FundamentalValue("on"))
	assert.Nil(t, FundamentalValue(""))
	assert.Nil(t, FundamentalValue(nil))
}

func TestFundamentalValueMapAndList(t *testing.T) {
	var m interface{}
	_ = json.Unmarshal([]byte(`{"a":1}`), &m)
	assert.JSONEq(t, `{"a":1}`, FundamentalValue(m).(string))
}
