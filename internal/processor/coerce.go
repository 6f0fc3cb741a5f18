package processor

import (
	"encoding/json"
	"fmt"
)

// CoerceJSONValue implements spec.md §4.1's JSON value coercion table:
// string is returned verbatim (JSON null becomes the empty string), integer
// and float are stringified, map and list are re-serialized to JSON, and
// any other shape yields a diagnostic {"type":"<typename>"} payload.
//
// v is the value produced by decoding a JSON document into
// interface{} (so maps are map[string]interface{}, lists are
// []interface{}, numbers are float64).
func CoerceJSONValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		if t == "" {
			return ""
		}
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(t)
		if err != nil {
			return diagnosticPayload(t)
		}
		return string(b)
	default:
		return diagnosticPayload(v)
	}
}

func diagnosticPayload(v interface{}) string {
	b, _ := json.Marshal(map[string]string{"type": fmt.Sprintf("%T", v)})
	return string(b)
}

// FundamentalValue implements the observation-value side of spec.md
// §4.1's coercion table. Unlike CoerceJSONValue — which ExtractKey needs
// as a plain string for the api-request fields — this keeps a decoded
// number or string in its native Go type, so a numeric reading
// round-trips as a JSON number instead of a quoted string (spec.md §8
// scenario 1: {"value":29.75,...}), matching the original's
// fundamentalTypeDecoder().getFundamentalValue.
func FundamentalValue(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if t == "" {
			return nil
		}
		return t
	case float64:
		return t
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(t)
		if err != nil {
			return diagnosticPayload(t)
		}
		return string(b)
	default:
		return diagnosticPayload(v)
	}
}

// ExtractKey pulls key out of a decoded JSON object and coerces it per
// CoerceJSONValue. Returns "" and false if the key is absent.
func ExtractKey(obj map[string]interface{}, key string) (string, bool) {
	v, ok := obj[key]
	if !ok {
		return "", false
	}
	return CoerceJSONValue(v), true
}
