package gateway

import (
	"bytes"
	"encoding/json"
)

// envelope covers the paging wrappers the upstream is known to produce:
// a bare array, {"results": [...]}, {"data": [...]} and {"data": {"results": [...]}}.
type envelope struct {
	Results json.RawMessage `json:"results"`
	Data    json.RawMessage `json:"data"`
}

// UnwrapCollection normalizes a list response body to a plain JSON array.
// The most deeply nested recognized shape wins, exactly one envelope level is
// removed, and an unrecognized shape yields an empty array rather than an
// error so list callers never fail on a shape change.
func UnwrapCollection(raw []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if isJSONArray(trimmed) {
		return trimmed
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return json.RawMessage("[]")
	}

	if len(env.Data) > 0 {
		data := bytes.TrimSpace(env.Data)
		var nested envelope
		if err := json.Unmarshal(data, &nested); err == nil && isJSONArray(bytes.TrimSpace(nested.Results)) {
			return bytes.TrimSpace(nested.Results)
		}
		if isJSONArray(data) {
			return data
		}
	}

	if results := bytes.TrimSpace(env.Results); isJSONArray(results) {
		return results
	}

	return json.RawMessage("[]")
}

func isJSONArray(raw []byte) bool {
	return len(raw) > 0 && raw[0] == '['
}
