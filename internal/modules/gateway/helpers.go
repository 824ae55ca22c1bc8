package gateway

import (
	"encoding/json"
	"strings"
)

// payloadFromArgs normalizes the first event argument into a string map.
// socket.io clients deliver objects, JSON strings or raw bytes depending
// on the client library.
func payloadFromArgs(args []any) map[string]interface{} {
	if len(args) == 0 || args[0] == nil {
		return map[string]interface{}{}
	}
	return mapFromAny(args[0])
}

func mapFromAny(v interface{}) map[string]interface{} {
	switch typed := v.(type) {
	case map[string]interface{}:
		return typed
	case string:
		out := map[string]interface{}{}
		if err := json.Unmarshal([]byte(typed), &out); err != nil {
			return map[string]interface{}{}
		}
		return out
	case []byte:
		out := map[string]interface{}{}
		if err := json.Unmarshal(typed, &out); err != nil {
			return map[string]interface{}{}
		}
		return out
	default:
		data, err := json.Marshal(typed)
		if err != nil {
			return map[string]interface{}{}
		}
		out := map[string]interface{}{}
		if err := json.Unmarshal(data, &out); err != nil {
			return map[string]interface{}{}
		}
		return out
	}
}

// submissionPayload renders a submitWork payload for storage. Clients send
// either a pre-serialized string or a JSON object; objects are serialized
// here rather than dropped, since an accepted submission consumes a version
// and the cooldown window.
func submissionPayload(v interface{}) (string, bool) {
	switch typed := v.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(typed)
		return s, s != ""
	default:
		data, err := json.Marshal(typed)
		if err != nil {
			return "", false
		}
		return string(data), true
	}
}

func strFromAny(v interface{}) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func strSliceFromAny(v interface{}) []string {
	switch typed := v.(type) {
	case []string:
		return typed
	case []interface{}:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			if s := strFromAny(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
