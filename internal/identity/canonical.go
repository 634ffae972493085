package identity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// StableJSON encodes v with deterministic key ordering so that semantically
// identical values always hash identically, regardless of map iteration order
// or incidental formatting in the source file.
func StableJSON(v interface{}) ([]byte, error) {
	stable, err := canonicalize(v)
	if err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(stable); err != nil {
		return nil, err
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}

// HashCanonical is StableJSON followed by SHA256Hex.
func HashCanonical(v interface{}) (string, error) {
	data, err := StableJSON(v)
	if err != nil {
		return "", err
	}
	return SHA256Hex(data), nil
}

// canonicalize flattens maps into sorted key/value pair lists. Encoding the
// pairs as a flat array sidesteps Go's map key ordering entirely.
func canonicalize(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]interface{}, 0, len(keys)*2)
		for _, k := range keys {
			cv, err := canonicalize(val[k])
			if err != nil {
				return nil, err
			}
			out = append(out, k, cv)
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, 0, len(val))
		for _, item := range val {
			cv, err := canonicalize(item)
			if err != nil {
				return nil, err
			}
			out = append(out, cv)
		}
		return out, nil
	case json.Number:
		return val.String(), nil
	case string, float64, int, int64, bool, nil:
		return val, nil
	default:
		// Round-trip through JSON to reduce structs to the cases above.
		b, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("canonicalize: %w", err)
		}
		var decoded interface{}
		if err := json.Unmarshal(b, &decoded); err != nil {
			return nil, fmt.Errorf("canonicalize: %w", err)
		}
		return canonicalize(decoded)
	}
}
