package pkg

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

var globalAliases = []string{"", "all", "global"}

// IsGlobal reports whether country names the worldwide aggregate.
func IsGlobal(country string) bool {
	return IsStringInlist(globalAliases, strings.ToLower(strings.TrimSpace(country)))
}

func IsStringInlist(items []string, val string) bool {
	for _, item := range items {
		if item == val {
			return true
		}
	}
	return false
}

// GroupByKey indexes archived documents by the value stored under key.
func GroupByKey(entities []map[string]interface{}, key string) (map[string]interface{}, error) {
	result := make(map[string]interface{}, len(entities))
	for _, entity := range entities {
		keyVal, ok := entity[key].(string)
		if !ok {
			return nil, fmt.Errorf("failed to find %s key", key)
		}
		result[keyVal] = entity
	}
	return result, nil
}

// objectKeys returns the keys of a JSON object in document order.
func objectKeys(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// parseCounter reads a best effort numeric value. null counts as zero,
// numeric strings are accepted and anything else is dropped.
func parseCounter(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	if bytes.Equal(raw, []byte("null")) {
		return 0, true
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return n, true
		}
	}
	return 0, false
}
