package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// buildInputs assembles the workflow input document from an optional JSON
// file plus -p key=value overrides. Param keys use dot notation for nesting
// and values are JSON-parsed when possible, falling back to plain strings.
func buildInputs(inputFile string, params []string) (map[string]any, error) {
	inputs := map[string]any{}

	if inputFile != "" {
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return nil, fmt.Errorf("reading input file: %w", err)
		}
		if err := json.Unmarshal(data, &inputs); err != nil {
			return nil, fmt.Errorf("parsing input file %s: %w", inputFile, err)
		}
	}

	for _, param := range params {
		key, value, err := parseParam(param)
		if err != nil {
			return nil, err
		}
		setNested(inputs, strings.Split(key, "."), value)
	}

	return inputs, nil
}

func parseParam(param string) (string, any, error) {
	key, raw, found := strings.Cut(param, "=")
	if !found || key == "" {
		return "", nil, fmt.Errorf("invalid param %q: use key=value or key.subkey=value", param)
	}

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		value = raw
	}
	return key, value, nil
}

// setNested sets a value in a nested map, creating intermediate maps as
// needed. A non-map intermediate value is replaced.
func setNested(m map[string]any, keys []string, value any) {
	for _, key := range keys[:len(keys)-1] {
		next, ok := m[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[key] = next
		}
		m = next
	}
	m[keys[len(keys)-1]] = value
}
