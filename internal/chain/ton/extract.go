package ton

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ecency/vision-api/internal/numeric"
)

// balanceFields is the ordered list of field names providers have been seen
// using for an address balance. The list is data, not control flow, so
// adding a newly observed field name is a one-line change.
var balanceFields = []string{
	"balance",
	"result",
	"address_balance",
	"account_balance",
	"available_balance",
}

// extractBalance walks a provider payload for the first structurally valid
// balance value, trying each candidate field in order. One level of
// object/array nesting is tolerated because providers disagree about
// envelope shape.
func extractBalance(payload []byte) (string, error) {
	// UseNumber keeps large balances out of float64, which would corrupt
	// them above 2^53 nanotons.
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return "", fmt.Errorf("unmarshal provider payload: %w", err)
	}

	for _, field := range balanceFields {
		if value, ok := findField(doc, field, 2); ok {
			if normalized, err := normalizeValue(value); err == nil {
				return normalized, nil
			}
		}
	}
	return "", fmt.Errorf("no balance field found in provider payload")
}

// findField looks for key at the top level of doc, descending at most depth
// levels through objects and arrays.
func findField(doc interface{}, key string, depth int) (interface{}, bool) {
	if depth < 0 {
		return nil, false
	}
	switch v := doc.(type) {
	case map[string]interface{}:
		if value, ok := v[key]; ok {
			return value, true
		}
		for _, child := range v {
			if value, ok := findField(child, key, depth-1); ok {
				return value, true
			}
		}
	case []interface{}:
		for _, child := range v {
			if value, ok := findField(child, key, depth-1); ok {
				return value, true
			}
		}
	}
	return nil, false
}

// normalizeValue turns a candidate balance value into a plain integer
// nanoton string. Strings and numbers qualify; fractional values and
// anything else are rejected so the walk continues to the next candidate.
func normalizeValue(value interface{}) (string, error) {
	var text string
	switch v := value.(type) {
	case string:
		text = v
	case json.Number:
		text = v.String()
	default:
		return "", fmt.Errorf("unsupported balance value type %T", value)
	}

	plain, err := numeric.NormalizeScientificOrPlain(text)
	if err != nil {
		return "", err
	}
	// Nanotons are already base units, so a fractional part means the
	// field holds something other than a balance.
	return numeric.DecimalToScaledInteger(plain, 0)
}
