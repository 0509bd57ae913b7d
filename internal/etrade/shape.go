package etrade

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// The E*TRADE API nests payloads under response-type keys and sometimes
// returns a single object where the schema promises an array. These helpers
// absorb both quirks.

func child(data map[string]any, key string) map[string]any {
	if m, ok := data[key].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// objects normalizes a value that is either a JSON array of objects or a
// bare object into a slice.
func objects(v any) []map[string]any {
	switch t := v.(type) {
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	case map[string]any:
		return []map[string]any{t}
	default:
		return nil
	}
}

func str(data map[string]any, key string) string {
	if s, ok := data[key].(string); ok {
		return s
	}
	return ""
}

func intPtr(data map[string]any, key string) *int64 {
	v, ok := data[key]
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case float64:
		n := int64(t)
		return &n
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return &n
		}
	}
	return nil
}

// dec extracts a monetary value, tolerating numbers and numeric strings.
// Missing or unparseable values decode to nil rather than failing the call.
func dec(data map[string]any, key string) *decimal.Decimal {
	v, ok := data[key]
	if !ok || v == nil {
		return nil
	}
	d, err := decimal.NewFromString(fmt.Sprint(v))
	if err != nil {
		return nil
	}
	return &d
}

func decOrZero(data map[string]any, key string) decimal.Decimal {
	if d := dec(data, key); d != nil {
		return *d
	}
	return decimal.Zero
}
