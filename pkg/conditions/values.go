package conditions

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// number converts Go and JSON numeric kinds to float64. Strings are not numbers here.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()

		return f, err == nil
	default:
		return 0, false
	}
}

// numeric is number plus strings that parse as numbers.
func numeric(v any) (float64, bool) {
	if f, ok := number(v); ok {
		return f, true
	}

	s, ok := v.(string)
	if !ok {
		return 0, false
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)

	return f, err == nil
}

func stringValue(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case nil:
		return "", false
	default:
		if _, ok := number(v); ok {
			return fmt.Sprint(v), true
		}

		return "", false
	}
}

// Lookup resolves a dot-path such as "customer.address.city" or "items.0.sku" against data.
// An exact key match wins over path splitting.
func Lookup(data map[string]any, path string) (any, bool) {
	if data == nil || path == "" {
		return nil, false
	}

	if v, ok := data[path]; ok {
		return v, true
	}

	var current any = data

	for _, part := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[part]
			if !ok {
				return nil, false
			}

			current = next
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}

			current = node[idx]
		default:
			return nil, false
		}
	}

	return current, true
}
