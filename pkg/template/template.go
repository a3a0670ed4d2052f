// Package template substitutes {{var}} placeholders in step configuration.
package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/Lazi-Labs/lazi-sub001/pkg/conditions"
)

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.\-]+)\s*\}\}`)

// Render replaces every {{path}} in input with the value found at that dot-path in data.
// Unresolved placeholders render as the empty string.
func Render(input string, data map[string]any) string {
	if !strings.Contains(input, "{{") {
		return input
	}

	return placeholder.ReplaceAllStringFunc(input, func(match string) string {
		path := placeholder.FindStringSubmatch(match)[1]

		value, ok := conditions.Lookup(data, path)
		if !ok || value == nil {
			return ""
		}

		return stringify(value)
	})
}

// RenderValue applies Render to every string inside maps and slices, leaving other values intact.
// A string made of a single placeholder keeps the referenced value's type.
func RenderValue(value any, data map[string]any) any {
	switch v := value.(type) {
	case string:
		if m := placeholder.FindStringSubmatch(v); m != nil && m[0] == strings.TrimSpace(v) {
			if resolved, ok := conditions.Lookup(data, m[1]); ok {
				return resolved
			}
		}

		return Render(v, data)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = RenderValue(item, data)
		}

		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = RenderValue(item, data)
		}

		return out
	default:
		return value
	}
}

// RenderStrings renders every value of a string map, as used for HTTP headers.
func RenderStrings(values map[string]string, data map[string]any) map[string]string {
	out := make(map[string]string, len(values))
	for key, value := range values {
		out[key] = Render(value, data)
	}

	return out
}

// Variables returns the distinct placeholder paths referenced by input.
func Variables(input string) []string {
	seen := map[string]bool{}

	var vars []string

	for _, m := range placeholder.FindAllStringSubmatch(input, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			vars = append(vars, m[1])
		}
	}

	return vars
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}

		return string(data)
	default:
		return fmt.Sprint(v)
	}
}
