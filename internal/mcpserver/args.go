package mcpserver

import (
	"math"
	"strings"

	"github.com/chatwise-tools/chatwise-mcp/internal/apperr"
)

// Arguments arrive as decoded JSON: numbers are float64 and arrays []any.
// Tests and in-process callers may pass int and []string as well.

func optString(op string, args map[string]any, key string) (string, bool, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, apperr.InvalidArgument(op, "%s must be a string", key)
	}
	return s, true, nil
}

func optBool(op string, args map[string]any, key string, def bool) (bool, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return def, apperr.InvalidArgument(op, "%s must be a boolean", key)
	}
	return b, nil
}

func optInt(op string, args map[string]any, key string, def int) (int, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return def, apperr.InvalidArgument(op, "%s must be an integer", key)
		}
		if n >= math.MaxInt64 || n < math.MinInt64 {
			return def, apperr.InvalidArgument(op, "%s is out of range", key)
		}
		return int(n), nil
	}
	return def, apperr.InvalidArgument(op, "%s must be a number", key)
}

// optStrings reads a string array. Elements are trimmed and blanks dropped.
func optStrings(op string, args map[string]any, key string) ([]string, error) {
	raw, err := optRawStrings(op, args, key)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// optRawStrings reads a string array as given, blanks included.
func optRawStrings(op string, args map[string]any, key string) ([]string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return nil, nil
	}
	var raw []string
	switch list := v.(type) {
	case []string:
		raw = list
	case []any:
		raw = make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, apperr.InvalidArgument(op, "%s must contain only strings", key)
			}
			raw = append(raw, s)
		}
	default:
		return nil, apperr.InvalidArgument(op, "%s must be an array of strings", key)
	}
	return raw, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
