package config

import "fmt"

// StringSlice converts a decoded section value into []string. JSON
// decoding yields []interface{}, in-memory sections hold []string.
func StringSlice(v interface{}) ([]string, error) {
	switch values := v.(type) {
	case nil:
		return nil, nil
	case []string:
		out := make([]string, len(values))
		copy(out, values)
		return out, nil
	case []interface{}:
		out := make([]string, 0, len(values))
		for i, item := range values {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("invalid item at index %d: expected string, got %T", i, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected list of strings, got %T", v)
	}
}

// StringMap converts a decoded section value into map[string]string.
func StringMap(v interface{}) (map[string]string, error) {
	switch values := v.(type) {
	case nil:
		return map[string]string{}, nil
	case map[string]string:
		out := make(map[string]string, len(values))
		for k, val := range values {
			out[k] = val
		}
		return out, nil
	case map[string]interface{}:
		out := make(map[string]string, len(values))
		for k, item := range values {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("invalid value for %q: expected string, got %T", k, item)
			}
			out[k] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected map of strings, got %T", v)
	}
}

// BoolMap converts a decoded section value into map[string]bool.
func BoolMap(v interface{}) (map[string]bool, error) {
	switch values := v.(type) {
	case nil:
		return map[string]bool{}, nil
	case map[string]bool:
		out := make(map[string]bool, len(values))
		for k, val := range values {
			out[k] = val
		}
		return out, nil
	case map[string]interface{}:
		out := make(map[string]bool, len(values))
		for k, item := range values {
			b, ok := item.(bool)
			if !ok {
				return nil, fmt.Errorf("invalid value for %q: expected bool, got %T", k, item)
			}
			out[k] = b
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected map of booleans, got %T", v)
	}
}

// Int converts a decoded numeric section value. JSON numbers decode as
// float64.
func Int(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}
