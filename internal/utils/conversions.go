package utils

import "time"

// ToStringSlice converts a decoded JSON claim ([]any, []string or a single string) into strings.
func ToStringSlice(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return []string{t}
	case []string:
		return append([]string(nil), t...)
	case []any:
		stringSlice := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				stringSlice = append(stringSlice, s)
			}
		}
		return stringSlice
	}
	return nil
}

// ToUnixTime reads a numeric JWT date claim.
func ToUnixTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case float64:
		return time.Unix(int64(t), 0), true
	case int64:
		return time.Unix(t, 0), true
	case int:
		return time.Unix(int64(t), 0), true
	}
	return time.Time{}, false
}
