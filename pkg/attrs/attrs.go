// Package attrs reads values out of slog-style key-value attribute lists.
package attrs

// ExtractString returns the string value stored under key in a flat
// [key1, value1, key2, value2, ...] list. Missing keys and values that are
// not strings yield "".
func ExtractString(attrs []any, key string) string {
	for i := 0; i < len(attrs)-1; i += 2 {
		k, ok := attrs[i].(string)
		if !ok {
			continue
		}
		if k == key {
			if v, ok := attrs[i+1].(string); ok {
				return v
			}
		}
	}
	return ""
}
