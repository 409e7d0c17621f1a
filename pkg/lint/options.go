package lint

// Options holds the options configured for one rule. Values come from
// YAML, JSON or Go literals, so numbers may arrive as int, int64 or
// float64 and lists as []any.
type Options map[string]any

// GetOption returns the value at key if it has type T, else def.
func GetOption[T any](opts Options, key string, def T) T {
	v, ok := opts[key]
	if !ok {
		return def
	}
	if typed, ok := v.(T); ok {
		return typed
	}
	return def
}

// String returns a string option.
func (o Options) String(key, def string) string {
	return GetOption(o, key, def)
}

// Bool returns a bool option.
func (o Options) Bool(key string, def bool) bool {
	return GetOption(o, key, def)
}

// Int returns an integer option, accepting any numeric representation.
func (o Options) Int(key string, def int) int {
	switch n := o[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	default:
		return def
	}
}

// Strings returns a string list option. Non-string items are skipped.
func (o Options) Strings(key string, def []string) []string {
	switch s := o[key].(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return def
	}
}
