// Package mapsafe reads engine parameters decoded from YAML, TOML or JSON.
package mapsafe

// Get returns m[key] converted to T, or def when the key is missing or the
// value cannot be converted. Numbers convert between int and float64
// regardless of which decoder produced them.
func Get[T any](m map[string]any, key string, def T) T {
	val, ok := m[key]
	if !ok || val == nil {
		return def
	}

	switch any(def).(type) {
	case int:
		if n, ok := number(val); ok {
			return any(int(n)).(T)
		}
	case float64:
		if n, ok := number(val); ok {
			return any(n).(T)
		}
	default:
		if v, ok := val.(T); ok {
			return v
		}
	}
	return def
}

// number widens the numeric types the config decoders emit.
func number(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}
