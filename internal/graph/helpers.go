package graph

// ============================================================================
// Row Accessors
// ============================================================================

// String returns the row value for key as a string, or "" when the
// column is absent, null, or not a string.
func (r Row) String(key string) string {
	val, ok := r.Values[key]
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

// Int returns the row value for key as an int. The driver returns
// integers as int64.
func (r Row) Int(key string) int {
	return int(r.Int64(key))
}

// Int64 returns the row value for key as an int64.
func (r Row) Int64(key string) int64 {
	val, ok := r.Values[key]
	if !ok || val == nil {
		return 0
	}
	if i, ok := val.(int64); ok {
		return i
	}
	if i, ok := val.(int); ok {
		return int64(i)
	}
	return 0
}

// Float64 returns the row value for key as a float64.
func (r Row) Float64(key string) float64 {
	val, ok := r.Values[key]
	if !ok || val == nil {
		return 0.0
	}
	if f, ok := val.(float64); ok {
		return f
	}
	if i, ok := val.(int64); ok {
		return float64(i)
	}
	return 0.0
}

// Bool returns the row value for key as a bool.
func (r Row) Bool(key string) bool {
	val, ok := r.Values[key]
	if !ok || val == nil {
		return false
	}
	if b, ok := val.(bool); ok {
		return b
	}
	return false
}

// StringSlice returns the row value for key as a string slice.
func (r Row) StringSlice(key string) []string {
	val, ok := r.Values[key]
	if !ok || val == nil {
		return []string{}
	}
	if slice, ok := val.([]interface{}); ok {
		result := make([]string, 0, len(slice))
		for _, v := range slice {
			if str, ok := v.(string); ok {
				result = append(result, str)
			}
		}
		return result
	}
	return []string{}
}

// Map returns the row value for key as a nested map, such as the
// properties() projection of a relationship.
func (r Row) Map(key string) map[string]interface{} {
	val, ok := r.Values[key]
	if !ok || val == nil {
		return map[string]interface{}{}
	}
	if m, ok := val.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

// StringFromMap reads a string out of a nested map with a default.
func StringFromMap(m map[string]interface{}, key, defaultValue string) string {
	val, ok := m[key]
	if !ok || val == nil {
		return defaultValue
	}
	if str, ok := val.(string); ok {
		return str
	}
	return defaultValue
}

// Float64FromMap reads a float64 out of a nested map with a default.
func Float64FromMap(m map[string]interface{}, key string, defaultValue float64) float64 {
	val, ok := m[key]
	if !ok || val == nil {
		return defaultValue
	}
	if f, ok := val.(float64); ok {
		return f
	}
	if i, ok := val.(int64); ok {
		return float64(i)
	}
	return defaultValue
}
