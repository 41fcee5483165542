package cascade

import (
	"reflect"
	"strings"
)

// Gate reports whether a tier's Ok result r clears threshold.
//
// If threshold is nil, or r is not a structured value carrying a
// confidence/quality_score field, the gate always passes with score 1.0.
// Otherwise the gate examines r.confidence, preferring it over
// r.quality_score when both are present; a result exposes that value
// either as an exported struct field (matched case-insensitively) or as a
// map key. If the field exists but isn't numeric, the gate passes and
// score defaults to 1.0, but invalid is reported true so the caller can
// log it and count it as an invalid_quality_score occurrence.
func Gate(r any, threshold *float64) (passes bool, score float64, invalid bool) {
	if threshold == nil {
		return true, 1.0, false
	}

	val, found, numeric := extractScore(r)
	switch {
	case !found:
		return true, 1.0, false
	case !numeric:
		return true, 1.0, true
	default:
		return val >= *threshold, val, false
	}
}

func extractScore(r any) (value float64, found bool, numeric bool) {
	v := reflect.ValueOf(r)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return 0, false, false
		}
		v = v.Elem()
	}

	var field reflect.Value
	switch v.Kind() {
	case reflect.Struct:
		field = structField(v, "confidence")
		if !field.IsValid() {
			field = structField(v, "quality_score")
		}
	case reflect.Map:
		field = mapField(v, "confidence")
		if !field.IsValid() {
			field = mapField(v, "quality_score")
		}
	default:
		return 0, false, false
	}

	if !field.IsValid() {
		return 0, false, false
	}
	n, ok := asFloat(field)
	return n, true, ok
}

func structField(v reflect.Value, snakeName string) reflect.Value {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if strings.EqualFold(strings.ReplaceAll(f.Name, "_", ""), strings.ReplaceAll(snakeName, "_", "")) {
			return v.Field(i)
		}
		if tag := strings.Split(f.Tag.Get("json"), ",")[0]; strings.EqualFold(tag, snakeName) {
			return v.Field(i)
		}
	}
	return reflect.Value{}
}

func mapField(v reflect.Value, key string) reflect.Value {
	for _, k := range v.MapKeys() {
		if ks, ok := k.Interface().(string); ok && strings.EqualFold(ks, key) {
			return v.MapIndex(k)
		}
	}
	return reflect.Value{}
}

func asFloat(v reflect.Value) (float64, bool) {
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return 0, false
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	default:
		return 0, false
	}
}
