package pipeline

import (
	"reflect"
)

// combine folds two values recorded under the same result key by clones of
// a group stage, prev submitted before next. The rule is type-directed:
// slices concatenate, numbers sum, maps shallow-combine with next winning
// per key, anything else is last-writer-wins.
func combine(prev, next interface{}) interface{} {
	if prev == nil {
		return next
	}
	if next == nil {
		return prev
	}

	pv := reflect.ValueOf(prev)
	nv := reflect.ValueOf(next)

	switch {
	case pv.Kind() == reflect.Slice && nv.Kind() == reflect.Slice:
		return concatSlices(pv, nv)
	case isNumeric(pv.Kind()) && isNumeric(nv.Kind()):
		return sumNumbers(pv, nv)
	case pv.Kind() == reflect.Map && nv.Kind() == reflect.Map:
		return overlayMaps(pv, nv)
	default:
		return next
	}
}

// concatSlices appends next's elements after prev's. Identically typed
// slices keep their element type; mixed types degrade to []interface{}.
func concatSlices(pv, nv reflect.Value) interface{} {
	if pv.Type() == nv.Type() {
		out := reflect.MakeSlice(pv.Type(), 0, pv.Len()+nv.Len())
		out = reflect.AppendSlice(out, pv)
		out = reflect.AppendSlice(out, nv)
		return out.Interface()
	}

	out := make([]interface{}, 0, pv.Len()+nv.Len())
	for i := 0; i < pv.Len(); i++ {
		out = append(out, pv.Index(i).Interface())
	}
	for i := 0; i < nv.Len(); i++ {
		out = append(out, nv.Index(i).Interface())
	}
	return out
}

// sumNumbers adds two numeric values. Integer-only sums stay int; any
// float operand promotes the sum to float64.
func sumNumbers(pv, nv reflect.Value) interface{} {
	if isFloat(pv.Kind()) || isFloat(nv.Kind()) {
		return asFloat(pv) + asFloat(nv)
	}
	return int(asInt(pv) + asInt(nv))
}

// overlayMaps shallow-combines two maps: prev's entries first, next's
// entries overwriting on key conflict. Identically typed maps keep their
// type; mixed types degrade to map[string]interface{} keyed by the
// stringified keys.
func overlayMaps(pv, nv reflect.Value) interface{} {
	if pv.Type() == nv.Type() {
		out := reflect.MakeMapWithSize(pv.Type(), pv.Len()+nv.Len())
		for _, k := range pv.MapKeys() {
			out.SetMapIndex(k, pv.MapIndex(k))
		}
		for _, k := range nv.MapKeys() {
			out.SetMapIndex(k, nv.MapIndex(k))
		}
		return out.Interface()
	}

	out := make(map[string]interface{}, pv.Len()+nv.Len())
	writeStringKeyed(out, pv)
	writeStringKeyed(out, nv)
	return out
}

func writeStringKeyed(out map[string]interface{}, mv reflect.Value) {
	for _, k := range mv.MapKeys() {
		if k.Kind() == reflect.String {
			out[k.String()] = mv.MapIndex(k).Interface()
		}
	}
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func asInt(v reflect.Value) int64 {
	switch v.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(v.Uint())
	default:
		return v.Int()
	}
}

func asFloat(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	default:
		return float64(v.Int())
	}
}
