package rules

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
)

// Kind names the shape of a normalized option value.
type Kind string

const (
	KindNull    Kind = "null"
	KindBool    Kind = "boolean"
	KindInteger Kind = "integer"
	KindNumber  Kind = "number"
	KindString  Kind = "string"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
	KindInvalid Kind = "invalid"
)

// KindOf reports the kind of a normalized value.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case int64:
		return KindInteger
	case float64:
		return KindNumber
	case string:
		return KindString
	case []any:
		return KindArray
	case map[string]any:
		return KindObject
	default:
		return KindInvalid
	}
}

// NormalizeValue converts a decoded value into its canonical form: nil, bool,
// int64, float64, string, []any or map[string]any. Integer types of every
// width become int64 and floating point types become float64. NaN, the
// infinities and any other type, including mappings with non-string keys,
// are rejected.
func NormalizeValue(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, string, int64:
		return x, nil
	case float64:
		return finite(x)
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint:
		return normalizeUint(uint64(x))
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return normalizeUint(x)
	case float32:
		return finite(float64(x))
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", x.String())
		}
		return finite(f)
	case *big.Int:
		if !x.IsInt64() {
			return nil, fmt.Errorf("integer %s overflows int64", x.String())
		}
		return x.Int64(), nil
	case *big.Float:
		f, _ := x.Float64()
		return finite(f)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			n, err := NormalizeValue(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			n, err := NormalizeValue(item)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = n
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("mapping key %v is not a string", k)
			}
			n, err := NormalizeValue(item)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			out[key] = n
		}
		return out, nil
	}

	// Typed slices and maps ([]string, map[string]int, ...) from hand-built
	// values are walked by reflection.
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return NormalizeValue(items)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("mapping key type %s is not a string", rv.Type().Key())
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return NormalizeValue(m)
	}

	return nil, fmt.Errorf("unsupported option value of type %T", v)
}

// finite rejects NaN and the infinities, which have no JSON encoding.
func finite(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("number %v is not finite", f)
	}
	return f, nil
}

func normalizeUint(u uint64) (any, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("integer %d overflows int64", u)
	}
	return int64(u), nil
}

// NormalizeOptions normalizes every element of an options sequence.
func NormalizeOptions(options []any) ([]any, error) {
	out := make([]any, len(options))
	for i, opt := range options {
		n, err := NormalizeValue(opt)
		if err != nil {
			return nil, fmt.Errorf("options[%d]: %w", i, err)
		}
		out[i] = n
	}
	return out, nil
}

// CopyValue returns a deep copy of a normalized value.
func CopyValue(v any) any {
	switch x := v.(type) {
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = CopyValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = CopyValue(item)
		}
		return out
	default:
		return x
	}
}

// EqualValues reports whether two normalized values are structurally equal.
// An int64 never equals a float64, matching the no-coercion rule.
func EqualValues(a, b any) bool {
	switch x := a.(type) {
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !EqualValues(x[i], y[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !EqualValues(xv, yv) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// FormatValue renders a normalized value as compact JSON with sorted keys.
func FormatValue(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
