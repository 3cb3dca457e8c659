package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"
	"golang.org/x/text/unicode/norm"
)

// Type defines the contract for casting a raw value to a declared field type.
type Type interface {
	// Name returns the type string of the type (e.g., "string", "[int]").
	Name() string
	// Cast coerces value to this type. A nil result with a nil error means
	// the value is null.
	Cast(value any) (any, error)
}

// DateLayout is the layout accepted and produced by the date type.
const DateLayout = "2006-01-02"

// --- Built-in Type Implementations ---

// StringType casts string values.
type StringType struct {
	trim bool
	nfc  bool
}

func (t *StringType) Name() string { return "string" }

func (t *StringType) Cast(value any) (any, error) {
	var s string
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return nil, castError(t, value, "")
	}
	if t.trim {
		s = strings.TrimSpace(s)
	}
	if t.nfc {
		s = norm.NFC.String(s)
	}
	return s, nil
}

// Trimmed returns a copy of the type that strips surrounding whitespace.
func (t *StringType) Trimmed() *StringType {
	c := *t
	c.trim = true
	return &c
}

// NFC returns a copy of the type that normalizes values to Unicode NFC, so
// that visually identical inputs compare equal.
func (t *StringType) NFC() *StringType {
	c := *t
	c.nfc = true
	return &c
}

// IntType casts integer values.
type IntType struct{}

func (t *IntType) Name() string { return "int" }

func (t *IntType) Cast(value any) (any, error) {
	if isBlank(value) {
		return nil, nil
	}
	switch v := value.(type) {
	case bool:
		return nil, castError(t, value, "")
	case int:
		return v, nil
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		i, err := cast.ToIntE(v)
		if err != nil {
			return nil, castError(t, value, err.Error())
		}
		return i, nil
	case float32:
		return wholeInt(t, float64(v), value)
	case float64:
		return wholeInt(t, v, value)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i), nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, castError(t, value, "")
		}
		return wholeInt(t, f, value)
	case string:
		s := strings.TrimSpace(v)
		if i, err := strconv.ParseInt(s, 10, 0); err == nil {
			return int(i), nil
		}
		// Accept "5.0" style values, reject "5.5".
		f, err := cast.ToFloat64E(s)
		if err != nil {
			return nil, castError(t, value, "")
		}
		return wholeInt(t, f, value)
	default:
		return nil, castError(t, value, "")
	}
}

func wholeInt(t Type, f float64, original any) (any, error) {
	if f != float64(int64(f)) {
		return nil, castError(t, original, "not a whole number")
	}
	return int(f), nil
}

// FloatType casts floating-point values.
type FloatType struct{}

func (t *FloatType) Name() string { return "float" }

func (t *FloatType) Cast(value any) (any, error) {
	if isBlank(value) {
		return nil, nil
	}
	switch v := value.(type) {
	case bool:
		return nil, castError(t, value, "")
	case string:
		f, err := cast.ToFloat64E(strings.TrimSpace(v))
		if err != nil {
			return nil, castError(t, value, "")
		}
		return f, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, castError(t, value, "")
		}
		return f, nil
	case float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, castError(t, value, err.Error())
		}
		return f, nil
	default:
		return nil, castError(t, value, "")
	}
}

// BoolType casts boolean values. Strings such as "true", "false", "1" and
// "0" are accepted.
type BoolType struct{}

func (t *BoolType) Name() string { return "bool" }

func (t *BoolType) Cast(value any) (any, error) {
	if isBlank(value) {
		return nil, nil
	}
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := cast.ToBoolE(strings.TrimSpace(v))
		if err != nil {
			return nil, castError(t, value, "")
		}
		return b, nil
	default:
		return nil, castError(t, value, "")
	}
}

// TimeType casts timestamps given as time.Time or RFC 3339 strings.
type TimeType struct{}

func (t *TimeType) Name() string { return "time" }

func (t *TimeType) Cast(value any) (any, error) {
	if isBlank(value) {
		return nil, nil
	}
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		return *v, nil
	case string:
		ts, err := time.Parse(time.RFC3339, strings.TrimSpace(v))
		if err != nil {
			return nil, castError(t, value, "expected RFC 3339 timestamp")
		}
		return ts, nil
	default:
		return nil, castError(t, value, "")
	}
}

// DateType casts calendar dates given as time.Time or "YYYY-MM-DD" strings.
// The result is midnight UTC of that date.
type DateType struct{}

func (t *DateType) Name() string { return "date" }

func (t *DateType) Cast(value any) (any, error) {
	if isBlank(value) {
		return nil, nil
	}
	switch v := value.(type) {
	case time.Time:
		y, m, d := v.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	case string:
		s := strings.TrimSpace(v)
		if d, err := time.Parse(DateLayout, s); err == nil {
			return d, nil
		}
		// Encoded time.Time values keep only their date.
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, castError(t, value, "expected YYYY-MM-DD")
		}
		y, m, d := ts.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	default:
		return nil, castError(t, value, "")
	}
}

// UUIDType casts UUIDs given as strings or uuid.UUID values.
type UUIDType struct{}

func (t *UUIDType) Name() string { return "uuid" }

func (t *UUIDType) Cast(value any) (any, error) {
	if isBlank(value) {
		return nil, nil
	}
	switch v := value.(type) {
	case uuid.UUID:
		return v, nil
	case [16]byte:
		return uuid.UUID(v), nil
	case string:
		id, err := uuid.Parse(strings.TrimSpace(v))
		if err != nil {
			return nil, castError(t, value, err.Error())
		}
		return id, nil
	default:
		return nil, castError(t, value, "")
	}
}

// EnumType casts strings restricted to a fixed set of values.
type EnumType struct {
	values []string
}

func (t *EnumType) Name() string {
	return fmt.Sprintf("enum(%s)", strings.Join(t.values, ","))
}

// Values returns the allowed values in declaration order.
func (t *EnumType) Values() []string {
	return append([]string(nil), t.values...)
}

func (t *EnumType) Cast(value any) (any, error) {
	if isBlank(value) {
		return nil, nil
	}
	s, ok := value.(string)
	if !ok {
		return nil, castError(t, value, "")
	}
	s = strings.TrimSpace(s)
	for _, allowed := range t.values {
		if s == allowed {
			return s, nil
		}
	}
	return nil, castError(t, value, fmt.Sprintf("%q is not one of %s", s, strings.Join(t.values, ", ")))
}

// SliceType casts homogeneous lists. The result is always []any.
type SliceType struct {
	elemType Type
}

func (t *SliceType) Name() string {
	return fmt.Sprintf("[%s]", t.elemType.Name())
}

// Elem returns the element type.
func (t *SliceType) Elem() Type { return t.elemType }

func (t *SliceType) Cast(value any) (any, error) {
	if isBlank(value) {
		return nil, nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, castError(t, value, "")
	}

	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elem, err := t.elemType.Cast(rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = elem
	}
	return out, nil
}

// MapType casts string-keyed maps with homogeneous values. The result is
// always map[string]any.
type MapType struct {
	elemType Type
}

func (t *MapType) Name() string {
	return fmt.Sprintf("{%s}", t.elemType.Name())
}

// Elem returns the value type.
func (t *MapType) Elem() Type { return t.elemType }

func (t *MapType) Cast(value any) (any, error) {
	if isBlank(value) {
		return nil, nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, castError(t, value, "")
	}

	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key := iter.Key().String()
		elem, err := t.elemType.Cast(iter.Value().Interface())
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		out[key] = elem
	}
	return out, nil
}

// AnyType accepts every value unchanged.
type AnyType struct{}

func (t *AnyType) Name() string { return "any" }

func (t *AnyType) Cast(value any) (any, error) { return value, nil }

// CustomType applies a user-defined cast function.
type CustomType struct {
	name string
	cast func(any) (any, error)
}

func (t *CustomType) Name() string { return t.name }

func (t *CustomType) Cast(value any) (any, error) {
	return t.cast(value)
}

// --- Factory Functions ---

// String creates a string type.
func String() *StringType { return &StringType{} }

// Int creates an integer type.
func Int() Type { return &IntType{} }

// Float creates a float type.
func Float() Type { return &FloatType{} }

// Bool creates a boolean type.
func Bool() Type { return &BoolType{} }

// Time creates a timestamp type.
func Time() Type { return &TimeType{} }

// Date creates a calendar date type.
func Date() Type { return &DateType{} }

// UUID creates a UUID type.
func UUID() Type { return &UUIDType{} }

// Any creates a pass-through type.
func Any() Type { return &AnyType{} }

// Enum creates an enumeration of the given string values.
func Enum(values ...string) Type {
	return &EnumType{values: append([]string(nil), values...)}
}

// Slice creates a list type for elements of the given type.
func Slice(elemType Type) Type {
	return &SliceType{elemType: elemType}
}

// Map creates a string-keyed map type for values of the given type.
func Map(elemType Type) Type {
	return &MapType{elemType: elemType}
}

// Custom creates a type backed by a user-defined cast function.
func Custom(name string, cast func(any) (any, error)) Type {
	return &CustomType{name: name, cast: cast}
}

// ParseType converts a type string to a Type.
// Supports "string", "int", "float", "bool", "time", "date", "uuid", "any",
// lists "[T]", maps "{T}" and enumerations "enum(a,b,c)".
func ParseType(typeStr string) (Type, error) {
	typeStr = strings.TrimSpace(typeStr)

	// Handle list types: [string], [[int]], etc.
	if len(typeStr) > 2 && typeStr[0] == '[' && typeStr[len(typeStr)-1] == ']' {
		elemType, err := ParseType(typeStr[1 : len(typeStr)-1])
		if err != nil {
			return nil, err
		}
		return Slice(elemType), nil
	}

	// Handle map types: {string}, {[int]}, etc.
	if len(typeStr) > 2 && typeStr[0] == '{' && typeStr[len(typeStr)-1] == '}' {
		elemType, err := ParseType(typeStr[1 : len(typeStr)-1])
		if err != nil {
			return nil, err
		}
		return Map(elemType), nil
	}

	if strings.HasPrefix(typeStr, "enum(") && strings.HasSuffix(typeStr, ")") {
		var values []string
		for _, v := range strings.Split(typeStr[len("enum("):len(typeStr)-1], ",") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("%w: %s has no values", ErrUnknownType, typeStr)
		}
		return Enum(values...), nil
	}

	switch typeStr {
	case "string":
		return String(), nil
	case "int":
		return Int(), nil
	case "float":
		return Float(), nil
	case "bool":
		return Bool(), nil
	case "time":
		return Time(), nil
	case "date":
		return Date(), nil
	case "uuid":
		return UUID(), nil
	case "any":
		return Any(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typeStr)
	}
}

// ParseTypeMap converts a map of field names to type strings into types.
// Example: {"api_key": "string", "retries": "int"}
func ParseTypeMap(typeMap map[string]string) (map[string]Type, error) {
	result := make(map[string]Type, len(typeMap))
	for key, typeStr := range typeMap {
		t, err := ParseType(typeStr)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		result[key] = t
	}
	return result, nil
}

// isBlank reports whether value is null, or a string that only holds
// whitespace. Every type except string treats such values as null.
func isBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	default:
		return false
	}
}
