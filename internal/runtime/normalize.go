package runtime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/aretw0/sieve/pkg/domain"
)

// normalize resolves an Input into the raw field map and the stored record
// to validate against.
func normalize(in domain.Input) (raw, base map[string]any, err error) {
	switch in.Kind() {
	case domain.InputPrior:
		if prior := in.Prior(); prior != nil {
			raw, base = prior.Raw, prior.Data
		}
	case domain.InputRecord:
		raw, err = recordToMap(in.Record())
		if err != nil {
			err = fmt.Errorf("cannot read record: %w", err)
		}
	default:
		raw = in.Params()
	}
	if b := in.Base(); b != nil {
		base = b
	}
	return raw, base, err
}

// recordToMap converts a typed value to a field map through its JSON
// encoding. Numbers are kept as json.Number so integers survive.
func recordToMap(v any) (map[string]any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("%T is not a record: %w", v, err)
	}
	return out, nil
}

// asMap returns v as a field map. Maps with string keys and structs are
// accepted.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		return m, true
	case *domain.Result:
		if m == nil {
			return nil, false
		}
		return m.Apply(), true
	}

	rv := reflect.Indirect(reflect.ValueOf(v))
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out, true
	case reflect.Struct:
		out, err := recordToMap(v)
		if err != nil || out == nil {
			return nil, false
		}
		return out, true
	default:
		return nil, false
	}
}

// asList returns v as a list of elements.
func asList(v any) ([]any, bool) {
	if l, ok := v.([]any); ok {
		return l, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
