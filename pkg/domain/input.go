package domain

import "github.com/aretw0/sieve/pkg/schema"

// Binding is a name/value pair made visible to rule clauses.
type Binding = schema.Binding

// Bind creates a Binding.
func Bind(name string, value any) Binding { return schema.Bind(name, value) }

// BindMap converts a map into bindings ordered by key.
func BindMap(m map[string]any) []Binding {
	keys := sortedKeys(m)
	out := make([]Binding, 0, len(keys))
	for _, k := range keys {
		out = append(out, Bind(k, m[k]))
	}
	return out
}

// InputKind identifies the variant held by an Input.
type InputKind int

const (
	InputParams InputKind = iota // A raw field map
	InputPrior                   // A Result from an earlier pass
	InputRecord                  // A typed Go value
)

func (k InputKind) String() string {
	switch k {
	case InputPrior:
		return "prior"
	case InputRecord:
		return "record"
	default:
		return "params"
	}
}

// Input is what gets validated. It is a closed union built with Params, Prior
// or Record.
type Input struct {
	kind   InputKind
	params map[string]any
	prior  *Result
	record any
	base   map[string]any
}

// Params wraps a raw field map, such as a decoded JSON object.
func Params(m map[string]any) Input {
	return Input{kind: InputParams, params: m}
}

// Prior wraps a Result from an earlier pass. Its raw input and stored record
// are reused, which makes re-validation idempotent.
func Prior(r *Result) Input {
	return Input{kind: InputPrior, prior: r}
}

// Record wraps a typed Go value (a struct or a pointer to one). It is read
// through its JSON encoding, so json tags name the fields.
func Record(v any) Input {
	return Input{kind: InputRecord, record: v}
}

// WithBase attaches the stored record being re-validated. Changes are only
// recorded for values that differ from it.
func (in Input) WithBase(base map[string]any) Input {
	in.base = base
	return in
}

// Kind returns the variant.
func (in Input) Kind() InputKind { return in.kind }

// Params returns the raw map of an InputParams.
func (in Input) Params() map[string]any { return in.params }

// Prior returns the Result of an InputPrior.
func (in Input) Prior() *Result { return in.prior }

// Record returns the value of an InputRecord.
func (in Input) Record() any { return in.record }

// Base returns the attached stored record, if any.
func (in Input) Base() map[string]any { return in.base }
