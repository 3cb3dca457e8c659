package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

// Result is the outcome of one validation pass.
//
// Changes maps field names to newly cast values. Embedded fields map to a
// nested *Result (or []*Result for lists of embeds), and their errors stay on
// the nested Result. A Result is owned by the call that produced it and is
// never shared.
type Result struct {
	// Schema is the name of the descriptor applied.
	Schema string
	// Raw is the normalized input the pass ran on.
	Raw map[string]any
	// Data holds the pre-existing values: defaults merged with any stored
	// record being re-validated.
	Data map[string]any
	// Changes holds the cast values that differ from Data.
	Changes map[string]any
	// Errors are ordered by field declaration, then clause index.
	Errors []Error
	// Required reports whether the parent requires this embedded record.
	Required bool
}

// Valid reports whether the result and every embedded result have no errors.
func (r *Result) Valid() bool {
	if len(r.Errors) > 0 {
		return false
	}
	for _, v := range r.Changes {
		switch nested := v.(type) {
		case *Result:
			if nested != nil && !nested.Valid() {
				return false
			}
		case []*Result:
			for _, n := range nested {
				if n != nil && !n.Valid() {
					return false
				}
			}
		}
	}
	return true
}

// Invalid is the negation of Valid.
func (r *Result) Invalid() bool { return !r.Valid() }

// Get returns the current value of a field: its change if any, otherwise its
// pre-existing value.
func (r *Result) Get(field string) (any, bool) {
	if v, ok := r.Changes[field]; ok {
		return v, true
	}
	v, ok := r.Data[field]
	return v, ok
}

// Changed reports whether the pass recorded a change for field.
func (r *Result) Changed(field string) bool {
	_, ok := r.Changes[field]
	return ok
}

// ErrorsOn returns the errors recorded for field on this result.
func (r *Result) ErrorsOn(field string) []Error {
	var out []Error
	for _, e := range r.Errors {
		if e.Field == field {
			out = append(out, e)
		}
	}
	return out
}

// Apply returns the pre-existing values merged with the changes. Embedded
// results are applied recursively.
func (r *Result) Apply() map[string]any {
	out := make(map[string]any, len(r.Data)+len(r.Changes))
	for k, v := range r.Data {
		out[k] = v
	}
	for k, v := range r.Changes {
		switch nested := v.(type) {
		case *Result:
			if nested == nil {
				out[k] = nil
				continue
			}
			out[k] = nested.Apply()
		case []*Result:
			list := make([]map[string]any, 0, len(nested))
			for _, n := range nested {
				if n != nil {
					list = append(list, n.Apply())
				}
			}
			out[k] = list
		default:
			out[k] = v
		}
	}
	return out
}

// Violation is an error flattened out of a result tree.
type Violation struct {
	// Path is the dotted location of the field, e.g. "address.zip" or
	// "phones.1.number". Lists of embeds use 0-based indexes.
	Path string `json:"path"`
	Error
}

// Traverse returns every error in the tree. A result's own errors come first,
// then those of its embedded results ordered by field name.
func (r *Result) Traverse() []Violation {
	var out []Violation
	r.traverse("", &out)
	return out
}

func (r *Result) traverse(prefix string, out *[]Violation) {
	for _, e := range r.Errors {
		*out = append(*out, Violation{Path: joinPath(prefix, e.Field), Error: e})
	}
	for _, k := range sortedKeys(r.Changes) {
		switch nested := r.Changes[k].(type) {
		case *Result:
			if nested != nil {
				nested.traverse(joinPath(prefix, k), out)
			}
		case []*Result:
			for i, n := range nested {
				if n != nil {
					n.traverse(joinPath(joinPath(prefix, k), strconv.Itoa(i)), out)
				}
			}
		}
	}
}

// ErrorCounts counts the errors in the tree by kind.
func (r *Result) ErrorCounts() map[ErrorKind]int {
	counts := make(map[ErrorKind]int)
	for _, v := range r.Traverse() {
		counts[v.Kind]++
	}
	return counts
}

// Materialize decodes the applied record into out, which must be a pointer
// to a struct or map. Struct fields are matched by their json tags. It fails
// with ErrInvalidResult when the result has errors.
func (r *Result) Materialize(out any) error {
	if r.Invalid() {
		return ErrInvalidResult
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		ZeroFields:       true,
		WeaklyTypedInput: false,
	})
	if err != nil {
		return fmt.Errorf("materialize %s: %w", r.Schema, err)
	}
	if err := dec.Decode(r.Apply()); err != nil {
		return fmt.Errorf("materialize %s: %w", r.Schema, err)
	}
	return nil
}

// MarshalJSON serializes the result as
// {"schema", "valid", "changes", "errors"}.
func (r *Result) MarshalJSON() ([]byte, error) {
	errs := r.Errors
	if errs == nil {
		errs = []Error{}
	}
	changes := r.Changes
	if changes == nil {
		changes = map[string]any{}
	}
	return json.Marshal(struct {
		Schema  string         `json:"schema,omitempty"`
		Valid   bool           `json:"valid"`
		Changes map[string]any `json:"changes"`
		Errors  []Error        `json:"errors"`
	}{r.Schema, r.Valid(), changes, errs})
}

func joinPath(prefix, name string) string {
	switch {
	case prefix == "":
		return name
	case name == "":
		return prefix
	default:
		return prefix + "." + name
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
