package schema

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// NullPolicy decides what an explicit null means for a field.
type NullPolicy int

const (
	// NullAsValue treats an explicit null as a real value. It clears any
	// default or stored value and counts as empty for required checks.
	NullAsValue NullPolicy = iota
	// NullAsAbsent treats an explicit null exactly like a missing key.
	NullAsAbsent
)

func (p NullPolicy) String() string {
	if p == NullAsAbsent {
		return "absent"
	}
	return "value"
}

// ParseNullPolicy parses "value" or "absent". The empty string is NullAsValue.
func ParseNullPolicy(s string) (NullPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "value":
		return NullAsValue, nil
	case "absent":
		return NullAsAbsent, nil
	default:
		return NullAsValue, fmt.Errorf("%w: unknown null policy %q", ErrInvalidField, s)
	}
}

// FieldSpec declares one field of a record.
//
// Exactly one of Type and Embed is set. Many turns an embed into a list of
// embedded records.
type FieldSpec struct {
	Name    string
	Type    Type
	Embed   *Descriptor
	Many    bool
	Default any
	Nulls   NullPolicy
}

// IsEmbed reports whether the field holds an embedded record.
func (f FieldSpec) IsEmbed() bool { return f.Embed != nil }

// TypeName returns the declared type string. Embeds are named after their
// descriptor, lists of embeds as "[name]".
func (f FieldSpec) TypeName() string {
	switch {
	case f.Embed != nil && f.Many:
		return "[" + f.Embed.Name() + "]"
	case f.Embed != nil:
		return f.Embed.Name()
	case f.Type != nil:
		return f.Type.Name()
	default:
		return ""
	}
}

// Rule is an "invalid when" clause: when Condition evaluates truthy the field
// gets an error carrying the evaluated Message.
type Rule struct {
	Condition Expr
	Message   Expr
}

// RuleClause is a Rule bound to its 1-based position in a field's rule list.
type RuleClause struct {
	Index     int
	Condition Expr
	Message   Expr
}

// Definition is the input to NewDescriptor.
type Definition struct {
	Name     string
	Fields   []FieldSpec
	Required []string
	Rules    map[string][]Rule
}

// Descriptor is the validated, immutable description of a record.
type Descriptor struct {
	name     string
	fields   []FieldSpec
	index    map[string]int
	required map[string]bool
	rules    map[string][]RuleClause
	defaults map[string]any
}

// NewDescriptor validates def and builds a Descriptor from it. Every defect
// is reported, wrapped in an *AggregateError of *DefinitionError values.
func NewDescriptor(def Definition) (*Descriptor, error) {
	d := &Descriptor{
		name:     def.Name,
		fields:   make([]FieldSpec, 0, len(def.Fields)),
		index:    make(map[string]int, len(def.Fields)),
		required: make(map[string]bool, len(def.Required)),
		rules:    make(map[string][]RuleClause),
		defaults: make(map[string]any),
	}

	var errs []error
	fail := func(field string, err error) {
		errs = append(errs, &DefinitionError{Schema: def.Name, Field: field, Err: err})
	}

	for _, f := range def.Fields {
		if strings.TrimSpace(f.Name) == "" {
			fail("", fmt.Errorf("%w: field name is empty", ErrInvalidField))
			continue
		}
		if _, dup := d.index[f.Name]; dup {
			fail(f.Name, ErrDuplicateField)
			continue
		}
		if err := checkField(f); err != nil {
			fail(f.Name, err)
			continue
		}
		if f.Default != nil {
			v, err := f.Type.Cast(f.Default)
			if err != nil {
				fail(f.Name, fmt.Errorf("%w: default: %w", ErrInvalidField, err))
				continue
			}
			f.Default = v
			d.defaults[f.Name] = v
		}
		d.index[f.Name] = len(d.fields)
		d.fields = append(d.fields, f)
	}

	for _, name := range def.Required {
		if _, ok := d.index[name]; !ok {
			fail(name, fmt.Errorf("%w: required", ErrUnknownField))
			continue
		}
		d.required[name] = true
	}

	names := make([]string, 0, len(def.Rules))
	for name := range def.Rules {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := d.index[name]; !ok {
			fail(name, fmt.Errorf("%w: rules", ErrUnknownField))
			continue
		}
		clauses := make([]RuleClause, 0, len(def.Rules[name]))
		for i, r := range def.Rules[name] {
			if r.Condition.IsZero() {
				fail(name, fmt.Errorf("%w: clause %d", ErrEmptyCondition, i+1))
				continue
			}
			clauses = append(clauses, RuleClause{Index: i + 1, Condition: r.Condition, Message: r.Message})
		}
		if len(clauses) > 0 {
			d.rules[name] = clauses
		}
	}

	if len(errs) > 0 {
		return nil, &AggregateError{Errors: errs}
	}
	return d, nil
}

func checkField(f FieldSpec) error {
	switch {
	case f.Type == nil && f.Embed == nil:
		return ErrNilType
	case f.Type != nil && f.Embed != nil:
		return fmt.Errorf("%w: both a type and an embedded schema", ErrInvalidField)
	case f.Many && f.Embed == nil:
		return fmt.Errorf("%w: many requires an embedded schema", ErrInvalidField)
	case f.Embed != nil && f.Default != nil:
		return fmt.Errorf("%w: embedded fields take no default", ErrInvalidField)
	}
	return nil
}

// MustDescriptor is like NewDescriptor but panics on error. Intended for
// package-level schema variables.
func MustDescriptor(def Definition) *Descriptor {
	d, err := NewDescriptor(def)
	if err != nil {
		panic(err)
	}
	return d
}

// Name returns the schema name.
func (d *Descriptor) Name() string { return d.name }

// Len returns the number of fields.
func (d *Descriptor) Len() int { return len(d.fields) }

// Fields returns the fields in declaration order.
func (d *Descriptor) Fields() []FieldSpec {
	out := make([]FieldSpec, len(d.fields))
	for i, f := range d.fields {
		f.Default = cloneValue(f.Default)
		out[i] = f
	}
	return out
}

// Field returns the field with the given name.
func (d *Descriptor) Field(name string) (FieldSpec, bool) {
	i, ok := d.index[name]
	if !ok {
		return FieldSpec{}, false
	}
	f := d.fields[i]
	f.Default = cloneValue(f.Default)
	return f, true
}

// IsRequired reports whether name is a required field.
func (d *Descriptor) IsRequired(name string) bool { return d.required[name] }

// IsEmbedded reports whether name is an embedded field.
func (d *Descriptor) IsEmbedded(name string) bool {
	f, ok := d.Field(name)
	return ok && f.IsEmbed()
}

// Required returns the required field names in declaration order.
func (d *Descriptor) Required() []string {
	var out []string
	for _, f := range d.fields {
		if d.required[f.Name] {
			out = append(out, f.Name)
		}
	}
	return out
}

// Embedded returns the embedded field names in declaration order.
func (d *Descriptor) Embedded() []string {
	var out []string
	for _, f := range d.fields {
		if f.IsEmbed() {
			out = append(out, f.Name)
		}
	}
	return out
}

// Rules returns the rule clauses of a field in index order.
func (d *Descriptor) Rules(name string) []RuleClause {
	return append([]RuleClause(nil), d.rules[name]...)
}

// HasRules reports whether any field declares rule clauses.
func (d *Descriptor) HasRules() bool { return len(d.rules) > 0 }

// Defaults returns the cast default values keyed by field name. Slices and
// maps are copied deeply, so callers may modify what they get.
func (d *Descriptor) Defaults() map[string]any {
	out := make(map[string]any, len(d.defaults))
	for k, v := range d.defaults {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue deep-copies slices, arrays and maps. Other values are returned
// as they are.
func cloneValue(v any) any {
	if v == nil {
		return nil
	}
	return cloneReflect(reflect.ValueOf(v)).Interface()
}

func cloneReflect(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(cloneReflect(v.Elem()))
		return out
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneReflect(v.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneReflect(v.Index(i)))
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), cloneReflect(iter.Value()))
		}
		return out
	default:
		return v
	}
}

// IsDefinitionError reports whether err came from building a descriptor.
func IsDefinitionError(err error) bool {
	var de *DefinitionError
	return errors.As(err, &de) || errors.Is(err, ErrUnknownType)
}
