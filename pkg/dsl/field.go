package dsl

import "github.com/aretw0/sieve/pkg/schema"

// FieldBuilder provides a fluent API for configuring a field.
// Declaring another field or building returns to the schema builder.
type FieldBuilder struct {
	spec     schema.FieldSpec
	required bool
	rules    []schema.Rule
	builder  *Builder
}

// Required marks the field as required.
func (f *FieldBuilder) Required() *FieldBuilder {
	f.required = true
	return f
}

// Default sets the value the field holds when the input omits it.
func (f *FieldBuilder) Default(v any) *FieldBuilder {
	f.spec.Default = v
	return f
}

// Nulls sets how explicit nulls in the input are treated.
func (f *FieldBuilder) Nulls(p schema.NullPolicy) *FieldBuilder {
	f.spec.Nulls = p
	return f
}

// Rule appends an "invalid when" clause. The field is invalid when cond is
// truthy; message is reported when it is, and nil selects the default.
//
// Both arguments accept a schema.Expr, a func(schema.Env) any computed from
// the bindings, or any other value used as a literal. Literal funcs are
// called by the engine: with no arguments, or with the field's value when
// they take one.
func (f *FieldBuilder) Rule(cond, message any) *FieldBuilder {
	f.rules = append(f.rules, schema.Rule{
		Condition: expr(cond),
		Message:   expr(message),
	})
	return f
}

func expr(v any) schema.Expr {
	switch x := v.(type) {
	case nil:
		return schema.Expr{}
	case schema.Expr:
		return x
	case func(schema.Env) any:
		return schema.Eval(x)
	case func(schema.Env) (any, error):
		return schema.EvalE(x)
	default:
		return schema.Literal(v)
	}
}

// Field declares the next field.
func (f *FieldBuilder) Field(name string, t schema.Type) *FieldBuilder {
	return f.builder.Field(name, t)
}

// Embed declares the next field as an embedded record.
func (f *FieldBuilder) Embed(name string, d *schema.Descriptor) *FieldBuilder {
	return f.builder.Embed(name, d)
}

// EmbedMany declares the next field as a list of embedded records.
func (f *FieldBuilder) EmbedMany(name string, d *schema.Descriptor) *FieldBuilder {
	return f.builder.EmbedMany(name, d)
}

// Build builds the schema.
func (f *FieldBuilder) Build() (*schema.Descriptor, error) {
	return f.builder.Build()
}

// MustBuild builds the schema and panics on error.
func (f *FieldBuilder) MustBuild() *schema.Descriptor {
	return f.builder.MustBuild()
}
