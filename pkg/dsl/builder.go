package dsl

import (
	"github.com/aretw0/sieve/pkg/schema"
)

// Builder manages the construction of a schema descriptor.
type Builder struct {
	name   string
	fields []*FieldBuilder
}

// New creates a new schema builder.
func New(name string) *Builder {
	return &Builder{name: name}
}

// Field declares a typed field.
func (b *Builder) Field(name string, t schema.Type) *FieldBuilder {
	return b.add(schema.FieldSpec{Name: name, Type: t})
}

// Embed declares a field holding one record of another schema.
func (b *Builder) Embed(name string, d *schema.Descriptor) *FieldBuilder {
	return b.add(schema.FieldSpec{Name: name, Embed: d})
}

// EmbedMany declares a field holding a list of records of another schema.
func (b *Builder) EmbedMany(name string, d *schema.Descriptor) *FieldBuilder {
	return b.add(schema.FieldSpec{Name: name, Embed: d, Many: true})
}

func (b *Builder) add(spec schema.FieldSpec) *FieldBuilder {
	fb := &FieldBuilder{spec: spec, builder: b}
	b.fields = append(b.fields, fb)
	return fb
}

// Build compiles the declarations into a Descriptor. Definition defects are
// reported the same way schema.NewDescriptor reports them.
func (b *Builder) Build() (*schema.Descriptor, error) {
	def := schema.Definition{
		Name:  b.name,
		Rules: make(map[string][]schema.Rule),
	}
	for _, fb := range b.fields {
		def.Fields = append(def.Fields, fb.spec)
		if fb.required {
			def.Required = append(def.Required, fb.spec.Name)
		}
		if len(fb.rules) > 0 {
			def.Rules[fb.spec.Name] = append(def.Rules[fb.spec.Name], fb.rules...)
		}
	}
	return schema.NewDescriptor(def)
}

// MustBuild is like Build but panics on error. Intended for package-level
// schema variables.
func (b *Builder) MustBuild() *schema.Descriptor {
	d, err := b.Build()
	if err != nil {
		panic(err)
	}
	return d
}
