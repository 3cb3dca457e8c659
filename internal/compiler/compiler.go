package compiler

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/aretw0/sieve/internal/dto"
	"github.com/aretw0/sieve/pkg/registry"
	"github.com/aretw0/sieve/pkg/schema"
)

// ErrUnresolvedEmbed is returned when an embed names a schema that cannot be
// resolved.
var ErrUnresolvedEmbed = errors.New("unresolved embed")

// IsCompileError reports whether err means a schema document is defective,
// as opposed to missing or unreadable.
func IsCompileError(err error) bool {
	return errors.Is(err, ErrInvalidDocument) ||
		errors.Is(err, ErrUnresolvedEmbed) ||
		schema.IsDefinitionError(err)
}

// Resolver returns the compiled descriptor of another schema by name.
type Resolver func(name string) (*schema.Descriptor, error)

// Compiler turns schema documents into descriptors.
type Compiler struct {
	parser   *Parser
	registry *registry.Registry
	resolve  Resolver
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithRegistry sets the rule registry used to build rule clauses.
func WithRegistry(r *registry.Registry) Option {
	return func(c *Compiler) {
		if r != nil {
			c.registry = r
		}
	}
}

// WithResolver sets how embeds that name other schemas are resolved.
func WithResolver(fn Resolver) Option {
	return func(c *Compiler) {
		c.resolve = fn
	}
}

// New creates a compiler. Without WithRegistry it uses the built-in rules.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		parser:   NewParser(),
		registry: registry.NewRegistry(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile parses and compiles a schema document.
func (c *Compiler) Compile(data []byte) (*schema.Descriptor, error) {
	doc, err := c.parser.Parse(data)
	if err != nil {
		return nil, err
	}
	return c.CompileDocument(doc)
}

// CompileDocument compiles a decoded document. Every field defect is
// reported, not just the first.
func (c *Compiler) CompileDocument(doc *dto.Document) (*schema.Descriptor, error) {
	def := schema.Definition{
		Name:  doc.Name,
		Rules: make(map[string][]schema.Rule),
	}

	var errs []error
	for _, fd := range doc.Fields {
		spec, err := c.field(fd)
		if err != nil {
			errs = append(errs, fmt.Errorf("field %s: %w", fd.Name, err))
			continue
		}
		def.Fields = append(def.Fields, spec)
		if fd.Required {
			def.Required = append(def.Required, fd.Name)
		}

		rules, err := c.rules(fd)
		if err != nil {
			errs = append(errs, fmt.Errorf("field %s: %w", fd.Name, err))
			continue
		}
		if len(rules) > 0 {
			def.Rules[fd.Name] = rules
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("schema %s: %w: %w", doc.Name, ErrInvalidDocument, errors.Join(errs...))
	}

	d, err := schema.NewDescriptor(def)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", doc.Name, err)
	}
	return d, nil
}

func (c *Compiler) field(fd dto.FieldDocument) (schema.FieldSpec, error) {
	spec := schema.FieldSpec{Name: fd.Name, Default: fd.Default}

	if fd.Nulls != "" {
		policy, err := schema.ParseNullPolicy(fd.Nulls)
		if err != nil {
			return spec, err
		}
		spec.Nulls = policy
	}

	switch {
	case fd.Embed != nil && fd.EmbedMany != nil:
		return spec, fmt.Errorf("%w: embed and embed_many are exclusive", ErrInvalidDocument)
	case fd.Embed != nil, fd.EmbedMany != nil:
		if fd.Type != "" {
			return spec, fmt.Errorf("%w: an embed has no type", ErrInvalidDocument)
		}
		ref := fd.Embed
		if ref == nil {
			ref, spec.Many = fd.EmbedMany, true
		}
		embed, err := c.embed(fd.Name, ref)
		if err != nil {
			return spec, err
		}
		spec.Embed = embed
		return spec, nil
	}

	t, err := schema.ParseType(fd.Type)
	if err != nil {
		return spec, err
	}
	if st, ok := t.(*schema.StringType); ok {
		if fd.Trim {
			st = st.Trimmed()
		}
		if fd.NFC {
			st = st.NFC()
		}
		t = st
	} else if fd.Trim || fd.NFC {
		return spec, fmt.Errorf("%w: trim and nfc apply to strings", ErrInvalidDocument)
	}
	spec.Type = t
	return spec, nil
}

// embed resolves a named schema or compiles an inline one. Inline documents
// without a name take the name of the field.
func (c *Compiler) embed(field string, ref any) (*schema.Descriptor, error) {
	switch v := ref.(type) {
	case string:
		if c.resolve == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnresolvedEmbed, v)
		}
		d, err := c.resolve(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrUnresolvedEmbed, v, err)
		}
		return d, nil
	case map[string]any:
		doc, err := decode(v)
		if err != nil {
			return nil, err
		}
		if doc.Name == "" {
			doc.Name = field
		}
		return c.CompileDocument(doc)
	default:
		return nil, fmt.Errorf("%w: embed must be a schema name or a document, got %T", ErrInvalidDocument, ref)
	}
}

func (c *Compiler) rules(fd dto.FieldDocument) ([]schema.Rule, error) {
	var (
		out  []schema.Rule
		errs []error
	)
	for i, rd := range fd.Rules {
		cond, err := c.registry.Build(rd.Check, fd.Name, rd.Args)
		if err != nil {
			errs = append(errs, fmt.Errorf("rule %d: %w", i+1, err))
			continue
		}

		text := rd.Message
		if text == "" {
			text = c.registry.Message(rd.Check, rd.Args)
		}
		msg, err := message(text)
		if err != nil {
			errs = append(errs, fmt.Errorf("rule %d: message: %w", i+1, err))
			continue
		}
		out = append(out, schema.Rule{Condition: cond, Message: msg})
	}
	return out, errors.Join(errs...)
}

// message compiles a message template. Plain text stays a literal; a
// template is rendered with the bindings plus the field value as "value".
func message(text string) (schema.Expr, error) {
	if !strings.Contains(text, "{{") {
		return schema.Literal(text), nil
	}
	tmpl, err := template.New("message").Parse(text)
	if err != nil {
		return schema.Expr{}, err
	}
	return schema.Eval(func(env schema.Env) any {
		data := env.Map()
		return func(v any) (string, error) {
			data["value"] = v
			var buf bytes.Buffer
			if err := tmpl.Execute(&buf, data); err != nil {
				return "", err
			}
			return buf.String(), nil
		}
	}), nil
}
