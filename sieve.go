package sieve

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aretw0/sieve/internal/catalog"
	"github.com/aretw0/sieve/internal/compiler"
	"github.com/aretw0/sieve/internal/logging"
	"github.com/aretw0/sieve/internal/runtime"
	"github.com/aretw0/sieve/pkg/domain"
	"github.com/aretw0/sieve/pkg/ports"
	"github.com/aretw0/sieve/pkg/registry"
	"github.com/aretw0/sieve/pkg/schema"
)

// ErrNoSource is returned by the named-schema methods of an Engine built
// without a schema source.
var ErrNoSource = errors.New("no schema source configured")

// Engine is the high-level entry point for the sieve library.
// It wraps the internal runtime and, when given a schema source, resolves
// schemas by name.
type Engine struct {
	runtime  *runtime.Engine
	catalog  *catalog.Catalog
	source   ports.SchemaSource
	registry *registry.Registry
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithSource sets where schema documents are read from.
func WithSource(src ports.SchemaSource) Option {
	return func(e *Engine) {
		e.source = src
	}
}

// WithRegistry sets the rules available to schema documents.
func WithRegistry(r *registry.Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.registry = r
		}
	}
}

// New initializes a new Engine.
func New(opts ...Option) *Engine {
	eng := &Engine{
		logger:   logging.NewNop(),
		registry: registry.NewRegistry(),
	}
	for _, opt := range opts {
		opt(eng)
	}

	eng.runtime = runtime.NewEngine(
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(eng.hooks),
	)
	if eng.source != nil {
		eng.catalog = catalog.New(eng.source,
			catalog.WithRegistry(eng.registry),
			catalog.WithLogger(eng.logger),
		)
	}
	return eng
}

// Validate applies a schema to an input. Invalid input is reported on the
// Result, never as an error.
func (e *Engine) Validate(ctx context.Context, d *schema.Descriptor, in Input, bindings ...Binding) *Result {
	return e.runtime.Validate(ctx, d, in, bindings...)
}

// ValidateNamed resolves a schema from the source and applies it. It
// returns an error only when the schema cannot be resolved.
func (e *Engine) ValidateNamed(ctx context.Context, name string, in Input, bindings ...Binding) (*Result, error) {
	d, err := e.Schema(ctx, name)
	if err != nil {
		return nil, err
	}
	return e.Validate(ctx, d, in, bindings...), nil
}

// Schema returns the compiled descriptor of a named schema.
func (e *Engine) Schema(ctx context.Context, name string) (*schema.Descriptor, error) {
	if e.catalog == nil {
		return nil, ErrNoSource
	}
	return e.catalog.Get(ctx, name)
}

// Schemas lists the names of the schemas in the source.
func (e *Engine) Schemas(ctx context.Context) ([]string, error) {
	if e.catalog == nil {
		return nil, ErrNoSource
	}
	return e.catalog.Names(ctx)
}

// Check compiles every schema in the source and returns the failures keyed
// by schema name.
func (e *Engine) Check(ctx context.Context) (map[string]error, error) {
	if e.catalog == nil {
		return nil, ErrNoSource
	}
	return e.catalog.Check(ctx)
}

// Compile compiles a schema document. Embeds naming other schemas are
// resolved from the source when one is configured.
func (e *Engine) Compile(ctx context.Context, doc []byte) (*schema.Descriptor, error) {
	opts := []compiler.Option{compiler.WithRegistry(e.registry)}
	if e.catalog != nil {
		opts = append(opts, compiler.WithResolver(func(name string) (*schema.Descriptor, error) {
			return e.catalog.Get(ctx, name)
		}))
	}
	return compiler.New(opts...).Compile(doc)
}

// Watch keeps compiled schemas in sync with a watchable source until ctx is
// done. onChange may be nil.
func (e *Engine) Watch(ctx context.Context, onChange func(name string)) error {
	if e.catalog == nil {
		return ErrNoSource
	}
	return e.catalog.Watch(ctx, onChange)
}

// Registry returns the rule registry used for schema documents.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}
