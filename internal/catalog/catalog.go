package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/aretw0/sieve/internal/compiler"
	"github.com/aretw0/sieve/internal/logging"
	"github.com/aretw0/sieve/pkg/ports"
	"github.com/aretw0/sieve/pkg/registry"
	"github.com/aretw0/sieve/pkg/schema"
)

var (
	// ErrCycle is returned when named embeds refer back to a schema being
	// compiled.
	ErrCycle = errors.New("embed cycle")
	// ErrNotWatchable is returned by Watch when the source cannot report
	// changes.
	ErrNotWatchable = errors.New("source is not watchable")
)

// Catalog resolves schema names to compiled descriptors. Compiled schemas
// are cached until the source reports a change.
type Catalog struct {
	source   ports.SchemaSource
	registry *registry.Registry
	logger   *slog.Logger

	mu    sync.RWMutex
	cache map[string]*schema.Descriptor
	// gen counts invalidations. A load only caches its result when no
	// invalidation ran since it started.
	gen uint64
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithRegistry sets the rule registry used to compile documents.
func WithRegistry(r *registry.Registry) Option {
	return func(c *Catalog) {
		if r != nil {
			c.registry = r
		}
	}
}

// WithLogger sets the catalog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a catalog over a source.
func New(source ports.SchemaSource, opts ...Option) *Catalog {
	c := &Catalog{
		source:   source,
		registry: registry.NewRegistry(),
		logger:   logging.NewNop(),
		cache:    make(map[string]*schema.Descriptor),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the compiled descriptor of a schema.
func (c *Catalog) Get(ctx context.Context, name string) (*schema.Descriptor, error) {
	return c.load(ctx, name, nil)
}

func (c *Catalog) load(ctx context.Context, name string, stack []string) (*schema.Descriptor, error) {
	c.mu.RLock()
	d, ok := c.cache[name]
	gen := c.gen
	c.mu.RUnlock()
	if ok {
		return d, nil
	}

	if slices.Contains(stack, name) {
		return nil, fmt.Errorf("%w: %s", ErrCycle, strings.Join(append(slices.Clone(stack), name), " -> "))
	}

	doc, err := c.source.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	path := append(slices.Clone(stack), name)
	comp := compiler.New(
		compiler.WithRegistry(c.registry),
		compiler.WithResolver(func(ref string) (*schema.Descriptor, error) {
			return c.load(ctx, ref, path)
		}),
	)
	d, err = comp.Compile(doc)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	stale := c.gen != gen
	if !stale {
		c.cache[name] = d
	}
	c.mu.Unlock()

	c.logger.Debug("schema compiled", "schema", name, "fields", d.Len(), "cached", !stale)
	return d, nil
}

// Names lists the schemas available in the source.
func (c *Catalog) Names(ctx context.Context) ([]string, error) {
	return c.source.List(ctx)
}

// Check compiles every schema in the source, bypassing the cache, and
// returns the failures keyed by schema name.
func (c *Catalog) Check(ctx context.Context) (map[string]error, error) {
	names, err := c.source.List(ctx)
	if err != nil {
		return nil, err
	}
	c.Invalidate("")

	failures := make(map[string]error)
	for _, name := range names {
		if _, err := c.Get(ctx, name); err != nil {
			failures[name] = err
		}
	}
	return failures, nil
}

// Invalidate drops cached descriptors. Schemas that embed the changed one
// hold a reference to its old descriptor, so the whole cache is dropped;
// name is used for logging only.
func (c *Catalog) Invalidate(name string) {
	c.mu.Lock()
	n := len(c.cache)
	c.cache = make(map[string]*schema.Descriptor)
	c.gen++
	c.mu.Unlock()

	if name != "" {
		c.logger.Info("schema changed, cache dropped", "schema", name, "evicted", n)
	}
}

// Watch invalidates the cache whenever the source reports a change, until
// ctx is done. onChange, when not nil, is called after each invalidation.
func (c *Catalog) Watch(ctx context.Context, onChange func(name string)) error {
	w, ok := c.source.(ports.Watchable)
	if !ok {
		return ErrNotWatchable
	}
	changes, err := w.Watch(ctx)
	if err != nil {
		return err
	}

	go func() {
		for name := range changes {
			c.Invalidate(name)
			if onChange != nil {
				onChange(name)
			}
		}
	}()
	return nil
}
