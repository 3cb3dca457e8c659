package runtime

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/sieve/pkg/domain"
	"github.com/aretw0/sieve/pkg/schema"
)

// Engine applies schema descriptors to input. It holds no per-call state, so
// one Engine can serve any number of concurrent validations.
type Engine struct {
	hooks  domain.LifecycleHooks
	logger *slog.Logger
	now    func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets the structured logger. A nil logger is ignored.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides the clock used for event timestamps and durations.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validate casts in against d and evaluates its rules. It never fails for
// invalid input: every problem is recorded as an error on the Result.
//
// Bindings are visible to rule clauses. Cast field values shadow bindings of
// the same name.
func (e *Engine) Validate(ctx context.Context, d *schema.Descriptor, in domain.Input, bindings ...domain.Binding) *domain.Result {
	start := e.now()

	raw, base, err := normalize(in)
	res := e.validate(ctx, d, raw, base, bindings, false)
	if err != nil {
		// The record could not be read at all. Field-level checks still ran on
		// the empty input so required errors are reported too.
		res.Errors = append([]domain.Error{{
			Message: err.Error(),
			Kind:    domain.KindCast,
		}}, res.Errors...)
	}

	valid := res.Valid()
	e.logger.DebugContext(ctx, "validated",
		"schema", d.Name(),
		"input", in.Kind().String(),
		"valid", valid,
		"errors", len(res.Errors))

	if e.hooks.OnValidate != nil {
		e.hooks.OnValidate(ctx, &domain.ValidationEvent{
			Timestamp: start,
			Schema:    d.Name(),
			Input:     in.Kind(),
			Valid:     valid,
			Errors:    res.ErrorCounts(),
			Duration:  e.now().Sub(start),
		})
	}
	return res
}

// validate runs one pass over a record and recurses into embeds.
func (e *Engine) validate(ctx context.Context, d *schema.Descriptor, raw, base map[string]any, bindings []domain.Binding, required bool) *domain.Result {
	if raw == nil {
		raw = map[string]any{}
	}
	res := &domain.Result{
		Schema:   d.Name(),
		Raw:      raw,
		Data:     seed(d, base),
		Changes:  make(map[string]any),
		Required: required,
	}

	acc := accumulate(nil)
	for _, f := range d.Fields() {
		e.castField(ctx, d, f, res, bindings, acc)
	}
	checkRequired(d, res, acc)
	res.Errors = acc.errors()

	e.applyRules(ctx, res, d, bindings)
	return res
}

// seed returns the pre-existing record: defaults overlaid by base.
func seed(d *schema.Descriptor, base map[string]any) map[string]any {
	data := d.Defaults()
	for k, v := range base {
		data[k] = v
	}
	return data
}
