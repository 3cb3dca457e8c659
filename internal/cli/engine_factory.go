package cli

import (
	"context"
	"log/slog"

	"github.com/aretw0/sieve"
	"github.com/aretw0/sieve/pkg/adapters/file"
	"github.com/aretw0/sieve/pkg/adapters/redis"
	"github.com/aretw0/sieve/pkg/domain"
	"github.com/aretw0/sieve/pkg/observability"
	"github.com/aretw0/sieve/pkg/ports"
	"github.com/aretw0/sieve/pkg/redact"
)

// Options selects where schemas come from and which extras are enabled.
type Options struct {
	Dir         string
	RedisAddr   string
	RedisPrefix string
	Debug       bool
	Metrics     bool
	Redact      []string
}

// Setup is an engine together with the resources created for it.
type Setup struct {
	Engine  *sieve.Engine
	Source  ports.SchemaSource
	Metrics *observability.Metrics
	Masker  *redact.Masker

	closers []func() error
}

// Close releases the resources held by the setup.
func (s *Setup) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewEngine initializes an engine with standard CLI conventions: Redis
// when an address is given, the schema directory otherwise. It fails only on
// malformed redaction patterns.
func NewEngine(opts Options, logger *slog.Logger) (*Setup, error) {
	masker, err := redact.New(opts.Redact)
	if err != nil {
		return nil, err
	}
	setup := &Setup{Masker: masker}

	if opts.RedisAddr != "" {
		src := redis.New(opts.RedisAddr, "", 0, redis.WithPrefix(opts.RedisPrefix))
		setup.Source = src
		setup.closers = append(setup.closers, src.Close)
		logger.Info("Using Redis schema source", "addr", opts.RedisAddr, "prefix", opts.RedisPrefix)
	} else {
		setup.Source = file.New(opts.Dir, file.WithLogger(logger))
		logger.Info("Using schema directory", "dir", opts.Dir)
	}

	var hooks []domain.LifecycleHooks
	if opts.Debug {
		hooks = append(hooks, createDebugHooks(logger))
	}
	if opts.Metrics {
		setup.Metrics = observability.NewMetrics(nil)
		hooks = append(hooks, setup.Metrics.Hooks())
	}

	engineOpts := []sieve.Option{
		sieve.WithLogger(logger),
		sieve.WithSource(setup.Source),
	}
	if len(hooks) > 0 {
		engineOpts = append(engineOpts, sieve.WithLifecycleHooks(observability.Combine(hooks...)))
	}
	setup.Engine = sieve.New(engineOpts...)
	return setup, nil
}

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnValidate: func(ctx context.Context, e *domain.ValidationEvent) {
			logger.Debug("Validated", "schema", e.Schema, "input", e.Input.String(), "valid", e.Valid, "duration", e.Duration)
		},
		OnRuleEvaluationError: func(ctx context.Context, e *domain.RuleEvent) {
			logger.Debug("Rule Failed", "schema", e.Schema, "field", e.Field, "clause", e.Clause, "err", e.Err)
		},
	}
}
