package observability

import (
	"context"

	"github.com/aretw0/sieve/pkg/domain"
)

// Combine returns hooks that call each of hooks in order. Nil callbacks are
// skipped.
func Combine(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnValidate: func(ctx context.Context, ev *domain.ValidationEvent) {
			for _, h := range hooks {
				if h.OnValidate != nil {
					h.OnValidate(ctx, ev)
				}
			}
		},
		OnRuleEvaluationError: func(ctx context.Context, ev *domain.RuleEvent) {
			for _, h := range hooks {
				if h.OnRuleEvaluationError != nil {
					h.OnRuleEvaluationError(ctx, ev)
				}
			}
		},
	}
}
