package domain

import (
	"context"
	"time"
)

// ValidationEvent describes one completed top-level validation.
type ValidationEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	Schema    string            `json:"schema"`
	Input     InputKind         `json:"input"`
	Valid     bool              `json:"valid"`
	Errors    map[ErrorKind]int `json:"errors,omitempty"` // Counts over the whole tree
	Duration  time.Duration     `json:"duration"`
}

// RuleEvent describes a rule clause that failed to evaluate.
type RuleEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Schema    string    `json:"schema"`
	Field     string    `json:"field"`
	Clause    int       `json:"clause"`
	Err       error     `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnValidate            func(context.Context, *ValidationEvent)
	OnRuleEvaluationError func(context.Context, *RuleEvent)
}
