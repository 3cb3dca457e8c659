package sieve

import (
	"context"

	"github.com/aretw0/sieve/pkg/domain"
	"github.com/aretw0/sieve/pkg/schema"
)

// Aliases for the domain types, so simple programs need a single import.
type (
	Input   = domain.Input
	Result  = domain.Result
	Error   = domain.Error
	Binding = domain.Binding
)

// Params wraps a raw parameter map as input.
func Params(params map[string]any) Input { return domain.Params(params) }

// Prior wraps a previous Result as input, re-validating its values.
func Prior(res *Result) Input { return domain.Prior(res) }

// Record wraps a Go value (usually a struct) as input.
func Record(v any) Input { return domain.Record(v) }

// Bind creates an external binding visible to rule clauses.
func Bind(name string, value any) Binding { return domain.Bind(name, value) }

// BindMap converts a map into bindings ordered by name.
func BindMap(m map[string]any) []Binding { return domain.BindMap(m) }

var defaultEngine = New()

// Validate applies a schema to an input with a default Engine.
func Validate(d *schema.Descriptor, in Input, bindings ...Binding) *Result {
	return defaultEngine.Validate(context.Background(), d, in, bindings...)
}
