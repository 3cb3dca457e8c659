package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/sieve/pkg/schema"
)

var (
	// ErrUnknownRule is returned when a rule name is not registered.
	ErrUnknownRule = errors.New("unknown rule")
	// ErrBadArgs is returned when a rule is given unusable arguments.
	ErrBadArgs = errors.New("invalid rule arguments")
)

// Factory builds the condition of an "invalid when" rule clause for field
// from the arguments written in a schema document. It runs once, when the
// document is compiled.
type Factory func(field string, args []any) (schema.Expr, error)

// MessageFunc renders the default message of a rule from its arguments.
type MessageFunc func(args []any) string

type entry struct {
	factory Factory
	message MessageFunc
}

// Registry manages the named rules available to schema documents.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]entry
}

// NewRegistry creates a registry holding the built-in rules.
func NewRegistry() *Registry {
	r := &Registry{rules: make(map[string]entry)}
	registerBuiltins(r)
	return r
}

// Register adds a rule to the registry.
// If a rule with the same name exists, it is overwritten.
func (r *Registry) Register(name string, fn Factory) {
	r.RegisterWithMessage(name, fn, nil)
}

// RegisterWithMessage adds a rule along with its default message.
func (r *Registry) RegisterWithMessage(name string, fn Factory, msg MessageFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[name] = entry{factory: fn, message: msg}
}

// Build looks up a rule by name and builds its condition.
// Returns an error if the rule is not found or rejects its arguments.
func (r *Registry) Build(name, field string, args []any) (schema.Expr, error) {
	r.mu.RLock()
	e, ok := r.rules[name]
	r.mu.RUnlock()

	if !ok {
		return schema.Expr{}, fmt.Errorf("%w: %s", ErrUnknownRule, name)
	}

	expr, err := e.factory(field, args)
	if err != nil {
		return schema.Expr{}, fmt.Errorf("rule %s: %w", name, err)
	}
	return expr, nil
}

// Message returns the default message of a rule, or a generic one.
func (r *Registry) Message(name string, args []any) string {
	r.mu.RLock()
	e, ok := r.rules[name]
	r.mu.RUnlock()

	if !ok || e.message == nil {
		return "is invalid"
	}
	return e.message(args)
}

// Has reports whether a rule is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rules[name]
	return ok
}

// Names returns the registered rule names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.rules))
	for name := range r.rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
