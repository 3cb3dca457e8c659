package schema

// Binding is one name/value pair visible to rule clauses.
type Binding struct {
	Name  string
	Value any
}

// Bind creates a Binding.
func Bind(name string, value any) Binding {
	return Binding{Name: name, Value: value}
}

// Env is the ordered binding environment a rule clause is evaluated in:
// external bindings first, then the field values cast so far. When a name
// appears more than once the last binding wins, so cast values shadow
// external bindings of the same name.
type Env struct {
	bindings []Binding
}

// NewEnv creates an environment holding a copy of bindings.
func NewEnv(bindings ...Binding) Env {
	return Env{bindings: append([]Binding(nil), bindings...)}
}

// With returns a new environment with extra bindings appended.
func (e Env) With(bindings ...Binding) Env {
	out := make([]Binding, 0, len(e.bindings)+len(bindings))
	out = append(out, e.bindings...)
	out = append(out, bindings...)
	return Env{bindings: out}
}

// Lookup returns the value bound to name.
func (e Env) Lookup(name string) (any, bool) {
	for i := len(e.bindings) - 1; i >= 0; i-- {
		if e.bindings[i].Name == name {
			return e.bindings[i].Value, true
		}
	}
	return nil, false
}

// Value returns the value bound to name, or nil.
func (e Env) Value(name string) any {
	v, _ := e.Lookup(name)
	return v
}

// Has reports whether name is bound.
func (e Env) Has(name string) bool {
	_, ok := e.Lookup(name)
	return ok
}

// Bindings returns a copy of the ordered bindings.
func (e Env) Bindings() []Binding {
	return append([]Binding(nil), e.bindings...)
}

// Map flattens the environment into a map, applying shadowing.
func (e Env) Map() map[string]any {
	m := make(map[string]any, len(e.bindings))
	for _, b := range e.bindings {
		m[b.Name] = b.Value
	}
	return m
}

// Expr is a deferred expression captured when a schema is declared and
// evaluated while validating.
//
// A literal Expr evaluates to its value. That value may itself be a Go
// func, in which case the engine invokes it: with no arguments when it takes
// none, or with the field's cast value when it takes exactly one.
type Expr struct {
	literal any
	eval    func(Env) (any, error)
	set     bool
}

// Literal creates an expression that evaluates to v.
func Literal(v any) Expr {
	return Expr{literal: v, set: true}
}

// Eval creates an expression computed from the environment.
func Eval(fn func(Env) any) Expr {
	return Expr{
		eval: func(env Env) (any, error) { return fn(env), nil },
		set:  true,
	}
}

// EvalE creates an expression computed from the environment that may fail.
func EvalE(fn func(Env) (any, error)) Expr {
	return Expr{eval: fn, set: true}
}

// IsZero reports whether the expression was never set.
func (x Expr) IsZero() bool { return !x.set }

// Evaluate computes the expression in env. It does not invoke a func
// produced by a literal; that is up to the caller.
func (x Expr) Evaluate(env Env) (any, error) {
	if x.eval != nil {
		return x.eval(env)
	}
	return x.literal, nil
}
