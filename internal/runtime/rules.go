package runtime

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/aretw0/sieve/pkg/domain"
	"github.com/aretw0/sieve/pkg/schema"
)

// Reasons a rule clause fails to evaluate.
var (
	ErrUnsupportedArity = errors.New("callable must take zero or one argument")
	ErrArgumentType     = errors.New("field value does not match callable parameter")
	ErrNoReturnValue    = errors.New("callable returns no value")
	ErrMissingValue     = errors.New("message callable needs a field value")
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// applyRules evaluates the rule clauses of every field, in declaration order,
// and appends to res.Errors. A clause that fails to evaluate yields a
// rule-evaluation error and never stops the other clauses.
func (e *Engine) applyRules(ctx context.Context, res *domain.Result, d *schema.Descriptor, bindings []domain.Binding) {
	if !d.HasRules() {
		return
	}
	acc := accumulate(res.Errors)
	for _, f := range d.Fields() {
		clauses := d.Rules(f.Name)
		if len(clauses) == 0 {
			continue
		}

		env := schema.NewEnv(bindings...).With(snapshot(d, res)...)
		value, ok := res.Get(f.Name)
		hasValue := ok && value != nil

		for _, c := range clauses {
			if err := evalClause(c, env, value, hasValue, f.Name, acc); err != nil {
				e.ruleFailure(ctx, d, f.Name, c.Index, err, acc)
			}
		}
	}
	res.Errors = acc.errors()
}

// snapshot binds the changes made so far in field declaration order.
func snapshot(d *schema.Descriptor, res *domain.Result) []domain.Binding {
	out := make([]domain.Binding, 0, len(res.Changes))
	for _, f := range d.Fields() {
		if v, ok := res.Changes[f.Name]; ok {
			out = append(out, domain.Bind(f.Name, v))
		}
	}
	return out
}

func evalClause(c schema.RuleClause, env schema.Env, value any, hasValue bool, field string, acc *accumulator) error {
	cond, skipped, err := evaluate(c.Condition, env, value, hasValue)
	if err != nil {
		return fmt.Errorf("condition: %w", err)
	}
	if skipped || !truthy(cond) {
		return nil
	}

	msg := domain.MessageInvalid
	if !c.Message.IsZero() {
		m, skipped, err := evaluate(c.Message, env, value, hasValue)
		if err != nil {
			return fmt.Errorf("message: %w", err)
		}
		if skipped {
			return fmt.Errorf("message: %w", ErrMissingValue)
		}
		msg = render(m)
	}
	acc.add(domain.KindRule, field, msg, c.Index)
	return nil
}

func (e *Engine) ruleFailure(ctx context.Context, d *schema.Descriptor, field string, clause int, err error, acc *accumulator) {
	e.logger.WarnContext(ctx, "rule clause failed to evaluate",
		"schema", d.Name(),
		"field", field,
		"clause", clause,
		"error", err)
	acc.add(domain.KindRuleEvaluation, field, err.Error(), clause)

	if e.hooks.OnRuleEvaluationError != nil {
		e.hooks.OnRuleEvaluationError(ctx, &domain.RuleEvent{
			Timestamp: e.now(),
			Schema:    d.Name(),
			Field:     field,
			Clause:    clause,
			Err:       err,
		})
	}
}

// evaluate computes an expression and, when it yields a func, invokes it.
// Zero-argument funcs are called as is. One-argument funcs receive the
// field's value and are skipped when the field has none.
func evaluate(x schema.Expr, env schema.Env, value any, hasValue bool) (result any, skipped bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, skipped, err = nil, false, fmt.Errorf("panic: %v", r)
		}
	}()

	v, err := x.Evaluate(env)
	if err != nil {
		return nil, false, err
	}

	fn := reflect.ValueOf(v)
	if fn.Kind() != reflect.Func || fn.IsNil() {
		return v, false, nil
	}
	t := fn.Type()
	if t.IsVariadic() {
		return nil, false, fmt.Errorf("%w: %s is variadic", ErrUnsupportedArity, t)
	}

	var out []reflect.Value
	switch t.NumIn() {
	case 0:
		out = fn.Call(nil)
	case 1:
		if !hasValue {
			return nil, true, nil
		}
		arg, err := argument(value, t.In(0))
		if err != nil {
			return nil, false, err
		}
		out = fn.Call([]reflect.Value{arg})
	default:
		return nil, false, fmt.Errorf("%w: %s takes %d", ErrUnsupportedArity, t, t.NumIn())
	}
	result, err = results(out)
	return result, false, err
}

// argument adapts a field value to a parameter type. Integers convert to any
// numeric kind and floats to float kinds, as long as the value fits the
// parameter exactly; anything else must be assignable.
func argument(value any, want reflect.Type) (reflect.Value, error) {
	av := reflect.ValueOf(value)
	if av.Type().AssignableTo(want) {
		return av, nil
	}
	if isNumeric(av.Kind()) && isNumeric(want.Kind()) && (!isFloat(av.Kind()) || isFloat(want.Kind())) {
		if !fits(av, want) {
			return reflect.Value{}, fmt.Errorf("%w: %v does not fit %s", ErrArgumentType, value, want)
		}
		return av.Convert(want), nil
	}
	return reflect.Value{}, fmt.Errorf("%w: got %T, want %s", ErrArgumentType, value, want)
}

// fits reports whether the numeric value v converts to want without
// truncation or a change of sign.
func fits(v reflect.Value, want reflect.Type) bool {
	target := reflect.New(want).Elem()
	switch {
	case isSigned(v.Kind()):
		i := v.Int()
		switch {
		case isSigned(want.Kind()):
			return !target.OverflowInt(i)
		case isFloat(want.Kind()):
			return int64(float64(i)) == i && !target.OverflowFloat(float64(i))
		default:
			return i >= 0 && !target.OverflowUint(uint64(i))
		}
	case isFloat(v.Kind()):
		return want.Kind() == reflect.Float64 || !target.OverflowFloat(v.Float())
	default:
		u := v.Uint()
		switch {
		case isSigned(want.Kind()):
			return u <= math.MaxInt64 && !target.OverflowInt(int64(u))
		case isFloat(want.Kind()):
			return uint64(float64(u)) == u
		default:
			return !target.OverflowUint(u)
		}
	}
}

// results reads a callable's return values. A trailing error result that is
// non-nil fails the evaluation.
func results(out []reflect.Value) (any, error) {
	switch len(out) {
	case 0:
		return nil, ErrNoReturnValue
	case 1:
		if out[0].Type() == errorType {
			if err, _ := out[0].Interface().(error); err != nil {
				return nil, err
			}
			return nil, nil
		}
		return out[0].Interface(), nil
	case 2:
		if out[1].Type() != errorType {
			return nil, fmt.Errorf("%w: second result must be an error", ErrUnsupportedArity)
		}
		if err, _ := out[1].Interface().(error); err != nil {
			return nil, err
		}
		return out[0].Interface(), nil
	default:
		return nil, fmt.Errorf("%w: too many results", ErrUnsupportedArity)
	}
}

// truthy treats nil, false and nil references as false and everything else,
// including zero numbers and empty strings, as true.
func truthy(v any) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return !rv.IsNil()
	}
	return true
}

func render(v any) string {
	switch m := v.(type) {
	case nil:
		return domain.MessageInvalid
	case string:
		return m
	case error:
		return m.Error()
	case fmt.Stringer:
		return m.String()
	default:
		return fmt.Sprint(m)
	}
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isSigned(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}
