package registry

import (
	"cmp"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"

	"github.com/aretw0/sieve/pkg/schema"
)

// BindingNow is the binding consulted by the before/after rules when their
// argument is the literal "now".
const BindingNow = "now"

// Built-in rules. Every rule describes when a value is INVALID:
//
//	lt, lte, gt, gte   compare the value with args[0]
//	eq, ne             value equals / differs from args[0]
//	in, not_in         value is / is not one of args
//	blank, present     value is empty / is not empty
//	len_lt, len_gt     length of a string, list or map against args[0]
//	match              value does not match the regular expression args[0]
//	format             value fails the validator tag args[0] (email, url, ...)
//	lt_field, ...      compare the value with the field named args[0]
//	before, after      time value against args[0] or "now"
func registerBuiltins(r *Registry) {
	r.RegisterWithMessage("lt", comparison(func(c int) bool { return c < 0 }), format("must be greater than or equal to %v"))
	r.RegisterWithMessage("lte", comparison(func(c int) bool { return c <= 0 }), format("must be greater than %v"))
	r.RegisterWithMessage("gt", comparison(func(c int) bool { return c > 0 }), format("must be less than or equal to %v"))
	r.RegisterWithMessage("gte", comparison(func(c int) bool { return c >= 0 }), format("must be less than %v"))
	r.RegisterWithMessage("eq", equality(true), format("must not equal %v"))
	r.RegisterWithMessage("ne", equality(false), format("must equal %v"))

	r.RegisterWithMessage("in", membership(true), constant("is reserved"))
	r.RegisterWithMessage("not_in", membership(false), constant("is not included in the list"))

	r.RegisterWithMessage("blank", emptiness(true), constant("can't be blank"))
	r.RegisterWithMessage("present", emptiness(false), constant("must be blank"))

	r.RegisterWithMessage("len_lt", length(func(n, limit int) bool { return n < limit }), format("is too short (minimum is %v)"))
	r.RegisterWithMessage("len_gt", length(func(n, limit int) bool { return n > limit }), format("is too long (maximum is %v)"))

	r.RegisterWithMessage("match", pattern, constant("has invalid format"))
	r.RegisterWithMessage("format", tagged, format("is not a valid %v"))

	r.RegisterWithMessage("lt_field", fieldComparison(func(c int) bool { return c < 0 }), format("must be greater than or equal to %v"))
	r.RegisterWithMessage("gt_field", fieldComparison(func(c int) bool { return c > 0 }), format("must be less than or equal to %v"))
	r.RegisterWithMessage("eq_field", fieldComparison(func(c int) bool { return c == 0 }), format("must differ from %v"))
	r.RegisterWithMessage("ne_field", fieldComparison(func(c int) bool { return c != 0 }), format("must match %v"))

	r.RegisterWithMessage("before", moment(func(c int) bool { return c < 0 }), format("must not be before %v"))
	r.RegisterWithMessage("after", moment(func(c int) bool { return c > 0 }), format("must not be after %v"))
}

func format(layout string) MessageFunc {
	return func(args []any) string {
		if len(args) == 0 {
			return strings.TrimSpace(strings.ReplaceAll(layout, "%v", ""))
		}
		return fmt.Sprintf(layout, args[0])
	}
}

func constant(msg string) MessageFunc {
	return func([]any) string { return msg }
}

func arity(args []any, n int) error {
	if len(args) != n {
		return fmt.Errorf("%w: want %d, got %d", ErrBadArgs, n, len(args))
	}
	return nil
}

func comparison(op func(int) bool) Factory {
	return func(_ string, args []any) (schema.Expr, error) {
		if err := arity(args, 1); err != nil {
			return schema.Expr{}, err
		}
		bound := args[0]
		return schema.Literal(func(v any) (bool, error) {
			c, err := compare(v, bound)
			if err != nil {
				return false, err
			}
			return op(c), nil
		}), nil
	}
}

func equality(want bool) Factory {
	return func(_ string, args []any) (schema.Expr, error) {
		if err := arity(args, 1); err != nil {
			return schema.Expr{}, err
		}
		bound := args[0]
		return schema.Literal(func(v any) bool {
			return equal(v, bound) == want
		}), nil
	}
}

func membership(want bool) Factory {
	return func(_ string, args []any) (schema.Expr, error) {
		if len(args) == 0 {
			return schema.Expr{}, fmt.Errorf("%w: need at least one value", ErrBadArgs)
		}
		set := append([]any(nil), args...)
		return schema.Literal(func(v any) bool {
			for _, candidate := range set {
				if equal(v, candidate) {
					return want
				}
			}
			return !want
		}), nil
	}
}

func emptiness(want bool) Factory {
	return func(_ string, args []any) (schema.Expr, error) {
		if err := arity(args, 0); err != nil {
			return schema.Expr{}, err
		}
		return schema.Literal(func(v any) bool {
			return isEmpty(v) == want
		}), nil
	}
}

func length(op func(n, limit int) bool) Factory {
	return func(_ string, args []any) (schema.Expr, error) {
		if err := arity(args, 1); err != nil {
			return schema.Expr{}, err
		}
		limit, err := cast.ToIntE(args[0])
		if err != nil {
			return schema.Expr{}, fmt.Errorf("%w: %v", ErrBadArgs, err)
		}
		return schema.Literal(func(v any) (bool, error) {
			n, err := sizeOf(v)
			if err != nil {
				return false, err
			}
			return op(n, limit), nil
		}), nil
	}
}

func pattern(_ string, args []any) (schema.Expr, error) {
	if err := arity(args, 1); err != nil {
		return schema.Expr{}, err
	}
	expr, err := cast.ToStringE(args[0])
	if err != nil {
		return schema.Expr{}, fmt.Errorf("%w: %v", ErrBadArgs, err)
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return schema.Expr{}, fmt.Errorf("%w: %v", ErrBadArgs, err)
	}
	return schema.Literal(func(v string) bool {
		return !re.MatchString(v)
	}), nil
}

var tags = validator.New()

func tagged(_ string, args []any) (schema.Expr, error) {
	if err := arity(args, 1); err != nil {
		return schema.Expr{}, err
	}
	tag, err := cast.ToStringE(args[0])
	if err != nil || tag == "" {
		return schema.Expr{}, fmt.Errorf("%w: format needs a validator tag", ErrBadArgs)
	}
	if err := checkTag(tag); err != nil {
		return schema.Expr{}, err
	}
	return schema.Literal(func(v any) bool {
		return tags.Var(v, tag) != nil
	}), nil
}

// checkTag rejects tags the validator does not know; it panics on those.
func checkTag(tag string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: format %q: %v", ErrBadArgs, tag, r)
		}
	}()
	_ = tags.Var("", tag)
	return nil
}

func fieldComparison(op func(int) bool) Factory {
	return func(field string, args []any) (schema.Expr, error) {
		if err := arity(args, 1); err != nil {
			return schema.Expr{}, err
		}
		other, err := cast.ToStringE(args[0])
		if err != nil || other == "" {
			return schema.Expr{}, fmt.Errorf("%w: need a field name", ErrBadArgs)
		}
		if other == field {
			return schema.Expr{}, fmt.Errorf("%w: %s compared with itself", ErrBadArgs, field)
		}
		return schema.Eval(func(env schema.Env) any {
			bound := env.Value(other)
			if bound == nil {
				return false
			}
			return func(v any) (bool, error) {
				c, err := compare(v, bound)
				if err != nil {
					return false, err
				}
				return op(c), nil
			}
		}), nil
	}
}

func moment(op func(int) bool) Factory {
	return func(_ string, args []any) (schema.Expr, error) {
		if err := arity(args, 1); err != nil {
			return schema.Expr{}, err
		}
		var fixed time.Time
		now := args[0] == BindingNow
		if !now {
			t, err := cast.ToTimeE(args[0])
			if err != nil {
				return schema.Expr{}, fmt.Errorf("%w: %v", ErrBadArgs, err)
			}
			fixed = t
		}
		return schema.EvalE(func(env schema.Env) (any, error) {
			ref := fixed
			if now {
				ref = time.Now()
				if bound, ok := env.Lookup(BindingNow); ok && bound != nil {
					t, err := cast.ToTimeE(bound)
					if err != nil {
						return nil, fmt.Errorf("binding %s: %w", BindingNow, err)
					}
					ref = t
				}
			}
			return func(v any) (bool, error) {
				t, err := cast.ToTimeE(v)
				if err != nil {
					return false, err
				}
				return op(t.Compare(ref)), nil
			}, nil
		}), nil
	}
}

// compare orders two values: times, strings and numbers.
func compare(a, b any) (int, error) {
	switch av := a.(type) {
	case time.Time:
		bt, err := cast.ToTimeE(b)
		if err != nil {
			return 0, err
		}
		return av.Compare(bt), nil
	case string:
		if bs, ok := b.(string); ok {
			return strings.Compare(av, bs), nil
		}
	}
	af, err := cast.ToFloat64E(a)
	if err != nil {
		return 0, err
	}
	bf, err := cast.ToFloat64E(b)
	if err != nil {
		return 0, err
	}
	return cmp.Compare(af, bf), nil
}

func equal(a, b any) bool {
	if c, err := compare(a, b); err == nil {
		return c == 0
	}
	return reflect.DeepEqual(a, b)
}

func isEmpty(v any) bool {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	n, err := sizeOf(v)
	return err == nil && n == 0
}

func sizeOf(v any) (int, error) {
	if s, ok := v.(string); ok {
		return utf8.RuneCountInString(s), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len(), nil
	default:
		return 0, fmt.Errorf("%T has no length", v)
	}
}
