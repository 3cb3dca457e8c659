package registry_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/sieve/internal/runtime"
	"github.com/aretw0/sieve/pkg/domain"
	"github.com/aretw0/sieve/pkg/registry"
	"github.com/aretw0/sieve/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// check validates value against a single built-in rule and reports whether
// the rule fired.
func check(t *testing.T, typ schema.Type, rule string, args []any, value any, bindings ...domain.Binding) []domain.Error {
	t.Helper()
	reg := registry.NewRegistry()
	cond, err := reg.Build(rule, "v", args)
	require.NoError(t, err)

	d := schema.MustDescriptor(schema.Definition{
		Name: "probe",
		Fields: []schema.FieldSpec{
			{Name: "v", Type: typ},
			{Name: "other", Type: typ},
		},
		Rules: map[string][]schema.Rule{
			"v": {{Condition: cond, Message: schema.Literal(reg.Message(rule, args))}},
		},
	})
	params := map[string]any{"v": value}
	for _, b := range bindings {
		if b.Name == "other" {
			params["other"] = b.Value
		}
	}
	res := runtime.NewEngine().Validate(context.Background(), d, domain.Params(params), bindings...)
	return res.Errors
}

func TestRegistry_Builtins(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		typ   schema.Type
		rule  string
		args  []any
		value any
		fires bool
	}{
		{"lt fires below bound", schema.Int(), "lt", []any{0}, -1, true},
		{"lt passes at bound", schema.Int(), "lt", []any{0}, 0, false},
		{"lte fires at bound", schema.Int(), "lte", []any{0}, 0, true},
		{"gt fires above bound", schema.Float(), "gt", []any{10}, 10.5, true},
		{"gte passes below bound", schema.Int(), "gte", []any{10}, 9, false},
		{"gt compares strings", schema.String(), "gt", []any{"m"}, "z", true},
		{"eq fires on equal", schema.String(), "eq", []any{"root"}, "root", true},
		{"eq across numeric kinds", schema.Int(), "eq", []any{3.0}, 3, true},
		{"ne fires on difference", schema.String(), "ne", []any{"yes"}, "no", true},
		{"in fires on member", schema.String(), "in", []any{"admin", "root"}, "root", true},
		{"in passes on outsider", schema.String(), "in", []any{"admin", "root"}, "ada", false},
		{"not_in fires on outsider", schema.Int(), "not_in", []any{1, 2, 3}, 4, true},
		{"blank fires on whitespace", schema.String(), "blank", nil, "  ", true},
		{"blank fires on empty list", schema.Slice(schema.Int()), "blank", nil, []any{}, true},
		{"present fires on content", schema.String(), "present", nil, "x", true},
		{"len_lt counts runes", schema.String(), "len_lt", []any{3}, "né", true},
		{"len_gt on lists", schema.Slice(schema.Int()), "len_gt", []any{1}, []any{1, 2}, true},
		{"match fires on mismatch", schema.String(), "match", []any{"^[a-z]+$"}, "Ada", true},
		{"match passes on match", schema.String(), "match", []any{"^[a-z]+$"}, "ada", false},
		{"format email invalid", schema.String(), "format", []any{"email"}, "not-an-email", true},
		{"format email valid", schema.String(), "format", []any{"email"}, "ada@example.com", false},
		{"before fixed time", schema.Time(), "before", []any{"2025-01-01T00:00:00Z"}, start.Add(-time.Hour), true},
		{"after fixed date", schema.Date(), "after", []any{"2025-01-01"}, "2025-01-02", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := check(t, tt.typ, tt.rule, tt.args, tt.value)
			if !tt.fires {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Equal(t, domain.KindRule, errs[0].Kind)
		})
	}
}

func TestRegistry_FieldComparison(t *testing.T) {
	errs := check(t, schema.Int(), "lt_field", []any{"other"}, 3, domain.Bind("other", 5))
	require.Len(t, errs, 1)
	assert.Equal(t, "must be greater than or equal to other", errs[0].Message)

	errs = check(t, schema.Int(), "lt_field", []any{"other"}, 7, domain.Bind("other", 5))
	assert.Empty(t, errs)

	// Without a value to compare against, the rule does not fire.
	errs = check(t, schema.Int(), "eq_field", []any{"other"}, 7)
	assert.Empty(t, errs)
}

func TestRegistry_Now(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	errs := check(t, schema.Time(), "after", []any{"now"}, now.Add(time.Hour), domain.Bind(registry.BindingNow, now))
	require.Len(t, errs, 1)
	assert.Equal(t, "must not be after now", errs[0].Message)

	errs = check(t, schema.Time(), "after", []any{"now"}, now.Add(-time.Hour), domain.Bind(registry.BindingNow, now))
	assert.Empty(t, errs)

	errs = check(t, schema.Time(), "before", []any{"now"}, now, domain.Bind(registry.BindingNow, "yesterday"))
	require.Len(t, errs, 1)
	assert.Equal(t, domain.KindRuleEvaluation, errs[0].Kind)
}

func TestRegistry_MismatchIsRuleEvaluation(t *testing.T) {
	errs := check(t, schema.Int(), "len_lt", []any{2}, 5)
	require.Len(t, errs, 1)
	assert.Equal(t, domain.KindRuleEvaluation, errs[0].Kind)
}

func TestRegistry_BadArguments(t *testing.T) {
	reg := registry.NewRegistry()

	tests := []struct {
		rule string
		args []any
	}{
		{"lt", nil},
		{"lt", []any{1, 2}},
		{"in", nil},
		{"blank", []any{1}},
		{"len_gt", []any{"many"}},
		{"match", []any{"("}},
		{"format", []any{"no_such_tag"}},
		{"lt_field", []any{"v"}},
		{"before", []any{"someday"}},
	}

	for _, tt := range tests {
		_, err := reg.Build(tt.rule, "v", tt.args)
		if !assert.Error(t, err, "%s %v", tt.rule, tt.args) {
			continue
		}
		assert.ErrorIs(t, err, registry.ErrBadArgs, "%s %v", tt.rule, tt.args)
	}
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	reg := registry.NewRegistry()

	_, err := reg.Build("even", "v", nil)
	assert.ErrorIs(t, err, registry.ErrUnknownRule)
	assert.False(t, reg.Has("even"))
	assert.Equal(t, "is invalid", reg.Message("even", nil))

	reg.Register("even", func(string, []any) (schema.Expr, error) {
		return schema.Literal(func(v int) bool { return v%2 == 0 }), nil
	})
	assert.True(t, reg.Has("even"))

	cond, err := reg.Build("even", "v", nil)
	require.NoError(t, err)
	assert.False(t, cond.IsZero())

	names := reg.Names()
	assert.Contains(t, names, "even")
	assert.Contains(t, names, "format")
	assert.IsIncreasing(t, names)
}
