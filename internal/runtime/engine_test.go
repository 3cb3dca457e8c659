package runtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/sieve/internal/runtime"
	"github.com/aretw0/sieve/pkg/domain"
	"github.com/aretw0/sieve/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ageSchema(t *testing.T) *schema.Descriptor {
	t.Helper()
	d, err := schema.NewDescriptor(schema.Definition{
		Name:     "person",
		Fields:   []schema.FieldSpec{{Name: "age", Type: schema.Int()}},
		Required: []string{"age"},
		Rules: map[string][]schema.Rule{
			"age": {{
				Condition: schema.Literal(func(age int) bool { return age < 0 }),
				Message:   schema.Literal("must be non-negative"),
			}},
		},
	})
	require.NoError(t, err)
	return d
}

func validate(d *schema.Descriptor, params map[string]any, bindings ...domain.Binding) *domain.Result {
	return runtime.NewEngine().Validate(context.Background(), d, domain.Params(params), bindings...)
}

func TestEngine_AgeScenario(t *testing.T) {
	d := ageSchema(t)

	t.Run("negative age breaks the rule", func(t *testing.T) {
		res := validate(d, map[string]any{"age": -1})
		assert.False(t, res.Valid())
		assert.Equal(t, []domain.Error{{
			Field:   "age",
			Message: "must be non-negative",
			Kind:    domain.KindRule,
			Clause:  1,
		}}, res.Errors)
	})

	t.Run("positive age is valid", func(t *testing.T) {
		res := validate(d, map[string]any{"age": 5})
		assert.True(t, res.Valid())
		assert.Equal(t, map[string]any{"age": 5}, res.Changes)
		assert.Empty(t, res.Errors)
	})

	t.Run("missing age is required", func(t *testing.T) {
		res := validate(d, map[string]any{})
		assert.False(t, res.Valid())
		require.Len(t, res.Errors, 1)
		assert.Equal(t, "age", res.Errors[0].Field)
		assert.Equal(t, domain.KindRequired, res.Errors[0].Kind)
	})

	t.Run("string age is cast", func(t *testing.T) {
		res := validate(d, map[string]any{"age": "42"})
		assert.True(t, res.Valid())
		assert.Equal(t, 42, res.Changes["age"])
	})

	t.Run("uncastable age is one cast error", func(t *testing.T) {
		res := validate(d, map[string]any{"age": "old"})
		require.Len(t, res.Errors, 1)
		assert.Equal(t, domain.KindCast, res.Errors[0].Kind)
		assert.False(t, res.Changed("age"))
	})
}

func TestEngine_EmptySchemaIsValid(t *testing.T) {
	d := schema.MustDescriptor(schema.Definition{
		Name:   "open",
		Fields: []schema.FieldSpec{{Name: "a", Type: schema.String()}, {Name: "b", Type: schema.Int()}},
	})

	res := validate(d, map[string]any{})
	assert.True(t, res.Valid())
	assert.Empty(t, res.Changes)

	// Unknown keys are ignored.
	res = validate(d, map[string]any{"zzz": 1})
	assert.True(t, res.Valid())
	assert.Empty(t, res.Changes)

	res = validate(d, nil)
	assert.True(t, res.Valid())
}

func TestEngine_LiteralTrueClauseIndex(t *testing.T) {
	d := schema.MustDescriptor(schema.Definition{
		Name:   "flags",
		Fields: []schema.FieldSpec{{Name: "a", Type: schema.Int()}},
		Rules: map[string][]schema.Rule{
			"a": {
				{Condition: schema.Literal(false), Message: schema.Literal("never")},
				{Condition: schema.Literal(nil), Message: schema.Literal("never")},
				{Condition: schema.Literal(true), Message: schema.Literal("always")},
				{Condition: schema.Literal(true)},
			},
		},
	})

	res := validate(d, map[string]any{})
	require.Len(t, res.Errors, 2)
	assert.Equal(t, domain.Error{Field: "a", Message: "always", Kind: domain.KindRule, Clause: 3}, res.Errors[0])
	assert.Equal(t, domain.Error{Field: "a", Message: domain.MessageInvalid, Kind: domain.KindRule, Clause: 4}, res.Errors[1])
}

func TestEngine_LaterFieldSeesEarlierCast(t *testing.T) {
	d := schema.MustDescriptor(schema.Definition{
		Name: "range",
		Fields: []schema.FieldSpec{
			{Name: "min", Type: schema.Int()},
			{Name: "max", Type: schema.Int()},
		},
		Rules: map[string][]schema.Rule{
			"max": {{
				Condition: schema.Eval(func(env schema.Env) any {
					lo, _ := env.Value("min").(int)
					return func(hi int) bool { return hi < lo }
				}),
				Message: schema.Literal("must not be below min"),
			}},
		},
	})

	// "10" is a string in the input; the clause sees the cast int.
	res := validate(d, map[string]any{"min": "10", "max": 3})
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "max", res.Errors[0].Field)

	res = validate(d, map[string]any{"min": "1", "max": 3})
	assert.True(t, res.Valid())
}

func TestEngine_RaisingClauseIsIsolated(t *testing.T) {
	d := schema.MustDescriptor(schema.Definition{
		Name: "fragile",
		Fields: []schema.FieldSpec{
			{Name: "a", Type: schema.Int()},
			{Name: "b", Type: schema.Int()},
		},
		Rules: map[string][]schema.Rule{
			"a": {
				{Condition: schema.EvalE(func(schema.Env) (any, error) { return nil, errors.New("boom") })},
				{Condition: schema.Literal(func() bool { panic("kaboom") })},
				{Condition: schema.Literal(true), Message: schema.Literal("still evaluated")},
			},
			"b": {
				{Condition: schema.Literal(true), Message: schema.Literal("other field")},
			},
		},
	})

	res := validate(d, map[string]any{"a": 1, "b": 2})
	require.Len(t, res.Errors, 4)

	assert.Equal(t, domain.KindRuleEvaluation, res.Errors[0].Kind)
	assert.Equal(t, 1, res.Errors[0].Clause)
	assert.Contains(t, res.Errors[0].Message, "boom")

	assert.Equal(t, domain.KindRuleEvaluation, res.Errors[1].Kind)
	assert.Equal(t, 2, res.Errors[1].Clause)
	assert.Contains(t, res.Errors[1].Message, "kaboom")

	assert.Equal(t, domain.Error{Field: "a", Message: "still evaluated", Kind: domain.KindRule, Clause: 3}, res.Errors[2])
	assert.Equal(t, domain.Error{Field: "b", Message: "other field", Kind: domain.KindRule, Clause: 1}, res.Errors[3])
}

func TestEngine_NestedRequired(t *testing.T) {
	child := schema.MustDescriptor(schema.Definition{
		Name:     "child",
		Fields:   []schema.FieldSpec{{Name: "x", Type: schema.String()}},
		Required: []string{"x"},
	})
	parent := schema.MustDescriptor(schema.Definition{
		Name: "parent",
		Fields: []schema.FieldSpec{
			{Name: "title", Type: schema.String()},
			{Name: "child", Embed: child},
		},
		Required: []string{"child"},
	})

	res := validate(parent, map[string]any{"child": map[string]any{}})
	assert.False(t, res.Valid())
	assert.Empty(t, res.Errors, "nested errors stay on the nested result")

	nested, ok := res.Changes["child"].(*domain.Result)
	require.True(t, ok)
	assert.True(t, nested.Required)
	require.Len(t, nested.Errors, 1)
	assert.Equal(t, domain.Error{Field: "x", Message: domain.MessageRequired, Kind: domain.KindRequired}, nested.Errors[0])

	violations := res.Traverse()
	require.Len(t, violations, 1)
	assert.Equal(t, "child.x", violations[0].Path)

	// A missing required embed is reported on the parent.
	res = validate(parent, map[string]any{})
	require.Len(t, res.Errors, 1)
	assert.Equal(t, domain.KindRequired, res.Errors[0].Kind)
	assert.Equal(t, "child", res.Errors[0].Field)
}

func TestEngine_RevalidationIsIdempotent(t *testing.T) {
	address := schema.MustDescriptor(schema.Definition{
		Name:   "address",
		Fields: []schema.FieldSpec{{Name: "zip", Type: schema.String()}},
	})
	d := schema.MustDescriptor(schema.Definition{
		Name: "person",
		Fields: []schema.FieldSpec{
			{Name: "name", Type: schema.String()},
			{Name: "age", Type: schema.Int(), Default: 1},
			{Name: "address", Embed: address},
		},
		Required: []string{"name"},
	})
	engine := runtime.NewEngine()
	ctx := context.Background()

	first := engine.Validate(ctx, d, domain.Params(map[string]any{
		"name":    "Ada",
		"age":     "36",
		"address": map[string]any{"zip": "123"},
	}))
	require.True(t, first.Valid())

	second := engine.Validate(ctx, d, domain.Prior(first))
	assert.True(t, second.Valid())
	assert.Equal(t, first.Changes, second.Changes)
	assert.Equal(t, first.Errors, second.Errors)
	assert.Equal(t, first.Apply(), second.Apply())
}

func TestEngine_Hooks(t *testing.T) {
	d := schema.MustDescriptor(schema.Definition{
		Name:   "hooked",
		Fields: []schema.FieldSpec{{Name: "a", Type: schema.Int()}},
		Rules: map[string][]schema.Rule{
			"a": {{Condition: schema.Literal(func(a, b int) bool { return false })}},
		},
	})

	var validations []*domain.ValidationEvent
	var failures []*domain.RuleEvent
	engine := runtime.NewEngine(runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnValidate: func(_ context.Context, e *domain.ValidationEvent) {
			validations = append(validations, e)
		},
		OnRuleEvaluationError: func(_ context.Context, e *domain.RuleEvent) {
			failures = append(failures, e)
		},
	}))

	res := engine.Validate(context.Background(), d, domain.Params(map[string]any{"a": "x"}))
	assert.False(t, res.Valid())

	require.Len(t, validations, 1)
	assert.Equal(t, "hooked", validations[0].Schema)
	assert.False(t, validations[0].Valid)
	assert.Equal(t, 1, validations[0].Errors[domain.KindCast])

	// The field failed to cast, so the one-argument clause had no value, but
	// the two-argument callable is rejected regardless of the value.
	require.Len(t, failures, 1)
	assert.Equal(t, "a", failures[0].Field)
	assert.ErrorIs(t, failures[0].Err, runtime.ErrUnsupportedArity)
}

func TestEngine_DefaultsSurviveResultMutation(t *testing.T) {
	d := schema.MustDescriptor(schema.Definition{
		Name:   "post",
		Fields: []schema.FieldSpec{{Name: "tags", Type: schema.Slice(schema.String()), Default: []any{"a"}}},
	})

	first := validate(d, map[string]any{})
	first.Apply()["tags"].([]any)[0] = "mutated"
	first.Data["tags"].([]any)[0] = "mutated too"

	second := validate(d, map[string]any{})
	assert.Equal(t, []any{"a"}, second.Apply()["tags"])
	assert.Equal(t, []any{"a"}, d.Defaults()["tags"])
}

func TestEngine_RequiredEmbedManyRejectsEmptyList(t *testing.T) {
	phone := schema.MustDescriptor(schema.Definition{
		Name:   "phone",
		Fields: []schema.FieldSpec{{Name: "number", Type: schema.String()}},
	})
	contact := schema.MustDescriptor(schema.Definition{
		Name: "contact",
		Fields: []schema.FieldSpec{
			{Name: "phones", Embed: phone, Many: true},
			{Name: "tags", Type: schema.Slice(schema.String())},
		},
		Required: []string{"phones", "tags"},
	})

	tests := []struct {
		name   string
		params map[string]any
		want   []string
	}{
		{"missing list", map[string]any{"tags": []any{"a"}}, []string{"phones"}},
		{"empty list of embeds", map[string]any{"phones": []any{}, "tags": []any{"a"}}, []string{"phones"}},
		{"one embed", map[string]any{"phones": []any{map[string]any{"number": "1"}}, "tags": []any{"a"}}, nil},
		{"empty scalar list is a value", map[string]any{"phones": []any{map[string]any{}}, "tags": []any{}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := validate(contact, tt.params)
			var fields []string
			for _, e := range res.Errors {
				assert.Equal(t, domain.KindRequired, e.Kind)
				fields = append(fields, e.Field)
			}
			assert.Equal(t, tt.want, fields)
		})
	}

	// An empty stored list is blank too.
	res := runtime.NewEngine().Validate(context.Background(), contact,
		domain.Params(map[string]any{"tags": []any{"a"}}).WithBase(map[string]any{"phones": []any{}}))
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "phones", res.Errors[0].Field)
}
