package sieve_test

import (
	"context"
	"testing"

	"github.com/aretw0/sieve"
	"github.com/aretw0/sieve/pkg/adapters/memory"
	"github.com/aretw0/sieve/pkg/domain"
	"github.com/aretw0/sieve/pkg/dsl"
	"github.com/aretw0/sieve/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Default(t *testing.T) {
	person := dsl.New("person").
		Field("age", schema.Int()).Required().
		Rule(func(age int) bool { return age < 0 }, "must be non-negative").
		MustBuild()

	res := sieve.Validate(person, sieve.Params(map[string]any{"age": "-1"}))
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "must be non-negative", res.Errors[0].Message)

	res = sieve.Validate(person, sieve.Prior(sieve.Validate(person, sieve.Params(map[string]any{"age": 4}))))
	assert.True(t, res.Valid())
}

func TestEngine_NamedSchemas(t *testing.T) {
	src := memory.NewSource(map[string]string{
		"address": "name: address\nfields: [{name: city, type: string, required: true}]",
		"person": `
name: person
fields:
  - {name: age, type: int, rules: [{check: lt, args: [0]}]}
  - {name: home, embed: address}
`,
	})

	var events []*domain.ValidationEvent
	engine := sieve.New(
		sieve.WithSource(src),
		sieve.WithLifecycleHooks(domain.LifecycleHooks{
			OnValidate: func(_ context.Context, e *domain.ValidationEvent) { events = append(events, e) },
		}),
	)
	ctx := context.Background()

	names, err := engine.Schemas(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"address", "person"}, names)

	res, err := engine.ValidateNamed(ctx, "person", sieve.Params(map[string]any{
		"age":  -2,
		"home": map[string]any{},
	}))
	require.NoError(t, err)
	require.Len(t, res.Traverse(), 2)
	assert.Equal(t, "must be greater than or equal to 0", res.Errors[0].Message)
	require.Len(t, events, 1)
	assert.Equal(t, "person", events[0].Schema)

	_, err = engine.ValidateNamed(ctx, "nobody", sieve.Params(nil))
	assert.Error(t, err)

	d, err := engine.Compile(ctx, []byte("name: order\nfields: [{name: ship_to, embed: address}]"))
	require.NoError(t, err)
	assert.Equal(t, []string{"ship_to"}, d.Embedded())

	failures, err := engine.Check(ctx)
	require.NoError(t, err)
	assert.Empty(t, failures)
}

func TestEngine_WithoutSource(t *testing.T) {
	engine := sieve.New()
	ctx := context.Background()

	_, err := engine.Schema(ctx, "person")
	assert.ErrorIs(t, err, sieve.ErrNoSource)
	_, err = engine.Schemas(ctx)
	assert.ErrorIs(t, err, sieve.ErrNoSource)
	assert.ErrorIs(t, engine.Watch(ctx, nil), sieve.ErrNoSource)

	_, err = engine.Compile(ctx, []byte("name: x\nfields: [{name: a, embed: other}]"))
	assert.Error(t, err)
	assert.NotNil(t, engine.Registry())
}

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, sieve.Version)
}
