package runtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/sieve/internal/runtime"
	"github.com/aretw0/sieve/pkg/domain"
	"github.com/aretw0/sieve/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_NullPolicy(t *testing.T) {
	d := schema.MustDescriptor(schema.Definition{
		Name: "settings",
		Fields: []schema.FieldSpec{
			{Name: "retries", Type: schema.Int(), Default: 3},
			{Name: "timeout", Type: schema.Int(), Default: 30, Nulls: schema.NullAsAbsent},
		},
	})

	t.Run("defaults apply when keys are absent", func(t *testing.T) {
		res := validate(d, map[string]any{})
		assert.True(t, res.Valid())
		assert.Empty(t, res.Changes)
		assert.Equal(t, map[string]any{"retries": 3, "timeout": 30}, res.Apply())
	})

	t.Run("explicit null clears a value field", func(t *testing.T) {
		res := validate(d, map[string]any{"retries": nil, "timeout": nil})
		assert.Equal(t, map[string]any{"retries": nil}, res.Changes)
		assert.Equal(t, map[string]any{"retries": nil, "timeout": 30}, res.Apply())
	})

	t.Run("blank strings are null for non-string types", func(t *testing.T) {
		res := validate(d, map[string]any{"retries": " ", "timeout": ""})
		assert.Equal(t, map[string]any{"retries": nil}, res.Changes)
	})
}

func TestEngine_NullFailsRequired(t *testing.T) {
	d := schema.MustDescriptor(schema.Definition{
		Name: "account",
		Fields: []schema.FieldSpec{
			{Name: "plan", Type: schema.String(), Default: "free"},
			{Name: "email", Type: schema.String()},
		},
		Required: []string{"plan", "email"},
	})

	res := validate(d, map[string]any{"email": "a@b.c"})
	assert.True(t, res.Valid(), "the default satisfies required")

	res = validate(d, map[string]any{"plan": nil, "email": "   "})
	require.Len(t, res.Errors, 2)
	assert.Equal(t, "plan", res.Errors[0].Field)
	assert.Equal(t, "email", res.Errors[1].Field)
	for _, e := range res.Errors {
		assert.Equal(t, domain.KindRequired, e.Kind)
	}
}

func TestEngine_BaseRecordSuppressesUnchanged(t *testing.T) {
	d := schema.MustDescriptor(schema.Definition{
		Name: "profile",
		Fields: []schema.FieldSpec{
			{Name: "name", Type: schema.String()},
			{Name: "age", Type: schema.Int()},
		},
		Required: []string{"name"},
	})
	stored := map[string]any{"name": "Ada", "age": 36}

	res := runtime.NewEngine().Validate(context.Background(), d,
		domain.Params(map[string]any{"name": "Ada", "age": "37"}).WithBase(stored))

	assert.True(t, res.Valid())
	assert.Equal(t, map[string]any{"age": 37}, res.Changes)
	assert.Equal(t, map[string]any{"name": "Ada", "age": 37}, res.Apply())

	// A stored value satisfies required without being resubmitted.
	res = runtime.NewEngine().Validate(context.Background(), d,
		domain.Params(map[string]any{}).WithBase(stored))
	assert.True(t, res.Valid())
}

func TestEngine_EmbedsMany(t *testing.T) {
	phone := schema.MustDescriptor(schema.Definition{
		Name:     "phone",
		Fields:   []schema.FieldSpec{{Name: "number", Type: schema.String()}},
		Required: []string{"number"},
	})
	d := schema.MustDescriptor(schema.Definition{
		Name:   "contact",
		Fields: []schema.FieldSpec{{Name: "phones", Embed: phone, Many: true}},
	})

	res := validate(d, map[string]any{"phones": []any{
		map[string]any{"number": "555"},
		map[string]any{},
	}})
	assert.False(t, res.Valid())

	phones, ok := res.Changes["phones"].([]*domain.Result)
	require.True(t, ok)
	require.Len(t, phones, 2)
	assert.True(t, phones[0].Valid())
	assert.False(t, phones[1].Valid())

	violations := res.Traverse()
	require.Len(t, violations, 1)
	assert.Equal(t, "phones.1.number", violations[0].Path)

	res = validate(d, map[string]any{"phones": "555"})
	require.Len(t, res.Errors, 1)
	assert.Equal(t, domain.KindCast, res.Errors[0].Kind)

	res = validate(d, map[string]any{"phones": []any{"555"}})
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Message, "element 0")
}

func TestEngine_EmbedNotARecord(t *testing.T) {
	address := schema.MustDescriptor(schema.Definition{
		Name:   "address",
		Fields: []schema.FieldSpec{{Name: "zip", Type: schema.String()}},
	})
	d := schema.MustDescriptor(schema.Definition{
		Name:   "person",
		Fields: []schema.FieldSpec{{Name: "address", Embed: address}, {Name: "age", Type: schema.Int()}},
	})

	res := validate(d, map[string]any{"address": 12, "age": 3})
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "address", res.Errors[0].Field)
	assert.Equal(t, domain.KindCast, res.Errors[0].Kind)
	assert.Equal(t, 3, res.Changes["age"])
}

func TestEngine_PanickingCastIsContained(t *testing.T) {
	explosive := schema.Custom("explosive", func(any) (any, error) { panic("bad type") })
	d := schema.MustDescriptor(schema.Definition{
		Name: "risky",
		Fields: []schema.FieldSpec{
			{Name: "a", Type: explosive},
			{Name: "b", Type: schema.Int()},
		},
	})

	res := validate(d, map[string]any{"a": 1, "b": "2"})
	require.Len(t, res.Errors, 1)
	assert.Equal(t, domain.KindCast, res.Errors[0].Kind)
	assert.Contains(t, res.Errors[0].Message, "bad type")
	assert.Equal(t, 2, res.Changes["b"])
}

type event struct {
	Title string    `json:"title"`
	Seats int       `json:"seats"`
	Start time.Time `json:"start"`
	Venue struct {
		City string `json:"city"`
	} `json:"venue"`
}

func TestEngine_RecordInput(t *testing.T) {
	venue := schema.MustDescriptor(schema.Definition{
		Name:     "venue",
		Fields:   []schema.FieldSpec{{Name: "city", Type: schema.String()}},
		Required: []string{"city"},
	})
	d := schema.MustDescriptor(schema.Definition{
		Name: "event",
		Fields: []schema.FieldSpec{
			{Name: "title", Type: schema.String()},
			{Name: "seats", Type: schema.Int()},
			{Name: "start", Type: schema.Time()},
			{Name: "venue", Embed: venue},
		},
	})

	in := event{Title: "Launch", Seats: 40, Start: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	in.Venue.City = "Lisbon"

	res := runtime.NewEngine().Validate(context.Background(), d, domain.Record(&in))
	require.True(t, res.Valid(), res.Traverse())
	assert.Equal(t, 40, res.Changes["seats"])

	var out event
	require.NoError(t, res.Materialize(&out))
	assert.Equal(t, in.Title, out.Title)
	assert.Equal(t, in.Seats, out.Seats)
	assert.True(t, in.Start.Equal(out.Start))
	assert.Equal(t, "Lisbon", out.Venue.City)

	res = runtime.NewEngine().Validate(context.Background(), d, domain.Record(42))
	require.NotEmpty(t, res.Errors)
	assert.Equal(t, "", res.Errors[0].Field)
	assert.Equal(t, domain.KindCast, res.Errors[0].Kind)
}

func TestEngine_MaterializeInvalid(t *testing.T) {
	d := ageSchema(t)
	res := validate(d, map[string]any{})

	var out struct {
		Age int `json:"age"`
	}
	assert.ErrorIs(t, res.Materialize(&out), domain.ErrInvalidResult)
}
