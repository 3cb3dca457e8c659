package runtime

import (
	"context"
	"fmt"
	"reflect"

	"github.com/aretw0/sieve/pkg/domain"
	"github.com/aretw0/sieve/pkg/schema"
)

// castField casts one field of res.Raw into res.Changes. Any panic is
// recorded as a cast error for that field so the pass can continue.
func (e *Engine) castField(ctx context.Context, d *schema.Descriptor, f schema.FieldSpec, res *domain.Result, bindings []domain.Binding, acc *accumulator) {
	raw, present := res.Raw[f.Name]
	if !present || (raw == nil && f.Nulls == schema.NullAsAbsent) {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.WarnContext(ctx, "cast panicked", "schema", d.Name(), "field", f.Name, "panic", r)
			acc.add(domain.KindCast, f.Name, fmt.Sprintf("cast failed: %v", r), 0)
		}
	}()

	if f.IsEmbed() {
		e.castEmbed(ctx, d, f, raw, res, bindings, acc)
		return
	}

	v, err := castValue(f.Type, raw)
	if err != nil {
		acc.add(domain.KindCast, f.Name, err.Error(), 0)
		return
	}
	if v == nil && f.Nulls == schema.NullAsAbsent {
		return
	}
	if reflect.DeepEqual(res.Data[f.Name], v) {
		return
	}
	res.Changes[f.Name] = v
}

// castEmbed validates an embedded record, or list of records, with the
// embedded descriptor. Nested errors stay on the nested results.
func (e *Engine) castEmbed(ctx context.Context, d *schema.Descriptor, f schema.FieldSpec, raw any, res *domain.Result, bindings []domain.Binding, acc *accumulator) {
	required := d.IsRequired(f.Name)

	if raw == nil {
		if res.Data[f.Name] != nil {
			res.Changes[f.Name] = nil
		}
		return
	}

	if !f.Many {
		m, ok := asMap(raw)
		if !ok {
			acc.add(domain.KindCast, f.Name, fmt.Sprintf("expected %s record, got %T", f.Embed.Name(), raw), 0)
			return
		}
		base, _ := asMap(res.Data[f.Name])
		res.Changes[f.Name] = e.validate(ctx, f.Embed, m, base, bindings, required)
		return
	}

	items, ok := asList(raw)
	if !ok {
		acc.add(domain.KindCast, f.Name, fmt.Sprintf("expected list of %s records, got %T", f.Embed.Name(), raw), 0)
		return
	}
	records := make([]map[string]any, len(items))
	for i, item := range items {
		m, ok := asMap(item)
		if !ok {
			acc.add(domain.KindCast, f.Name, fmt.Sprintf("element %d: expected %s record, got %T", i, f.Embed.Name(), item), 0)
			return
		}
		records[i] = m
	}

	// Stored elements are matched by position.
	stored, _ := asList(res.Data[f.Name])
	nested := make([]*domain.Result, len(records))
	for i, m := range records {
		var base map[string]any
		if i < len(stored) {
			base, _ = asMap(stored[i])
		}
		nested[i] = e.validate(ctx, f.Embed, m, base, bindings, required)
	}
	res.Changes[f.Name] = nested
}

// checkRequired adds a required error for every required field without a
// value. Fields that already failed to cast are skipped. For embeds only
// absence is checked here; their content is checked by the nested pass. A
// list of embeds with no entries counts as absent.
func checkRequired(d *schema.Descriptor, res *domain.Result, acc *accumulator) {
	for _, name := range d.Required() {
		if acc.has(name) {
			continue
		}
		f, _ := d.Field(name)
		v, ok := res.Changes[name]
		if !ok {
			v = res.Data[name]
		}
		if isEmpty(v) || (f.Many && isEmptyList(v)) {
			acc.add(domain.KindRequired, name, domain.MessageRequired, 0)
		}
	}
}

func isEmptyList(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Slice && rv.Len() == 0
}
