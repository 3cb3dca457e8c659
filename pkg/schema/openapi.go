package schema

import (
	"github.com/getkin/kin-openapi/openapi3"
)

// OpenAPI returns an OpenAPI 3 schema describing the records the descriptor
// accepts after casting. Rule clauses have no OpenAPI counterpart and are
// left out.
func (d *Descriptor) OpenAPI() *openapi3.Schema {
	obj := openapi3.NewObjectSchema()
	obj.Title = d.name
	for _, f := range d.fields {
		var prop *openapi3.Schema
		switch {
		case f.Embed != nil && f.Many:
			prop = openapi3.NewArraySchema().WithItems(f.Embed.OpenAPI())
		case f.Embed != nil:
			prop = f.Embed.OpenAPI()
		default:
			prop = openAPIType(f.Type)
		}
		if f.Default != nil {
			prop.Default = openAPIDefault(f.Default)
		}
		if !d.required[f.Name] {
			prop.Nullable = true
		}
		obj.WithProperty(f.Name, prop)
	}
	obj.Required = d.Required()
	return obj
}

func openAPIType(t Type) *openapi3.Schema {
	switch tt := t.(type) {
	case *StringType:
		return openapi3.NewStringSchema()
	case *IntType:
		return openapi3.NewIntegerSchema()
	case *FloatType:
		return openapi3.NewFloat64Schema()
	case *BoolType:
		return openapi3.NewBoolSchema()
	case *TimeType:
		return openapi3.NewDateTimeSchema()
	case *DateType:
		return openapi3.NewStringSchema().WithFormat("date")
	case *UUIDType:
		return openapi3.NewUUIDSchema()
	case *EnumType:
		values := make([]any, 0, len(tt.values))
		for _, v := range tt.values {
			values = append(values, v)
		}
		return openapi3.NewStringSchema().WithEnum(values...)
	case *SliceType:
		return openapi3.NewArraySchema().WithItems(openAPIType(tt.elemType))
	case *MapType:
		return openapi3.NewObjectSchema().WithAdditionalProperties(openAPIType(tt.elemType))
	default:
		// any and custom types accept every JSON value.
		return openapi3.NewSchema()
	}
}

// openAPIDefault renders cast defaults in their JSON form.
func openAPIDefault(v any) any {
	switch tv := v.(type) {
	case interface{ MarshalText() ([]byte, error) }:
		b, err := tv.MarshalText()
		if err != nil {
			return nil
		}
		return string(b)
	default:
		return v
	}
}
