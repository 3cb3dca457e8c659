// Package schema describes records: the field types values are cast to, which
// fields are required, which fields embed other records, and the rule clauses
// evaluated against each field.
//
// A Descriptor is built once, validated at construction time, and is immutable
// afterwards, so it can be shared by any number of concurrent validations:
//
//	address, _ := schema.NewDescriptor(schema.Definition{
//	    Name:     "address",
//	    Fields:   []schema.FieldSpec{{Name: "zip", Type: schema.String()}},
//	    Required: []string{"zip"},
//	})
//
//	person, err := schema.NewDescriptor(schema.Definition{
//	    Name: "person",
//	    Fields: []schema.FieldSpec{
//	        {Name: "age", Type: schema.Int()},
//	        {Name: "tags", Type: schema.Slice(schema.String())},
//	        {Name: "address", Embed: address},
//	    },
//	    Required: []string{"age"},
//	    Rules: map[string][]schema.Rule{
//	        "age": {{
//	            Condition: schema.Literal(func(age int) bool { return age < 0 }),
//	            Message:   schema.Literal("must be non-negative"),
//	        }},
//	    },
//	})
//
// Types can also be parsed from type strings ("int", "[string]", "{float}",
// "enum(draft,published)"), which is how declarative schema documents refer to
// them:
//
//	typ, err := schema.ParseType("[uuid]")
//
// Every definition defect (unknown type, reference to an undeclared field,
// default that does not cast) is reported by NewDescriptor or ParseType, never
// later while validating data.
package schema
