/*
Package dsl provides a Go DSL for declaring sieve schemas.

It builds the same immutable Descriptor as schema.NewDescriptor through a
fluent builder, so schemas can be declared next to the code that validates
with them instead of in YAML or JSON documents.

Example usage:

	address := dsl.New("address").
		Field("city", schema.String().Trimmed()).Required().
		MustBuild()

	person := dsl.New("person").
		Field("name", schema.String()).Required().
		Field("age", schema.Int()).
		Rule(func(age int) bool { return age < 0 }, "must be non-negative").
		Field("role", schema.Enum("user", "admin")).Default("user").
		Embed("address", address).
		MustBuild()
*/
package dsl
