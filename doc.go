/*
Package sieve is a schema-directed coercion and validation engine.

A schema is declared once as an immutable Descriptor: its fields and their
types, which fields are required, which fields embed other records, and the
"invalid when" rule clauses attached to each field. The engine applies the
descriptor to untyped input (a decoded JSON object, form values, a Go struct)
and returns a Result holding either the typed values or a structured list of
errors.

# Concept

Validation never fails for bad input. Every problem becomes an Error on the
Result, scoped to the field (and rule clause) that produced it:

  - cast: a value could not be coerced to its declared type.
  - required: a required field has no value.
  - rule: a rule clause held.
  - rule-evaluation: a rule clause itself failed to evaluate.

Only defects in a schema definition are returned as Go errors, and they are
returned when the Descriptor is built.

# Usage

	package main

	import (
		"fmt"

		"github.com/aretw0/sieve"
		"github.com/aretw0/sieve/pkg/dsl"
		"github.com/aretw0/sieve/pkg/schema"
	)

	func main() {
		person := dsl.New("person").
			Field("age", schema.Int()).Required().
			Rule(func(age int) bool { return age < 0 }, "must be non-negative").
			MustBuild()

		res := sieve.Validate(person, sieve.Params(map[string]any{"age": "-1"}))
		if res.Invalid() {
			for _, v := range res.Traverse() {
				fmt.Println(v.Path, v.Message)
			}
		}
	}

Schemas can also be written as YAML or JSON documents and served over HTTP or
MCP; see the cmd/sieve command.
*/
package sieve
