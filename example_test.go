package sieve_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/sieve"
	"github.com/aretw0/sieve/pkg/adapters/memory"
	"github.com/aretw0/sieve/pkg/dsl"
	"github.com/aretw0/sieve/pkg/schema"
)

// ExampleValidate demonstrates validating a map against a schema declared in Go.
func ExampleValidate() {
	person := dsl.New("person").
		Field("name", schema.String().Trimmed()).Required().
		Field("age", schema.Int()).
		Rule(func(age int) bool { return age < 0 }, "must be non-negative").
		MustBuild()

	res := sieve.Validate(person, sieve.Params(map[string]any{
		"name": "  ",
		"age":  "-1",
	}))

	for _, v := range res.Traverse() {
		fmt.Printf("%s: %s\n", v.Path, v.Message)
	}
	// Output:
	// name: can't be blank
	// age: must be non-negative
}

// ExampleEngine_ValidateNamed demonstrates resolving schemas written as YAML
// documents from a source.
func ExampleEngine_ValidateNamed() {
	src := memory.NewSource(map[string]string{
		"signup": `
name: signup
fields:
  - name: email
    type: string
    required: true
    rules:
      - check: format
        args: [email]
  - name: plan
    type: enum(free,pro)
    default: free
`,
	})

	engine := sieve.New(sieve.WithSource(src))
	res, err := engine.ValidateNamed(context.Background(), "signup", sieve.Params(map[string]any{
		"email": "ada@example.com",
	}))
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(res.Valid(), res.Apply()["plan"])
	// Output: true free
}
