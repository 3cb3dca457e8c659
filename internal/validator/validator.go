package validator

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/sieve/internal/catalog"
	"github.com/aretw0/sieve/internal/compiler"
	"github.com/aretw0/sieve/pkg/ports"
	"github.com/aretw0/sieve/pkg/registry"
)

// ValidateSource compiles every schema in src and reports all defects at
// once: documents that do not compile, embed cycles, embeds naming missing
// schemas, and documents whose name differs from their key in the source.
func ValidateSource(ctx context.Context, src ports.SchemaSource, reg *registry.Registry) error {
	names, err := src.List(ctx)
	if err != nil {
		return fmt.Errorf("list schemas: %w", err)
	}

	cat := catalog.New(src, catalog.WithRegistry(reg))
	failures, err := cat.Check(ctx)
	if err != nil {
		return err
	}

	parser := compiler.NewParser()
	var errors []string
	for _, name := range names {
		if err, ok := failures[name]; ok {
			errors = append(errors, fmt.Sprintf("%s: %v", name, indent(err)))
			continue
		}

		data, err := src.Get(ctx, name)
		if err != nil {
			errors = append(errors, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		doc, err := parser.Parse(data)
		if err != nil {
			errors = append(errors, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		if doc.Name != name {
			errors = append(errors, fmt.Sprintf("%s: document is named '%s'", name, doc.Name))
		}
	}

	if len(errors) > 0 {
		sort.Strings(errors)
		return fmt.Errorf("found %d errors:\n- %s", len(errors), strings.Join(errors, "\n- "))
	}

	return nil
}

// indent keeps joined multi-line errors under their list item.
func indent(err error) string {
	return strings.ReplaceAll(err.Error(), "\n", "\n    ")
}
