package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/sieve/pkg/ports"
)

// SchemaSourceContractTest is a reusable test suite that verifies if a
// read-only adapter complies with ports.SchemaSource.
func SchemaSourceContractTest(t *testing.T, src ports.SchemaSource, setupData map[string][]byte) {
	t.Helper()
	ctx := context.Background()

	// 1. Test Get (Success)
	t.Run("Get_Success", func(t *testing.T) {
		for name, expectedContent := range setupData {
			content, err := src.Get(ctx, name)
			if err != nil {
				t.Fatalf("unexpected error getting schema %s: %v", name, err)
			}
			if string(content) != string(expectedContent) {
				t.Errorf("content mismatch for %s. got %q, want %q", name, content, expectedContent)
			}
		}
	})

	// 2. Test Get (NotFound)
	t.Run("Get_NotFound", func(t *testing.T) {
		_, err := src.Get(ctx, "non-existent-schema")
		if !errors.Is(err, ports.ErrSchemaNotFound) {
			t.Errorf("expected ErrSchemaNotFound, got %v", err)
		}
	})

	// 3. Test List
	t.Run("List", func(t *testing.T) {
		names, err := src.List(ctx)
		if err != nil {
			t.Fatalf("unexpected error listing schemas: %v", err)
		}

		if len(names) != len(setupData) {
			t.Errorf("expected %d schemas, got %d", len(setupData), len(names))
		}

		lookup := make(map[string]bool)
		for i, name := range names {
			lookup[name] = true
			if i > 0 && names[i-1] > name {
				t.Errorf("list is not sorted: %v", names)
			}
		}

		for name := range setupData {
			if !lookup[name] {
				t.Errorf("schema %s missing from list", name)
			}
		}
	})
}
