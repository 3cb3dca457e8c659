package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSchemaSourceContract runs a suite of tests to verify that a WritableSource
// implementation adheres to the defined interface contract.
func RunSchemaSourceContract(t *testing.T, src WritableSource) {
	ctx := context.Background()
	name := "contract-" + time.Now().Format("20060102150405")
	doc := []byte("name: " + name + "\nfields:\n  - name: age\n    type: int\n")

	t.Run("Put and Get", func(t *testing.T) {
		err := src.Put(ctx, name, doc)
		require.NoError(t, err, "Put should not return error")

		loaded, err := src.Get(ctx, name)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, string(doc), string(loaded))
	})

	t.Run("Put replaces", func(t *testing.T) {
		updated := append(append([]byte(nil), doc...), "  - name: zip\n    type: string\n"...)
		require.NoError(t, src.Put(ctx, name, updated))

		loaded, err := src.Get(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, string(updated), string(loaded))
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := src.Get(ctx, "non-existent-"+name)
		assert.ErrorIs(t, err, ErrSchemaNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, src.Put(ctx, name, doc))

		err := src.Delete(ctx, name)
		require.NoError(t, err, "Delete should not return error")

		_, err = src.Get(ctx, name)
		assert.ErrorIs(t, err, ErrSchemaNotFound, "Get after Delete should return ErrSchemaNotFound")

		assert.NoError(t, src.Delete(ctx, name), "Delete of an unknown schema is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := name + "-1"
		id2 := name + "-2"
		require.NoError(t, src.Put(ctx, id2, doc))
		require.NoError(t, src.Put(ctx, id1, doc))

		defer func() {
			_ = src.Delete(ctx, id1)
			_ = src.Delete(ctx, id2)
		}()

		names, err := src.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, names, id1)
		assert.Contains(t, names, id2)
		assert.IsIncreasing(t, names, "List is sorted")
	})
}
