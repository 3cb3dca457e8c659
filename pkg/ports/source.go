package ports

import (
	"context"
	"errors"
)

// ErrSchemaNotFound is returned by sources when a schema name is unknown.
var ErrSchemaNotFound = errors.New("schema not found")

// SchemaSource defines where schema documents are read from.
// This allows the storage layer (files, Redis, memory) to be decoupled from
// the compiler.
type SchemaSource interface {
	// Get retrieves the raw document of a schema by name.
	// Returns ErrSchemaNotFound if the schema does not exist.
	Get(ctx context.Context, name string) ([]byte, error)

	// List returns the names of all schemas, sorted.
	List(ctx context.Context) ([]string, error)
}

// WritableSource is a SchemaSource that can store and remove documents.
type WritableSource interface {
	SchemaSource

	// Put stores the raw document of a schema, replacing any previous one.
	Put(ctx context.Context, name string, doc []byte) error

	// Delete removes a schema. Deleting an unknown schema is not an error.
	Delete(ctx context.Context, name string) error
}

// Watchable defines an interface for sources that can notify about changes.
// This is typically used for hot-reload in long running servers.
type Watchable interface {
	// Watch returns a channel that receives the name of every schema that
	// changed. The channel is closed when ctx is done.
	Watch(ctx context.Context) (<-chan string, error)
}
