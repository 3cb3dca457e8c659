/*
Package ports defines the driven ports (interfaces) for the sieve engine.

These interfaces decouple validation from where schema documents are kept,
allowing the same schemas to be served from a directory, Redis or memory.

# Key Interfaces

  - SchemaSource: Reads raw schema documents by name.
  - WritableSource: A SchemaSource that also stores and removes documents.
  - Watchable: Notifies about changed schemas for hot-reload.
*/
package ports
