/*
Package domain contains the values produced and consumed by the sieve engine.

It is kept free of I/O so that every adapter (HTTP, MCP, CLI) can share the same
vocabulary.

# Key Entities

  - Input: the closed set of things that can be validated (a parameter map, a
    prior Result, or a typed Go record), optionally paired with a stored record.
  - Result: the outcome of one validation pass, holding the cast changes and the
    ordered errors, with embedded records as nested Results.
  - Error: one structured validation error (cast, required, rule or
    rule-evaluation).
  - LifecycleHooks: callbacks used for observability.
*/
package domain
