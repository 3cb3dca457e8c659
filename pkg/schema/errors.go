package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Definition-time defects. They are returned by ParseType and NewDescriptor
// and never surface while validating data.
var (
	ErrUnknownType    = errors.New("unknown type")
	ErrUnknownField   = errors.New("unknown field")
	ErrDuplicateField = errors.New("duplicate field")
	ErrNilType        = errors.New("field has neither a type nor an embedded schema")
	ErrInvalidField   = errors.New("invalid field definition")
	ErrEmptyCondition = errors.New("rule has no condition")
)

// CastError reports a value that could not be coerced to a type.
type CastError struct {
	Type   string // Type name
	Reason string // Optional detail
	Value  any    // The value that failed to cast
}

func (e *CastError) Error() string {
	msg := fmt.Sprintf("expected %s, got %T", e.Type, e.Value)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func castError(t Type, value any, reason string) error {
	return &CastError{Type: t.Name(), Reason: reason, Value: value}
}

// DefinitionError represents a defect in one schema definition.
type DefinitionError struct {
	Schema string // Schema name
	Field  string // Field name (empty for schema-wide defects)
	Err    error
}

func (e *DefinitionError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema %q: %v", e.Schema, e.Err)
	}
	return fmt.Sprintf("schema %q field %q: %v", e.Schema, e.Field, e.Err)
}

func (e *DefinitionError) Unwrap() error { return e.Err }

// AggregateError represents multiple definition defects.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d definition errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, err.Error())
	}
	return b.String()
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error { return e.Errors }

// DefinitionErrors returns all defects if err is an AggregateError.
// Otherwise returns nil.
func DefinitionErrors(err error) []error {
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Errors
	}
	return nil
}
