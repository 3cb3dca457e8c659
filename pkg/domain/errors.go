package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidResult is returned when materializing a Result that has errors.
var ErrInvalidResult = errors.New("result is invalid")

// ErrorKind classifies a validation error.
type ErrorKind string

const (
	KindCast           ErrorKind = "cast"            // Value could not be coerced to its type
	KindRequired       ErrorKind = "required"        // Required value is missing
	KindRule           ErrorKind = "rule"            // An "invalid when" clause held
	KindRuleEvaluation ErrorKind = "rule-evaluation" // A clause failed to evaluate
)

// Kinds lists every error kind in a stable order.
var Kinds = []ErrorKind{KindCast, KindRequired, KindRule, KindRuleEvaluation}

// Error is one validation error recorded on a Result.
type Error struct {
	// Field is empty for errors about the whole record.
	Field   string    `json:"field,omitempty"`
	Message string    `json:"message"`
	Kind    ErrorKind `json:"kind"`
	// Clause is the 1-based index of the originating rule clause.
	Clause int `json:"clause,omitempty"`
}

func (e Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
