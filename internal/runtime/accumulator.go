package runtime

import "github.com/aretw0/sieve/pkg/domain"

// accumulator is the append-only error list of one validation pass.
type accumulator struct {
	errs []domain.Error
}

func accumulate(existing []domain.Error) *accumulator {
	return &accumulator{errs: append([]domain.Error(nil), existing...)}
}

func (a *accumulator) add(kind domain.ErrorKind, field, message string, clause int) {
	a.errs = append(a.errs, domain.Error{
		Field:   field,
		Message: message,
		Kind:    kind,
		Clause:  clause,
	})
}

// has reports whether field already has an error.
func (a *accumulator) has(field string) bool {
	for _, e := range a.errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

func (a *accumulator) errors() []domain.Error {
	if len(a.errs) == 0 {
		return nil
	}
	return append([]domain.Error(nil), a.errs...)
}
