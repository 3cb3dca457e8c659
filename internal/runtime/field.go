package runtime

import (
	"fmt"
	"strings"

	"github.com/aretw0/sieve/pkg/schema"
)

// castValue coerces one raw value to a scalar, enum or collection type. A
// panicking type is reported as a failed cast.
func castValue(t schema.Type, raw any) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("cast to %s panicked: %v", t.Name(), r)
		}
	}()
	return t.Cast(raw)
}

// isEmpty reports whether a value does not satisfy a required check.
func isEmpty(v any) bool {
	switch tv := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(tv) == ""
	default:
		return false
	}
}
