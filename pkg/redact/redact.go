// Package redact masks sensitive values in validation results before they
// leave the process.
package redact

import (
	"fmt"
	"regexp"

	"github.com/aretw0/sieve/pkg/domain"
)

// Mask replaces every redacted value.
const Mask = "***"

// Masker masks the values of fields whose name matches one of its patterns.
type Masker struct {
	patterns []*regexp.Regexp
}

// New compiles the patterns. An empty list yields a Masker that masks
// nothing.
func New(patterns []string) (*Masker, error) {
	m := &Masker{patterns: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("redact pattern %q: %w", p, err)
		}
		m.patterns = append(m.patterns, re)
	}
	return m, nil
}

// Enabled reports whether the Masker has any pattern.
func (m *Masker) Enabled() bool {
	return m != nil && len(m.patterns) > 0
}

func (m *Masker) matches(key string) bool {
	if m == nil {
		return false
	}
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

// Result returns a copy of res with matching fields masked in Raw, Data and
// Changes, recursively through embedded results. res is left untouched.
func (m *Masker) Result(res *domain.Result) *domain.Result {
	if res == nil || !m.Enabled() {
		return res
	}
	cloned := *res
	cloned.Raw = m.Map(res.Raw)
	cloned.Data = m.Map(res.Data)
	if res.Changes != nil {
		cloned.Changes = make(map[string]any, len(res.Changes))
		for k, v := range res.Changes {
			switch nested := v.(type) {
			case *domain.Result:
				cloned.Changes[k] = m.Result(nested)
			case []*domain.Result:
				list := make([]*domain.Result, len(nested))
				for i, n := range nested {
					list[i] = m.Result(n)
				}
				cloned.Changes[k] = list
			default:
				if m.matches(k) {
					v = Mask
				}
				cloned.Changes[k] = v
			}
		}
	}
	return &cloned
}

// Map returns a deep copy of in with matching keys masked. Nested maps are
// masked too; a matching key masks its whole subtree.
func (m *Masker) Map(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		if m.matches(k) {
			out[k] = Mask
			continue
		}
		switch sub := v.(type) {
		case map[string]any:
			out[k] = m.Map(sub)
		case []any:
			list := make([]any, len(sub))
			for i, item := range sub {
				if mm, ok := item.(map[string]any); ok {
					list[i] = m.Map(mm)
				} else {
					list[i] = item
				}
			}
			out[k] = list
		default:
			out[k] = v
		}
	}
	return out
}
