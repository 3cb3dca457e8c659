package tui

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/sieve/pkg/domain"
)

// Report formats a validation result as markdown: a verdict heading, the
// violations with their dotted paths, and the cast changes.
func Report(res *domain.Result) string {
	var b strings.Builder

	verdict := "valid"
	if res.Invalid() {
		verdict = "invalid"
	}
	fmt.Fprintf(&b, "# %s: %s\n\n", res.Schema, verdict)

	if violations := res.Traverse(); len(violations) > 0 {
		b.WriteString("## Errors\n\n")
		b.WriteString("| Field | Kind | Message |\n|---|---|---|\n")
		for _, v := range violations {
			path := v.Path
			if path == "" {
				path = "(record)"
			}
			fmt.Fprintf(&b, "| `%s` | %s | %s |\n", path, v.Kind, escape(v.Message))
		}
		b.WriteString("\n")
	}

	if changes := flatten("", res); len(changes) > 0 {
		b.WriteString("## Changes\n\n")
		b.WriteString("| Field | Value |\n|---|---|\n")
		for _, c := range changes {
			fmt.Fprintf(&b, "| `%s` | `%s` |\n", c.path, escape(c.value))
		}
	}
	return b.String()
}

type change struct {
	path  string
	value string
}

// flatten lists scalar changes with dotted paths, descending into embeds.
func flatten(prefix string, res *domain.Result) []change {
	keys := make([]string, 0, len(res.Changes))
	for k := range res.Changes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []change
	for _, k := range keys {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		switch v := res.Changes[k].(type) {
		case *domain.Result:
			if v != nil {
				out = append(out, flatten(path, v)...)
			}
		case []*domain.Result:
			for i, n := range v {
				if n != nil {
					out = append(out, flatten(fmt.Sprintf("%s.%d", path, i), n)...)
				}
			}
		default:
			out = append(out, change{path: path, value: display(v)})
		}
	}
	return out
}

func display(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprint(v)
}

func escape(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}
