package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aretw0/sieve"
	"github.com/aretw0/sieve/internal/presentation/tui"
	"github.com/aretw0/sieve/pkg/domain"
	"github.com/aretw0/sieve/pkg/redact"
)

// RunValidate applies a named schema to params and writes the result to w in
// the given format, masking values the masker matches. It reports whether the
// input was valid; the error is only for schemas that cannot be resolved and
// output failures.
func RunValidate(ctx context.Context, eng *sieve.Engine, masker *redact.Masker, name string, params map[string]any, bindings []domain.Binding, format string, w io.Writer) (bool, error) {
	res, err := eng.ValidateNamed(ctx, name, domain.Params(params), bindings...)
	if err != nil {
		return false, err
	}
	valid := res.Valid()
	res = masker.Result(res)

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return false, err
		}
	default:
		render, err := tui.NewRenderer("")
		if err != nil {
			return false, err
		}
		out, err := render(tui.Report(res))
		if err != nil {
			return false, err
		}
		fmt.Fprint(w, out)
	}
	return valid, nil
}
