package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/sieve/internal/logging"
	"github.com/aretw0/sieve/pkg/adapters/memory"
	"github.com/aretw0/sieve/pkg/domain"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Output formats of the validate command.
const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

// ErrBadBinding is returned for a --bind flag that is not name=value.
var ErrBadBinding = errors.New("binding must be name=value")

// CreateLogger configures the application logger. Debug overrides level.
func CreateLogger(level string, debug bool) (*slog.Logger, error) {
	if debug {
		return logging.New(slog.LevelDebug), nil
	}
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return logging.New(lvl), nil
}

// ParseBindings turns name=value pairs into bindings, in order. Values that
// parse as JSON keep their JSON type; anything else stays a string.
func ParseBindings(pairs []string) ([]domain.Binding, error) {
	out := make([]domain.Binding, 0, len(pairs))
	for _, p := range pairs {
		name, raw, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q", ErrBadBinding, p)
		}
		out = append(out, domain.Bind(name, bindingValue(raw)))
	}
	return out, nil
}

func bindingValue(raw string) any {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return raw
	}
	return v
}

// ReadInput reads a record to validate from path, or from stdin when path is
// empty or "-". JSON and YAML are accepted.
func ReadInput(path string, stdin io.Reader) (map[string]any, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return map[string]any{}, nil
	}

	var m map[string]any
	if data[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		err = dec.Decode(&m)
	} else {
		err = yaml.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, fmt.Errorf("parse input: %w", err)
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// ResolveFormat picks the output format. Auto renders text on a terminal
// and JSON when piped.
func ResolveFormat(format string, out *os.File) (string, error) {
	switch format {
	case FormatText, FormatJSON:
		return format, nil
	case FormatAuto, "":
		if out != nil && term.IsTerminal(int(out.Fd())) {
			return FormatText, nil
		}
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown format %q: want auto, text or json", format)
	}
}

// FilesSource loads schema files into an in-memory source keyed by file
// name without its extension.
func FilesSource(paths []string) (*memory.Source, error) {
	docs := make(map[string]string, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		if _, dup := docs[name]; dup {
			return nil, fmt.Errorf("schema %s given twice", name)
		}
		docs[name] = string(data)
	}
	return memory.NewSource(docs), nil
}
