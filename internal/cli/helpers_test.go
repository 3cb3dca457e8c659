package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/sieve/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBindings(t *testing.T) {
	got, err := ParseBindings([]string{"limit=30", "user=ada", "flags=[1,2]", "note=a=b", "empty="})
	require.NoError(t, err)
	assert.Equal(t, []domain.Binding{
		domain.Bind("limit", json.Number("30")),
		domain.Bind("user", "ada"),
		domain.Bind("flags", []any{json.Number("1"), json.Number("2")}),
		domain.Bind("note", "a=b"),
		domain.Bind("empty", ""),
	}, got)

	for _, bad := range []string{"novalue", "=x"} {
		_, err := ParseBindings([]string{bad})
		assert.ErrorIs(t, err, ErrBadBinding, bad)
	}
}

func TestReadInput(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want map[string]any
	}{
		{"json", `{"age": 12}`, map[string]any{"age": json.Number("12")}},
		{"yaml", "age: 12\nname: Ada", map[string]any{"age": 12, "name": "Ada"}},
		{"empty", "  \n", map[string]any{}},
		{"null yaml", "~", map[string]any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadInput("-", strings.NewReader(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ReadInput("", strings.NewReader("[1, 2"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "in.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name": "Ada"}`), 0o644))
	got, err := ReadInput(path, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Ada"}, got)
}

func TestResolveFormat(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()

	got, err := ResolveFormat(FormatAuto, f)
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, got, "files are not terminals")

	got, err = ResolveFormat(FormatText, f)
	require.NoError(t, err)
	assert.Equal(t, FormatText, got)

	_, err = ResolveFormat("xml", f)
	assert.Error(t, err)
}

func TestFilesSource(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "address.yml")
	b := filepath.Join(dir, "person.json")
	require.NoError(t, os.WriteFile(a, []byte("name: address"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte(`{"name": "person"}`), 0o644))

	src, err := FilesSource([]string{a, b})
	require.NoError(t, err)
	names, err := src.List(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"address", "person"}, names)

	_, err = FilesSource([]string{a, a})
	assert.Error(t, err)
}

func TestCreateLogger(t *testing.T) {
	_, err := CreateLogger("verbose", false)
	assert.Error(t, err)

	logger, err := CreateLogger("error", true)
	require.NoError(t, err)
	assert.True(t, logger.Enabled(t.Context(), -4))
}
