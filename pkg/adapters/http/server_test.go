package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/sieve"
	"github.com/aretw0/sieve/internal/compiler"
	"github.com/aretw0/sieve/pkg/adapters/memory"
	"github.com/aretw0/sieve/pkg/ports"
	"github.com/aretw0/sieve/pkg/redact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var documents = map[string]string{
	"person": `
name: person
fields:
  - name: name
    type: string
    trim: true
    required: true
  - name: age
    type: int
    rules:
      - check: lt
        args: [0]
        message: must be non-negative
      - check: gt_field
        args: [limit]
  - name: limit
    type: int
    default: 120
`,
	"broken": "name: broken\nfields: [{name: a, type: money}]",
}

func newTestHandler(opts ...Option) http.Handler {
	eng := sieve.New(sieve.WithSource(memory.NewSource(documents)))
	return NewHandler(eng, opts...)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestValidate(t *testing.T) {
	h := newTestHandler()

	w := do(t, h, "POST", "/schemas/person/validate", `{"params": {"name": " Ada ", "age": -1}}`)
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		Schema  string         `json:"schema"`
		Valid   bool           `json:"valid"`
		Changes map[string]any `json:"changes"`
		Errors  []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
			Kind    string `json:"kind"`
			Clause  int    `json:"clause"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "person", got.Schema)
	assert.False(t, got.Valid)
	assert.Equal(t, "Ada", got.Changes["name"])
	require.Len(t, got.Errors, 1)
	assert.Equal(t, "age", got.Errors[0].Field)
	assert.Equal(t, "must be non-negative", got.Errors[0].Message)
	assert.Equal(t, "rule", got.Errors[0].Kind)
}

func TestValidate_BaseAndBindings(t *testing.T) {
	h := newTestHandler()

	w := do(t, h, "POST", "/schemas/person/validate",
		`{"params": {"age": 40, "limit": 30}, "base": {"name": "Ada"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"valid":false`)
	assert.Contains(t, w.Body.String(), "must be less than or equal to limit")
	assert.NotContains(t, w.Body.String(), "can't be blank")

	w = do(t, h, "POST", "/schemas/person/validate", `{"params": {"name": "Ada", "age": 40}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"valid":true`)

	w = do(t, h, "POST", "/schemas/person/validate",
		`{"params": {"name": "Ada", "age": 40}, "bindings": {"limit": 30}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"valid":false`)
}

func TestErrorStatuses(t *testing.T) {
	h := newTestHandler()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown schema", "POST", "/schemas/nobody/validate", `{"params": {}}`, http.StatusNotFound},
		{"broken schema", "POST", "/schemas/broken/validate", `{"params": {}}`, http.StatusUnprocessableEntity},
		{"malformed body", "POST", "/schemas/person/validate", `{"params": `, http.StatusBadRequest},
		{"describe unknown", "GET", "/schemas/nobody", "", http.StatusNotFound},
		{"openapi of broken", "GET", "/schemas/broken/openapi", "", http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestStatusFor(t *testing.T) {
	unresolved := fmt.Errorf("%w: address: %w", compiler.ErrUnresolvedEmbed, ports.ErrSchemaNotFound)
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(unresolved))
	assert.Equal(t, http.StatusNotFound, StatusFor(ports.ErrSchemaNotFound))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("boom")))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(sieve.ErrNoSource))
}

func TestSchemas(t *testing.T) {
	h := newTestHandler()

	w := do(t, h, "GET", "/schemas", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"schemas": ["broken", "person"]}`, w.Body.String())

	w = do(t, h, "GET", "/schemas/person", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"person"`)
	assert.Contains(t, w.Body.String(), `"required":true`)

	w = do(t, h, "GET", "/schemas/person/openapi", "")
	require.Equal(t, http.StatusOK, w.Code)
	var spec map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &spec))
	assert.Contains(t, spec["properties"], "age")
	assert.Equal(t, []any{"name"}, spec["required"])
}

func TestHealthInfoAndCORS(t *testing.T) {
	h := newTestHandler()

	w := do(t, h, "GET", "/health", "")
	assert.JSONEq(t, `{"status": "ok"}`, w.Body.String())

	w = do(t, h, "GET", "/info", "")
	assert.Contains(t, w.Body.String(), `"app":"sieve-http"`)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = do(t, h, "OPTIONS", "/schemas/person/validate", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsRoute(t *testing.T) {
	w := do(t, newTestHandler(), "GET", "/metrics", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "sieve_validations_total 1")
	})
	w = do(t, newTestHandler(WithMetrics(metrics)), "GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sieve_validations_total")
}

func TestSubscribeEvents(t *testing.T) {
	srv := NewServer(sieve.New(sieve.WithSource(memory.NewSource(documents))))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", ts.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() string {
		var lines []string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			if line == "" {
				return strings.Join(lines, "\n")
			}
			lines = append(lines, line)
		}
	}

	assert.Equal(t, "event: ping\ndata: connected", readEvent())
	require.Eventually(t, func() bool { return srv.Streams.Len() == 1 }, time.Second, 10*time.Millisecond)

	srv.Notify("person")
	assert.Equal(t, "event: schema\ndata: person", readEvent())
}

func TestStreamManager_Unsubscribe(t *testing.T) {
	sm := NewStreamManager()
	ch, cancel := sm.Subscribe()
	sm.Broadcast("a")
	assert.Equal(t, "a", <-ch)

	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, sm.Len())
	sm.Broadcast("b")
}

func TestValidate_Redaction(t *testing.T) {
	masker, err := redact.New([]string{"^name$"})
	require.NoError(t, err)
	h := newTestHandler(WithRedaction(masker))

	w := do(t, h, "POST", "/schemas/person/validate", `{"params": {"name": "Ada", "age": 3}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"***"`)
	assert.NotContains(t, w.Body.String(), "Ada")
	assert.Contains(t, w.Body.String(), `"valid":true`)
}
