package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/sieve"
	"github.com/aretw0/sieve/internal/compiler"
	"github.com/aretw0/sieve/internal/logging"
	"github.com/aretw0/sieve/pkg/domain"
	"github.com/aretw0/sieve/pkg/ports"
	"github.com/aretw0/sieve/pkg/redact"
	"github.com/aretw0/sieve/pkg/schema"
	"github.com/go-chi/chi/v5"
)

// MaxBodyBytes bounds the size of a validation request body.
const MaxBodyBytes = 1 << 20

// Engine defines what the HTTP server needs from the validation engine.
type Engine interface {
	Schemas(ctx context.Context) ([]string, error)
	Schema(ctx context.Context, name string) (*schema.Descriptor, error)
	Validate(ctx context.Context, d *schema.Descriptor, in domain.Input, bindings ...domain.Binding) *domain.Result
}

// ValidateRequest is the body of POST /schemas/{name}/validate.
type ValidateRequest struct {
	Params   map[string]any `json:"params"`
	Base     map[string]any `json:"base,omitempty"`
	Bindings map[string]any `json:"bindings,omitempty"`
}

// Server exposes an Engine over HTTP.
type Server struct {
	Engine  Engine
	Streams *StreamManager

	logger  *slog.Logger
	metrics http.Handler
	masker  *redact.Masker
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics mounts h on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithRedaction masks matching field values in validation responses.
func WithRedaction(m *redact.Masker) Option {
	return func(s *Server) {
		s.masker = m
	}
}

// NewServer creates a server for the engine.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		Engine:  engine,
		Streams: NewStreamManager(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.logger
	return s
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	return NewServer(engine, opts...).Handler()
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/events", s.SubscribeEvents)
	r.Route("/schemas", func(r chi.Router) {
		r.Get("/", s.ListSchemas)
		r.Get("/{name}", s.DescribeSchema)
		r.Get("/{name}/openapi", s.SchemaOpenAPI)
		r.Post("/{name}/validate", s.Validate)
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return enableCORS(r)
}

// Notify tells event subscribers that a schema changed.
func (s *Server) Notify(name string) {
	s.Streams.Broadcast(name)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "sieve-http",
		"version": strings.TrimSpace(sieve.Version),
	})
}

// ListSchemas handles the GET /schemas request.
func (s *Server) ListSchemas(w http.ResponseWriter, r *http.Request) {
	names, err := s.Engine.Schemas(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"schemas": names})
}

// DescribeSchema handles the GET /schemas/{name} request.
func (s *Server) DescribeSchema(w http.ResponseWriter, r *http.Request) {
	d, ok := s.schema(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, d.Summary())
}

// SchemaOpenAPI handles the GET /schemas/{name}/openapi request.
func (s *Server) SchemaOpenAPI(w http.ResponseWriter, r *http.Request) {
	d, ok := s.schema(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, d.OpenAPI())
}

// Validate handles the POST /schemas/{name}/validate request. An invalid
// input is still a 200: the verdict is in the body.
func (s *Server) Validate(w http.ResponseWriter, r *http.Request) {
	d, ok := s.schema(w, r)
	if !ok {
		return
	}

	var body ValidateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		s.logger.Warn("Validate: invalid request body", "err", err)
		return
	}

	in := domain.Params(body.Params)
	if body.Base != nil {
		in = in.WithBase(body.Base)
	}
	res := s.Engine.Validate(r.Context(), d, in, domain.BindMap(body.Bindings)...)
	s.logger.Debug("Validate", "schema", d.Name(), "valid", res.Valid())
	s.writeJSON(w, http.StatusOK, s.masker.Result(res))
}

func (s *Server) schema(w http.ResponseWriter, r *http.Request) (*schema.Descriptor, bool) {
	d, err := s.Engine.Schema(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, err)
		return nil, false
	}
	return d, true
}

// StatusFor maps an engine error to an HTTP status. Compile errors are
// checked first: an unresolved embed may wrap a not-found error.
func StatusFor(err error) int {
	switch {
	case compiler.IsCompileError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ports.ErrSchemaNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
