package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/sieve"
	"github.com/aretw0/sieve/internal/logging"
	"github.com/aretw0/sieve/pkg/domain"
	"github.com/aretw0/sieve/pkg/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// SchemaURIPrefix prefixes the URI of every schema resource.
const SchemaURIPrefix = "sieve://schemas/"

// Engine defines what the MCP server needs from the validation engine.
type Engine interface {
	Schemas(ctx context.Context) ([]string, error)
	Schema(ctx context.Context, name string) (*schema.Descriptor, error)
	Validate(ctx context.Context, d *schema.Descriptor, in domain.Input, bindings ...domain.Binding) *domain.Result
}

// ValidateArgs are the arguments of the validate tool.
type ValidateArgs struct {
	Schema   string         `json:"schema"`
	Params   map[string]any `json:"params"`
	Base     map[string]any `json:"base,omitempty"`
	Bindings map[string]any `json:"bindings,omitempty"`
}

// ValidateResponse is the structured output of the validate tool.
type ValidateResponse struct {
	Schema     string             `json:"schema" jsonschema_description:"Name of the schema applied"`
	Valid      bool               `json:"valid" jsonschema_description:"Whether the input passed every check"`
	Changes    map[string]any     `json:"changes" jsonschema_description:"Cast values that differ from the stored record"`
	Violations []domain.Violation `json:"violations" jsonschema_description:"Every error in the tree with its dotted field path"`
}

// Server wraps the Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
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

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("sieve-mcp", strings.TrimSpace(sieve.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, for embedding in another
// transport.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops it when
// ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("MCP Server shutting down")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: validate
	validateTool := mcp.NewTool("validate",
		mcp.WithDescription("Cast and validate a record against a named schema. Invalid input is reported in the result, not as a tool error."),
		mcp.WithString("schema", mcp.Required(), mcp.Description("Name of the schema to apply")),
		mcp.WithObject("params", mcp.Required(), mcp.Description("The raw field values to validate")),
		mcp.WithObject("base", mcp.Description("The stored record being updated (optional)")),
		mcp.WithObject("bindings", mcp.Description("Names visible to rule clauses (optional)")),
		mcp.WithOutputSchema[ValidateResponse](),
	)
	s.mcpServer.AddTool(validateTool, mcp.NewStructuredToolHandler(s.handleValidate))

	// TOOL: list_schemas
	s.mcpServer.AddTool(mcp.NewTool("list_schemas",
		mcp.WithDescription("List the names of the available schemas."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		names, err := s.engine.Schemas(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		return mcp.NewToolResultText(strings.Join(names, "\n")), nil
	})

	// TOOL: describe_schema
	s.mcpServer.AddTool(mcp.NewTool("describe_schema",
		mcp.WithDescription("Describe the fields, types and required fields of a schema."),
		mcp.WithString("schema", mcp.Required(), mcp.Description("Name of the schema")),
	), s.handleDescribe)
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest, args ValidateArgs) (ValidateResponse, error) {
	d, err := s.engine.Schema(ctx, args.Schema)
	if err != nil {
		return ValidateResponse{}, fmt.Errorf("schema %q: %w", args.Schema, err)
	}

	in := domain.Params(args.Params)
	if args.Base != nil {
		in = in.WithBase(args.Base)
	}
	res := s.engine.Validate(ctx, d, in, domain.BindMap(args.Bindings)...)
	s.logger.Debug("MCP Validate", "schema", d.Name(), "valid", res.Valid())

	violations := res.Traverse()
	if violations == nil {
		violations = []domain.Violation{}
	}
	changes := res.Changes
	if changes == nil {
		changes = map[string]any{}
	}
	return ValidateResponse{
		Schema:     d.Name(),
		Valid:      res.Valid(),
		Changes:    changes,
		Violations: violations,
	}, nil
}

func (s *Server) handleDescribe(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("schema")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := s.describe(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("describe failed: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) describe(ctx context.Context, name string) (string, error) {
	d, err := s.engine.Schema(ctx, name)
	if err != nil {
		return "", err
	}
	jsonBytes, err := json.Marshal(d.Summary())
	if err != nil {
		return "", err
	}
	return string(jsonBytes), nil
}

func (s *Server) registerResources() {
	// EXPOSE: sieve://schemas/{name}
	template := mcp.NewResourceTemplate(SchemaURIPrefix+"{name}", "Schema Summary",
		mcp.WithTemplateDescription("Fields, types and required fields of a schema"),
		mcp.WithTemplateMIMEType("application/json"),
	)
	s.mcpServer.AddResourceTemplate(template, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		uri := request.Params.URI
		text, err := s.describe(ctx, strings.TrimPrefix(uri, SchemaURIPrefix))
		if err != nil {
			return nil, fmt.Errorf("failed to read schema: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      uri,
				MIMEType: "application/json",
				Text:     text,
			},
		}, nil
	})
}
