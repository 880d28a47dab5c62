// Package mcp provides an MCP (Model Context Protocol) server for
// phpimpact. This allows AI agents to run impact queries against a loaded
// index through MCP tools instead of CLI commands.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hargabyte/phpimpact/internal/analysis"
	"github.com/hargabyte/phpimpact/internal/naming"
	"github.com/hargabyte/phpimpact/internal/store"
)

// ErrNoIndex is returned by tools called before an index is loaded.
var ErrNoIndex = errors.New("no index loaded")

// Server wraps the MCP server with phpimpact-specific functionality. The
// index can be replaced while serving; each call sees one index.
type Server struct {
	mcpServer    *server.MCPServer
	index        atomic.Pointer[analysis.Index]
	pattern      string
	tools        map[string]bool
	logger       *slog.Logger
	lastActivity time.Time
	timeout      time.Duration
	mu           sync.RWMutex
}

// Config holds server configuration
type Config struct {
	Tools   []string      // Which tools to expose (empty = all)
	Timeout time.Duration // Inactivity timeout (0 = no timeout)
	// EntrypointPattern is the default pattern of the impact tool.
	EntrypointPattern string
	Version           string
	Logger            *slog.Logger
}

// AllTools lists all available tools
var AllTools = []string{"impact", "callers", "stats"}

// New creates an MCP server answering from idx.
func New(idx *analysis.Index, cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		mcpServer:    server.NewMCPServer("phpimpact", version, server.WithToolCapabilities(false)),
		pattern:      cfg.EntrypointPattern,
		tools:        make(map[string]bool),
		logger:       logger,
		lastActivity: time.Now(),
		timeout:      cfg.Timeout,
	}
	s.index.Store(idx)

	toolsToRegister := cfg.Tools
	if len(toolsToRegister) == 0 {
		toolsToRegister = AllTools
	}
	for _, toolName := range toolsToRegister {
		if err := s.registerTool(toolName); err != nil {
			return nil, fmt.Errorf("failed to register tool %s: %w", toolName, err)
		}
		s.tools[toolName] = true
	}

	return s, nil
}

// SetIndex atomically replaces the index queries run against.
func (s *Server) SetIndex(idx *analysis.Index) {
	s.index.Store(idx)
	s.logger.Info("serve.index_swapped", "fingerprint", store.FormatFingerprint(idx.Fingerprint()))
}

// Index returns the current index.
func (s *Server) Index() *analysis.Index {
	return s.index.Load()
}

// registerTool registers a single tool with the MCP server
func (s *Server) registerTool(name string) error {
	schema, ok := toolSchemaRegistry[name]
	if !ok {
		return fmt.Errorf("unknown tool: %s", name)
	}
	opts := []mcp.ToolOption{mcp.WithDescription(schema.Description)}
	for _, p := range schema.Parameters {
		popts := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			popts = append(popts, mcp.Required())
		}
		switch p.Type {
		case "boolean":
			opts = append(opts, mcp.WithBoolean(p.Name, popts...))
		default:
			opts = append(opts, mcp.WithString(p.Name, popts...))
		}
	}
	s.mcpServer.AddTool(mcp.NewTool(name, opts...), s.handler(name))
	return nil
}

func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := s.CallTool(name, req.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(result), nil
	}
}

// ServeStdio starts the server using stdio transport
func (s *Server) ServeStdio() error {
	if s.timeout > 0 {
		go s.timeoutChecker()
	}

	return server.ServeStdio(s.mcpServer)
}

// timeoutChecker monitors for inactivity and exits if timeout exceeded
func (s *Server) timeoutChecker() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.RLock()
		elapsed := time.Since(s.lastActivity)
		s.mu.RUnlock()

		if elapsed > s.timeout {
			s.logger.Info("serve.timeout", "idle", elapsed.Round(time.Second))
			os.Exit(0)
		}
	}
}

// updateActivity updates the last activity timestamp
func (s *Server) updateActivity() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// ListTools returns the list of registered tools, sorted.
func (s *Server) ListTools() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tools := make([]string, 0, len(s.tools))
	for t := range s.tools {
		tools = append(tools, t)
	}
	slices.Sort(tools)
	return tools
}

// ToolSchema describes a tool's name, description, and parameters.
type ToolSchema struct {
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description" yaml:"description"`
	Parameters  []ParameterSchema `json:"parameters" yaml:"parameters"`
}

// ParameterSchema describes a single tool parameter.
type ParameterSchema struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description" yaml:"description"`
	Required    bool   `json:"required" yaml:"required"`
}

// toolSchemaRegistry holds the schema definitions for all tools.
var toolSchemaRegistry = map[string]ToolSchema{
	"impact": {
		Name:        "impact",
		Description: "List the public entrypoints (facades, clients, services, plugins) that transitively call the given methods.",
		Parameters: []ParameterSchema{
			{Name: "targets", Type: "string", Description: `Comma or newline separated methods, e.g. \App\Zed\Sales\Business\Model\Writer::write`, Required: true},
			{Name: "entrypoints", Type: "string", Description: "Entrypoint class regexp (default: (Facade|Client|Service|Plugin)$)"},
			{Name: "explain", Type: "boolean", Description: "Include the call chain from each entrypoint to its target"},
		},
	},
	"callers": {
		Name:        "callers",
		Description: "Show the direct callers and callees of one method with the kind of each edge.",
		Parameters: []ParameterSchema{
			{Name: "method", Type: "string", Description: "Method as Class::method", Required: true},
		},
	},
	"stats": {
		Name:        "stats",
		Description: "Report the size and fingerprint of the loaded index.",
	},
}

// GetToolSchemas returns schemas for all registered tools.
func (s *Server) GetToolSchemas() []ToolSchema {
	schemas := make([]ToolSchema, 0, len(s.tools))
	for _, name := range s.ListTools() {
		schemas = append(schemas, toolSchemaRegistry[name])
	}
	return schemas
}

// CallTool dispatches a tool call by name with the given arguments.
// Returns the JSON result string or an error.
func (s *Server) CallTool(name string, args map[string]any) (string, error) {
	s.updateActivity()

	s.mu.RLock()
	registered := s.tools[name]
	s.mu.RUnlock()
	if !registered {
		return "", fmt.Errorf("unknown tool: %s", name)
	}

	idx := s.index.Load()
	if idx == nil {
		return "", ErrNoIndex
	}

	switch name {
	case "impact":
		raw, _ := args["targets"].(string)
		targets := splitTargets(raw)
		if len(targets) == 0 {
			return "", fmt.Errorf("targets parameter is required")
		}
		pattern, _ := args["entrypoints"].(string)
		if pattern == "" {
			pattern = s.pattern
		}
		explain, _ := args["explain"].(bool)
		report, err := idx.Query(targets, analysis.QueryOptions{Pattern: pattern, Explain: explain})
		if err != nil {
			return "", err
		}
		return toJSON(report)

	case "callers":
		method, _ := args["method"].(string)
		if method == "" {
			return "", fmt.Errorf("method parameter is required")
		}
		key, err := naming.ParseTarget(method)
		if err != nil {
			return "", err
		}
		return toJSON(map[string]any{
			"method":  key,
			"callers": idx.Graph.CallerEdges(key),
			"callees": idx.Graph.Callees(key),
		})

	case "stats":
		return toJSON(map[string]any{
			"counts":          idx.Counts(),
			"interface_links": idx.Links,
			"factory_methods": idx.Factories.Len(),
			"fingerprint":     store.FormatFingerprint(idx.Fingerprint()),
		})
	}
	return "", fmt.Errorf("unknown tool: %s", name)
}

func splitTargets(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func toJSON(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
