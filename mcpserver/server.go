// Package mcpserver exposes the tools of a plantool.Registry over the Model Context Protocol.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/skosovsky/plantool"
	"github.com/skosovsky/plantool/logger"
)

// EndpointPath is where the streamable HTTP transport is served.
const EndpointPath = "/mcp"

const instructions = `Tools of a housing purchase planning assistant.
Amounts accept numbers of won or Korean text such as "3억 5천만".
Pass the same session_id to calculate_affordability, search_products and upsert_plan to build one plan per user.
Every result is a JSON envelope; when success is false, error_kind and message explain the failure and retryable says whether the same call may succeed later.`

type Server struct {
	mcp *server.MCPServer
	reg *plantool.Registry
	log *logger.Logger
}

// New builds an MCP server publishing every tool registered in reg at the time of the call.
func New(reg *plantool.Registry, name, version string, log *logger.Logger) (*Server, error) {
	if log == nil {
		log = logger.NewNop()
	}
	s := &Server{reg: reg, log: log.With("component", "mcp")}
	s.mcp = server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
		server.WithToolHandlerMiddleware(s.logCalls),
	)
	for _, t := range reg.GetAllTools() {
		def, err := Definition(t)
		if err != nil {
			return nil, err
		}
		s.mcp.AddTool(def, s.handler(t.Name()))
	}
	return s, nil
}

// MCP returns the underlying protocol server, e.g. for stdio serving.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// Handler returns the streamable HTTP transport mounted at EndpointPath.
func (s *Server) Handler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp, server.WithEndpointPath(EndpointPath))
}

// Definition converts a registry tool into its MCP declaration. Read-only tools carry the
// read-only hint; tools that write plans are marked idempotent, since plan writes are upserts.
func Definition(t plantool.Tool) (mcp.Tool, error) {
	schema, err := json.Marshal(t.Parameters())
	if err != nil {
		return mcp.Tool{}, fmt.Errorf("tool %q: marshal input schema: %w", t.Name(), err)
	}
	def := mcp.NewToolWithRawSchema(t.Name(), t.Description(), schema)
	writes := false
	if meta, ok := t.(plantool.ToolMetadata); ok {
		writes = meta.WritesPlan()
	}
	def.Annotations.ReadOnlyHint = mcp.ToBoolPtr(!writes)
	def.Annotations.DestructiveHint = mcp.ToBoolPtr(false)
	def.Annotations.IdempotentHint = mcp.ToBoolPtr(true)
	def.Annotations.OpenWorldHint = mcp.ToBoolPtr(false)
	return def, nil
}

func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(req.Params.Arguments)
		if err != nil {
			return mcp.NewToolResultError("arguments are not valid JSON"), nil
		}
		res := s.reg.Execute(ctx, plantool.ToolCall{ToolName: name, Args: args})
		body, err := json.Marshal(res)
		if err != nil {
			return nil, fmt.Errorf("marshal result of %s: %w", name, err)
		}
		out := mcp.NewToolResultText(string(body))
		out.IsError = !res.Success
		return out, nil
	}
}

func (s *Server) logCalls(next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		clientSession := ""
		if cs := server.ClientSessionFromContext(ctx); cs != nil {
			clientSession = cs.SessionID()
		}
		s.log.Debug("mcp tool call", "tool", req.Params.Name, "client_session", clientSession)
		return next(ctx, req)
	}
}
