// Package mcpserver exposes the sealed tool catalog over the Model Context
// Protocol on stdio. Calls go through the same schema validation and audit
// path as HTTP dispatches; only the model-interpretation stage is skipped,
// because an MCP client names the tool itself.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/GeorgeMargineanu/toolgate/internal/domain/audit"
	"github.com/GeorgeMargineanu/toolgate/internal/domain/tool"
	"github.com/GeorgeMargineanu/toolgate/internal/version"
)

// mcpActor is the actor recorded for calls arriving over MCP; the protocol
// carries no caller identity.
const mcpActor = "mcp"

// Server bridges the tool registry to an MCP stdio session.
type Server struct {
	mcp      *server.MCPServer
	registry *tool.Registry
	sink     audit.Sink
	logger   *slog.Logger
}

// New builds the MCP server and registers every contract from the sealed
// registry under its own name, with the contract's JSON schema advertised
// verbatim.
func New(registry *tool.Registry, sink audit.Sink, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mcpServer := server.NewMCPServer(
		"toolgate",
		version.Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	s := &Server{
		mcp:      mcpServer,
		registry: registry,
		sink:     sink,
		logger:   logger,
	}

	for _, c := range registry.Contracts() {
		contract := c
		mcpServer.AddTool(
			mcp.NewToolWithRawSchema(contract.Name, contract.Description, contract.Schema.JSON()),
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return s.handleCall(ctx, contract, request)
			},
		)
	}

	return s
}

// Serve blocks reading MCP requests from stdin until the stream closes.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleCall(ctx context.Context, contract tool.Contract, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.callTool(ctx, contract, request.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(result)), nil
}

// callTool validates, executes, and audits one tool call. A failed audit
// append is logged but does not fail the call; the execution already
// happened.
func (s *Server) callTool(ctx context.Context, contract tool.Contract, args map[string]any) (json.RawMessage, error) {
	if args == nil {
		args = map[string]any{}
	}
	if v := contract.Schema.Validate(args); v != nil {
		return nil, v
	}

	rawArgs, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode arguments: %w", err)
	}

	result, err := contract.Executor.Execute(ctx, rawArgs)
	if err != nil {
		return nil, err
	}

	rec := audit.NewRecord(mcpActor, contract.Name, rawArgs, result)
	if err := s.sink.Append(ctx, rec); err != nil {
		s.logger.Error("audit append failed",
			slog.String("audit_id", rec.ID),
			slog.String("tool", rec.Tool),
			slog.String("error", err.Error()))
	}

	return result, nil
}
