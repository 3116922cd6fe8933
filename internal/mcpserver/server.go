// Package mcpserver exposes the chat history as MCP tools over stdio, SSE
// and streamable HTTP.
//
// Tool profiles select which tools are registered:
//
//	chatwise-mcp serve                  → all tools (default)
//	chatwise-mcp serve --tools=read     → search_conversations, gather_chats
//	chatwise-mcp serve --tools=admin    → delete_conversation
//	chatwise-mcp serve --tools=read,delete_conversation
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/chatwise-tools/chatwise-mcp/internal/chatdb"
	"github.com/chatwise-tools/chatwise-mcp/internal/logging"
	"github.com/chatwise-tools/chatwise-mcp/internal/search"
)

var mcpLog = logging.ForComponent(logging.CompMCP)

// DefaultName is the server name announced to clients.
const DefaultName = "chatwise-mcp"

const serverInstructions = `chatwise-mcp reads the local ChatWise chat history. ` +
	`Use search_conversations to find past conversations by keyword or intent, ` +
	`then gather_chats with the returned topChatIds to read one conversation or ` +
	`merge several into aligned timelines. delete_conversation removes chats ` +
	`and their messages; run it with dry_run first.`

// Options configure the tool server.
type Options struct {
	Name    string
	Version string

	// DBPath is opened for every call and closed afterwards.
	DBPath string

	// Tools is the allowlist from ResolveTools; nil registers everything.
	Tools map[string]bool

	Search search.Defaults

	// Current finds the running chat for exclude_current_chat. Nil uses
	// search.DefaultCurrent(Name).
	Current search.CurrentResolver

	// Now is the clock; nil means time.Now.
	Now func() time.Time

	// CrashLog receives the crash trail when a tool handler panics. Empty
	// only logs the panic.
	CrashLog string
}

// NewServer builds an MCP server with the allowed tools registered.
func NewServer(opts Options) *server.MCPServer {
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.Current == nil {
		opts.Current = search.DefaultCurrent(opts.Name)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	srv := server.NewMCPServer(
		opts.Name,
		opts.Version,
		server.WithToolCapabilities(true),
		server.WithInstructions(serverInstructions),
		server.WithRecovery(),
	)

	h := &handlers{opts: opts}
	registerTools(srv, h, opts.Tools)
	return srv
}

// handlers hold the per-call state shared by the tool handlers.
type handlers struct {
	opts Options
}

func (h *handlers) open(ctx context.Context, writable bool) (*chatdb.DB, error) {
	return chatdb.Open(ctx, h.opts.DBPath, chatdb.Options{Writable: writable})
}

// instrument logs each call with a request id and feeds the call summary.
// A panicking handler dumps the crash trail and answers with an error
// result.
func (h *handlers) instrument(tool string, next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (res *mcp.CallToolResult, err error) {
		id := uuid.NewString()
		start := time.Now()
		mcpLog.Debug("tool_call_start", slog.String("tool", tool), slog.String("request_id", id))

		defer func() {
			if rec := recover(); rec != nil {
				_ = logging.RecordPanic(logging.CompMCP, tool, rec, h.opts.CrashLog)
				logging.RecordCall(logging.CompMCP, tool, logging.Call{Duration: time.Since(start), Failed: true})
				res, err = mcp.NewToolResultError(fmt.Sprintf("internal error in %s (request %s)", tool, id)), nil
			}
		}()

		res, err = next(ctx, req)

		elapsed := time.Since(start)
		failed := err != nil || (res != nil && res.IsError)
		logging.RecordCall(logging.CompMCP, tool, logging.Call{Duration: elapsed, Failed: failed})

		attrs := []any{
			slog.String("tool", tool),
			slog.String("request_id", id),
			slog.Int64("duration_ms", elapsed.Milliseconds()),
			slog.Bool("is_error", failed),
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		mcpLog.Info("tool_call", attrs...)
		return res, err
	}
}

func registerTools(srv *server.MCPServer, h *handlers, allowlist map[string]bool) {
	if shouldRegister(ToolSearch, allowlist) {
		srv.AddTool(searchTool(), h.instrument(ToolSearch, h.handleSearch))
	}
	if shouldRegister(ToolGather, allowlist) {
		srv.AddTool(gatherTool(), h.instrument(ToolGather, h.handleGather))
	}
	if shouldRegister(ToolDelete, allowlist) {
		srv.AddTool(deleteTool(), h.instrument(ToolDelete, h.handleDelete))
	}
}
