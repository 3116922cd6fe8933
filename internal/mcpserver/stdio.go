package mcpserver

import (
	"context"
	"io"

	"github.com/mark3labs/mcp-go/server"

	"github.com/chatwise-tools/chatwise-mcp/internal/logging"
)

// ServeStdio runs mcp over in and out until ctx is done or in closes.
// Transport errors go to the log, never to out.
func ServeStdio(ctx context.Context, mcp *server.MCPServer, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(mcp)
	stdio.SetErrorLogger(logging.StdLogger(logging.CompMCP))
	mcpLog.Info("stdio_listening")
	return stdio.Listen(ctx, in, out)
}
