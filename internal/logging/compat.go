package logging

import (
	"bytes"
	"context"
	"log"
	"log/slog"
	"strings"
)

// BridgeWriter wraps slog as an io.Writer so that libraries taking a
// *log.Logger (the MCP transports) flow through structured logging. A
// leading "[CATEGORY] " prefix becomes the component field.
type BridgeWriter struct {
	component string
	level     slog.Level
}

// NewBridgeWriter creates a writer that forwards writes to slog at warn
// level. The defaultComponent is used when no [CATEGORY] prefix is found.
func NewBridgeWriter(defaultComponent string) *BridgeWriter {
	return &BridgeWriter{
		component: defaultComponent,
		level:     slog.LevelWarn,
	}
}

// StdLogger returns a *log.Logger that writes through a BridgeWriter.
func StdLogger(component string) *log.Logger {
	return log.New(NewBridgeWriter(component), "", 0)
}

// Write implements io.Writer. Each write is treated as one log line.
func (bw *BridgeWriter) Write(p []byte) (int, error) {
	n := len(p)
	msg := string(bytes.TrimSpace(p))
	if msg == "" {
		return n, nil
	}

	msg = stripLogTimestamp(msg)

	component := bw.component
	if strings.HasPrefix(msg, "[") {
		if idx := strings.Index(msg, "] "); idx > 0 {
			component = strings.ToLower(msg[1:idx])
			msg = msg[idx+2:]
		}
	}
	component = canonicalComponent(component)

	Logger().Log(context.Background(), bw.level, msg, slog.String("component", component))
	return n, nil
}

// stripLogTimestamp removes the time prefix added by log.SetFlags(log.Ltime|log.Lmicroseconds).
func stripLogTimestamp(s string) string {
	// "15:04:05.000000 "
	if len(s) > 16 && s[2] == ':' && s[5] == ':' && s[8] == '.' && s[15] == ' ' {
		return s[16:]
	}
	// "15:04:05 "
	if len(s) > 9 && s[2] == ':' && s[5] == ':' && s[8] == ' ' {
		return s[9:]
	}
	return s
}

// canonicalComponent maps known log prefixes to canonical component names.
func canonicalComponent(cat string) string {
	switch cat {
	case "mcp", "stdio", "sse", "streamable", "transport":
		return CompMCP
	case "http", "http-server":
		return CompHTTP
	case "store", "sqlite", "db":
		return CompStore
	case "search":
		return CompSearch
	case "merge", "gather":
		return CompMerge
	default:
		return cat
	}
}
