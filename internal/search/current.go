package search

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/chatwise-tools/chatwise-mcp/internal/chatdb"
	"github.com/chatwise-tools/chatwise-mcp/internal/timewindow"
)

// EnvCurrentChatID names the variable a host may set to the running chat.
const EnvCurrentChatID = "CHATWISE_CURRENT_CHAT_ID"

// EnvServerName overrides the server name the detector looks for.
const EnvServerName = "MCP_SERVER_NAME"

// DefaultDetectLookback bounds how far back the detector looks.
const DefaultDetectLookback = 15 * time.Minute

// CurrentResolver finds the conversation a search is being run from. An
// empty id means unknown.
type CurrentResolver interface {
	CurrentChatID(ctx context.Context, st Store, now time.Time) (string, error)
}

// StaticCurrent is an id supplied by the caller.
type StaticCurrent string

func (s StaticCurrent) CurrentChatID(context.Context, Store, time.Time) (string, error) {
	return strings.TrimSpace(string(s)), nil
}

// EnvCurrent reads the id from an environment variable.
type EnvCurrent struct {
	Var    string
	Getenv func(string) string
}

func (e EnvCurrent) CurrentChatID(context.Context, Store, time.Time) (string, error) {
	name := e.Var
	if name == "" {
		name = EnvCurrentChatID
	}
	getenv := e.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	return strings.TrimSpace(getenv(name)), nil
}

// ToolCallDetector picks the chat whose assistant most recently invoked
// this server's search tool.
type ToolCallDetector struct {
	ServerName string
	ToolName   string
	Lookback   time.Duration
}

func (d ToolCallDetector) CurrentChatID(ctx context.Context, st Store, now time.Time) (string, error) {
	lookback := d.Lookback
	if lookback <= 0 {
		lookback = DefaultDetectLookback
	}
	tool := d.ToolName
	if tool == "" {
		tool = ToolName
	}
	w, err := timewindow.Explicit(now.Add(-lookback).UnixMilli(), now.UnixMilli())
	if err != nil {
		return "", err
	}
	return st.LatestToolInvocation(ctx, chatdb.InvocationQuery{
		ServerName: d.ServerName,
		ToolName:   tool,
		Window:     w,
	})
}

// FirstOf tries resolvers in order and returns the first non-empty id.
// Resolver errors are logged and skipped.
type FirstOf []CurrentResolver

func (f FirstOf) CurrentChatID(ctx context.Context, st Store, now time.Time) (string, error) {
	for _, r := range f {
		id, err := r.CurrentChatID(ctx, st, now)
		if err != nil {
			searchLog.Warn("current_chat_resolver_failed", "error", err)
			continue
		}
		if id != "" {
			return id, nil
		}
	}
	return "", nil
}

// DefaultCurrent is the env variable, then tool-call detection for
// serverName (MCP_SERVER_NAME when set).
func DefaultCurrent(serverName string) CurrentResolver {
	if v := strings.TrimSpace(os.Getenv(EnvServerName)); v != "" {
		serverName = v
	}
	return FirstOf{
		EnvCurrent{},
		ToolCallDetector{ServerName: serverName},
	}
}
