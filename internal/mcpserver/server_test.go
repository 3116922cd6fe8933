package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/chatwise-tools/chatwise-mcp/internal/logging"
	"github.com/chatwise-tools/chatwise-mcp/internal/search"
)

func handle(t *testing.T, opts Options, msg string) string {
	t.Helper()
	srv := NewServer(opts)
	resp := srv.HandleMessage(context.Background(), json.RawMessage(msg))
	require.NotNil(t, resp)
	body, err := json.Marshal(resp)
	require.NoError(t, err)
	return string(body)
}

func TestNewServerListsProfileTools(t *testing.T) {
	list := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`

	all := handle(t, Options{}, list)
	assert.Contains(t, all, ToolSearch)
	assert.Contains(t, all, ToolGather)
	assert.Contains(t, all, ToolDelete)

	read := handle(t, Options{Tools: ResolveTools("read")}, list)
	assert.Contains(t, read, ToolSearch)
	assert.NotContains(t, read, ToolDelete)
}

func TestToolCallThroughServer(t *testing.T) {
	f := rustFixture(t)
	opts := Options{
		DBPath:  f.Path,
		Search:  search.StandardDefaults(),
		Current: search.StaticCurrent("c2"),
		Now:     func() time.Time { return testNow },
	}

	out := handle(t, opts, `{"jsonrpc":"2.0","id":2,"method":"tools/call",
		"params":{"name":"search_conversations","arguments":{"intent_query":"*"}}}`)
	assert.Contains(t, out, `\"topChatIds\":[\"c1\"]`)
	assert.Contains(t, out, `returned_recent_wildcard`)
}

func TestHealthz(t *testing.T) {
	srv := NewHTTPServer(NewServer(Options{}), HTTPConfig{ListenAddr: "127.0.0.1:0", Name: "chatwise-mcp"})

	req := httptest.NewRequest(http.MethodGet, HealthPath, nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"ok":true`)
	assert.Contains(t, rr.Body.String(), `"name":"chatwise-mcp"`)

	req = httptest.NewRequest(http.MethodPost, HealthPath, nil)
	rr = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
}

func TestRateLimit(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	ts := httptest.NewServer(withRateLimit(1, 1, ok))
	defer ts.Close()

	client := ts.Client()
	defer client.CloseIdleConnections()

	first, err := client.Get(ts.URL)
	require.NoError(t, err)
	first.Body.Close()
	assert.Equal(t, http.StatusNoContent, first.StatusCode)

	second, err := client.Get(ts.URL)
	require.NoError(t, err)
	second.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
	assert.Equal(t, "1", second.Header.Get("Retry-After"))
}

func TestRateLimitDisabled(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := withRateLimit(0, 0, ok)
	for i := 0; i < 5; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	logging.Init(logging.Config{})
	defer logging.Shutdown()

	crashLog := filepath.Join(t.TempDir(), logging.CrashLogName)
	h := withRecover(crashLog, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	data, err := os.ReadFile(crashLog)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"recover":"boom"`)
	assert.Contains(t, string(data), `"where":"/x"`)
}

func TestToolPanicWritesCrashLog(t *testing.T) {
	logging.Init(logging.Config{})
	defer logging.Shutdown()

	crashLog := filepath.Join(t.TempDir(), "logs", logging.CrashLogName)
	h := &handlers{opts: Options{CrashLog: crashLog}}
	wrapped := h.instrument(ToolGather, func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var tl map[string]int
		tl["c1"]++ // nil map write
		return nil, nil
	})

	var (
		res *mcp.CallToolResult
		err error
	)
	require.NotPanics(t, func() {
		res, err = wrapped(context.Background(), mcp.CallToolRequest{})
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.IsError)

	data, err := os.ReadFile(crashLog)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"panic"`)
	assert.Contains(t, string(data), `"where":"gather_chats"`)
	assert.Contains(t, callResultText(t, res), "internal error in gather_chats")
}
