package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatwise-tools/chatwise-mcp/internal/apperr"
	"github.com/chatwise-tools/chatwise-mcp/internal/chatdb/chatdbtest"
	"github.com/chatwise-tools/chatwise-mcp/internal/config"
	"github.com/chatwise-tools/chatwise-mcp/internal/search"
)

var cliNow = time.Unix(1_700_001_000, 0)

func fixtureEnv(t *testing.T) (*chatdbtest.Fixture, *cliEnv) {
	t.Helper()
	f := chatdbtest.New(t).
		Chat("c1", "Rust async", 1_700_000_000).
		Msg("c1", "m1", "user", "how do I use tokio with rust", 1_700_000_010).
		Msg("c1", "m2", "assistant", "rust futures are lazy", 1_700_000_020).
		Chat("c2", "Groceries", 1_700_000_100).
		Msg("c2", "m3", "user", "milk and eggs", 1_700_000_900)
	return f, &cliEnv{cfg: config.Default(), dbFlag: f.Path}
}

func TestRunSearchKeyword(t *testing.T) {
	_, env := fixtureEnv(t)

	resp, err := runSearch(context.Background(), env, searchFlags{
		query:  []string{"rust"},
		window: "all",
		match:  "any",
	}, cliNow)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "c1", resp.Results[0].ChatID)
	assert.Equal(t, []string{"c1"}, resp.TopChatIDs)

	text := formatSearch(resp)
	assert.Contains(t, text, "Rust async")
	assert.Contains(t, text, "c1")
}

func TestRunSearchDoesNotHideRecentPrompt(t *testing.T) {
	// m3 is 10s old; the MCP server would drop it as the caller's own
	// prompt, the CLI never does.
	_, env := fixtureEnv(t)

	resp, err := runSearch(context.Background(), env, searchFlags{
		query:  []string{"eggs"},
		window: "all",
	}, time.Unix(1_700_000_910, 0))
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "c2", resp.Results[0].ChatID)
}

func TestRunSearchBadWindow(t *testing.T) {
	_, env := fixtureEnv(t)
	_, err := runSearch(context.Background(), env, searchFlags{query: []string{"rust"}, window: "fortnight"}, cliNow)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestRecentTable(t *testing.T) {
	_, env := fixtureEnv(t)

	resp, err := runSearch(context.Background(), env, searchFlags{
		query:    []string{"*"},
		window:   "all",
		limit:    20,
		snippets: 1,
	}, cliNow)
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "c2", resp.Results[0].ChatID, "latest activity first")

	table := formatRecent(resp)
	lines := strings.Split(strings.TrimSpace(table), "\n")
	assert.Contains(t, lines[0], "UPDATED")
	assert.Contains(t, table, "Groceries")
	assert.Contains(t, table, "Total: 2 conversations")
	assert.Equal(t, "No conversations.\n", formatRecent(&search.Response{}))
}

func TestRunDeleteDryRun(t *testing.T) {
	f, env := fixtureEnv(t)

	report, err := runDelete(context.Background(), env, []string{"c1", "c1", "ghost"}, true)
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, []string{"c1", "ghost"}, report.ChatIDs)
	assert.Equal(t, 2, report.Totals.Messages)
	assert.Contains(t, formatDelete(report), "Would delete 1 chat(s) and 2 message(s).")

	msgs, err := f.DB.Messages(context.Background(), "c1")
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	report, err = runDelete(context.Background(), env, []string{"c1"}, false)
	require.NoError(t, err)
	require.NotNil(t, report.Deleted)
	assert.Equal(t, 1, report.Deleted.Chat)

	msgs, err = f.DB.Messages(context.Background(), "c1")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestConfirm(t *testing.T) {
	var out bytes.Buffer
	assert.True(t, confirm(strings.NewReader("y\n"), &out, "? "))
	assert.True(t, confirm(strings.NewReader(" YES \n"), &out, "? "))
	assert.False(t, confirm(strings.NewReader("n\n"), &out, "? "))
	assert.False(t, confirm(strings.NewReader(""), &out, "? "))
	assert.Equal(t, "? ? ? ? ", out.String())
}

func TestSearchDefaults(t *testing.T) {
	off := false
	d := searchDefaults(config.SearchSettings{
		MaxResults:          5,
		RecentCutoffSeconds: 0,
		PrecisionMode:       "fuzzy",
		ExcludeCurrent:      &off,
	})
	assert.Equal(t, 5, d.LimitChats)
	assert.Equal(t, search.DefaultCutoff, d.RecentCutoff)
	assert.Equal(t, search.PrecisionFuzzy, d.Precision)
	assert.False(t, d.ExcludeCurrent)
	assert.True(t, d.IncludeTools)

	d = searchDefaults(config.SearchSettings{PrecisionMode: "exact"})
	assert.Equal(t, search.PrecisionBasic, d.Precision)
}

func TestShowConfigPrintsEffectiveValues(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, showConfig(&out, "/tmp/config.toml", "/tmp/app.db", config.Default()))

	text := out.String()
	assert.Contains(t, text, "# config: /tmp/config.toml")
	assert.Contains(t, text, "(from flag)")

	var parsed config.Config
	_, err := toml.Decode(text, &parsed)
	require.NoError(t, err)
	assert.Equal(t, "chatwise-mcp", parsed.Server.Name)
	assert.Equal(t, search.DefaultLimitChats, parsed.Search.MaxResults)
	require.NotNil(t, parsed.Search.IncludeTools)
	assert.True(t, *parsed.Search.IncludeTools)
}

func TestRunServeUnknownTransport(t *testing.T) {
	_, env := fixtureEnv(t)
	err := runServe(context.Background(), env, serveOptions{transport: "carrier-pigeon", name: "chatwise-mcp"}, strings.NewReader(""), &bytes.Buffer{})
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestCrashLogPath(t *testing.T) {
	env := &cliEnv{cfg: config.Default()}
	assert.Empty(t, env.crashLogPath())

	env.cfg.Logs.Dir = "/var/log/chatwise-mcp"
	assert.Equal(t, "/var/log/chatwise-mcp/crash.log", env.crashLogPath())
}
