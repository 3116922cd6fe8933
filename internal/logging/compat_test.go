package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeWriterParsesCategory(t *testing.T) {
	Shutdown()

	dir := t.TempDir()
	Init(Config{LogDir: dir})
	defer Shutdown()

	bw := NewBridgeWriter("legacy")

	tests := []struct {
		input    string
		wantComp string
		wantMsg  string
	}{
		{"[STDIO] read error: EOF\n", CompMCP, "read error: EOF"},
		{"[SQLITE] database is locked\n", CompStore, "database is locked"},
		{"[HTTP-SERVER] listener closed\n", CompHTTP, "listener closed"},
		{"plain message without category\n", "legacy", "plain message without category"},
	}
	for _, tt := range tests {
		_, _ = bw.Write([]byte(tt.input))
	}

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	require.NoError(t, err)
	records := parseJSONL(data)
	require.Len(t, records, len(tests))

	for i, tt := range tests {
		assert.Equal(t, tt.wantComp, records[i]["component"], "input %q", tt.input)
		assert.Equal(t, tt.wantMsg, records[i]["msg"], "input %q", tt.input)
		assert.Equal(t, "WARN", records[i]["level"])
	}
}

func TestStdLoggerStripsTimestamp(t *testing.T) {
	Shutdown()

	dir := t.TempDir()
	Init(Config{LogDir: dir})
	defer Shutdown()

	StdLogger(CompMCP).Print("15:04:05.000000 [SSE] client gone")

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	require.NoError(t, err)
	records := parseJSONL(data)
	require.Len(t, records, 1)
	assert.Equal(t, "client gone", records[0]["msg"])
	assert.Equal(t, CompMCP, records[0]["component"])
}

func TestBridgeWriterEmptyInput(t *testing.T) {
	Shutdown()

	dir := t.TempDir()
	Init(Config{LogDir: dir})
	defer Shutdown()

	n, err := NewBridgeWriter("legacy").Write([]byte("   \n"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	data, _ := os.ReadFile(filepath.Join(dir, LogFileName))
	assert.Empty(t, data)
}

func TestStripLogTimestamp(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"15:04:05.000000 hello", "hello"},
		{"15:04:05 hello", "hello"},
		{"no timestamp here", "no timestamp here"},
		{"12:34:56.789012 [STDIO] msg", "[STDIO] msg"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripLogTimestamp(tt.input))
	}
}

func TestCanonicalComponent(t *testing.T) {
	tests := map[string]string{
		"stdio":            CompMCP,
		"streamable":       CompMCP,
		"sqlite":           CompStore,
		"gather":           CompMerge,
		"http":             CompHTTP,
		"unknown-category": "unknown-category",
	}
	for in, want := range tests {
		assert.Equal(t, want, canonicalComponent(in), in)
	}
}
