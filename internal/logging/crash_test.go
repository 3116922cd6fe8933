package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPanicDumpsTrail(t *testing.T) {
	Init(Config{})
	defer Shutdown()

	ForComponent(CompMCP).Info("tool_call_start", "tool", "gather_chats")

	path := filepath.Join(t.TempDir(), "logs", CrashLogName)
	require.NoError(t, RecordPanic(CompMCP, "gather_chats", "boom", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	records := parseJSONL(data)
	require.Len(t, records, 2)
	assert.Equal(t, "tool_call_start", records[0]["msg"])
	assert.Equal(t, "panic", records[1]["msg"])
	assert.Equal(t, "boom", records[1]["recover"])
	assert.Contains(t, records[1]["stack"], "RecordPanic")
}

func TestRecordPanicWithoutPath(t *testing.T) {
	Init(Config{})
	defer Shutdown()
	assert.NoError(t, RecordPanic(CompHTTP, "/mcp", "boom", ""))
}
