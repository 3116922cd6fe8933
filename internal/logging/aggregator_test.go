package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer guards a bytes.Buffer shared with the flush goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.buf.Bytes()...)
}

func TestAggregatorSummarizesCalls(t *testing.T) {
	var out syncBuffer
	agg := NewAggregator(slog.New(slog.NewJSONHandler(&out, nil)), 60)
	agg.Start()

	agg.Record(CompMCP, "search_conversations", Call{Duration: 10 * time.Millisecond})
	agg.Record(CompMCP, "search_conversations", Call{Duration: 30 * time.Millisecond, Failed: true})
	agg.Record(CompMCP, "gather_chats", Call{Duration: 5 * time.Millisecond})
	agg.Stop()

	records := parseJSONL(out.Bytes())
	require.Len(t, records, 2)

	// Sorted by tool name within a component.
	assert.Equal(t, "gather_chats", records[0]["tool"])
	assert.Equal(t, "search_conversations", records[1]["tool"])
	assert.Equal(t, "tool_call_summary", records[1]["msg"])
	assert.EqualValues(t, 2, records[1]["count"])
	assert.EqualValues(t, 1, records[1]["failures"])
	assert.EqualValues(t, 20, records[1]["avg_ms"])
	assert.EqualValues(t, 30, records[1]["max_ms"])
}

func TestAggregatorNilLogger(t *testing.T) {
	agg := NewAggregator(nil, 1)
	agg.Start()
	agg.Record(CompMCP, "gather_chats", Call{})
	agg.Stop()
}

func TestAggregatorFlushesOnTick(t *testing.T) {
	var out syncBuffer
	agg := NewAggregator(slog.New(slog.NewJSONHandler(&out, nil)), 1)
	agg.Start()
	defer agg.Stop()

	agg.Record(CompHTTP, "delete_conversation", Call{Duration: time.Millisecond})

	assert.Eventually(t, func() bool {
		return len(parseJSONL(out.Bytes())) == 1
	}, 3*time.Second, 50*time.Millisecond)
}

func parseJSONL(data []byte) []map[string]any {
	var records []map[string]any
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var r map[string]any
		if err := json.Unmarshal(line, &r); err == nil {
			records = append(records, r)
		}
	}
	return records
}
