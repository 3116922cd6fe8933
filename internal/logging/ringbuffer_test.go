package logging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingBufferKeepsWholeLines(t *testing.T) {
	rb := NewRingBuffer(20)
	_, _ = rb.Write([]byte("first line\n"))
	_, _ = rb.Write([]byte("second\n"))
	assert.Equal(t, "first line\nsecond\n", string(rb.Bytes()))

	// 11 + 7 + 7 > 20, so the oldest line goes.
	_, _ = rb.Write([]byte("third!\n"))
	assert.Equal(t, "second\nthird!\n", string(rb.Bytes()))
	assert.Equal(t, 2, rb.Len())
}

func TestRingBufferJoinsSplitWrites(t *testing.T) {
	rb := NewRingBuffer(100)
	_, _ = rb.Write([]byte(`{"msg":"tool_`))
	assert.Equal(t, 0, rb.Len(), "incomplete line is not visible")

	n, err := rb.Write([]byte("call\"}\nnext\n"))
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	assert.Equal(t, "{\"msg\":\"tool_call\"}\nnext\n", string(rb.Bytes()))
}

func TestRingBufferOversizedLine(t *testing.T) {
	rb := NewRingBuffer(8)
	_, _ = rb.Write([]byte("short\n"))
	_, _ = rb.Write([]byte(strings.Repeat("x", 20) + "\n"))
	assert.Equal(t, "xxxxxxx\n", string(rb.Bytes()))
}

func TestRingBufferCompacts(t *testing.T) {
	rb := NewRingBuffer(50)
	for i := 0; i < 1000; i++ {
		_, _ = rb.Write([]byte("0123456789\n"))
	}
	assert.Equal(t, 4, rb.Len())
	assert.Less(t, len(rb.lines), 200)
	assert.Equal(t, strings.Repeat("0123456789\n", 4), string(rb.Bytes()))
}

func TestRingBufferConcurrentWrites(t *testing.T) {
	rb := NewRingBuffer(1 << 16)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = rb.Write([]byte("line\n"))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 800, rb.Len())
}

func TestRingBufferDumpToFile(t *testing.T) {
	rb := NewRingBuffer(100)
	_, _ = rb.Write([]byte("a\nb\n"))

	path := filepath.Join(t.TempDir(), "nested", "crash.log")
	require.NoError(t, rb.DumpToFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", string(data))
}
