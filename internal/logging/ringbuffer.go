package logging

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// RingBuffer keeps the most recent complete log lines within a byte budget.
// It implements io.Writer. Whole lines are evicted oldest first, so a dump
// always starts at a record boundary.
type RingBuffer struct {
	mu      sync.Mutex
	lines   [][]byte
	head    int // index of the oldest line
	used    int // bytes held by lines
	limit   int
	partial []byte // text after the last newline, not yet a line
}

// NewRingBuffer creates a ring buffer holding at most limit bytes.
func NewRingBuffer(limit int) *RingBuffer {
	if limit <= 0 {
		limit = 1024 * 1024
	}
	return &RingBuffer{limit: limit}
}

// Write implements io.Writer. A line longer than the budget is kept
// truncated to its last limit bytes.
func (rb *RingBuffer) Write(p []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	data := p
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			rb.partial = append(rb.partial, data...)
			break
		}
		line := append(rb.partial, data[:i+1]...)
		rb.partial = nil
		rb.push(line)
		data = data[i+1:]
	}
	return len(p), nil
}

func (rb *RingBuffer) push(line []byte) {
	if len(line) > rb.limit {
		line = line[len(line)-rb.limit:]
	}
	owned := make([]byte, len(line))
	copy(owned, line)

	rb.lines = append(rb.lines, owned)
	rb.used += len(owned)
	for rb.used > rb.limit {
		rb.used -= len(rb.lines[rb.head])
		rb.lines[rb.head] = nil
		rb.head++
	}
	// Compact once the evicted prefix dominates.
	if rb.head > 64 && rb.head*2 > len(rb.lines) {
		rb.lines = append([][]byte(nil), rb.lines[rb.head:]...)
		rb.head = 0
	}
}

// Len reports how many complete lines are held.
func (rb *RingBuffer) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return len(rb.lines) - rb.head
}

// Bytes returns the held lines oldest first.
func (rb *RingBuffer) Bytes() []byte {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	out := make([]byte, 0, rb.used)
	for _, line := range rb.lines[rb.head:] {
		out = append(out, line...)
	}
	return out
}

// DumpToFile writes the held lines to path, creating its directory.
func (rb *RingBuffer) DumpToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("logging: crash dump dir: %w", err)
	}
	if err := os.WriteFile(path, rb.Bytes(), 0o600); err != nil {
		return fmt.Errorf("logging: crash dump: %w", err)
	}
	return nil
}
