package logging

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Call describes one finished tool call.
type Call struct {
	Duration time.Duration
	Failed   bool
}

type aggregateKey struct {
	Component string
	Tool      string
}

type aggregateEntry struct {
	Count    int64
	Failures int64
	Total    time.Duration
	Max      time.Duration
}

// Aggregator batches tool-call outcomes and emits one summary per tool per
// interval instead of a line per call.
type Aggregator struct {
	logger   *slog.Logger
	interval time.Duration

	mu      sync.Mutex
	entries map[aggregateKey]*aggregateEntry

	done chan struct{}
	wg   sync.WaitGroup
}

// NewAggregator creates an aggregator that flushes every intervalSecs seconds.
// If logger is nil, recorded calls are dropped.
func NewAggregator(logger *slog.Logger, intervalSecs int) *Aggregator {
	if intervalSecs <= 0 {
		intervalSecs = 60
	}
	return &Aggregator{
		logger:   logger,
		interval: time.Duration(intervalSecs) * time.Second,
		entries:  make(map[aggregateKey]*aggregateEntry),
		done:     make(chan struct{}),
	}
}

// Start begins the background flush goroutine.
func (a *Aggregator) Start() {
	a.wg.Add(1)
	go a.flushLoop()
}

// Stop flushes remaining entries and stops the background goroutine.
func (a *Aggregator) Stop() {
	close(a.done)
	a.wg.Wait()
	a.flush()
}

// Record adds a call to the running totals for component/tool.
func (a *Aggregator) Record(component, tool string, c Call) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := aggregateKey{Component: component, Tool: tool}
	entry, ok := a.entries[key]
	if !ok {
		entry = &aggregateEntry{}
		a.entries[key] = entry
	}
	entry.Count++
	if c.Failed {
		entry.Failures++
	}
	entry.Total += c.Duration
	if c.Duration > entry.Max {
		entry.Max = c.Duration
	}
}

func (a *Aggregator) flushLoop() {
	defer a.wg.Done()
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.flush()
		case <-a.done:
			return
		}
	}
}

func (a *Aggregator) flush() {
	a.mu.Lock()
	if len(a.entries) == 0 {
		a.mu.Unlock()
		return
	}
	entries := a.entries
	a.entries = make(map[aggregateKey]*aggregateEntry)
	a.mu.Unlock()

	if a.logger == nil {
		return
	}

	keys := make([]aggregateKey, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Component != keys[j].Component {
			return keys[i].Component < keys[j].Component
		}
		return keys[i].Tool < keys[j].Tool
	})

	for _, key := range keys {
		entry := entries[key]
		avg := time.Duration(0)
		if entry.Count > 0 {
			avg = entry.Total / time.Duration(entry.Count)
		}
		a.logger.Info("tool_call_summary",
			slog.String("component", key.Component),
			slog.String("tool", key.Tool),
			slog.Int64("count", entry.Count),
			slog.Int64("failures", entry.Failures),
			slog.Int64("avg_ms", avg.Milliseconds()),
			slog.Int64("max_ms", entry.Max.Milliseconds()),
			slog.Int("window_seconds", int(a.interval.Seconds())),
		)
	}
}
