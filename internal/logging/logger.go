// Package logging wires log/slog for chatwise-mcp: per-component loggers,
// size-rotated files, an in-memory crash trail and periodic tool-call
// summaries.
package logging

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Component names carried in the "component" field.
const (
	CompMCP    = "mcp"
	CompSearch = "search"
	CompMerge  = "merge"
	CompStore  = "store"
	CompConfig = "config"
	CompHTTP   = "http"
	CompCLI    = "cli"
)

// LogFileName is the active log file inside Config.LogDir.
const LogFileName = "chatwise-mcp.log"

// Config holds logging configuration.
type Config struct {
	// LogDir enables rotated file logging into LogDir/LogFileName.
	LogDir string

	// Level is the minimum log level: "debug", "info", "warn", "error"
	Level string

	// Format is "json" (default) or "text"
	Format string

	MaxSizeMB  int // default 10
	MaxBackups int // default 5
	MaxAgeDays int // default 10
	Compress   bool

	// RingBufferSize bounds the crash trail in bytes (default: 1MB)
	RingBufferSize int

	// SummaryIntervalSecs is how often tool-call summaries are flushed (default: 60)
	SummaryIntervalSecs int

	// Stderr mirrors records to this writer as well. The stdio transport owns
	// stdout, so callers pass os.Stderr here and never os.Stdout.
	Stderr io.Writer
}

// Enabled reports whether cfg sends records anywhere.
func (c Config) Enabled() bool {
	return c.LogDir != "" || c.Stderr != nil
}

// state is everything Init installs. It is replaced as a whole.
type state struct {
	logger *slog.Logger
	ring   *RingBuffer
	agg    *Aggregator
	file   *lumberjack.Logger
}

var (
	current atomic.Pointer[state]
	initMu  sync.Mutex

	discard = slog.New(slog.NewJSONHandler(io.Discard, nil))
)

// Init installs the global logging state, replacing any earlier one. With
// no LogDir and no Stderr writer records are discarded, but the crash trail
// and tool-call counters still run.
func Init(cfg Config) {
	initMu.Lock()
	defer initMu.Unlock()

	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 5
	}
	if cfg.MaxAgeDays <= 0 {
		cfg.MaxAgeDays = 10
	}
	if cfg.RingBufferSize <= 0 {
		cfg.RingBufferSize = 1024 * 1024
	}
	if cfg.SummaryIntervalSecs <= 0 {
		cfg.SummaryIntervalSecs = 60
	}

	closeState(current.Load())

	st := &state{ring: NewRingBuffer(cfg.RingBufferSize)}
	writers := []io.Writer{st.ring}
	if cfg.LogDir != "" {
		st.file = &lumberjack.Logger{
			Filename:   filepath.Join(cfg.LogDir, LogFileName),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		writers = append(writers, st.file)
	}
	if cfg.Stderr != nil {
		writers = append(writers, cfg.Stderr)
	}
	out := io.MultiWriter(writers...)

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "text") {
		st.logger = slog.New(slog.NewTextHandler(out, opts))
	} else {
		st.logger = slog.New(slog.NewJSONHandler(out, opts))
	}

	summaries := st.logger
	if !cfg.Enabled() {
		summaries = nil
	}
	st.agg = NewAggregator(summaries, cfg.SummaryIntervalSecs)
	st.agg.Start()

	current.Store(st)
}

// ParseLevel maps a level name to a slog.Level. Unknown names are info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Logger returns the global logger, or a discarding one before Init.
func Logger() *slog.Logger {
	if st := current.Load(); st != nil {
		return st.logger
	}
	return discard
}

// ForComponent returns a logger that tags records with component. It
// resolves the global handler per record, so package-level loggers created
// before Init write through whatever Init installs later.
func ForComponent(name string) *slog.Logger {
	return slog.New(&componentHandler{component: name})
}

type componentHandler struct {
	component string
	attrs     []slog.Attr
	groups    []string
}

func (h *componentHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return Logger().Handler().Enabled(ctx, level)
}

func (h *componentHandler) Handle(ctx context.Context, r slog.Record) error {
	handler := Logger().Handler().WithAttrs([]slog.Attr{slog.String("component", h.component)})
	if len(h.attrs) > 0 {
		handler = handler.WithAttrs(h.attrs)
	}
	for _, g := range h.groups {
		handler = handler.WithGroup(g)
	}
	return handler.Handle(ctx, r)
}

func (h *componentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &next
}

func (h *componentHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.groups = append(append([]string(nil), h.groups...), name)
	return &next
}

// RecordCall adds one tool call to the periodic per-tool summary.
func RecordCall(component, tool string, call Call) {
	if st := current.Load(); st != nil {
		st.agg.Record(component, tool, call)
	}
}

// DumpRingBuffer writes the crash trail to path. It is a no-op before Init.
func DumpRingBuffer(path string) error {
	st := current.Load()
	if st == nil {
		return nil
	}
	return st.ring.DumpToFile(path)
}

// Shutdown flushes pending summaries and closes the log file.
func Shutdown() {
	initMu.Lock()
	defer initMu.Unlock()
	closeState(current.Swap(nil))
}

func closeState(st *state) {
	if st == nil {
		return
	}
	st.agg.Stop()
	if st.file != nil {
		_ = st.file.Close()
	}
}
