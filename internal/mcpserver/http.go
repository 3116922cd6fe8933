package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/time/rate"

	"github.com/chatwise-tools/chatwise-mcp/internal/logging"
)

// HTTP endpoints.
const (
	SSEPath        = "/sse"
	MessagePath    = "/message"
	StreamablePath = "/mcp"
	HealthPath     = "/healthz"
)

var httpLog = logging.ForComponent(logging.CompHTTP)

// HTTPConfig defines runtime options for the HTTP transports.
type HTTPConfig struct {
	ListenAddr string
	Name       string

	// RateLimit is requests per second across all MCP endpoints; zero or
	// less disables limiting.
	RateLimit float64
	RateBurst int

	// CrashLog receives the crash trail when a request handler panics.
	CrashLog string
}

// HTTPServer serves SSE and streamable HTTP on one listener.
type HTTPServer struct {
	cfg        HTTPConfig
	httpServer *http.Server
	sse        *server.SSEServer
	streamable *server.StreamableHTTPServer
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

// NewHTTPServer wires mcp into an HTTP mux.
func NewHTTPServer(mcp *server.MCPServer, cfg HTTPConfig) *HTTPServer {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "127.0.0.1:3000"
	}

	s := &HTTPServer{cfg: cfg}
	s.baseCtx, s.cancelBase = context.WithCancel(context.Background())

	s.sse = server.NewSSEServer(mcp,
		server.WithSSEEndpoint(SSEPath),
		server.WithMessageEndpoint(MessagePath),
		server.WithKeepAlive(true),
	)
	s.streamable = server.NewStreamableHTTPServer(mcp,
		server.WithEndpointPath(StreamablePath),
	)

	limited := func(h http.Handler) http.Handler {
		return withRateLimit(cfg.RateLimit, cfg.RateBurst, h)
	}

	mux := http.NewServeMux()
	mux.Handle(SSEPath, limited(s.sse.SSEHandler()))
	mux.Handle(MessagePath, limited(s.sse.MessageHandler()))
	mux.Handle(StreamablePath, limited(s.streamable))
	mux.HandleFunc(HealthPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		resp := map[string]any{
			"ok":   true,
			"name": cfg.Name,
			"time": time.Now().UTC().Format(time.RFC3339),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           withRecover(cfg.CrashLog, mux),
		BaseContext:       func(_ net.Listener) context.Context { return s.baseCtx },
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          logging.StdLogger(logging.CompHTTP),
	}
	return s
}

// Addr returns the listen address.
func (s *HTTPServer) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the configured HTTP handler (used by tests).
func (s *HTTPServer) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until Shutdown. Returns nil on graceful shutdown.
func (s *HTTPServer) Start() error {
	httpLog.Info("http_listening",
		slog.String("addr", s.cfg.ListenAddr),
		slog.String("sse", SSEPath),
		slog.String("streamable", StreamablePath))
	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.cancelBase != nil {
		// Long-lived SSE streams watch the base context.
		s.cancelBase()
	}
	if err := s.sse.Shutdown(ctx); err != nil {
		httpLog.Warn("sse_shutdown_failed", slog.String("error", err.Error()))
	}
	if err := s.streamable.Shutdown(ctx); err != nil {
		httpLog.Warn("streamable_shutdown_failed", slog.String("error", err.Error()))
	}

	err := s.httpServer.Shutdown(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		if closeErr := s.httpServer.Close(); closeErr != nil {
			return fmt.Errorf("graceful shutdown timed out and force close failed: %w", closeErr)
		}
		return nil
	}
	return err
}

func (s *HTTPServer) String() string {
	return fmt.Sprintf("mcp-http(addr=%s, rate=%g/s)", s.cfg.ListenAddr, s.cfg.RateLimit)
}

func withRateLimit(limit float64, burst int, next http.Handler) http.Handler {
	if limit <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(limit), burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			httpLog.Warn("rate_limited", slog.String("path", r.URL.Path), slog.String("remote", r.RemoteAddr))
			w.Header().Set("Retry-After", "1")
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func withRecover(crashLog string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				_ = logging.RecordPanic(logging.CompHTTP, r.URL.Path, rec, crashLog)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
