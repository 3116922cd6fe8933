package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chatwise-tools/chatwise-mcp/internal/apperr"
	"github.com/chatwise-tools/chatwise-mcp/internal/config"
	"github.com/chatwise-tools/chatwise-mcp/internal/logging"
	"github.com/chatwise-tools/chatwise-mcp/internal/mcpserver"
	"github.com/chatwise-tools/chatwise-mcp/internal/search"
)

const shutdownTimeout = 5 * time.Second

type serveOptions struct {
	transport  string
	listenAddr string
	tools      string
	name       string
	rateLimit  float64
	rateBurst  int
}

func handleServe(env *cliEnv, args []string) {
	srv := env.cfg.Server
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	transport := fs.String("transport", srv.GetTransport(), "Transport: stdio, sse or http")
	listen := fs.String("listen", srv.GetListenAddr(), "Listen address for sse/http")
	tools := fs.String("tools", srv.GetTools(), "Tool profile: all, read, admin, or comma-separated tool names")
	name := fs.String("name", srv.GetName(), "Server name announced to clients and matched by current-chat detection")
	sse := fs.Bool("sse", false, "Shorthand for --transport sse")

	fs.Usage = func() {
		fmt.Println("Usage: chatwise-mcp serve [options]")
		fmt.Println()
		fmt.Println("Run the MCP server. stdio is the default; sse and http share one listener")
		fmt.Println("serving /sse + /message (SSE), /mcp (streamable HTTP) and /healthz.")
		fmt.Println()
		fmt.Println("Options:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(normalizeArgs(fs, args)); err != nil {
		os.Exit(1)
	}
	if *sse {
		*transport = "sse"
	}

	opts := serveOptions{
		transport:  strings.ToLower(*transport),
		listenAddr: *listen,
		tools:      *tools,
		name:       *name,
		rateLimit:  srv.GetRateLimit(),
		rateBurst:  srv.GetRateBurst(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	crashLog := env.crashLogPath()
	defer func() {
		if rec := recover(); rec != nil {
			_ = logging.RecordPanic(logging.CompCLI, "serve", rec, crashLog)
			logging.Shutdown()
			panic(rec)
		}
	}()

	if err := runServe(ctx, env, opts, os.Stdin, os.Stdout); err != nil {
		cliLog.Error("serve_failed", "error", err)
		if crashLog != "" {
			_ = logging.DumpRingBuffer(crashLog)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// crashLogPath is <log dir>/crash.log, or "" when file logging is off.
func (e *cliEnv) crashLogPath() string {
	dir := config.ExpandPath(e.cfg.Logs.Dir)
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, logging.CrashLogName)
}

// searchDefaults maps the [search] config section onto engine defaults.
func searchDefaults(s config.SearchSettings) search.Defaults {
	d := search.StandardDefaults()
	if s.MaxResults > 0 {
		d.LimitChats = s.MaxResults
	}
	if s.MaxSnippetsPerChat > 0 {
		d.LimitSnippets = s.MaxSnippetsPerChat
	}
	if s.SnippetWindow > 0 {
		d.SnippetWindow = s.SnippetWindow
	}
	if s.RecentCutoffSeconds > 0 {
		d.RecentCutoff = time.Duration(s.RecentCutoffSeconds) * time.Second
	}
	if p, err := search.ParsePrecision(s.PrecisionMode); err == nil {
		d.Precision = p
	} else {
		cliLog.Warn("config_precision_ignored", "value", s.PrecisionMode)
	}
	d.ExcludeCurrent = s.GetExcludeCurrent()
	d.IncludeTools = s.GetIncludeTools()
	return d
}

func runServe(ctx context.Context, env *cliEnv, opts serveOptions, stdin io.Reader, stdout io.Writer) error {
	dbPath, err := env.databasePath()
	if err != nil {
		return err
	}
	if _, statErr := os.Stat(dbPath); statErr != nil {
		// Calls report the missing database themselves.
		cliLog.Warn("database_missing", "path", dbPath)
	}

	srv := mcpserver.NewServer(mcpserver.Options{
		Name:     opts.name,
		Version:  Version,
		DBPath:   dbPath,
		Tools:    mcpserver.ResolveTools(opts.tools),
		Search:   searchDefaults(env.cfg.Search),
		CrashLog: env.crashLogPath(),
	})
	cliLog.Info("serve_start",
		"transport", opts.transport,
		"db", dbPath,
		"tools", opts.tools,
		"version", Version)

	switch opts.transport {
	case "", "stdio":
		err := mcpserver.ServeStdio(ctx, srv, stdin, stdout)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err

	case "sse", "http", "streamable":
		hs := mcpserver.NewHTTPServer(srv, mcpserver.HTTPConfig{
			ListenAddr: opts.listenAddr,
			Name:       opts.name,
			RateLimit:  opts.rateLimit,
			RateBurst:  opts.rateBurst,
			CrashLog:   env.crashLogPath(),
		})

		g, gctx := errgroup.WithContext(ctx)
		g.Go(hs.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return hs.Shutdown(shutdownCtx)
		})
		return g.Wait()
	}
	return apperr.InvalidArgument("serve", "unknown transport %q (want stdio, sse or http)", opts.transport)
}
