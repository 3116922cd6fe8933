package main

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/chatwise-tools/chatwise-mcp/internal/config"
)

func handleConfig(g globalFlags, args []string) {
	sub := "show"
	if len(args) > 0 {
		sub = args[0]
	}

	path := config.ExpandPath(g.config)
	if path == "" {
		p, err := config.Path()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		path = p
	}

	switch sub {
	case "path":
		fmt.Println(path)
	case "init":
		created, err := config.WriteExample(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if created {
			fmt.Printf("%s Created %s\n", successStyle.Render(successSymbol), FormatPath(path))
		} else {
			fmt.Printf("Config already exists at %s\n", FormatPath(path))
		}
	case "show":
		cfg, err := config.LoadFrom(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (showing defaults)\n", err)
		}
		if err := showConfig(os.Stdout, path, g.db, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown config command %q (want path, show or init)\n", sub)
		os.Exit(2)
	}
}

// showConfig prints the config file location, the database that would be
// used and the effective settings.
func showConfig(w io.Writer, path, dbFlag string, cfg *config.Config) error {
	fmt.Fprintf(w, "# config: %s\n", path)
	if db, source, err := config.ResolveDatabasePath(dbFlag, cfg); err == nil {
		fmt.Fprintf(w, "# database: %s (from %s)\n", db, source)
	} else {
		fmt.Fprintf(w, "# database: unresolved (%v)\n", err)
	}

	effective := *cfg
	effective.Server.Name = cfg.Server.GetName()
	effective.Server.Transport = cfg.Server.GetTransport()
	effective.Server.ListenAddr = cfg.Server.GetListenAddr()
	effective.Server.Tools = cfg.Server.GetTools()
	effective.Server.RateLimit = cfg.Server.GetRateLimit()
	effective.Server.RateBurst = cfg.Server.GetRateBurst()

	d := searchDefaults(cfg.Search)
	effective.Search.MaxResults = d.LimitChats
	effective.Search.MaxSnippetsPerChat = d.LimitSnippets
	effective.Search.SnippetWindow = d.SnippetWindow
	effective.Search.RecentCutoffSeconds = int(d.RecentCutoff.Seconds())
	effective.Search.PrecisionMode = string(d.Precision)
	effective.Search.ExcludeCurrent = &d.ExcludeCurrent
	effective.Search.IncludeTools = &d.IncludeTools

	return toml.NewEncoder(w).Encode(effective)
}
