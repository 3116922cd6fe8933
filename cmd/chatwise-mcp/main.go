package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/chatwise-tools/chatwise-mcp/internal/config"
	"github.com/chatwise-tools/chatwise-mcp/internal/logging"
)

const Version = "0.4.0"

var cliLog = logging.ForComponent(logging.CompCLI)

// init sets up the color profile before any style is rendered
func init() {
	initColorProfile()
}

// initColorProfile configures lipgloss color profile based on terminal capabilities.
func initColorProfile() {
	// CHATWISE_COLOR: truecolor, 256, 16, none
	if colorEnv := os.Getenv("CHATWISE_COLOR"); colorEnv != "" {
		switch strings.ToLower(colorEnv) {
		case "truecolor", "true", "24bit":
			lipgloss.SetColorProfile(termenv.TrueColor)
			return
		case "256", "ansi256":
			lipgloss.SetColorProfile(termenv.ANSI256)
			return
		case "16", "ansi", "basic":
			lipgloss.SetColorProfile(termenv.ANSI)
			return
		case "none", "off", "ascii":
			lipgloss.SetColorProfile(termenv.Ascii)
			return
		}
	}
	if os.Getenv("NO_COLOR") != "" || !stdoutIsTerminal() {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	colorTerm := os.Getenv("COLORTERM")
	if colorTerm == "truecolor" || colorTerm == "24bit" {
		lipgloss.SetColorProfile(termenv.TrueColor)
		return
	}
	lipgloss.SetColorProfile(termenv.ANSI256)
}

func main() {
	globals, args := extractGlobalFlags(os.Args[1:])

	// MCP hosts launch the binary without arguments.
	cmd := "serve"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "version", "--version", "-v":
		fmt.Printf("chatwise-mcp v%s\n", Version)
		return
	case "help", "--help", "-h":
		printHelp()
		return
	case "config":
		handleConfig(globals, args)
		return
	}

	env := loadEnvironment(globals)
	defer logging.Shutdown()

	switch cmd {
	case "serve":
		handleServe(env, args)
	case "search":
		handleSearch(env, args)
	case "recent":
		handleRecent(env, args)
	case "view":
		handleView(env, args)
	case "merge":
		handleMerge(env, args)
	case "delete", "rm":
		handleDelete(env, args)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", cmd)
		printHelp()
		os.Exit(1)
	}
}

// globalFlags are accepted before or after the subcommand.
type globalFlags struct {
	db     string
	config string
}

// extractGlobalFlags pulls --db and --config out of args, returning them and
// the remaining args.
func extractGlobalFlags(args []string) (globalFlags, []string) {
	var g globalFlags
	var remaining []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		matched := false
		for _, f := range []struct {
			name string
			dst  *string
		}{{"db", &g.db}, {"config", &g.config}} {
			for _, prefix := range []string{"-" + f.name, "--" + f.name} {
				if strings.HasPrefix(arg, prefix+"=") {
					*f.dst = strings.TrimPrefix(arg, prefix+"=")
					matched = true
				} else if arg == prefix && i+1 < len(args) {
					*f.dst = args[i+1]
					i++
					matched = true
				}
			}
			if matched {
				break
			}
		}
		if !matched {
			remaining = append(remaining, arg)
		}
	}
	return g, remaining
}

// cliEnv is the loaded configuration shared by subcommands.
type cliEnv struct {
	cfg     *config.Config
	cfgPath string
	dbFlag  string
}

// loadEnvironment reads the config file and starts logging. A broken config
// file is reported and replaced by defaults.
func loadEnvironment(g globalFlags) *cliEnv {
	env := &cliEnv{dbFlag: g.db, cfgPath: config.ExpandPath(g.config)}
	if env.cfgPath == "" {
		p, err := config.Path()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
		env.cfgPath = p
	}

	cfg := config.Default()
	if env.cfgPath != "" {
		loaded, err := config.LoadFrom(env.cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		cfg = loaded
	}
	env.cfg = cfg

	logging.Init(cfg.Logs.LoggingConfig())
	return env
}

// databasePath resolves the database file for this invocation.
func (e *cliEnv) databasePath() (string, error) {
	path, source, err := config.ResolveDatabasePath(e.dbFlag, e.cfg)
	if err != nil {
		return "", err
	}
	cliLog.Debug("database_path", "path", path, "source", string(source))
	return path, nil
}

func printHelp() {
	fmt.Printf("chatwise-mcp v%s\n", Version)
	fmt.Println("Search, read and merge your local ChatWise chat history, as an MCP server or from the shell.")
	fmt.Println()
	fmt.Println("Usage: chatwise-mcp [--db PATH] [--config PATH] <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve              Run the MCP server (default when no command is given)")
	fmt.Println("  search <query>     Rank conversations matching a query")
	fmt.Println("  recent             List the most recently active conversations")
	fmt.Println("  view <id>          Print one conversation")
	fmt.Println("  merge <id> <id>... Print several conversations and what they share")
	fmt.Println("  delete <id>...     Delete conversations and their messages")
	fmt.Println("  config path|show|init")
	fmt.Println("                     Inspect or create the config file")
	fmt.Println("  version            Show version")
	fmt.Println("  help               Show this help")
	fmt.Println()
	fmt.Println("Global options:")
	fmt.Println("  --db PATH          ChatWise app.db (default: $CHATWISE_DB_PATH, $DB_PATH, config, platform location)")
	fmt.Println("  --config PATH      Config file (default: $CHATWISE_MCP_CONFIG or <user config dir>/chatwise-mcp/config.toml)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  chatwise-mcp serve --transport http --listen :3000")
	fmt.Println("  chatwise-mcp search rust --window 30d")
	fmt.Println("  chatwise-mcp merge chat-a chat-b --tools=false --copy")
	fmt.Println("  chatwise-mcp delete chat-a --dry-run")
}
