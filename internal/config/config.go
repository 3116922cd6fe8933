// Package config loads the chatwise-mcp TOML configuration and resolves the
// ChatWise database location.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/chatwise-tools/chatwise-mcp/internal/logging"
	"github.com/chatwise-tools/chatwise-mcp/internal/platform"
)

var configLog = logging.ForComponent(logging.CompConfig)

const (
	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "CHATWISE_MCP_CONFIG"

	// EnvDBPath and EnvDBPathFallback name the database file.
	EnvDBPath         = "CHATWISE_DB_PATH"
	EnvDBPathFallback = "DB_PATH"

	// FileName is the config file inside the config directory.
	FileName = "config.toml"

	// DirName is the config directory under the user config dir.
	DirName = "chatwise-mcp"
)

// Config is the top-level config.toml document.
type Config struct {
	// DBPath points at the ChatWise app.db. Environment variables and the
	// --db flag take precedence.
	DBPath string `toml:"db_path"`

	Server ServerSettings `toml:"server"`
	Search SearchSettings `toml:"search"`
	Logs   LogSettings    `toml:"logs"`
}

// ServerSettings configures the MCP server process.
type ServerSettings struct {
	// Name is advertised to clients and used to recognise this server's
	// own tool calls in chat metadata. Default: "chatwise-mcp"
	Name string `toml:"name"`

	// Transport is "stdio" (default), "sse" or "http"
	Transport string `toml:"transport"`

	// ListenAddr is used by the sse and http transports. Default: ":3000"
	ListenAddr string `toml:"listen_addr"`

	// Tools selects a tool profile: "all" (default), "read", "admin", or a
	// comma-separated list of tool names.
	Tools string `toml:"tools"`

	// RateLimit is requests per second allowed on the HTTP transports.
	// Default: 20
	RateLimit float64 `toml:"rate_limit"`

	// RateBurst is the limiter burst size. Default: 40
	RateBurst int `toml:"rate_burst"`
}

// SearchSettings holds search defaults applied when a request omits them.
type SearchSettings struct {
	MaxResults          int    `toml:"max_results"`
	MaxSnippetsPerChat  int    `toml:"max_snippets_per_chat"`
	SnippetWindow       int    `toml:"snippet_window"`
	RecentCutoffSeconds int    `toml:"recent_cutoff_seconds"`
	PrecisionMode       string `toml:"precision_mode"`

	// ExcludeCurrent hides the conversation that is running the search.
	// Default: true
	ExcludeCurrent *bool `toml:"exclude_current"`

	// IncludeTools searches tool-call metadata. Default: true
	IncludeTools *bool `toml:"include_tools"`
}

// LogSettings configures structured logging.
type LogSettings struct {
	// Dir enables file logging into Dir/chatwise-mcp.log
	Dir string `toml:"dir"`

	// Level: "debug", "info" (default), "warn", "error"
	Level string `toml:"level"`

	// Format: "json" (default) or "text"
	Format string `toml:"format"`

	MaxSizeMB  int  `toml:"max_size_mb"`
	MaxBackups int  `toml:"max_backups"`
	MaxAgeDays int  `toml:"max_age_days"`
	Compress   bool `toml:"compress"`

	// Stderr mirrors log records to stderr.
	Stderr bool `toml:"stderr"`
}

// GetName returns the server name with its default.
func (s *ServerSettings) GetName() string {
	if s.Name == "" {
		return "chatwise-mcp"
	}
	return s.Name
}

// GetTransport returns the transport with its default.
func (s *ServerSettings) GetTransport() string {
	if s.Transport == "" {
		return "stdio"
	}
	return strings.ToLower(s.Transport)
}

// GetListenAddr returns the listen address with its default.
func (s *ServerSettings) GetListenAddr() string {
	if s.ListenAddr == "" {
		return ":3000"
	}
	return s.ListenAddr
}

// GetTools returns the tool profile with its default.
func (s *ServerSettings) GetTools() string {
	if s.Tools == "" {
		return "all"
	}
	return s.Tools
}

// GetRateLimit returns requests per second with its default.
func (s *ServerSettings) GetRateLimit() float64 {
	if s.RateLimit <= 0 {
		return 20
	}
	return s.RateLimit
}

// GetRateBurst returns the limiter burst with its default.
func (s *ServerSettings) GetRateBurst() int {
	if s.RateBurst <= 0 {
		return 40
	}
	return s.RateBurst
}

// GetExcludeCurrent returns whether to hide the running conversation.
func (s *SearchSettings) GetExcludeCurrent() bool {
	if s.ExcludeCurrent == nil {
		return true
	}
	return *s.ExcludeCurrent
}

// GetIncludeTools returns whether tool metadata is searched.
func (s *SearchSettings) GetIncludeTools() bool {
	if s.IncludeTools == nil {
		return true
	}
	return *s.IncludeTools
}

// LoggingConfig converts the settings for logging.Init.
func (l *LogSettings) LoggingConfig() logging.Config {
	cfg := logging.Config{
		LogDir:     ExpandPath(l.Dir),
		Level:      l.Level,
		Format:     l.Format,
		MaxSizeMB:  l.MaxSizeMB,
		MaxBackups: l.MaxBackups,
		MaxAgeDays: l.MaxAgeDays,
		Compress:   l.Compress,
	}
	if l.Stderr {
		cfg.Stderr = os.Stderr
	}
	return cfg
}

// Path returns the config file location.
func Path() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return ExpandPath(p), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: user config dir: %w", err)
	}
	return filepath.Join(dir, DirName, FileName), nil
}

// Default returns an empty config; every getter falls back to its default.
func Default() *Config {
	return &Config{}
}

// Load reads the config from Path. A missing file yields Default.
func Load() (*Config, error) {
	p, err := Path()
	if err != nil {
		return Default(), err
	}
	return LoadFrom(p)
}

// LoadFrom reads the config at path. A missing file yields Default.
func LoadFrom(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Default(), fmt.Errorf("config.toml parse error: %w", err)
	}
	configLog.Debug("config_loaded", "path", path)
	return &cfg, nil
}

// Source names where a resolved database path came from.
type Source string

const (
	SourceFlag     Source = "flag"
	SourceEnv      Source = "env"
	SourceConfig   Source = "config"
	SourcePlatform Source = "platform"
)

// ResolveDatabasePath picks the database file: explicit, then
// CHATWISE_DB_PATH, then DB_PATH, then cfg.DBPath, then the platform
// default. The result is absolute with ~ expanded.
func ResolveDatabasePath(explicit string, cfg *Config) (string, Source, error) {
	return resolveDatabasePath(explicit, cfg, os.Getenv, platform.DefaultDatabasePath)
}

func resolveDatabasePath(explicit string, cfg *Config, getenv func(string) string, fallback func() string) (string, Source, error) {
	var (
		raw    string
		source Source
	)
	switch {
	case strings.TrimSpace(explicit) != "":
		raw, source = explicit, SourceFlag
	case getenv(EnvDBPath) != "":
		raw, source = getenv(EnvDBPath), SourceEnv
	case getenv(EnvDBPathFallback) != "":
		raw, source = getenv(EnvDBPathFallback), SourceEnv
	case cfg != nil && cfg.DBPath != "":
		raw, source = cfg.DBPath, SourceConfig
	default:
		raw, source = fallback(), SourcePlatform
	}
	if raw == "" {
		return "", source, fmt.Errorf("config: no database path could be determined")
	}

	abs, err := filepath.Abs(ExpandPath(strings.TrimSpace(raw)))
	if err != nil {
		return "", source, fmt.Errorf("config: absolute path: %w", err)
	}
	configLog.Debug("database_path_resolved", "path", abs, "source", string(source))
	return abs, source, nil
}

// ExpandPath expands a leading ~ to the home directory.
func ExpandPath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, p[1:])
	}
	return p
}

// ExampleConfig is written by `chatwise-mcp config init`.
const ExampleConfig = `# chatwise-mcp configuration
# Environment variables CHATWISE_DB_PATH / DB_PATH and the --db flag
# override db_path.

# db_path = "~/Library/Application Support/app.chatwise/app.db"

[server]
# name = "chatwise-mcp"
# transport = "stdio"     # stdio | sse | http
# listen_addr = ":3000"
# tools = "all"           # all | read | admin | comma-separated tool names
# rate_limit = 20
# rate_burst = 40

[search]
# max_results = 10
# max_snippets_per_chat = 3
# snippet_window = 64
# recent_cutoff_seconds = 60
# precision_mode = "basic" # basic | fuzzy
# exclude_current = true
# include_tools = true

[logs]
# dir = "~/.local/state/chatwise-mcp"
# level = "info"
# format = "json"
# max_size_mb = 10
# max_backups = 5
# max_age_days = 10
# compress = false
# stderr = false
`

// WriteExample writes ExampleConfig to path unless a file already exists.
// It reports whether a file was created.
func WriteExample(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return false, fmt.Errorf("config: mkdir: %w", err)
	}
	if err := os.WriteFile(path, []byte(ExampleConfig), 0o600); err != nil {
		return false, fmt.Errorf("config: write example: %w", err)
	}
	return true, nil
}
