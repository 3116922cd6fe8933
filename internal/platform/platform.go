// Package platform locates the ChatWise database for the host OS.
package platform

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// Platform represents the detected platform
type Platform string

const (
	PlatformMacOS   Platform = "macos"
	PlatformLinux   Platform = "linux"
	PlatformWSL     Platform = "wsl"
	PlatformWindows Platform = "windows"
	PlatformUnknown Platform = "unknown"
)

// AppDirName is the directory ChatWise keeps its data in.
const AppDirName = "app.chatwise"

// DatabaseFile is the SQLite file inside AppDirName.
const DatabaseFile = "app.db"

var (
	detectOnce       sync.Once
	detectedPlatform Platform
)

// Detect returns the current platform, caching the result.
func Detect() Platform {
	detectOnce.Do(func() {
		detectedPlatform = detect(runtime.GOOS, os.Getenv, os.ReadFile)
	})
	return detectedPlatform
}

func detect(goos string, getenv func(string) string, readFile func(string) ([]byte, error)) Platform {
	switch goos {
	case "darwin":
		return PlatformMacOS
	case "windows":
		return PlatformWindows
	case "linux":
		if getenv("WSL_DISTRO_NAME") != "" {
			return PlatformWSL
		}
		procVersion, err := readFile("/proc/version")
		if err != nil {
			return PlatformLinux
		}
		if strings.Contains(strings.ToLower(string(procVersion)), "microsoft") {
			return PlatformWSL
		}
		return PlatformLinux
	default:
		return PlatformUnknown
	}
}

// Env is the subset of the process environment used to build paths.
type Env struct {
	Home          string
	XDGConfigHome string
	AppData       string
	User          string
}

// CurrentEnv reads Env from the process.
func CurrentEnv() Env {
	home, _ := os.UserHomeDir()
	user := os.Getenv("USER")
	if user == "" {
		user = os.Getenv("USERNAME")
	}
	return Env{
		Home:          home,
		XDGConfigHome: os.Getenv("XDG_CONFIG_HOME"),
		AppData:       os.Getenv("APPDATA"),
		User:          user,
	}
}

// Candidates lists where ChatWise may keep its database on p, most likely
// first.
func Candidates(p Platform, env Env) []string {
	var out []string
	switch p {
	case PlatformMacOS:
		out = append(out, filepath.Join(env.Home, "Library", "Application Support", AppDirName, DatabaseFile))
	case PlatformWindows:
		if env.AppData != "" {
			out = append(out, filepath.Join(env.AppData, AppDirName, DatabaseFile))
		} else {
			out = append(out, filepath.Join(env.Home, "AppData", "Roaming", AppDirName, DatabaseFile))
		}
	case PlatformWSL:
		// The desktop app runs on the Windows side.
		if env.User != "" {
			out = append(out, filepath.Join("/mnt/c/Users", env.User, "AppData", "Roaming", AppDirName, DatabaseFile))
		}
		out = append(out, linuxPath(env))
	default:
		out = append(out, linuxPath(env))
	}
	return out
}

func linuxPath(env Env) string {
	base := env.XDGConfigHome
	if base == "" {
		base = filepath.Join(env.Home, ".config")
	}
	return filepath.Join(base, AppDirName, DatabaseFile)
}

// DefaultDatabasePath returns the first candidate that exists, else the
// first candidate.
func DefaultDatabasePath() string {
	return firstExisting(Candidates(Detect(), CurrentEnv()))
}

func firstExisting(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if len(paths) == 0 {
		return ""
	}
	return paths[0]
}
