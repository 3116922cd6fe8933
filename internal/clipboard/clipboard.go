// Package clipboard puts rendered transcripts on the system clipboard.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/muesli/termenv"

	"github.com/chatwise-tools/chatwise-mcp/internal/platform"
)

// ErrEmpty is returned when there is nothing to copy.
var ErrEmpty = errors.New("clipboard: no content to copy")

// Result describes a successful copy.
type Result struct {
	Method string `json:"method"` // pbcopy, xclip, clip.exe, osc52...
	Bytes  int    `json:"bytes"`
	Lines  int    `json:"lines"`
}

// command is one clipboard program and its arguments. path is what gets
// executed; name is what gets reported.
type command struct {
	name string
	path string
	args []string
}

// Copier copies text with the first native command that works and falls
// back to an OSC 52 escape sequence.
type Copier struct {
	Platform platform.Platform
	Getenv   func(string) string
	LookPath func(string) (string, error)

	// Run pipes text into a command.
	Run func(ctx context.Context, name string, args []string, text string) error

	// OSC52 writes the escape sequence; nil disables the fallback.
	OSC52 func(text string) error
}

// New returns a Copier for the running host.
func New() *Copier {
	return &Copier{
		Platform: platform.Detect(),
		Getenv:   os.Getenv,
		LookPath: exec.LookPath,
		Run:      runCommand,
		OSC52:    copyOSC52,
	}
}

// Copy places text on the clipboard.
func (c *Copier) Copy(ctx context.Context, text string) (*Result, error) {
	if text == "" {
		return nil, ErrEmpty
	}
	res := &Result{Bytes: len(text), Lines: countLines(text)}

	var errs []error
	for _, cmd := range c.candidates() {
		if err := c.Run(ctx, cmd.path, cmd.args, text); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", cmd.name, err))
			continue
		}
		res.Method = cmd.name
		return res, nil
	}

	if c.OSC52 != nil {
		if err := c.OSC52(text); err != nil {
			errs = append(errs, fmt.Errorf("osc52: %w", err))
		} else {
			res.Method = "osc52"
			return res, nil
		}
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("clipboard: no clipboard method available (install pbcopy, xclip, xsel or wl-copy)")
	}
	return nil, fmt.Errorf("clipboard: %w", errors.Join(errs...))
}

func (c *Copier) candidates() []command {
	switch c.Platform {
	case platform.PlatformMacOS:
		return []command{{name: "pbcopy", path: "pbcopy"}}
	case platform.PlatformWSL, platform.PlatformWindows:
		return []command{{name: "clip.exe", path: "clip.exe"}}
	case platform.PlatformLinux:
		var out []command
		// Wayland first
		if c.Getenv("WAYLAND_DISPLAY") != "" {
			out = append(out, c.lookup("wl-copy")...)
		}
		out = append(out, c.lookup("xclip", "-selection", "clipboard")...)
		out = append(out, c.lookup("xsel", "--clipboard", "--input")...)
		return out
	}
	return nil
}

func (c *Copier) lookup(name string, args ...string) []command {
	path, err := c.LookPath(name)
	if err != nil {
		return nil
	}
	return []command{{name: name, path: path, args: args}}
}

func runCommand(ctx context.Context, name string, args []string, text string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = strings.NewReader(text)
	return cmd.Run()
}

// copyOSC52 writes the sequence to the controlling terminal so it works
// while stdout is redirected.
func copyOSC52(text string) error {
	tty, err := os.OpenFile("/dev/tty", os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("cannot open /dev/tty: %w", err)
	}
	defer tty.Close()

	termenv.NewOutput(tty).Copy(text)
	return nil
}

// countLines counts lines; a trailing newline does not add one.
func countLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}
