package clipboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatwise-tools/chatwise-mcp/internal/platform"
)

type call struct {
	name string
	args []string
	text string
}

func fakeCopier(p platform.Platform, env map[string]string, installed ...string) (*Copier, *[]call) {
	var calls []call
	have := make(map[string]bool)
	for _, name := range installed {
		have[name] = true
	}
	return &Copier{
		Platform: p,
		Getenv:   func(k string) string { return env[k] },
		LookPath: func(name string) (string, error) {
			if have[name] {
				return "/usr/bin/" + name, nil
			}
			return "", errors.New("not found")
		},
		Run: func(_ context.Context, name string, args []string, text string) error {
			calls = append(calls, call{name, args, text})
			return nil
		},
	}, &calls
}

func TestCopyEmpty(t *testing.T) {
	c, _ := fakeCopier(platform.PlatformMacOS, nil)
	_, err := c.Copy(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestCopyMacOS(t *testing.T) {
	c, calls := fakeCopier(platform.PlatformMacOS, nil)
	res, err := c.Copy(context.Background(), "Me: ping\nAI: pong\n")
	require.NoError(t, err)
	assert.Equal(t, &Result{Method: "pbcopy", Bytes: 18, Lines: 2}, res)
	require.Len(t, *calls, 1)
	assert.Equal(t, "Me: ping\nAI: pong\n", (*calls)[0].text)
}

func TestCopyLinuxPrefersWayland(t *testing.T) {
	c, calls := fakeCopier(platform.PlatformLinux, map[string]string{"WAYLAND_DISPLAY": "wayland-0"}, "wl-copy", "xclip")
	res, err := c.Copy(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "wl-copy", res.Method)
	require.Len(t, *calls, 1)
	assert.Equal(t, "/usr/bin/wl-copy", (*calls)[0].name)
}

func TestCopyLinuxFallsThroughFailures(t *testing.T) {
	c, _ := fakeCopier(platform.PlatformLinux, nil, "xclip", "xsel")
	var tried []string
	c.Run = func(_ context.Context, name string, args []string, _ string) error {
		tried = append(tried, name)
		if name == "/usr/bin/xclip" {
			assert.Equal(t, []string{"-selection", "clipboard"}, args)
			return errors.New("no display")
		}
		return nil
	}

	res, err := c.Copy(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "xsel", res.Method)
	assert.Equal(t, []string{"/usr/bin/xclip", "/usr/bin/xsel"}, tried)
}

func TestCopyReportsCommandName(t *testing.T) {
	c, _ := fakeCopier(platform.PlatformLinux, nil, "xclip")
	c.LookPath = func(name string) (string, error) { return "/opt/homebrew/bin/" + name, nil }
	c.Run = func(_ context.Context, name string, _ []string, _ string) error {
		if name == "/opt/homebrew/bin/xclip" {
			return errors.New("no display")
		}
		return nil
	}

	res, err := c.Copy(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "xsel", res.Method)
	assert.NotContains(t, res.Method, "/")
}

func TestCopyOSC52Fallback(t *testing.T) {
	c, _ := fakeCopier(platform.PlatformLinux, nil)
	var got string
	c.OSC52 = func(text string) error { got = text; return nil }

	res, err := c.Copy(context.Background(), "a\nb")
	require.NoError(t, err)
	assert.Equal(t, "osc52", res.Method)
	assert.Equal(t, 2, res.Lines)
	assert.Equal(t, "a\nb", got)
}

func TestCopyNothingAvailable(t *testing.T) {
	c, _ := fakeCopier(platform.PlatformUnknown, nil)
	_, err := c.Copy(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no clipboard method available")
}

func TestCountLines(t *testing.T) {
	assert.Equal(t, 0, countLines(""))
	assert.Equal(t, 1, countLines("hello"))
	assert.Equal(t, 3, countLines("a\nb\nc\n"))
	assert.Equal(t, 3, countLines("a\nb\nc"))
	assert.Equal(t, 3, countLines("\n\n\n"))
}
