package device

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// GameWindowKeywords identify the game's window title.
var GameWindowKeywords = []string{"euro truck simulator", "eurotrucks2", "ets2", "ets 2"}

// focusTimeout bounds the title lookup so a hung X server cannot stall a tick.
const focusTimeout = 200 * time.Millisecond

// AlwaysFocused treats the game as always in the foreground.
type AlwaysFocused struct{}

func (AlwaysFocused) Focused() bool { return true }

// TitleFunc returns the active window's title.
type TitleFunc func(ctx context.Context) (string, error)

// WindowTitleFocus matches the active window title against keywords.
type WindowTitleFocus struct {
	Title    TitleFunc
	Keywords []string
}

// NewWindowTitleFocus uses xdotool and GameWindowKeywords.
func NewWindowTitleFocus() WindowTitleFocus {
	return WindowTitleFocus{Title: XdotoolTitle, Keywords: GameWindowKeywords}
}

// XdotoolTitle asks xdotool for the focused window's name.
func XdotoolTitle(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "xdotool", "getactivewindow", "getwindowname").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Focused reports false when the title cannot be read.
func (w WindowTitleFocus) Focused() bool {
	ctx, cancel := context.WithTimeout(context.Background(), focusTimeout)
	defer cancel()

	title, err := w.Title(ctx)
	if err != nil {
		return false
	}
	title = strings.ToLower(title)
	for _, k := range w.Keywords {
		if strings.Contains(title, k) {
			return true
		}
	}
	return false
}
