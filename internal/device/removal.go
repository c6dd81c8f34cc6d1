// Package device observes the local input devices: unplug events, held keys
// and which window has focus.
package device

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/banshee-data/citation.report/internal/monitoring"
)

// DefaultInputDir is where the kernel exposes input device nodes.
const DefaultInputDir = "/dev/input"

// RemovalFlag is the edge-triggered device-removal signal shared between the
// watcher and the detection loop.
type RemovalFlag struct {
	raised atomic.Bool
}

// Raise sets the flag.
func (f *RemovalFlag) Raise() { f.raised.Store(true) }

// Consume reports whether the flag was raised and clears it in one step.
func (f *RemovalFlag) Consume() bool { return f.raised.Swap(false) }

// Watcher raises a RemovalFlag when an input device node disappears.
type Watcher struct {
	dir     string
	flag    *RemovalFlag
	watcher *fsnotify.Watcher
}

// NewWatcher starts watching dir (DefaultInputDir when empty).
func NewWatcher(dir string, flag *RemovalFlag) (*Watcher, error) {
	if dir == "" {
		dir = DefaultInputDir
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create input watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	monitoring.Logf("[Device Monitor] ...Listening for input device removal in %s", dir)
	return &Watcher{dir: dir, flag: flag, watcher: fw}, nil
}

// Run forwards removal events until ctx is done or the watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if isRemoval(ev) {
				monitoring.Logf("[Device Monitor] ...%s unplugged!", filepath.Base(ev.Name))
				w.flag.Raise()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			monitoring.Logf("[Device Monitor ERROR] %v", err)
		}
	}
}

// isRemoval matches the disappearance of a keyboard, mouse or joystick node.
func isRemoval(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Remove) {
		return false
	}
	base := filepath.Base(ev.Name)
	for _, prefix := range []string{"event", "mouse", "js"} {
		if strings.HasPrefix(base, prefix) {
			return true
		}
	}
	return false
}
