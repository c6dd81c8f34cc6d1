package workers

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/banshee-data/citation.report/internal/fsutil"
	"github.com/banshee-data/citation.report/internal/monitoring"
	"github.com/banshee-data/citation.report/internal/security"
)

// Capturer saves a capture of the screen to path.
type Capturer interface {
	Capture(ctx context.Context, path string) error
}

// CommandCapturer runs an external capture tool with the output path as its
// final argument.
type CommandCapturer struct {
	Name string
	Args []string
}

// DefaultCapturer uses ImageMagick's import to grab the root window.
func DefaultCapturer() CommandCapturer {
	return CommandCapturer{Name: "import", Args: []string{"-window", "root"}}
}

func (c CommandCapturer) Capture(ctx context.Context, path string) error {
	args := append(append([]string(nil), c.Args...), path)
	out, err := exec.CommandContext(ctx, c.Name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", c.Name, err, out)
	}
	return nil
}

// ScreenshotHandler saves one capture per filename into dir.
func ScreenshotHandler(dir string, capturer Capturer, fs fsutil.FileSystem) Handler[string] {
	return func(ctx context.Context, filename string) error {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create screenshot dir: %w", err)
		}
		path := filepath.Join(dir, security.SanitizeFilename(filename))
		if err := capturer.Capture(ctx, path); err != nil {
			return fmt.Errorf("capture %s: %w", path, err)
		}
		monitoring.Logf("[Screenshot] Saved: %s", path)
		return nil
	}
}
