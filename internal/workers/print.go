package workers

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/citation.report/internal/fsutil"
	"github.com/banshee-data/citation.report/internal/monitoring"
	"github.com/banshee-data/citation.report/internal/security"
)

// TicketPrinter sends a rendered ticket image to a printer.
type TicketPrinter interface {
	Print(ctx context.Context, imagePath string) error
}

// PrintHandler prints each ticket image and removes it afterwards, whether
// or not printing succeeded. Paths outside dir are refused and left alone.
func PrintHandler(p TicketPrinter, fs fsutil.FileSystem, dir string) Handler[string] {
	return func(ctx context.Context, path string) error {
		if err := security.ValidatePathWithinDirectory(path, dir); err != nil {
			return err
		}
		if !fs.Exists(path) {
			return fmt.Errorf("ticket image not found: %s", path)
		}
		defer func() {
			if err := fs.Remove(path); err != nil {
				monitoring.Logf("[Printer] failed to clean up %s: %v", filepath.Base(path), err)
				return
			}
			monitoring.Logf("[Printer] Cleaned up temporary image: %s", filepath.Base(path))
		}()

		if err := p.Print(ctx, path); err != nil {
			return fmt.Errorf("print %s: %w", path, err)
		}
		return nil
	}
}
