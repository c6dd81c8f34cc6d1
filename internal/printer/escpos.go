// Package printer sends rendered tickets to a physical printer, either as an
// ESC/POS raster over a serial line or through the CUPS lp spooler.
package printer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os/exec"

	"go.bug.st/serial"

	"github.com/banshee-data/citation.report/internal/fsutil"
	"github.com/banshee-data/citation.report/internal/monitoring"
)

// Port is the write side of a serial connection.
type Port interface {
	io.Writer
	io.Closer
}

// Opener opens a port at path.
type Opener func(path string, opts PortOptions) (Port, error)

// OpenSerial opens a real serial port.
func OpenSerial(path string, opts PortOptions) (Port, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return port, nil
}

// MaxDots is the widest raster the printer accepts.
const MaxDots = 384

var (
	escInit = []byte{0x1B, 0x40}
	feed    = []byte{0x1B, 0x64, 0x04}
	cut     = []byte{0x1D, 0x56, 0x42, 0x00}
)

// Serial prints to an ESC/POS receipt printer. The port is opened per job so
// an unplugged printer recovers on the next ticket.
type Serial struct {
	Path    string
	Options PortOptions
	FS      fsutil.FileSystem
	Open    Opener
}

// Print rasterizes the PNG at imagePath and sends it with a feed and cut.
func (s Serial) Print(_ context.Context, imagePath string) error {
	data, err := s.FS.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("read ticket: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode ticket: %w", err)
	}

	var job bytes.Buffer
	job.Write(escInit)
	job.Write(Raster(img))
	job.Write(feed)
	job.Write(cut)

	open := s.Open
	if open == nil {
		open = OpenSerial
	}
	port, err := open(s.Path, s.Options)
	if err != nil {
		return err
	}
	defer port.Close()

	if _, err := port.Write(job.Bytes()); err != nil {
		return fmt.Errorf("write to %s: %w", s.Path, err)
	}
	monitoring.Logf("[Printer] Printed ticket on %s (%d bytes)", s.Path, job.Len())
	return nil
}

// Raster encodes img as a GS v 0 bit image, cropped to MaxDots wide. Pixels
// darker than mid-grey print black.
func Raster(img image.Image) []byte {
	b := img.Bounds()
	width := min(b.Dx(), MaxDots)
	height := b.Dy()
	rowBytes := (width + 7) / 8

	out := make([]byte, 0, 8+rowBytes*height)
	out = append(out, 0x1D, 0x76, 0x30, 0x00,
		byte(rowBytes), byte(rowBytes>>8),
		byte(height), byte(height>>8))

	for y := 0; y < height; y++ {
		row := make([]byte, rowBytes)
		for x := 0; x < width; x++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			if g.Y < 128 {
				row[x/8] |= 0x80 >> (x % 8)
			}
		}
		out = append(out, row...)
	}
	return out
}

// Spooler prints through lp, optionally to a named destination.
type Spooler struct {
	Destination string
}

func (s Spooler) Print(ctx context.Context, imagePath string) error {
	args := []string{"-o", "fit-to-page"}
	if s.Destination != "" {
		args = append(args, "-d", s.Destination)
	}
	args = append(args, imagePath)
	if out, err := exec.CommandContext(ctx, "lp", args...).CombinedOutput(); err != nil {
		return fmt.Errorf("lp: %w: %s", err, out)
	}
	monitoring.Logf("[Printer] Spooled %s", imagePath)
	return nil
}
