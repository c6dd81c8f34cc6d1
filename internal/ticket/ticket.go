// Package ticket renders a scored citation as a printable PNG sized for a
// 58 mm thermal printer.
package ticket

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/banshee-data/citation.report/internal/fsutil"
	"github.com/banshee-data/citation.report/internal/violation"
)

const (
	// Width is the printable width of a 58 mm head in dots.
	Width      = 384
	margin     = 8
	lineHeight = 16
)

var face = basicfont.Face7x13

// columns is how many glyphs fit on one line.
var columns = (Width - 2*margin) / face.Advance

// Lines lays out the ticket text, wrapped to the printable width.
func Lines(c violation.Citation) []string {
	rule := strings.Repeat("=", columns)
	out := []string{
		center("OFFICIAL CITATION"),
		center("Highway Patrol - Unit 7"),
		rule,
		"Date:   " + c.Time.Format("2006-01-02 15:04:05"),
		"Code:   " + c.Code.String(),
		"Points: " + strconv.Itoa(c.Points),
		strings.Repeat("-", columns),
	}
	out = append(out, wrap(c.Message, columns)...)
	if c.Context != "" {
		out = append(out, "")
		out = append(out, wrap("Telemetry: "+c.Context, columns)...)
	}
	out = append(out, rule, center("Drive safely."))
	return out
}

// Render draws c as a black-on-white image.
func Render(c violation.Citation) *image.Gray {
	lines := Lines(c)
	height := 2*margin + len(lines)*lineHeight
	img := image.NewGray(image.Rect(0, 0, Width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}
	for i, line := range lines {
		d.Dot = fixed.P(margin, margin+face.Ascent+i*lineHeight)
		d.DrawString(line)
	}
	return img
}

// Encode writes the rendered ticket as PNG.
func Encode(w io.Writer, c violation.Citation) error {
	return png.Encode(w, Render(c))
}

// Writer stores rendered tickets as temporary files for the print worker.
type Writer struct {
	Dir string
	FS  fsutil.FileSystem
}

// Write renders c and returns the path of the PNG.
func (w Writer) Write(c violation.Citation) (string, error) {
	if err := w.FS.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create ticket dir: %w", err)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, c); err != nil {
		return "", fmt.Errorf("encode ticket: %w", err)
	}
	stamp := c.Time
	if stamp.IsZero() {
		stamp = time.Now()
	}
	path := filepath.Join(w.Dir, fmt.Sprintf("temp_ticket_%d_%s.png", stamp.UnixNano(), c.Code))
	if err := w.FS.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write ticket: %w", err)
	}
	return path, nil
}

func center(s string) string {
	if pad := (columns - len(s)) / 2; pad > 0 {
		return strings.Repeat(" ", pad) + s
	}
	return s
}

// wrap breaks s on spaces so no line exceeds width; longer words are split.
func wrap(s string, width int) []string {
	var lines []string
	var cur strings.Builder
	for _, word := range strings.Fields(s) {
		for len(word) > width {
			if cur.Len() > 0 {
				lines = append(lines, cur.String())
				cur.Reset()
			}
			lines = append(lines, word[:width])
			word = word[width:]
		}
		if cur.Len() > 0 && cur.Len()+1+len(word) > width {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(word)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}
