package citation

import (
	"fmt"

	"github.com/banshee-data/citation.report/internal/monitoring"
	"github.com/banshee-data/citation.report/internal/violation"
)

// Console prints citation lines.
type Console interface {
	Printf(format string, args ...any)
}

// Queue accepts work without blocking.
type Queue interface {
	Submit(item string) bool
}

// TicketWriter renders a citation to an image file and returns its path.
type TicketWriter interface {
	Write(c violation.Citation) (string, error)
}

// Recorder handles every scored citation. Optional collaborators may be nil.
type Recorder struct {
	Console     Console
	Log         *Log
	Screenshots Queue
	Tickets     TicketWriter
	Prints      Queue
}

// ScreenshotName is the capture file name for c.
func ScreenshotName(c violation.Citation) string {
	return fmt.Sprintf("violation_%d_%s.png", c.Time.Unix(), c.Code)
}

// Record prints, logs and captures c, then queues its ticket for printing.
// Failures are logged; they never reach the detection loop.
func (r *Recorder) Record(c violation.Citation) {
	ts := c.Time.Format(TimeLayout)
	if r.Console != nil {
		r.Console.Printf("[VIOLATION] %s | %s (+%d)", ts, c.Message, c.Points)
		if c.Context != "" {
			r.Console.Printf("    L> Telemetry: %s", c.Context)
		}
	}

	if r.Log != nil {
		if err := r.Log.Append(c); err != nil {
			monitoring.Logf("[Log Error] %v", err)
		}
	}

	if r.Screenshots != nil {
		r.Screenshots.Submit(ScreenshotName(c))
	}

	if r.Tickets == nil || r.Prints == nil {
		return
	}
	path, err := r.Tickets.Write(c)
	if err != nil {
		monitoring.Logf("[Printer] ERROR: Failed to generate image for violation '%s': %v", c.Message, err)
		return
	}
	monitoring.Logf("[Printer] Generated image ticket: %s", path)
	r.Prints.Submit(path)
}

// Sink receives scored citations.
type Sink interface {
	Record(c violation.Citation)
}

// Tee hands each citation to every sink in order.
type Tee []Sink

// Record implements Sink.
func (t Tee) Record(c violation.Citation) {
	for _, s := range t {
		s.Record(c)
	}
}
