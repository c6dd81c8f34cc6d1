// Package console serializes operator output. Every line from the detection
// loop, the workers and the package logger goes through one Printer, which
// colours it by kind and keeps a status line pinned under the event stream.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"golang.org/x/time/rate"
)

// Kind selects the colour of an event line.
type Kind uint8

const (
	KindPlain Kind = iota
	KindViolation
	KindInfo
	KindStatus
	KindMonitoring
	KindScreenshot
	KindTicket
	KindDispatch
	KindError
	KindDetail
)

var styles = map[Kind]lipgloss.Style{
	KindViolation:  lipgloss.NewStyle().Foreground(lipgloss.Color("#E74C3C")).Bold(true),
	KindInfo:       lipgloss.NewStyle().Foreground(lipgloss.Color("#2CD7C7")),
	KindStatus:     lipgloss.NewStyle().Foreground(lipgloss.Color("#F4D03F")),
	KindMonitoring: lipgloss.NewStyle().Foreground(lipgloss.Color("#3498DB")),
	KindScreenshot: lipgloss.NewStyle().Foreground(lipgloss.Color("#AF7AC5")),
	KindTicket:     lipgloss.NewStyle().Foreground(lipgloss.Color("#2ECC71")),
	KindDispatch:   lipgloss.NewStyle().Foreground(lipgloss.Color("#5DADE2")).Bold(true),
	KindError:      lipgloss.NewStyle().Foreground(lipgloss.Color("#E74C3C")).Bold(true),
	KindDetail:     lipgloss.NewStyle().Foreground(lipgloss.Color("#7F8C8D")),
}

// tags maps a bracketed message prefix to its kind. Order matters: the
// first matching tag wins.
var tags = []struct {
	tag  string
	kind Kind
}{
	{"Error]", KindError},
	{"ERROR", KindError},
	{"[VIOLATION]", KindViolation},
	{"[CRITICAL FAULT]", KindViolation},
	{"[INFO]", KindInfo},
	{"[Status]", KindStatus},
	{"[Monitoring]", KindMonitoring},
	{"[Screenshot]", KindScreenshot},
	{"[Ticket", KindTicket},
	{"[Printer]", KindTicket},
	{"[DISPATCH]", KindDispatch},
	{"[SIREN]", KindDispatch},
	{"L>", KindDetail},
}

// Classify picks a kind from the message's tag.
func Classify(msg string) Kind {
	for _, t := range tags {
		if strings.Contains(msg, t.tag) {
			return t.kind
		}
	}
	return KindPlain
}

// Printer is safe for concurrent use.
type Printer struct {
	mu       sync.Mutex
	out      io.Writer
	terminal bool
	status   string

	idle rate.Sometimes
}

// IdleInterval bounds how often Idle repeats a status on a non-terminal.
const IdleInterval = 5 * time.Second

// New creates a Printer writing to out. Colour and the sticky status line are
// enabled only when out is a terminal.
func New(out io.Writer) *Printer {
	terminal := false
	if f, ok := out.(*os.File); ok {
		terminal = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Printer{
		out:      out,
		terminal: terminal,
		idle:     rate.Sometimes{First: 1, Interval: IdleInterval},
	}
}

// Stdout is a Printer on os.Stdout.
func Stdout() *Printer { return New(os.Stdout) }

func (p *Printer) render(k Kind, msg string) string {
	if !p.terminal {
		return msg
	}
	if s, ok := styles[k]; ok {
		return s.Render(msg)
	}
	return msg
}

// Event prints one line above the status line.
func (p *Printer) Event(k Kind, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.terminal {
		fmt.Fprint(p.out, "\r\033[K")
	}
	fmt.Fprintln(p.out, p.render(k, msg))
	if p.terminal && p.status != "" {
		fmt.Fprint(p.out, p.status)
	}
}

// Printf prints a line classified by its tag.
func (p *Printer) Printf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	p.Event(Classify(msg), "%s", msg)
}

// Logf adapts the Printer for monitoring.SetLogger.
func (p *Printer) Logf(format string, args ...any) {
	p.Printf(strings.TrimSuffix(format, "\n"), args...)
}

// Status replaces the sticky status line. On a non-terminal a status is
// printed as a plain line only when it changes.
func (p *Printer) Status(k Kind, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	styled := p.render(k, text)
	if p.terminal {
		p.status = styled
		fmt.Fprint(p.out, "\r\033[K"+styled)
		return
	}
	if styled == p.status {
		return
	}
	p.status = styled
	fmt.Fprintln(p.out, styled)
}

// Idle publishes a waiting or paused status, rate limited so that a long
// outage does not flood a log file.
func (p *Printer) Idle(text string) {
	if p.terminal {
		p.Status(KindStatus, text)
		return
	}
	p.idle.Do(func() {
		p.mu.Lock()
		fmt.Fprintln(p.out, text)
		p.status = ""
		p.mu.Unlock()
	})
}

// Finish ends the status line so later output starts on a fresh line.
func (p *Printer) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.terminal && p.status != "" {
		fmt.Fprintln(p.out)
	}
	p.status = ""
}
