// Package citation persists scored citations and fans each one out to the
// console, the screenshot worker and the ticket printer.
package citation

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/banshee-data/citation.report/internal/fsutil"
	"github.com/banshee-data/citation.report/internal/monitoring"
	"github.com/banshee-data/citation.report/internal/violation"
)

// Header is the first line of every session log.
const Header = "Timestamp | Violation | Points | Context"

// TimeLayout formats log timestamps.
const TimeLayout = "2006-01-02 15:04:05"

const (
	separator = " | "
	noContext = "N/A"
)

// Entry is one parsed log line.
type Entry struct {
	Time    time.Time
	Message string
	Points  int
	Context string
}

// Log is the append-only session log.
type Log struct {
	path string
	fs   fsutil.FileSystem
	mu   sync.Mutex
}

// CreateLog starts a new session log at path, replacing any previous one.
func CreateLog(fs fsutil.FileSystem, path string) (*Log, error) {
	if err := fs.WriteFile(path, []byte(Header+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("create violation log: %w", err)
	}
	return &Log{path: path, fs: fs}, nil
}

// Path returns the log file path.
func (l *Log) Path() string { return l.path }

// Append writes one citation line.
func (l *Log) Append(c violation.Citation) error {
	ctx := c.Context
	if ctx == "" {
		ctx = noContext
	}
	line := strings.Join([]string{
		c.Time.Format(TimeLayout),
		clean(c.Message),
		strconv.Itoa(c.Points),
		clean(ctx),
	}, separator) + "\n"

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.fs.AppendFile(l.path, []byte(line), 0o644); err != nil {
		return fmt.Errorf("append violation log: %w", err)
	}
	return nil
}

// clean keeps a field on one line and free of the column separator.
func clean(s string) string {
	s = strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
	return strings.ReplaceAll(s, separator, " / ")
}

// ReadLog parses the log at path. The header and malformed lines are skipped.
func ReadLog(fs fsutil.FileSystem, path string) ([]Entry, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read violation log: %w", err)
	}

	var entries []Entry
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || (i == 0 && strings.HasPrefix(line, "Timestamp")) {
			continue
		}
		e, err := parseEntry(line)
		if err != nil {
			monitoring.Logf("[Ticket Gen] Warning: Skipping malformed log line: %s (%v)", line, err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func parseEntry(line string) (Entry, error) {
	parts := strings.SplitN(line, separator, 4)
	if len(parts) < 4 {
		return Entry{}, fmt.Errorf("expected 4 fields, got %d", len(parts))
	}
	ts, err := time.ParseInLocation(TimeLayout, parts[0], time.Local)
	if err != nil {
		return Entry{}, fmt.Errorf("timestamp: %w", err)
	}
	points, err := strconv.Atoi(parts[2])
	if err != nil {
		return Entry{}, fmt.Errorf("points: %w", err)
	}
	ctx := parts[3]
	if ctx == noContext {
		ctx = ""
	}
	return Entry{Time: ts, Message: parts[1], Points: points, Context: ctx}, nil
}
