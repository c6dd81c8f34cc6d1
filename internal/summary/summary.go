// Package summary writes the end-of-session court summary from the violation
// log: an HTML page listing every citation plus a points-by-offence chart.
package summary

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"math/rand/v2"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/google/uuid"

	"github.com/banshee-data/citation.report/internal/citation"
	"github.com/banshee-data/citation.report/internal/fsutil"
	"github.com/banshee-data/citation.report/internal/monitoring"
)

//go:embed court_session.html.tmpl
var pageTemplate string

var page = template.Must(template.New("court_session").Parse(pageTemplate))

// RemarksPool supplies the examiner's remarks.
var RemarksPool = []string{
	"Subject appears to treat speed limits as friendly suggestions.",
	"The turn signal is not a decorative feature.",
	"Cargo integrity was, at best, an afterthought.",
	"Several pedestrians have requested a transfer to another country.",
	"The truck has filed a formal complaint about its driver.",
	"Mirror checks detected: zero. Confidence in that figure: high.",
	"Braking technique best described as interpretive dance.",
	"Insurance adjusters have been notified and are weeping quietly.",
}

const (
	recommendation = "RECOMMENDATION: Driver requires immediate re-education. My circuits are weeping."
	signature      = "-- A.I. Examiner Unit 734"
)

// Report is the data rendered into a court summary.
type Report struct {
	SessionID   string
	Passcode    string
	SessionEnd  string
	TotalPoints int
	Entries     []citation.Entry
	Remarks     []string
	ChartFile   string
}

// Generator builds summaries. Rand and NewID may be nil.
type Generator struct {
	Dir   string
	FS    fsutil.FileSystem
	Rand  *rand.Rand
	NewID func() uuid.UUID
}

func (g Generator) rng() *rand.Rand {
	if g.Rand != nil {
		return g.Rand
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

func (g Generator) newID() uuid.UUID {
	if g.NewID != nil {
		return g.NewID()
	}
	return uuid.New()
}

// SessionID derives the short court session id from u.
func SessionID(u uuid.UUID) string {
	parts := strings.Split(strings.ToUpper(u.String()), "-")
	return parts[0] + "-" + parts[1]
}

// Build assembles a report from log entries.
func (g Generator) Build(entries []citation.Entry, totalPoints int) Report {
	rng := g.rng()
	id := SessionID(g.newID())

	n := min(len(RemarksPool), 2+rng.IntN(3))
	remarks := make([]string, 0, n+2)
	for _, i := range rng.Perm(len(RemarksPool))[:n] {
		remarks = append(remarks, RemarksPool[i])
	}
	remarks = append(remarks, recommendation, signature)

	r := Report{
		SessionID:   id,
		Passcode:    fmt.Sprintf("JUDGE-SMASH-%d", 100+rng.IntN(900)),
		TotalPoints: totalPoints,
		Entries:     entries,
		Remarks:     remarks,
		ChartFile:   "court_session_" + id + "_chart.html",
	}
	if len(entries) > 0 {
		r.SessionEnd = entries[len(entries)-1].Time.Format(citation.TimeLayout)
	}
	return r
}

// Write reads the session log and writes the summary and its chart into Dir.
// It returns the summary path, or "" when no citations were logged, in which
// case the log is emptied.
func (g Generator) Write(logPath string, totalPoints int) (string, error) {
	monitoring.Logf("[Ticket Gen] Reading violation log...")
	entries, err := citation.ReadLog(g.FS, logPath)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		monitoring.Logf("[Ticket Gen] No violations logged. No ticket will be issued. Good job?")
		if err := g.FS.WriteFile(logPath, nil, 0o644); err != nil {
			return "", fmt.Errorf("empty violation log: %w", err)
		}
		return "", nil
	}

	report := g.Build(entries, totalPoints)
	if err := g.FS.MkdirAll(g.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create sessions dir: %w", err)
	}

	chart, err := Chart(report)
	if err != nil {
		return "", err
	}
	if err := g.FS.WriteFile(filepath.Join(g.Dir, report.ChartFile), chart, 0o644); err != nil {
		return "", fmt.Errorf("write chart: %w", err)
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, report); err != nil {
		return "", fmt.Errorf("render summary: %w", err)
	}
	path := filepath.Join(g.Dir, "court_session_"+report.SessionID+".html")
	if err := g.FS.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	monitoring.Logf("[Ticket Generated] Court session file saved to: %s", path)
	return path, nil
}

// Offence is the category of a log message: the text before its first
// colon, e.g. "SPEEDING" for "SPEEDING: 75 in a 60 zone!".
func Offence(message string) string {
	if i := strings.Index(message, ":"); i > 0 {
		return strings.TrimSpace(message[:i])
	}
	return strings.TrimSpace(message)
}

// PointsByOffence totals points per offence, highest first.
func PointsByOffence(entries []citation.Entry) (names []string, points []int) {
	totals := make(map[string]int)
	for _, e := range entries {
		totals[Offence(e.Message)] += e.Points
	}
	for name := range totals {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if totals[names[i]] != totals[names[j]] {
			return totals[names[i]] > totals[names[j]]
		}
		return names[i] < names[j]
	})
	for _, n := range names {
		points = append(points, totals[n])
	}
	return names, points
}

// Chart renders the points-by-offence bar chart as a standalone page.
func Chart(r Report) ([]byte, error) {
	names, points := PointsByOffence(r.Entries)
	data := make([]opts.BarData, len(points))
	for i, p := range points {
		data[i] = opts.BarData{Value: p}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Court Session " + r.SessionID, Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Points by offence", Subtitle: fmt.Sprintf("session=%s total=%d", r.SessionID, r.TotalPoints)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(names).
		AddSeries("points", data,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}
