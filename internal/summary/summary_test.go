package summary

import (
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/citation.report/internal/citation"
	"github.com/banshee-data/citation.report/internal/fsutil"
	"github.com/banshee-data/citation.report/internal/monitoring"
	"github.com/banshee-data/citation.report/internal/violation"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	m.Run()
}

var fixedID = uuid.MustParse("3f2b8c1a-9d4e-4f6a-8b2c-1d2e3f4a5b6c")

func generator(fs fsutil.FileSystem) Generator {
	return Generator{
		Dir:   "/sessions",
		FS:    fs,
		Rand:  rand.New(rand.NewPCG(1, 2)),
		NewID: func() uuid.UUID { return fixedID },
	}
}

func TestSessionID(t *testing.T) {
	assert.Equal(t, "3F2B8C1A-9D4E", SessionID(fixedID))
}

func TestOffence(t *testing.T) {
	assert.Equal(t, "SPEEDING", Offence("SPEEDING: 75 in a 60 zone!"))
	assert.Equal(t, "HIT AND RUN", Offence("HIT AND RUN: New 12% damage detected! (We saw that.)"))
	assert.Equal(t, "no colon", Offence(" no colon "))
}

func TestPointsByOffence(t *testing.T) {
	entries := []citation.Entry{
		{Message: "SPEEDING: 75 in a 60 zone!", Points: 10},
		{Message: "IMPROPER HORN USE: x", Points: 2},
		{Message: "SPEEDING: 80 in a 60 zone!", Points: 10},
		{Message: "ALPHA: tie", Points: 2},
	}
	names, points := PointsByOffence(entries)
	assert.Equal(t, []string{"SPEEDING", "ALPHA", "IMPROPER HORN USE"}, names)
	assert.Equal(t, []int{20, 2, 2}, points)
}

func TestBuild(t *testing.T) {
	end := time.Date(2025, 6, 1, 22, 0, 0, 0, time.Local)
	r := generator(nil).Build([]citation.Entry{{Time: end, Message: "x", Points: 1}}, 1)

	assert.Equal(t, "3F2B8C1A-9D4E", r.SessionID)
	assert.Regexp(t, `^JUDGE-SMASH-[1-9]\d\d$`, r.Passcode)
	assert.Equal(t, "2025-06-01 22:00:00", r.SessionEnd)
	require.GreaterOrEqual(t, len(r.Remarks), 4)
	require.LessOrEqual(t, len(r.Remarks), 6)
	assert.Equal(t, signature, r.Remarks[len(r.Remarks)-1])

	seen := map[string]bool{}
	for _, rem := range r.Remarks {
		assert.False(t, seen[rem], "duplicate remark %q", rem)
		seen[rem] = true
	}
}

func TestWrite(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	log, err := citation.CreateLog(fs, "/s/violations_log.txt")
	require.NoError(t, err)
	at := time.Date(2025, 6, 1, 21, 30, 5, 0, time.Local)
	require.NoError(t, log.Append(violation.Citation{Time: at, Points: 10,
		Violation: violation.New(violation.ViolationSpeeding, "SPEEDING: <b>75</b> in a 60 zone!", "{truck.speed: 75.0}")}))

	path, err := generator(fs).Write(log.Path(), 10)
	require.NoError(t, err)
	assert.Equal(t, "/sessions/court_session_3F2B8C1A-9D4E.html", path)

	raw, err := fs.ReadFile(path)
	require.NoError(t, err)
	html := string(raw)
	assert.Contains(t, html, "SPEEDING: &lt;b&gt;75&lt;/b&gt; in a 60 zone!")
	assert.Contains(t, html, "Total points: 10")
	assert.Contains(t, html, `<iframe src="court_session_3F2B8C1A-9D4E_chart.html"`)
	assert.Contains(t, html, "Telemetry:</strong> {truck.speed: 75.0}")

	chart, err := fs.ReadFile("/sessions/court_session_3F2B8C1A-9D4E_chart.html")
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(chart), "SPEEDING"))
}

func TestWrite_NoCitations(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	log, err := citation.CreateLog(fs, "/s/violations_log.txt")
	require.NoError(t, err)

	path, err := generator(fs).Write(log.Path(), 0)
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Empty(t, fs.Files("/sessions"))

	raw, err := fs.ReadFile(log.Path())
	require.NoError(t, err)
	assert.Empty(t, raw)
}
