package citation

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/citation.report/internal/fsutil"
	"github.com/banshee-data/citation.report/internal/monitoring"
	"github.com/banshee-data/citation.report/internal/violation"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	m.Run()
}

var t0 = time.Date(2025, 6, 1, 21, 30, 5, 0, time.Local)

func speeding(at time.Time) violation.Citation {
	return violation.Citation{
		Time:      at,
		Points:    10,
		Violation: violation.New(violation.ViolationSpeeding, "SPEEDING: 75 in a 60 zone!", "{truck.speed: %.1f}", 75.0),
	}
}

func TestLog_AppendAndRead(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	log, err := CreateLog(fs, "/s/violations_log.txt")
	require.NoError(t, err)

	require.NoError(t, log.Append(speeding(t0)))
	horn := violation.Citation{Time: t0.Add(time.Minute), Points: 2,
		Violation: violation.Violation{Code: violation.ViolationHorn, Message: "HORN | again\nnow"}}
	require.NoError(t, log.Append(horn))

	raw, err := fs.ReadFile(log.Path())
	require.NoError(t, err)
	assert.Equal(t, Header+"\n"+
		"2025-06-01 21:30:05 | SPEEDING: 75 in a 60 zone! | 10 | {truck.speed: 75.0}\n"+
		"2025-06-01 21:31:05 | HORN / again now | 2 | N/A\n", string(raw))

	entries, err := ReadLog(fs, log.Path())
	require.NoError(t, err)
	want := []Entry{
		{Time: t0, Message: "SPEEDING: 75 in a 60 zone!", Points: 10, Context: "{truck.speed: 75.0}"},
		{Time: t0.Add(time.Minute), Message: "HORN / again now", Points: 2},
	}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateLog_Truncates(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	require.NoError(t, fs.WriteFile("/s/log.txt", []byte("old session\n"), 0o644))
	_, err := CreateLog(fs, "/s/log.txt")
	require.NoError(t, err)

	entries, err := ReadLog(fs, "/s/log.txt")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReadLog_SkipsMalformed(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	require.NoError(t, fs.WriteFile("/l.txt", []byte(Header+"\n"+
		"garbage\n"+
		"2025-06-01 21:30:05 | x | ten | N/A\n"+
		"yesterday | x | 1 | N/A\n"+
		"\n"+
		"2025-06-01 21:30:05 | ok | 3 | {a: 1}\n"), 0o644))

	entries, err := ReadLog(fs, "/l.txt")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ok", entries[0].Message)

	_, err = ReadLog(fs, "/missing.txt")
	assert.Error(t, err)
}

type lines struct{ got []string }

func (l *lines) Printf(format string, args ...any) { l.got = append(l.got, fmt.Sprintf(format, args...)) }

type queue struct{ got []string }

func (q *queue) Submit(s string) bool {
	q.got = append(q.got, s)
	return true
}

type tickets struct{ err error }

func (t tickets) Write(c violation.Citation) (string, error) {
	if t.err != nil {
		return "", t.err
	}
	return "/tmp/ticket_" + c.Code.String() + ".png", nil
}

func TestRecorder_FansOut(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	log, err := CreateLog(fs, "/s/log.txt")
	require.NoError(t, err)

	out, shots, prints := &lines{}, &queue{}, &queue{}
	r := &Recorder{Console: out, Log: log, Screenshots: shots, Tickets: tickets{}, Prints: prints}
	c := speeding(t0)
	r.Record(c)

	assert.Equal(t, []string{
		"[VIOLATION] 2025-06-01 21:30:05 | SPEEDING: 75 in a 60 zone! (+10)",
		"    L> Telemetry: {truck.speed: 75.0}",
	}, out.got)
	assert.Equal(t, []string{fmt.Sprintf("violation_%d_VIOLATION_SPEEDING.png", t0.Unix())}, shots.got)
	assert.Equal(t, []string{"/tmp/ticket_VIOLATION_SPEEDING.png"}, prints.got)

	entries, err := ReadLog(fs, log.Path())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRecorder_TicketFailureSkipsPrint(t *testing.T) {
	prints := &queue{}
	r := &Recorder{Tickets: tickets{err: errors.New("disk full")}, Prints: prints}
	r.Record(speeding(t0))
	assert.Empty(t, prints.got)
}

func TestRecorder_Minimal(t *testing.T) {
	assert.NotPanics(t, func() { (&Recorder{}).Record(speeding(t0)) })
}

type sinkFunc func(violation.Citation)

func (f sinkFunc) Record(c violation.Citation) { f(c) }

func TestTee(t *testing.T) {
	var order []string
	tee := Tee{
		sinkFunc(func(c violation.Citation) { order = append(order, "a:"+c.Code.String()) }),
		sinkFunc(func(c violation.Citation) { order = append(order, "b:"+c.Code.String()) }),
	}
	tee.Record(speeding(t0))
	assert.Equal(t, []string{"a:VIOLATION_SPEEDING", "b:VIOLATION_SPEEDING"}, order)
}
