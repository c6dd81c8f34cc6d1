package admin

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/citation.report/internal/engine"
	"github.com/banshee-data/citation.report/internal/violation"
)

// localHostRequest makes a request that passes tsweb's loopback check.
func localHostRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.RemoteAddr = "127.0.0.1:12345"
	return req
}

type fixedStatus struct{ st *engine.Status }

func (f fixedStatus) Status() *engine.Status { return f.st }

var at = time.Date(2025, 6, 1, 21, 30, 5, 0, time.Local)

func speeding() violation.Citation {
	return violation.Citation{Time: at, Points: 10,
		Violation: violation.New(violation.ViolationSpeeding, "SPEEDING: 75 in a 60 zone!", "{truck.speed: %.1f}", 75.0)}
}

func TestLine(t *testing.T) {
	assert.Equal(t, "2025-06-01 21:30:05 | SPEEDING: 75 in a 60 zone! | 10 | {truck.speed: 75.0}", Line(speeding()))

	c := speeding()
	c.Context = ""
	assert.True(t, strings.HasSuffix(Line(c), "| N/A"))
}

func TestFeed_FanOutAndUnsubscribe(t *testing.T) {
	f := NewFeed()
	id1, c1 := f.Subscribe()
	_, c2 := f.Subscribe()

	f.Record(speeding())
	assert.Contains(t, <-c1, "SPEEDING")
	assert.Contains(t, <-c2, "SPEEDING")

	f.Unsubscribe(id1)
	_, ok := <-c1
	assert.False(t, ok)

	f.Close()
	_, ok = <-c2
	assert.False(t, ok)

	_, late := f.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}

func TestFeed_RecordNeverBlocks(t *testing.T) {
	f := NewFeed()
	_, c := f.Subscribe()
	for range subscriberBuffer + 10 {
		f.Record(speeding())
	}
	assert.Len(t, c, subscriberBuffer)
}

func TestSessionAPI(t *testing.T) {
	st := &engine.Status{Time: at, Outcome: engine.OutcomeMonitoring, Ticks: 7, TotalPoints: 12,
		Latches: map[string]string{"FAULT_AIR": "active"}}
	mux := http.NewServeMux()
	AttachRoutes(mux, fixedStatus{st}, NewFeed())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, localHostRequest(http.MethodGet, "/debug/session-api", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got engine.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, engine.OutcomeMonitoring, got.Outcome)
	assert.Equal(t, 12, got.TotalPoints)
	assert.Equal(t, "active", got.Latches["FAULT_AIR"])

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, localHostRequest(http.MethodPost, "/debug/session-api", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSessionAPI_NoStatus(t *testing.T) {
	mux := http.NewServeMux()
	AttachRoutes(mux, fixedStatus{}, NewFeed())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, localHostRequest(http.MethodGet, "/debug/session-api", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSessionPage(t *testing.T) {
	st := &engine.Status{Outcome: engine.OutcomePursuit, TotalPoints: 30,
		Pursuit: &engine.PursuitStatus{Trigger: "VIOLATION_HIT_AND_RUN", StartedAt: at}}
	mux := http.NewServeMux()
	AttachRoutes(mux, fixedStatus{st}, NewFeed())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, localHostRequest(http.MethodGet, "/debug/session", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "pursuit")
	assert.Contains(t, body, "VIOLATION_HIT_AND_RUN since 21:30:05")
}

func TestCitationsTail(t *testing.T) {
	feed := NewFeed()
	mux := http.NewServeMux()
	AttachRoutes(mux, fixedStatus{}, feed)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/debug/citations", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	ping, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": ping\n", ping)

	// The subscription is registered before the ping is flushed.
	feed.Record(speeding())
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			assert.Contains(t, line, "SPEEDING: 75 in a 60 zone!")
			break
		}
	}
}
