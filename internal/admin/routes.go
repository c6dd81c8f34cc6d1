package admin

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"sort"

	"tailscale.com/tsweb"

	"github.com/banshee-data/citation.report/internal/engine"
	"github.com/banshee-data/citation.report/internal/httputil"
	"github.com/banshee-data/citation.report/internal/version"
)

// StatusSource returns the latest published session status.
type StatusSource interface {
	Status() *engine.Status
}

var sessionTemplate = template.Must(template.New("session").Parse(`<!DOCTYPE html>
<html><head><title>citation.report session</title>
<meta http-equiv="refresh" content="2"></head>
<body>
<h1>Session</h1>
<p>version {{.Version}} ({{.GitSHA}})</p>
{{with .Status}}
<table>
<tr><td>outcome</td><td>{{.Outcome}}</td></tr>
<tr><td>ticks</td><td>{{.Ticks}}</td></tr>
<tr><td>speed</td><td>{{printf "%.0f" .SpeedKPH}} / {{printf "%.0f" .SpeedLimit}} km/h</td></tr>
<tr><td>total points</td><td>{{.TotalPoints}}</td></tr>
{{with .Pursuit}}<tr><td>pursuit</td><td>{{.Trigger}} since {{.StartedAt.Format "15:04:05"}}</td></tr>{{end}}
</table>
{{end}}
{{if .Latches}}<h2>Latches</h2><ul>{{range .Latches}}<li>{{.}}</li>{{end}}</ul>{{end}}
<p><a href="citations">live citations</a></p>
</body></html>
`))

type sessionPage struct {
	Version string
	GitSHA  string
	Status  *engine.Status
	Latches []string
}

// AttachRoutes registers the session pages under /debug/ on mux.
func AttachRoutes(mux *http.ServeMux, status StatusSource, feed *Feed) {
	debug := tsweb.Debugger(mux)

	debug.HandleFunc("session", "live session status", func(w http.ResponseWriter, r *http.Request) {
		page := sessionPage{Version: version.Version, GitSHA: version.GitSHA, Status: status.Status()}
		if page.Status != nil {
			for code, latch := range page.Status.Latches {
				page.Latches = append(page.Latches, code+": "+latch)
			}
			sort.Strings(page.Latches)
		}
		buf := bytes.NewBuffer(nil)
		if err := sessionTemplate.Execute(buf, page); err != nil {
			http.Error(w, "Failed to render template", http.StatusInternalServerError)
			return
		}
		io.Copy(w, buf)
	})

	debug.HandleSilentFunc("session-api", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httputil.MethodNotAllowed(w)
			return
		}
		st := status.Status()
		if st == nil {
			httputil.WriteJSONError(w, http.StatusServiceUnavailable, "no status published yet")
			return
		}
		httputil.WriteJSONOK(w, st)
	})

	debug.HandleSilentFunc("citations", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		id, c := feed.Subscribe()
		defer feed.Unsubscribe(id)

		io.WriteString(w, ": ping\n\n")
		flusher.Flush()

		for {
			select {
			case line, ok := <-c:
				if !ok {
					return
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", line); err != nil {
					return
				}
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	})
}
