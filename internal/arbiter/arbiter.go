// Package arbiter turns one tick's merged violation list into scoring
// decisions. It is the only component allowed to start a pursuit.
package arbiter

import (
	"time"

	"github.com/banshee-data/citation.report/internal/config"
	"github.com/banshee-data/citation.report/internal/monitoring"
	"github.com/banshee-data/citation.report/internal/session"
	"github.com/banshee-data/citation.report/internal/violation"
	"github.com/banshee-data/citation.report/internal/workers"
)

// Announcer accepts speech work without blocking.
type Announcer interface {
	Submit(a workers.Announcement) bool
}

// Recorder receives every scored citation.
type Recorder interface {
	Record(c violation.Citation)
}

// Pursuer starts a pursuit. Start returns the points to credit immediately.
type Pursuer interface {
	Active() bool
	Start(v violation.Violation, now time.Time) int
}

// Arbiter applies dedup, cooldown and latch gating to a tick's violations.
type Arbiter struct {
	cfg      config.Rules
	state    *session.State
	announce Announcer
	record   Recorder
	pursuit  Pursuer
	metrics  *monitoring.Metrics
}

// New creates an Arbiter over state. pursuit may be nil, in which case
// trigger codes score like any other violation.
func New(cfg config.Rules, state *session.State, announce Announcer, record Recorder, pursuit Pursuer, metrics *monitoring.Metrics) *Arbiter {
	return &Arbiter{
		cfg:      cfg,
		state:    state,
		announce: announce,
		record:   record,
		pursuit:  pursuit,
		metrics:  metrics,
	}
}

// Process arbitrates vs in order and returns the points credited this tick.
//
// A code is handled at most once per call. Trigger codes start a pursuit
// instead of scoring. Fault codes score only from a clear or pending latch
// and only once the shared fault cooldown has elapsed; a fault blocked by
// that cooldown is left pending and retried on later ticks. Violation codes
// score once their own cooldown has elapsed.
func (a *Arbiter) Process(vs []violation.Violation, now time.Time) int {
	if len(vs) == 0 {
		return 0
	}
	before := a.state.TotalPoints()
	seen := make(map[violation.Code]bool, len(vs))

	for _, v := range vs {
		if seen[v.Code] {
			continue
		}
		seen[v.Code] = true

		if a.pursuit != nil && a.cfg.IsPursuitTrigger(v.Code) && !a.pursuit.Active() {
			a.state.AddPoints(a.pursuit.Start(v, now))
			continue
		}

		if v.Code.IsFault() {
			a.fault(v, now)
			continue
		}

		if !a.state.CooldownElapsed(v.Code, now, a.cfg.CooldownFor(v.Code)) {
			continue
		}
		a.state.MarkTriggered(v.Code, now)
		a.score(v, now)
	}

	added := a.state.TotalPoints() - before
	if added > 0 {
		a.metrics.SetPoints(a.state.TotalPoints())
	}
	return added
}

func (a *Arbiter) fault(v violation.Violation, now time.Time) {
	if a.state.Latch(v.Code) == session.LatchActive {
		return
	}
	if !a.state.CooldownElapsed(session.GlobalFault, now, a.cfg.FaultCooldown) {
		a.state.SetLatch(v.Code, session.LatchPending)
		return
	}
	a.state.MarkTriggered(session.GlobalFault, now)
	a.state.SetLatch(v.Code, session.LatchActive)
	a.score(v, now)
}

func (a *Arbiter) score(v violation.Violation, now time.Time) {
	points := a.cfg.PointsFor(v.Code)
	a.state.AddPoints(points)
	if a.announce != nil {
		a.announce.Submit(workers.Alert(workers.AlertBeep, v.Message))
	}
	if a.record != nil {
		a.record.Record(violation.Citation{Time: now, Points: points, Violation: v})
	}
	a.metrics.CitationScored(v.Code.String())
}
