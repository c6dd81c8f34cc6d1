// Package pursuit implements the timed pursuit that replaces normal
// detection after a trigger violation.
//
// The pursuit ends when the truck stays stationary for the pull-over
// duration; every penalty interval spent moving adds an evasion citation.
// The trigger violation itself is recorded when the pursuit resolves.
package pursuit

import (
	"time"

	"github.com/banshee-data/citation.report/internal/config"
	"github.com/banshee-data/citation.report/internal/monitoring"
	"github.com/banshee-data/citation.report/internal/session"
	"github.com/banshee-data/citation.report/internal/violation"
	"github.com/banshee-data/citation.report/internal/workers"
)

// Announcement texts.
const (
	DispatchAnnouncement = "Police dispatch, a unit is in pursuit."
	EvadingAnnouncement  = "Suspect is evading, repeat, suspect is evading!"
	ComplyAnnouncement   = "Suspect has complied. Issuing citation."
	EvadingMessage       = "EVADING POLICE: Failure to yield for a police unit!"
)

// Announcer accepts speech work without blocking.
type Announcer interface {
	Submit(a workers.Announcement) bool
}

// Recorder receives the citations the pursuit issues.
type Recorder interface {
	Record(c violation.Citation)
}

// Siren is the escalation-audio flag.
type Siren interface {
	Activate()
	Deactivate()
}

// Console prints dispatch lines.
type Console interface {
	Printf(format string, args ...any)
}

// Machine owns the pursuit fields of a session.State.
type Machine struct {
	cfg      config.Rules
	state    *session.State
	announce Announcer
	record   Recorder
	siren    Siren
	console  Console
	metrics  *monitoring.Metrics
}

// New creates a Machine. Any collaborator may be nil.
func New(cfg config.Rules, state *session.State, announce Announcer, record Recorder, siren Siren, console Console, metrics *monitoring.Metrics) *Machine {
	return &Machine{
		cfg:      cfg,
		state:    state,
		announce: announce,
		record:   record,
		siren:    siren,
		console:  console,
		metrics:  metrics,
	}
}

// Active reports whether a pursuit is in progress.
func (m *Machine) Active() bool { return m.state.Pursuit.Active }

// Start begins a pursuit for v and returns the points to credit now: zero
// under the resolve credit policy, the trigger's points otherwise. Starting
// while active is a no-op.
func (m *Machine) Start(v violation.Violation, now time.Time) int {
	if m.Active() {
		return 0
	}
	m.state.Pursuit = session.Pursuit{
		Active:        true,
		StartedAt:     now,
		LastPenaltyAt: now,
		Trigger:       v,
	}

	m.printf("[DISPATCH] Unit 7, we have a report of a %s... Engaging.", v.Code.Slug())
	m.say(workers.Say(DispatchAnnouncement))
	if m.siren != nil {
		m.siren.Activate()
	}
	m.metrics.SetPursuitActive(true)

	if m.cfg.PursuitCredit == config.CreditOnStartAndResolve {
		return m.cfg.PointsFor(v.Code)
	}
	return 0
}

// Manage advances an active pursuit by one tick and returns the points
// earned this tick.
func (m *Machine) Manage(now time.Time, stationary bool) int {
	if !m.Active() {
		return 0
	}
	p := &m.state.Pursuit

	if stationary {
		if p.StoppedSince.IsZero() {
			p.StoppedSince = now
		}
		if now.Sub(p.StoppedSince) >= m.cfg.PullOverDuration {
			return m.End(now)
		}
	} else {
		p.StoppedSince = time.Time{}
	}

	if now.Sub(p.LastPenaltyAt) <= m.cfg.PursuitPenaltyInterval {
		return 0
	}
	p.LastPenaltyAt = now

	v := violation.New(violation.ViolationEvadingPolice, EvadingMessage,
		"{chase_duration: %.1fs}", now.Sub(p.StartedAt).Seconds())
	points := m.cfg.PursuitPenaltyPoints
	m.issue(v, points, now)
	m.say(workers.Alert(workers.UrgentBeep, EvadingAnnouncement))
	return points
}

// End resolves the pursuit, records the trigger citation and returns its
// points. Ending an inactive pursuit returns 0.
func (m *Machine) End(now time.Time) int {
	if !m.Active() {
		return 0
	}
	trigger := m.state.Pursuit.Trigger

	m.printf("[DISPATCH] Suspect has pulled over. Unit 7, issue citation.")
	m.say(workers.Say(ComplyAnnouncement))
	if m.siren != nil {
		m.siren.Deactivate()
	}

	points := m.cfg.PointsFor(trigger.Code)
	m.issue(trigger, points, now)

	m.state.Pursuit = session.Pursuit{}
	// Damage taken while fleeing is not a new hit-and-run.
	m.state.DamageSeeded = false
	m.metrics.SetPursuitActive(false)
	return points
}

func (m *Machine) issue(v violation.Violation, points int, now time.Time) {
	if m.record != nil {
		m.record.Record(violation.Citation{Time: now, Points: points, Violation: v})
	}
	m.metrics.CitationScored(v.Code.String())
}

func (m *Machine) say(a workers.Announcement) {
	if m.announce != nil {
		m.announce.Submit(a)
	}
}

func (m *Machine) printf(format string, args ...any) {
	if m.console != nil {
		m.console.Printf(format, args...)
		return
	}
	monitoring.Logf(format, args...)
}
