// Package engine runs the detection loop: one telemetry poll per tick,
// pursuit management or rule evaluation, then arbitration.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/banshee-data/citation.report/internal/arbiter"
	"github.com/banshee-data/citation.report/internal/config"
	"github.com/banshee-data/citation.report/internal/console"
	"github.com/banshee-data/citation.report/internal/monitoring"
	"github.com/banshee-data/citation.report/internal/pursuit"
	"github.com/banshee-data/citation.report/internal/rules"
	"github.com/banshee-data/citation.report/internal/session"
	"github.com/banshee-data/citation.report/internal/telemetry"
	"github.com/banshee-data/citation.report/internal/timeutil"
	"github.com/banshee-data/citation.report/internal/violation"
	"github.com/banshee-data/citation.report/internal/workers"
)

// Status texts shown while detection is idle.
const (
	WaitingText    = "[Status] Waiting for Telemetry Server..."
	NotRunningText = "[Status] Game Paused / Not Connected..."
	BackgroundText = "[Status] ETS2 is backgrounded..."
)

// Keys used for manual-input checks.
const (
	HornKey          = 'h'
	TrailerDetachKey = 't'
)

// Source yields one snapshot per poll. An error means no snapshot.
type Source interface {
	Fetch(ctx context.Context) (*telemetry.Snapshot, error)
}

// FocusChecker reports whether the game window has focus.
type FocusChecker interface {
	Focused() bool
}

// KeyState reports whether a key is held right now.
type KeyState interface {
	Pressed(key rune) bool
}

// RemovalFlag is the device-removal edge. Consume reads and clears it.
type RemovalFlag interface {
	Consume() bool
}

// Recorder receives every scored citation.
type Recorder interface {
	Record(c violation.Citation)
}

// Announcer accepts speech work without blocking.
type Announcer interface {
	Submit(a workers.Announcement) bool
}

// Console is the operator output.
type Console interface {
	Printf(format string, args ...any)
	Status(k console.Kind, text string)
	Idle(text string)
}

// Options wires an Engine. Source is required; other nil collaborators are
// replaced with inert defaults.
type Options struct {
	Rules    config.Rules
	Source   Source
	Focus    FocusChecker
	Keys     KeyState
	Removal  RemovalFlag
	Announce Announcer
	Recorder Recorder
	Siren    pursuit.Siren
	Console  Console
	Clock    timeutil.Clock
	Metrics  *monitoring.Metrics
}

// Engine owns the session state. Tick, Run and Close must be called from a
// single goroutine; Status may be called from any.
type Engine struct {
	cfg      config.Rules
	source   Source
	focus    FocusChecker
	keys     KeyState
	removal  RemovalFlag
	announce Announcer
	console  Console
	clock    timeutil.Clock
	metrics  *monitoring.Metrics

	rules   *rules.Set
	state   *session.State
	arbiter *arbiter.Arbiter
	pursuit *pursuit.Machine

	ticks  uint64
	status atomic.Pointer[Status]
}

// New builds an Engine and its session state.
func New(opts Options) (*Engine, error) {
	if opts.Source == nil {
		return nil, errors.New("engine: telemetry source is required")
	}
	if opts.Rules.TickInterval <= 0 {
		return nil, fmt.Errorf("engine: invalid tick interval %s", opts.Rules.TickInterval)
	}
	e := &Engine{
		cfg:      opts.Rules,
		source:   opts.Source,
		focus:    opts.Focus,
		keys:     opts.Keys,
		removal:  opts.Removal,
		announce: opts.Announce,
		console:  opts.Console,
		clock:    opts.Clock,
		metrics:  opts.Metrics,
	}
	if e.focus == nil {
		e.focus = alwaysFocused{}
	}
	if e.keys == nil {
		e.keys = noKeys{}
	}
	if e.removal == nil {
		e.removal = neverRemoved{}
	}
	if e.announce == nil {
		e.announce = discard{}
	}
	if e.console == nil {
		e.console = logConsole{}
	}
	if e.clock == nil {
		e.clock = timeutil.RealClock{}
	}

	e.rules = rules.New(opts.Rules)
	e.state = session.New(opts.Rules)
	e.pursuit = pursuit.New(opts.Rules, e.state, e.announce, opts.Recorder, opts.Siren, e.console, opts.Metrics)
	e.arbiter = arbiter.New(opts.Rules, e.state, e.announce, opts.Recorder, e.pursuit, opts.Metrics)
	e.publish(e.clock.Now(), OutcomeWaiting, nil)
	return e, nil
}

// Tick runs one detection cycle.
func (e *Engine) Tick(ctx context.Context) Outcome {
	now := e.clock.Now()
	e.ticks++

	snap, err := e.source.Fetch(ctx)
	if err != nil || snap == nil {
		if errors.Is(err, telemetry.ErrNotConnected) {
			e.console.Idle(NotRunningText)
		} else {
			e.console.Idle(WaitingText)
		}
		return e.finish(now, OutcomeWaiting, nil)
	}

	speed := snap.Speed()
	e.state.RecordSpeed(speed)

	if e.pursuit.Active() {
		e.state.AddPoints(e.pursuit.Manage(now, e.state.Stationary(speed)))
		return e.finish(now, OutcomePursuit, snap)
	}

	if !e.focus.Focused() {
		e.console.Idle(BackgroundText)
		faults := guard(e, "critical", func() []violation.Violation { return e.rules.CriticalFaults(snap) })
		e.arbiter.Process(faults, now)
		return e.finish(now, OutcomePaused, snap)
	}

	vs := e.detect(snap, now)

	cleared := guard(e, "clearance", func() []string { return e.rules.ClearFaults(snap, e.state) })
	for _, msg := range cleared {
		e.console.Printf("[INFO] %s", msg)
		e.announce.Submit(workers.Say(msg))
	}

	e.arbiter.Process(vs, now)

	if len(vs) == 0 && len(cleared) == 0 {
		e.console.Status(console.KindMonitoring, fmt.Sprintf("[Monitoring] Speed: %d / %.0f km/h | Total Points: %d",
			int(speed), snap.Navigation.SpeedLimit, e.state.TotalPoints()))
	}
	return e.finish(now, OutcomeMonitoring, snap)
}

// detect runs every detector group in merge order. Stateless violations
// count only while driving, except idling, which counts only while stopped.
func (e *Engine) detect(snap *telemetry.Snapshot, now time.Time) []violation.Violation {
	var vs []violation.Violation
	vs = append(vs, guard(e, "critical", func() []violation.Violation {
		return e.rules.CriticalFaults(snap)
	})...)

	vs = append(vs, guard(e, "manual", func() []violation.Violation {
		in := rules.Input{
			Horn:          e.keys.Pressed(HornKey),
			TrailerDetach: e.keys.Pressed(TrailerDetachKey),
			DeviceRemoved: e.removal.Consume(),
		}
		return e.rules.ManualInputViolations(snap, e.state, in)
	})...)
	vs = append(vs, guard(e, "events", func() []violation.Violation {
		return e.rules.EventViolations(snap, e.state, now)
	})...)
	vs = append(vs, guard(e, "dwell", func() []violation.Violation {
		return e.rules.DwellViolations(snap, e.state)
	})...)

	driving, stopped := e.state.IsDriving(), e.state.IsStopped()
	for _, v := range guard(e, "driving", func() []violation.Violation { return e.rules.DrivingViolations(snap) }) {
		switch {
		case v.Code.IsFault():
		case driving:
		case stopped && v.Code == violation.ViolationIdling:
		default:
			continue
		}
		vs = append(vs, v)
	}
	return vs
}

// guard runs one detector group. A panic is logged and counted, and the
// group contributes nothing this tick.
func guard[T any](e *Engine, group string, fn func() []T) (out []T) {
	defer func() {
		if r := recover(); r != nil {
			monitoring.Logf("[Engine] %s detectors failed: %v", group, r)
			e.metrics.DetectorFailed(group)
			out = nil
		}
	}()
	return fn()
}

func (e *Engine) finish(now time.Time, outcome Outcome, snap *telemetry.Snapshot) Outcome {
	e.metrics.Tick(string(outcome))
	e.metrics.SetPoints(e.state.TotalPoints())
	e.publish(now, outcome, snap)
	return outcome
}

// Run ticks until ctx is cancelled. A panic escaping a tick is returned as
// an error so the caller can run its normal shutdown.
func (e *Engine) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("detection loop: %v", r)
		}
	}()

	ticker := e.clock.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}
		e.Tick(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
		}
	}
}

// Close resolves an active pursuit, crediting its trigger, and returns the
// final point total.
func (e *Engine) Close() int {
	now := e.clock.Now()
	if e.pursuit.Active() {
		e.state.AddPoints(e.pursuit.End(now))
		e.metrics.SetPoints(e.state.TotalPoints())
	}
	e.publish(now, OutcomeStopped, nil)
	return e.state.TotalPoints()
}

type alwaysFocused struct{}

func (alwaysFocused) Focused() bool { return true }

type noKeys struct{}

func (noKeys) Pressed(rune) bool { return false }

type neverRemoved struct{}

func (neverRemoved) Consume() bool { return false }

type discard struct{}

func (discard) Submit(workers.Announcement) bool { return true }

type logConsole struct{}

func (logConsole) Printf(format string, args ...any)  { monitoring.Logf(format, args...) }
func (logConsole) Status(_ console.Kind, text string) { monitoring.Logf("%s", text) }
func (logConsole) Idle(text string)                   { monitoring.Logf("%s", text) }
