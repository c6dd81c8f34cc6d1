package pursuit

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/citation.report/internal/config"
	"github.com/banshee-data/citation.report/internal/session"
	"github.com/banshee-data/citation.report/internal/violation"
	"github.com/banshee-data/citation.report/internal/workers"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeAnnouncer struct{ got []workers.Announcement }

func (f *fakeAnnouncer) Submit(a workers.Announcement) bool {
	f.got = append(f.got, a)
	return true
}

type fakeRecorder struct{ got []violation.Citation }

func (f *fakeRecorder) Record(c violation.Citation) { f.got = append(f.got, c) }

type fakeSiren struct{ on bool }

func (f *fakeSiren) Activate()   { f.on = true }
func (f *fakeSiren) Deactivate() { f.on = false }

type fakeConsole struct{ lines []string }

func (f *fakeConsole) Printf(format string, args ...any) {
	f.lines = append(f.lines, fmt.Sprintf(format, args...))
}

type fixture struct {
	cfg      config.Rules
	state    *session.State
	announce *fakeAnnouncer
	record   *fakeRecorder
	siren    *fakeSiren
	console  *fakeConsole
	m        *Machine
}

func newFixture(mutate func(*config.Rules)) *fixture {
	cfg := config.DefaultRules()
	if mutate != nil {
		mutate(&cfg)
	}
	f := &fixture{
		cfg:      cfg,
		state:    session.New(cfg),
		announce: &fakeAnnouncer{},
		record:   &fakeRecorder{},
		siren:    &fakeSiren{},
		console:  &fakeConsole{},
	}
	f.m = New(cfg, f.state, f.announce, f.record, f.siren, f.console, nil)
	return f
}

func reckless() violation.Violation {
	return violation.New(violation.ViolationRecklessSpeeding, "RECKLESS SPEEDING: 160 in a 100 zone!", "{truck.speed: 160.0}")
}

func TestStart(t *testing.T) {
	f := newFixture(nil)
	assert.Zero(t, f.m.Start(reckless(), t0))

	assert.True(t, f.m.Active())
	assert.True(t, f.siren.on)
	assert.Equal(t, session.Pursuit{Active: true, StartedAt: t0, LastPenaltyAt: t0, Trigger: reckless()}, f.state.Pursuit)
	assert.Equal(t, []string{"[DISPATCH] Unit 7, we have a report of a reckless speeding... Engaging."}, f.console.lines)
	assert.Equal(t, []workers.Announcement{workers.Say(DispatchAnnouncement)}, f.announce.got)
	assert.Empty(t, f.record.got)

	assert.Zero(t, f.m.Start(reckless(), t0.Add(time.Second)), "second start is ignored")
	assert.Equal(t, t0, f.state.Pursuit.StartedAt)
}

func TestRoundTrip_CreditedOnce(t *testing.T) {
	f := newFixture(nil)
	trigger := f.cfg.PointsFor(violation.ViolationRecklessSpeeding)

	total := f.m.Start(reckless(), t0)
	tick := f.cfg.TickInterval
	now := t0

	// Stop immediately and stay stopped for the pull-over duration.
	for f.m.Active() {
		now = now.Add(tick)
		total += f.m.Manage(now, true)
		require.True(t, now.Sub(t0) <= f.cfg.PullOverDuration+2*tick, "pursuit did not resolve")
	}

	assert.Equal(t, trigger, total)
	require.Len(t, f.record.got, 1)
	assert.Equal(t, violation.ViolationRecklessSpeeding, f.record.got[0].Code)
	assert.Equal(t, trigger, f.record.got[0].Points)
	assert.True(t, f.state.Pursuit.IsZero())
	assert.False(t, f.siren.on)
	assert.Equal(t, workers.Say(ComplyAnnouncement), f.announce.got[len(f.announce.got)-1])
}

func TestEnd_ReseedsDamageBaseline(t *testing.T) {
	f := newFixture(nil)
	f.state.LastKnownDamage = 0.05
	f.state.DamageSeeded = true

	f.m.Start(reckless(), t0)
	f.m.End(t0.Add(time.Second))

	assert.False(t, f.state.DamageSeeded)
	assert.Zero(t, f.m.End(t0.Add(2*time.Second)))
}

func TestRoundTrip_StartAndResolvePolicy(t *testing.T) {
	f := newFixture(func(c *config.Rules) { c.PursuitCredit = config.CreditOnStartAndResolve })
	trigger := f.cfg.PointsFor(violation.ViolationRecklessSpeeding)

	total := f.m.Start(reckless(), t0)
	total += f.m.End(t0.Add(time.Second))
	assert.Equal(t, 2*trigger, total)
}

func TestManage_MotionResetsPullOver(t *testing.T) {
	f := newFixture(nil)
	f.m.Start(reckless(), t0)

	f.m.Manage(t0.Add(1*time.Second), true)
	f.m.Manage(t0.Add(5*time.Second), true)
	require.True(t, f.m.Active(), "4s stopped is short of the pull-over duration")

	f.m.Manage(t0.Add(5500*time.Millisecond), false)
	assert.True(t, f.state.Pursuit.StoppedSince.IsZero())

	f.m.Manage(t0.Add(6*time.Second), true)
	f.m.Manage(t0.Add(10*time.Second), true)
	assert.True(t, f.m.Active(), "stopped timer restarted from zero")

	assert.Equal(t, f.cfg.PointsFor(violation.ViolationRecklessSpeeding), f.m.Manage(t0.Add(11*time.Second), true))
	assert.False(t, f.m.Active())
}

func TestManage_EvasionPenalty(t *testing.T) {
	f := newFixture(nil)
	f.m.Start(reckless(), t0)
	interval := f.cfg.PursuitPenaltyInterval

	assert.Zero(t, f.m.Manage(t0.Add(interval), false), "penalty needs the interval strictly exceeded")
	got := f.m.Manage(t0.Add(interval+time.Second), false)
	assert.Equal(t, f.cfg.PursuitPenaltyPoints, got)

	require.Len(t, f.record.got, 1)
	c := f.record.got[0]
	assert.Equal(t, violation.ViolationEvadingPolice, c.Code)
	assert.Equal(t, EvadingMessage, c.Message)
	assert.Equal(t, "{chase_duration: 31.0s}", c.Context)
	assert.Equal(t, workers.Alert(workers.UrgentBeep, EvadingAnnouncement), f.announce.got[len(f.announce.got)-1])

	assert.Zero(t, f.m.Manage(t0.Add(interval+2*time.Second), false), "next penalty waits a full interval")
}

func TestInactive(t *testing.T) {
	f := newFixture(nil)
	assert.Zero(t, f.m.Manage(t0, true))
	assert.Zero(t, f.m.End(t0))
	assert.Empty(t, f.record.got)
	assert.Empty(t, f.announce.got)
}
