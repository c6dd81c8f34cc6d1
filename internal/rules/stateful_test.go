package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/citation.report/internal/config"
	"github.com/banshee-data/citation.report/internal/session"
	"github.com/banshee-data/citation.report/internal/telemetry"
	"github.com/banshee-data/citation.report/internal/violation"
)

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newStateful(cfg config.Rules) (*Set, *session.State) {
	return New(cfg), session.New(cfg)
}

// blinkerBurst toggles the left blinker every step so that a rising edge
// lands on every other tick, and returns all violations produced.
func blinkerBurst(r *Set, st *session.State, ticks int, step time.Duration) []violation.Violation {
	var all []violation.Violation
	for i := 0; i < ticks; i++ {
		s := &telemetry.Snapshot{Truck: telemetry.Truck{BlinkerLeft: i%2 == 0}}
		all = append(all, r.EventViolations(s, st, t0.Add(time.Duration(i)*step))...)
	}
	return all
}

func TestBlinkerSpam_BurstInsideThreshold(t *testing.T) {
	cfg := config.DefaultRules()
	cfg.BlinkerSpam = config.SpamRule{Events: 5, Within: 2 * time.Second}
	r, st := newStateful(cfg)

	// Rising edges at 0, 0.3, 0.6, 0.9 and 1.2s.
	got := blinkerBurst(r, st, 9, 150*time.Millisecond)

	require.Len(t, got, 1)
	assert.Equal(t, violation.ViolationBlinkerSpam, got[0].Code)
	assert.Equal(t, "{event_count: 5, time_span: 1.20s, threshold: 2s}", got[0].Context)
	assert.Equal(t, 0, st.BlinkerEvents.Len())
}

func TestBlinkerSpam_SpreadOutClearsWithoutFiring(t *testing.T) {
	cfg := config.DefaultRules()
	cfg.BlinkerSpam = config.SpamRule{Events: 5, Within: 2 * time.Second}
	r, st := newStateful(cfg)

	// Rising edges at 0, 0.75, 1.5, 2.25 and 3.0s.
	got := blinkerBurst(r, st, 9, 375*time.Millisecond)

	assert.Empty(t, got)
	assert.Equal(t, 0, st.BlinkerEvents.Len(), "a full window is cleared even when it does not fire")
}

func TestBlinkerSpam_HeldBlinkerIsOneEdge(t *testing.T) {
	r, st := newStateful(config.DefaultRules())
	for i := 0; i < 20; i++ {
		s := &telemetry.Snapshot{Truck: telemetry.Truck{BlinkerRight: true}}
		assert.Empty(t, r.EventViolations(s, st, t0.Add(time.Duration(i)*100*time.Millisecond)))
	}
	assert.Equal(t, 1, st.BlinkerEvents.Len())
}

func TestWiperAndHighBeamSpam_CountBothEdges(t *testing.T) {
	cfg := config.DefaultRules()
	cfg.WiperSpam = config.SpamRule{Events: 4, Within: 3 * time.Second}
	cfg.HighBeamSpam = config.SpamRule{Events: 4, Within: 3 * time.Second}
	r, st := newStateful(cfg)

	var got []violation.Violation
	for i := 1; i <= 4; i++ {
		on := i%2 == 1
		s := &telemetry.Snapshot{Truck: telemetry.Truck{Wipers: on, HighBeam: on}}
		got = append(got, r.EventViolations(s, st, t0.Add(time.Duration(i)*200*time.Millisecond))...)
	}
	assert.Equal(t, []violation.Code{violation.ViolationWiperSpam, violation.ViolationHighBeamSpam}, codes(got))
}

func TestErraticSteering_NeedsFullReversal(t *testing.T) {
	cfg := config.DefaultRules()
	cfg.SteerSpam = config.SpamRule{Events: 3, Within: 3 * time.Second}
	cfg.SteerSwerveThreshold = 0.5
	r, st := newStateful(cfg)

	steer := []float64{0.6, -0.6, 0.6, 0.3, -0.6, 0.6}
	var got []violation.Violation
	for i, v := range steer {
		s := &telemetry.Snapshot{Truck: telemetry.Truck{Steer: v}}
		got = append(got, r.EventViolations(s, st, t0.Add(time.Duration(i)*250*time.Millisecond))...)
	}
	// Reversals at ticks 1, 2 and 5; 0.3 -> -0.6 does not start beyond the
	// threshold.
	assert.Equal(t, []violation.Code{violation.ViolationErraticSteering}, codes(got))
}

func TestHitAndRun(t *testing.T) {
	cfg := config.DefaultRules()
	cfg.HitAndRunJump = 0.05
	r, st := newStateful(cfg)
	st.RecordSpeed(60)

	assert.Equal(t, 0.0, st.LastKnownDamage)
	first := &telemetry.Snapshot{Truck: telemetry.Truck{Speed: 60, Wear: telemetry.Wear{Chassis: 0.10}}}
	assert.Empty(t, r.EventViolations(first, st, t0), "first observation only seeds")
	assert.InDelta(t, 0.10, st.LastKnownDamage, 1e-9)

	crash := &telemetry.Snapshot{Truck: telemetry.Truck{Speed: 60, Wear: telemetry.Wear{Chassis: 0.25}}}
	got := r.EventViolations(crash, st, t0.Add(500*time.Millisecond))
	require.Len(t, got, 1)
	assert.Equal(t, violation.ViolationHitAndRun, got[0].Code)
	assert.Contains(t, got[0].Message, "15%")
	assert.InDelta(t, 0.25, st.LastKnownDamage, 1e-9)

	assert.Empty(t, r.EventViolations(crash, st, t0.Add(time.Second)), "no further jump")
}

func TestHitAndRun_NotDrivingStillTracks(t *testing.T) {
	r, st := newStateful(config.DefaultRules())
	st.RecordSpeed(0)

	r.EventViolations(&telemetry.Snapshot{Truck: telemetry.Truck{Wear: telemetry.Wear{Cabin: 0.1}}}, st, t0)
	got := r.EventViolations(&telemetry.Snapshot{Truck: telemetry.Truck{Wear: telemetry.Wear{Cabin: 0.5}}}, st, t0)
	assert.Empty(t, got)
	assert.InDelta(t, 0.5, st.LastKnownDamage, 1e-9)
}

func forgottenBlinkerTick(r *Set, st *session.State, qualifies bool) []violation.Violation {
	st.RecordSpeed(40)
	s := &telemetry.Snapshot{Truck: telemetry.Truck{Speed: 40, BlinkerLeft: qualifies}}
	return r.DwellViolations(s, st)
}

func TestForgottenBlinker_DwellWindow(t *testing.T) {
	cfg := config.DefaultRules()
	cfg.TickInterval = 500 * time.Millisecond
	cfg.ForgottenBlinkerDuration = 5 * time.Second
	r, st := newStateful(cfg)
	require.Equal(t, 10, st.BlinkerDwell.Cap())

	var got []violation.Violation
	for i := 0; i < 10; i++ {
		got = append(got, forgottenBlinkerTick(r, st, true)...)
	}
	require.Len(t, got, 1, "ten qualifying ticks fire once")
	assert.Equal(t, violation.ViolationForgottenBlinker, got[0].Code)
	assert.Equal(t, 0, st.BlinkerDwell.Len())

	for i := 0; i < 9; i++ {
		assert.Empty(t, forgottenBlinkerTick(r, st, true))
	}
	assert.Empty(t, forgottenBlinkerTick(r, st, false), "a gap resets the count")
	assert.Equal(t, 0, st.BlinkerDwell.Len())
	for i := 0; i < 9; i++ {
		assert.Empty(t, forgottenBlinkerTick(r, st, true))
	}
	assert.Len(t, forgottenBlinkerTick(r, st, true), 1)
}

func TestForgottenBlinker_SteeringIsNotForgotten(t *testing.T) {
	cfg := config.DefaultRules()
	r, st := newStateful(cfg)
	for i := 0; i < 50; i++ {
		st.RecordSpeed(40)
		s := &telemetry.Snapshot{Truck: telemetry.Truck{Speed: 40, BlinkerRight: true, Steer: 0.2}}
		assert.Empty(t, r.DwellViolations(s, st))
	}
}

func TestDangerousParking(t *testing.T) {
	cfg := config.DefaultRules()
	cfg.TickInterval = time.Second
	cfg.DangerousParkingDuration = 3 * time.Second
	r, st := newStateful(cfg)

	parked := &telemetry.Snapshot{
		Truck:      telemetry.Truck{ParkBrake: true},
		Navigation: telemetry.Navigation{SpeedLimit: 50},
	}
	var got []violation.Violation
	for i := 0; i < 3; i++ {
		st.RecordSpeed(0)
		got = append(got, r.DwellViolations(parked, st)...)
	}
	assert.Equal(t, []violation.Code{violation.ViolationDangerousPark}, codes(got))

	offRoad := *parked
	offRoad.Navigation.SpeedLimit = 0
	for i := 0; i < 10; i++ {
		st.RecordSpeed(0)
		assert.Empty(t, r.DwellViolations(&offRoad, st))
	}
}

func TestDangerousParking_FiresAfterDriving(t *testing.T) {
	cfg := config.DefaultRules()
	r, st := newStateful(cfg)

	for i := 0; i < 20; i++ {
		st.RecordSpeed(40)
	}
	parked := &telemetry.Snapshot{
		Truck:      telemetry.Truck{ParkBrake: true},
		Navigation: telemetry.Navigation{SpeedLimit: 50},
	}
	want := cfg.DwellCapacity(cfg.DangerousParkingDuration)
	for tick := 1; tick < want; tick++ {
		st.RecordSpeed(0)
		require.Empty(t, r.DwellViolations(parked, st), "tick %d", tick)
	}
	st.RecordSpeed(0)
	got := r.DwellViolations(parked, st)
	assert.Equal(t, []violation.Code{violation.ViolationDangerousPark}, codes(got))
}

func TestManualInputViolations(t *testing.T) {
	r, st := newStateful(config.DefaultRules())
	st.RecordSpeed(30)
	city := &telemetry.Snapshot{
		Trailer:    telemetry.Trailer{Attached: true},
		Navigation: telemetry.Navigation{SpeedLimit: 50},
	}

	assert.Equal(t,
		[]violation.Code{violation.ViolationHorn, violation.ViolationTrailerDetachAttempt},
		codes(r.ManualInputViolations(city, st, Input{Horn: true, TrailerDetach: true})))

	highway := *city
	highway.Navigation.SpeedLimit = 100
	highway.Trailer.Attached = false
	assert.Empty(t, r.ManualInputViolations(&highway, st, Input{Horn: true, TrailerDetach: true}))

	parked, pst := newStateful(config.DefaultRules())
	pst.RecordSpeed(0)
	assert.Empty(t, parked.ManualInputViolations(city, pst, Input{Horn: true, TrailerDetach: true}))
}

func TestManualInputViolations_DeviceRemoval(t *testing.T) {
	r, st := newStateful(config.DefaultRules())
	got := r.ManualInputViolations(nil, st, Input{DeviceRemoved: true})
	assert.Equal(t, []violation.Code{violation.ViolationDeviceRemoval}, codes(got))
	assert.Empty(t, r.ManualInputViolations(nil, st, Input{}))
}
