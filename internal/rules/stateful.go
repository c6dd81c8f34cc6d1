package rules

import (
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/citation.report/internal/config"
	"github.com/banshee-data/citation.report/internal/session"
	"github.com/banshee-data/citation.report/internal/telemetry"
	"github.com/banshee-data/citation.report/internal/violation"
	"github.com/banshee-data/citation.report/internal/window"
)

// steerCentred is the |gameSteer| below which the wheel counts as straight.
const steerCentred = 0.05

// Input is the manual-input state sampled for one tick. DeviceRemoved must
// already have been consumed from the shared removal flag.
type Input struct {
	Horn          bool
	TrailerDetach bool
	DeviceRemoved bool
}

// EventViolations runs the edge-triggered burst detectors and hit-and-run.
func (r *Set) EventViolations(s *telemetry.Snapshot, st *session.State, now time.Time) []violation.Violation {
	if s == nil {
		return nil
	}
	cfg := r.cfg
	t := s.Truck
	prev := st.Prev

	blinkerEdge := (t.BlinkerLeft && !prev.BlinkerLeft) || (t.BlinkerRight && !prev.BlinkerRight)
	wiperEdge := t.Wipers != prev.Wipers
	beamEdge := t.HighBeam != prev.HighBeam
	sw := cfg.SteerSwerveThreshold
	steerEdge := (t.Steer > sw && prev.Steer < -sw) || (t.Steer < -sw && prev.Steer > sw)

	damage := s.TruckDamage()
	last := st.LastKnownDamage
	if !st.DamageSeeded {
		last = damage
	}
	increase := damage - last
	hitAndRun := increase > cfg.HitAndRunJump && st.IsDriving()

	// Everything below mutates state.
	var out []violation.Violation
	if span, fired := burst(st.BlinkerEvents, blinkerEdge, now, cfg.BlinkerSpam); fired {
		out = append(out, spamViolation(violation.ViolationBlinkerSpam,
			"ERRATIC SIGNALLING: Improper use of indicators!", cfg.BlinkerSpam, span))
		st.BlinkerDwell.Clear()
	}
	if span, fired := burst(st.WiperEvents, wiperEdge, now, cfg.WiperSpam); fired {
		out = append(out, spamViolation(violation.ViolationWiperSpam,
			"ERRATIC BEHAVIOUR: Improper use of wipers!", cfg.WiperSpam, span))
	}
	if span, fired := burst(st.HighBeamEvents, beamEdge, now, cfg.HighBeamSpam); fired {
		out = append(out, spamViolation(violation.ViolationHighBeamSpam,
			"ERRATIC SIGNALLING: Improper use of high beams!", cfg.HighBeamSpam, span))
	}
	if span, fired := burst(st.SteerEvents, steerEdge, now, cfg.SteerSpam); fired {
		out = append(out, spamViolation(violation.ViolationErraticSteering,
			"ERRATIC DRIVING: Rapidly swerving wheel!", cfg.SteerSpam, span))
	}
	st.Prev = session.Edges{
		BlinkerLeft:  t.BlinkerLeft,
		BlinkerRight: t.BlinkerRight,
		Wipers:       t.Wipers,
		HighBeam:     t.HighBeam,
		Steer:        t.Steer,
	}

	if hitAndRun {
		pct := int(math.Round(increase * 100))
		out = append(out, violation.New(violation.ViolationHitAndRun,
			fmt.Sprintf("HIT AND RUN: New %d%% damage detected! (We saw that.)", pct),
			"{damage.increase: %.3f, damage.current: %.3f, damage.previous: %.3f}", increase, damage, last))
	}
	st.LastKnownDamage = damage
	st.DamageSeeded = true
	return out
}

// burst records an edge and evaluates the window once it is full. A full
// window is always cleared; fired reports whether its span was inside the
// rule's time limit.
func burst(w *window.Window[time.Time], edge bool, now time.Time, rule config.SpamRule) (span time.Duration, fired bool) {
	if edge {
		w.Push(now)
	}
	if !w.Full() {
		return 0, false
	}
	oldest, _ := w.Oldest()
	newest, _ := w.Newest()
	w.Clear()
	span = newest.Sub(oldest)
	return span, span < rule.Within
}

func spamViolation(code violation.Code, msg string, rule config.SpamRule, span time.Duration) violation.Violation {
	return violation.New(code, msg, "{event_count: %d, time_span: %.2fs, threshold: %gs}",
		rule.Events, span.Seconds(), rule.Within.Seconds())
}

// DwellViolations runs the sustained-condition detectors. A tick that breaks
// the condition empties the window; a full window fires once and empties.
func (r *Set) DwellViolations(s *telemetry.Snapshot, st *session.State) []violation.Violation {
	if s == nil {
		return nil
	}
	cfg := r.cfg
	t := s.Truck

	blinkerOn := t.BlinkerLeft || t.BlinkerRight
	forgotten := st.IsDriving() && blinkerOn && math.Abs(t.Steer) < steerCentred
	parked := t.ParkBrake && s.Navigation.SpeedLimit > 0 && st.Stationary(s.Speed())

	var out []violation.Violation
	if dwell(st.BlinkerDwell, forgotten) {
		out = append(out, violation.New(violation.ViolationForgottenBlinker,
			"TRAFFIC VIOLATION: Blinker left on!",
			"{duration: %gs, truck.gameSteer: %.2f, truck.blinkerOn: true}",
			cfg.ForgottenBlinkerDuration.Seconds(), t.Steer))
	}
	if dwell(st.ParkingDwell, parked) {
		out = append(out, violation.New(violation.ViolationDangerousPark,
			"DANGEROUS PARKING: Vehicle stopped in active roadway!",
			"{duration: %gs, navigation.speedLimit: %.0f, truck.parkBrakeOn: true}",
			cfg.DangerousParkingDuration.Seconds(), s.Navigation.SpeedLimit))
	}
	return out
}

func dwell(w *window.Window[bool], holds bool) bool {
	if !holds {
		w.Clear()
		return false
	}
	w.Push(true)
	if !w.Full() {
		return false
	}
	w.Clear()
	return true
}

// ManualInputViolations checks live key state and the device-removal edge.
func (r *Set) ManualInputViolations(s *telemetry.Snapshot, st *session.State, in Input) []violation.Violation {
	var out []violation.Violation
	driving := st.IsDriving()
	if s != nil {
		limit := s.Navigation.SpeedLimit
		if driving && in.Horn && r.inCity(limit) {
			out = append(out, violation.New(violation.ViolationHorn,
				"IMPROPER HORN USE: Horn used in a city area!",
				"{input.key: 'h', navigation.speedLimit: %.0f}", limit))
		}
		if driving && in.TrailerDetach && s.Trailer.Attached {
			out = append(out, violation.New(violation.ViolationTrailerDetachAttempt,
				"SAFETY VIOLATION: Attempted trailer detach while moving!",
				"{input.key: 't', trailer.attached: true, is_driving: true}"))
		}
	}
	if in.DeviceRemoved {
		out = append(out, violation.New(violation.ViolationDeviceRemoval,
			"SAFETY VIOLATION: Control device unplugged while driving!",
			"{device.unplugged: true}"))
	}
	return out
}
