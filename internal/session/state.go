// Package session holds the mutable per-process detection state. A State is
// owned by the detection loop and is never shared with other goroutines.
package session

import (
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/citation.report/internal/config"
	"github.com/banshee-data/citation.report/internal/violation"
	"github.com/banshee-data/citation.report/internal/window"
)

// SpeedHistory is the number of recent speed samples kept.
const SpeedHistory = 10

// GlobalFault keys the cooldown clock slot shared by every fault code, so two
// different faults cannot score inside the fault cooldown.
const GlobalFault = violation.CodeUnknown

// Latch is the hysteresis state of a fault code.
type Latch uint8

const (
	// LatchClear faults may score.
	LatchClear Latch = iota
	// LatchPending faults were reported while the global fault cooldown was
	// running and have not scored yet.
	LatchPending
	// LatchActive faults scored and stay latched until cleared.
	LatchActive
)

func (l Latch) String() string {
	switch l {
	case LatchPending:
		return "pending"
	case LatchActive:
		return "active"
	default:
		return "clear"
	}
}

// Latched reports whether the fault is held (pending or active).
func (l Latch) Latched() bool { return l != LatchClear }

// Edges holds previous-tick values for edge detection.
type Edges struct {
	BlinkerLeft  bool
	BlinkerRight bool
	Wipers       bool
	HighBeam     bool
	Steer        float64
}

// Pursuit is the pursuit sub-state. Every field is zero exactly when no
// pursuit is active.
type Pursuit struct {
	Active        bool
	StartedAt     time.Time
	LastPenaltyAt time.Time
	Trigger       violation.Violation
	StoppedSince  time.Time
}

// IsZero reports whether p holds no pursuit.
func (p Pursuit) IsZero() bool { return p == Pursuit{} }

// State is the single-owner session aggregate.
type State struct {
	totalPoints int

	Speed *window.Window[float64]

	BlinkerDwell *window.Window[bool]
	ParkingDwell *window.Window[bool]

	BlinkerEvents  *window.Window[time.Time]
	WiperEvents    *window.Window[time.Time]
	HighBeamEvents *window.Window[time.Time]
	SteerEvents    *window.Window[time.Time]

	Prev Edges

	// LastKnownDamage is the truck wear seen on the previous tick.
	LastKnownDamage float64
	DamageSeeded    bool

	Pursuit Pursuit

	cooldowns      map[violation.Code]time.Time
	latches        map[violation.Code]Latch
	movingSpeedKPH float64
}

// New sizes every window from rules.
func New(rules config.Rules) *State {
	return &State{
		Speed:          window.New[float64](SpeedHistory),
		BlinkerDwell:   window.New[bool](rules.DwellCapacity(rules.ForgottenBlinkerDuration)),
		ParkingDwell:   window.New[bool](rules.DwellCapacity(rules.DangerousParkingDuration)),
		BlinkerEvents:  window.New[time.Time](rules.BlinkerSpam.Events),
		WiperEvents:    window.New[time.Time](rules.WiperSpam.Events),
		HighBeamEvents: window.New[time.Time](rules.HighBeamSpam.Events),
		SteerEvents:    window.New[time.Time](rules.SteerSpam.Events),
		cooldowns:      make(map[violation.Code]time.Time),
		latches:        make(map[violation.Code]Latch),
		movingSpeedKPH: rules.MovingSpeedKPH,
	}
}

// TotalPoints returns the session score.
func (s *State) TotalPoints() int { return s.totalPoints }

// AddPoints credits n points. Non-positive values are ignored so the total
// never decreases.
func (s *State) AddPoints(n int) {
	if n > 0 {
		s.totalPoints += n
	}
}

// RecordSpeed appends an unsigned speed sample.
func (s *State) RecordSpeed(kph float64) {
	if kph < 0 {
		kph = -kph
	}
	s.Speed.Push(kph)
}

// MaxRecentSpeed is the highest speed in the history, or 0 when empty.
func (s *State) MaxRecentSpeed() float64 {
	v := s.Speed.Values()
	if len(v) == 0 {
		return 0
	}
	return floats.Max(v)
}

// IsDriving reports whether any recent sample exceeds the moving threshold.
func (s *State) IsDriving() bool {
	return s.Speed.Len() > 0 && s.MaxRecentSpeed() > s.movingSpeedKPH
}

// IsStopped reports whether there is history and every sample is at or below
// the moving threshold.
func (s *State) IsStopped() bool {
	return s.Speed.Len() > 0 && s.MaxRecentSpeed() <= s.movingSpeedKPH
}

// Stationary reports whether a single speed reading counts as stopped.
func (s *State) Stationary(kph float64) bool {
	if kph < 0 {
		kph = -kph
	}
	return kph <= s.movingSpeedKPH
}

// LastTriggered returns when code last scored. GlobalFault is accepted.
func (s *State) LastTriggered(code violation.Code) (time.Time, bool) {
	t, ok := s.cooldowns[code]
	return t, ok
}

// MarkTriggered records that code scored at t.
func (s *State) MarkTriggered(code violation.Code, t time.Time) {
	s.cooldowns[code] = t
}

// CooldownElapsed reports whether more than d has passed since code last
// scored. Codes that never scored are always elapsed.
func (s *State) CooldownElapsed(code violation.Code, now time.Time, d time.Duration) bool {
	last, ok := s.cooldowns[code]
	if !ok {
		return true
	}
	return now.Sub(last) > d
}

// Latch returns the latch state of a fault code.
func (s *State) Latch(code violation.Code) Latch { return s.latches[code] }

// SetLatch updates a fault latch. Clearing removes the entry.
func (s *State) SetLatch(code violation.Code, l Latch) {
	if l == LatchClear {
		delete(s.latches, code)
		return
	}
	s.latches[code] = l
}

// LatchedFaults returns held fault codes in catalogue order.
func (s *State) LatchedFaults() []violation.Code {
	var out []violation.Code
	for _, c := range violation.Faults() {
		if s.latches[c].Latched() {
			out = append(out, c)
		}
	}
	return out
}

// Latches returns a copy of every held latch, keyed by code.
func (s *State) Latches() map[violation.Code]Latch {
	out := make(map[violation.Code]Latch, len(s.latches))
	for c, l := range s.latches {
		out[c] = l
	}
	return out
}
