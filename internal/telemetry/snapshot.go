// Package telemetry models one tick of truck-simulator telemetry and fetches
// it from the local telemetry server.
package telemetry

import (
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Field names a telemetry input whose absence must be distinguishable from a
// zero value. Fault clearance skips predicates whose inputs are missing.
type Field uint16

const (
	FieldTruckRoll Field = iota
	FieldTruckHeading
	FieldTrailerHeading
	FieldTrailerWear
	FieldTruckWear
	FieldJobIncome
	FieldAirWarning
	FieldWaterWarning
	FieldOilWarning
	FieldAdBlueWarning
	FieldBatteryWarning
	FieldFuelWarning
	FieldBrakeTemperature

	numFields
)

// fieldSet is a bitset over Field.
type fieldSet uint32

func (s fieldSet) has(f Field) bool { return s&(1<<f) != 0 }
func (s *fieldSet) add(f Field)     { *s |= 1 << f }

// Fields returns every presence-tracked field.
func Fields() []Field {
	out := make([]Field, 0, numFields)
	for f := Field(0); f < numFields; f++ {
		out = append(out, f)
	}
	return out
}

// Vec3 is an acceleration vector in m/s^2.
type Vec3 struct {
	X, Y, Z float64
}

// Wear holds per-subsystem damage fractions in [0, 1].
type Wear struct {
	Engine       float64
	Transmission float64
	Cabin        float64
	Chassis      float64
	Wheels       float64
}

// Max returns the worst subsystem wear.
func (w Wear) Max() float64 {
	return floats.Max([]float64{w.Engine, w.Transmission, w.Cabin, w.Chassis, w.Wheels})
}

// Truck is the towing vehicle.
type Truck struct {
	Speed   float64 // km/h, negative when reversing
	Heading float64 // radians
	Roll    float64 // radians

	Steer     float64 // [-1, 1], negative is left
	Brake     float64 // [0, 1]
	ParkBrake bool

	EngineOn     bool
	EngineRPM    float64
	EngineRPMMax float64

	CruiseControl bool
	MotorBrake    bool
	RetarderBrake float64

	Acceleration Vec3
	Wear         Wear

	AirPressureWarning bool
	WaterTempWarning   bool
	OilPressureWarning bool
	AdBlueWarning      bool
	BatteryWarning     bool
	FuelWarning        bool
	BrakeTemperature   float64 // degrees C

	LowBeam      bool
	HighBeam     bool
	BlinkerLeft  bool
	BlinkerRight bool
	Wipers       bool
	Hazards      bool
	Beacon       bool
}

// Trailer is the towed unit.
type Trailer struct {
	Attached bool
	Wear     float64
	Heading  float64
}

// Navigation carries the route advisor's view of the road.
type Navigation struct {
	SpeedLimit float64 // km/h, 0 when unknown
}

// Job is the current delivery.
type Job struct {
	Income       float64
	DeadlineTime string // ISO-8601 in-game time
}

// Game is simulator-wide state.
type Game struct {
	Connected     bool
	Time          string  // ISO-8601 in-game time
	RainIntensity float64 // [0, 1]
}

// Snapshot is one tick's immutable telemetry readout. A Snapshot built as a
// struct literal reports every Field as present; Decode records which
// fields were actually on the wire.
type Snapshot struct {
	Game       Game
	Truck      Truck
	Trailer    Trailer
	Navigation Navigation
	Job        Job

	missing fieldSet
}

// Has reports whether f was present in the source document.
func (s Snapshot) Has(f Field) bool { return !s.missing.has(f) }

// Without returns a copy of s with the given fields marked absent.
func (s Snapshot) Without(fields ...Field) Snapshot {
	for _, f := range fields {
		s.missing.add(f)
	}
	return s
}

// Speed is the unsigned truck speed in km/h.
func (s Snapshot) Speed() float64 { return math.Abs(s.Truck.Speed) }

// TruckDamage is the worst truck subsystem wear.
func (s Snapshot) TruckDamage() float64 { return s.Truck.Wear.Max() }

// HitchAngle is the absolute truck/trailer heading difference wrapped into
// [0, pi].
func (s Snapshot) HitchAngle() float64 {
	d := math.Mod(math.Abs(s.Truck.Heading-s.Trailer.Heading), 2*math.Pi)
	if d > math.Pi {
		d = 2*math.Pi - d
	}
	return d
}

// Hour returns the in-game hour of day, or false when the time is missing or
// malformed.
func (g Game) Hour() (int, bool) {
	t, ok := ParseTime(g.Time)
	if !ok {
		return 0, false
	}
	return t.Hour(), true
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseTime parses an ISO-8601 in-game timestamp.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
