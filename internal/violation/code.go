// Package violation defines the classified outcomes of rule evaluation.
package violation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCode is returned by ParseCode for names outside the catalogue.
var ErrUnknownCode = errors.New("unknown violation code")

// Family selects the gating policy the arbiter applies to a code.
type Family uint8

const (
	// FamilyViolation codes are transient and gated by a per-code cooldown.
	FamilyViolation Family = iota
	// FamilyFault codes are persistent, latched until explicitly cleared.
	FamilyFault
)

func (f Family) String() string {
	if f == FamilyFault {
		return "fault"
	}
	return "violation"
}

// Code identifies a rule outcome.
type Code uint8

const (
	CodeUnknown Code = iota

	FaultFlipped
	FaultAir
	FaultWater
	FaultOil
	FaultBrakeHot
	FaultJackknife
	FaultTrailerLost
	FaultTrailerDamage
	FaultTruckDamage
	FaultAdBlue
	FaultBattery
	FaultLateDelivery
	FaultLowFuel

	ViolationLights
	ViolationWipers
	ViolationHighBeams
	ViolationRecklessSpeeding
	ViolationSpeeding
	ViolationCruiseRain
	ViolationNoise
	ViolationCoasting
	ViolationHazards
	ViolationBeaconMisuse
	ViolationHarshBrake
	ViolationHarshSwerve
	ViolationHarshLanding
	ViolationOverRev
	ViolationNoBlinkerLeft
	ViolationNoBlinkerRight
	ViolationCrawling
	ViolationObstruction
	ViolationParkBrake
	ViolationIdling
	ViolationHorn
	ViolationTrailerDetachAttempt
	ViolationDeviceRemoval
	ViolationBlinkerSpam
	ViolationWiperSpam
	ViolationHighBeamSpam
	ViolationErraticSteering
	ViolationHitAndRun
	ViolationForgottenBlinker
	ViolationDangerousPark
	ViolationEvadingPolice

	numCodes
)

type codeInfo struct {
	name   string
	family Family
}

var catalogue = [numCodes]codeInfo{
	CodeUnknown: {"UNKNOWN", FamilyViolation},

	FaultFlipped:       {"FAULT_FLIPPED", FamilyFault},
	FaultAir:           {"FAULT_AIR", FamilyFault},
	FaultWater:         {"FAULT_WATER", FamilyFault},
	FaultOil:           {"FAULT_OIL", FamilyFault},
	FaultBrakeHot:      {"FAULT_BRAKE_HOT", FamilyFault},
	FaultJackknife:     {"FAULT_JACKKNIFE", FamilyFault},
	FaultTrailerLost:   {"FAULT_TRAILER_LOST", FamilyFault},
	FaultTrailerDamage: {"FAULT_TRAILER_DAMAGE", FamilyFault},
	FaultTruckDamage:   {"FAULT_TRUCK_DAMAGE", FamilyFault},
	FaultAdBlue:        {"FAULT_ADBLUE", FamilyFault},
	FaultBattery:       {"FAULT_BATTERY", FamilyFault},
	FaultLateDelivery:  {"FAULT_LATE_DELIVERY", FamilyFault},
	FaultLowFuel:       {"FAULT_LOW_FUEL", FamilyFault},

	ViolationLights:               {"VIOLATION_LIGHTS", FamilyViolation},
	ViolationWipers:               {"VIOLATION_WIPERS", FamilyViolation},
	ViolationHighBeams:            {"VIOLATION_HIGH_BEAMS", FamilyViolation},
	ViolationRecklessSpeeding:     {"VIOLATION_RECKLESS_SPEEDING", FamilyViolation},
	ViolationSpeeding:             {"VIOLATION_SPEEDING", FamilyViolation},
	ViolationCruiseRain:           {"VIOLATION_CRUISE_RAIN", FamilyViolation},
	ViolationNoise:                {"VIOLATION_NOISE", FamilyViolation},
	ViolationCoasting:             {"VIOLATION_COASTING", FamilyViolation},
	ViolationHazards:              {"VIOLATION_HAZARDS", FamilyViolation},
	ViolationBeaconMisuse:         {"VIOLATION_BEACON_MISUSE", FamilyViolation},
	ViolationHarshBrake:           {"VIOLATION_HARSH_BRAKE", FamilyViolation},
	ViolationHarshSwerve:          {"VIOLATION_HARSH_SWERVE", FamilyViolation},
	ViolationHarshLanding:         {"VIOLATION_HARSH_LANDING", FamilyViolation},
	ViolationOverRev:              {"VIOLATION_OVER_REV", FamilyViolation},
	ViolationNoBlinkerLeft:        {"VIOLATION_NO_BLINKER_L", FamilyViolation},
	ViolationNoBlinkerRight:       {"VIOLATION_NO_BLINKER_R", FamilyViolation},
	ViolationCrawling:             {"VIOLATION_CRAWLING", FamilyViolation},
	ViolationObstruction:          {"VIOLATION_OBSTRUCTION", FamilyViolation},
	ViolationParkBrake:            {"VIOLATION_PARK_BRAKE", FamilyViolation},
	ViolationIdling:               {"VIOLATION_IDLING", FamilyViolation},
	ViolationHorn:                 {"VIOLATION_HORN", FamilyViolation},
	ViolationTrailerDetachAttempt: {"VIOLATION_TRAILER_DETACH_ATTEMPT", FamilyViolation},
	ViolationDeviceRemoval:        {"VIOLATION_DEVICE_REMOVAL", FamilyViolation},
	ViolationBlinkerSpam:          {"VIOLATION_BLINKER_SPAM", FamilyViolation},
	ViolationWiperSpam:            {"VIOLATION_WIPER_SPAM", FamilyViolation},
	ViolationHighBeamSpam:         {"VIOLATION_HIGH_BEAM_SPAM", FamilyViolation},
	ViolationErraticSteering:      {"VIOLATION_ERRATIC_STEERING", FamilyViolation},
	ViolationHitAndRun:            {"VIOLATION_HIT_AND_RUN", FamilyViolation},
	ViolationForgottenBlinker:     {"VIOLATION_FORGOTTEN_BLINKER", FamilyViolation},
	ViolationDangerousPark:        {"VIOLATION_DANGEROUS_PARK", FamilyViolation},
	ViolationEvadingPolice:        {"VIOLATION_EVADING_POLICE", FamilyViolation},
}

var byName = func() map[string]Code {
	m := make(map[string]Code, numCodes)
	for c := Code(1); c < numCodes; c++ {
		m[catalogue[c].name] = c
	}
	return m
}()

// String returns the canonical name, e.g. "FAULT_AIR".
func (c Code) String() string {
	if c >= numCodes {
		return fmt.Sprintf("Code(%d)", uint8(c))
	}
	return catalogue[c].name
}

// Family returns the gating family of the code.
func (c Code) Family() Family {
	if c >= numCodes {
		return FamilyViolation
	}
	return catalogue[c].family
}

// IsFault reports whether the code is latched rather than cooled down.
func (c Code) IsFault() bool { return c.Family() == FamilyFault }

// Valid reports whether c is a catalogued code.
func (c Code) Valid() bool { return c > CodeUnknown && c < numCodes }

// ParseCode maps a canonical name to its Code.
func ParseCode(name string) (Code, error) {
	c, ok := byName[strings.TrimSpace(name)]
	if !ok {
		return CodeUnknown, fmt.Errorf("%w: %q", ErrUnknownCode, name)
	}
	return c, nil
}

// MarshalText implements encoding.TextMarshaler so codes can key JSON maps.
func (c Code) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCode, uint8(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Code) UnmarshalText(b []byte) error {
	parsed, err := ParseCode(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Faults returns every fault code in catalogue order.
func Faults() []Code {
	var out []Code
	for c := Code(1); c < numCodes; c++ {
		if catalogue[c].family == FamilyFault {
			out = append(out, c)
		}
	}
	return out
}

// All returns every catalogued code in order.
func All() []Code {
	out := make([]Code, 0, numCodes-1)
	for c := Code(1); c < numCodes; c++ {
		out = append(out, c)
	}
	return out
}

// Slug turns a code into lower-case words, e.g. "reckless speeding" for
// VIOLATION_RECKLESS_SPEEDING. Used in spoken and console text.
func (c Code) Slug() string {
	name := c.String()
	name = strings.TrimPrefix(name, "VIOLATION_")
	name = strings.TrimPrefix(name, "FAULT_")
	return strings.ToLower(strings.ReplaceAll(name, "_", " "))
}
