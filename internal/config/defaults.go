package config

import (
	"fmt"
	"time"

	"github.com/banshee-data/citation.report/internal/violation"
)

// CreditPolicy decides when a pursuit's trigger violation is credited.
type CreditPolicy uint8

const (
	// CreditOnResolve credits the trigger points once, when the pursuit ends.
	CreditOnResolve CreditPolicy = iota
	// CreditOnStartAndResolve credits the trigger points at start and again
	// at resolution.
	CreditOnStartAndResolve
)

func (p CreditPolicy) String() string {
	switch p {
	case CreditOnStartAndResolve:
		return "start_and_resolve"
	default:
		return "resolve"
	}
}

// ParseCreditPolicy parses "resolve" or "start_and_resolve".
func ParseCreditPolicy(s string) (CreditPolicy, error) {
	switch s {
	case "resolve", "":
		return CreditOnResolve, nil
	case "start_and_resolve":
		return CreditOnStartAndResolve, nil
	}
	return CreditOnResolve, fmt.Errorf("unknown credit policy %q", s)
}

// SpamRule is an event-pattern threshold: Events edges inside Within.
type SpamRule struct {
	Events int
	Within time.Duration
}

// Rules is the resolved, immutable rule configuration.
type Rules struct {
	TickInterval time.Duration

	RollThreshold      float64 // radians
	UnderLoadRPM       float64
	UnderLoadSpeedKPH  float64
	BrakeTempThreshold float64 // degrees C
	JackknifeThreshold float64 // radians
	DamageThreshold    float64 // wear fraction

	NightStartHour        int
	NightEndHour          int
	RainThreshold         float64
	SteerThreshold        float64
	TurnSignalMinSpeedKPH float64
	CitySpeedLimitKPH     float64
	RecklessFlatKPH       float64
	RecklessPercent       float64 // ratio of speed to limit, e.g. 1.4
	SpeedingToleranceKPH  float64
	HarshBrakeThreshold   float64 // m/s^2
	HarshSwerveThreshold  float64
	HarshLandingThreshold float64

	MovingSpeedKPH           float64
	ForgottenBlinkerDuration time.Duration
	DangerousParkingDuration time.Duration
	BlinkerSpam              SpamRule
	WiperSpam                SpamRule
	HighBeamSpam             SpamRule
	SteerSpam                SpamRule
	SteerSwerveThreshold     float64
	HitAndRunJump            float64

	Points          map[violation.Code]int
	DefaultPoints   int
	Cooldowns       map[violation.Code]time.Duration
	DefaultCooldown time.Duration
	FaultCooldown   time.Duration

	PursuitTriggers        map[violation.Code]bool
	PursuitPenaltyInterval time.Duration
	PursuitPenaltyPoints   int
	PullOverDuration       time.Duration
	PursuitCredit          CreditPolicy
}

// DefaultRules returns the built-in rule set. config/rules.defaults.json
// mirrors these values.
func DefaultRules() Rules {
	return Rules{
		TickInterval: 500 * time.Millisecond,

		RollThreshold:      0.8,
		UnderLoadRPM:       900,
		UnderLoadSpeedKPH:  1,
		BrakeTempThreshold: 300,
		JackknifeThreshold: 1.2,
		DamageThreshold:    0.20,

		NightStartHour:        21,
		NightEndHour:          6,
		RainThreshold:         0.1,
		SteerThreshold:        0.25,
		TurnSignalMinSpeedKPH: 11,
		CitySpeedLimitKPH:     60,
		RecklessFlatKPH:       25,
		RecklessPercent:       1.4,
		SpeedingToleranceKPH:  8,
		HarshBrakeThreshold:   8,
		HarshSwerveThreshold:  6,
		HarshLandingThreshold: 9,

		MovingSpeedKPH:           1,
		ForgottenBlinkerDuration: 10 * time.Second,
		DangerousParkingDuration: 15 * time.Second,
		BlinkerSpam:              SpamRule{Events: 5, Within: 2 * time.Second},
		WiperSpam:                SpamRule{Events: 6, Within: 3 * time.Second},
		HighBeamSpam:             SpamRule{Events: 6, Within: 3 * time.Second},
		SteerSpam:                SpamRule{Events: 4, Within: 3 * time.Second},
		SteerSwerveThreshold:     0.5,
		HitAndRunJump:            0.05,

		Points:          defaultPoints(),
		DefaultPoints:   1,
		Cooldowns:       defaultCooldowns(),
		DefaultCooldown: 10 * time.Second,
		FaultCooldown:   5 * time.Second,

		PursuitTriggers: map[violation.Code]bool{
			violation.ViolationRecklessSpeeding: true,
			violation.ViolationHitAndRun:        true,
		},
		PursuitPenaltyInterval: 30 * time.Second,
		PursuitPenaltyPoints:   5,
		PullOverDuration:       5 * time.Second,
		PursuitCredit:          CreditOnResolve,
	}
}

func defaultPoints() map[violation.Code]int {
	return map[violation.Code]int{
		violation.FaultFlipped:       50,
		violation.FaultAir:           15,
		violation.FaultWater:         15,
		violation.FaultOil:           15,
		violation.FaultBrakeHot:      10,
		violation.FaultJackknife:     25,
		violation.FaultTrailerLost:   40,
		violation.FaultTrailerDamage: 20,
		violation.FaultTruckDamage:   20,
		violation.FaultAdBlue:        5,
		violation.FaultBattery:       5,
		violation.FaultLateDelivery:  10,
		violation.FaultLowFuel:       5,

		violation.ViolationLights:               5,
		violation.ViolationWipers:               3,
		violation.ViolationHighBeams:            3,
		violation.ViolationRecklessSpeeding:     30,
		violation.ViolationSpeeding:             10,
		violation.ViolationCruiseRain:           5,
		violation.ViolationNoise:                3,
		violation.ViolationCoasting:             10,
		violation.ViolationHazards:              3,
		violation.ViolationBeaconMisuse:         3,
		violation.ViolationHarshBrake:           5,
		violation.ViolationHarshSwerve:          5,
		violation.ViolationHarshLanding:         5,
		violation.ViolationOverRev:              3,
		violation.ViolationNoBlinkerLeft:        3,
		violation.ViolationNoBlinkerRight:       3,
		violation.ViolationCrawling:             5,
		violation.ViolationObstruction:          15,
		violation.ViolationParkBrake:            5,
		violation.ViolationIdling:               2,
		violation.ViolationHorn:                 2,
		violation.ViolationTrailerDetachAttempt: 15,
		violation.ViolationDeviceRemoval:        20,
		violation.ViolationBlinkerSpam:          5,
		violation.ViolationWiperSpam:            3,
		violation.ViolationHighBeamSpam:         3,
		violation.ViolationErraticSteering:      10,
		violation.ViolationHitAndRun:            50,
		violation.ViolationForgottenBlinker:     3,
		violation.ViolationDangerousPark:        10,
		violation.ViolationEvadingPolice:        5,
	}
}

func defaultCooldowns() map[violation.Code]time.Duration {
	return map[violation.Code]time.Duration{
		violation.ViolationRecklessSpeeding: 30 * time.Second,
		violation.ViolationSpeeding:         15 * time.Second,
		violation.ViolationHarshBrake:       5 * time.Second,
		violation.ViolationHarshSwerve:      5 * time.Second,
		violation.ViolationHarshLanding:     5 * time.Second,
		violation.ViolationNoBlinkerLeft:    8 * time.Second,
		violation.ViolationNoBlinkerRight:   8 * time.Second,
		violation.ViolationCrawling:         30 * time.Second,
		violation.ViolationObstruction:      30 * time.Second,
		violation.ViolationIdling:           30 * time.Second,
		violation.ViolationHorn:             5 * time.Second,
	}
}

// PointsFor returns the configured points for code, or DefaultPoints.
func (r Rules) PointsFor(code violation.Code) int {
	if p, ok := r.Points[code]; ok {
		return p
	}
	return r.DefaultPoints
}

// CooldownFor returns the configured cooldown for code, or DefaultCooldown.
func (r Rules) CooldownFor(code violation.Code) time.Duration {
	if d, ok := r.Cooldowns[code]; ok {
		return d
	}
	return r.DefaultCooldown
}

// IsPursuitTrigger reports whether scoring code escalates into a pursuit.
func (r Rules) IsPursuitTrigger(code violation.Code) bool {
	return r.PursuitTriggers[code]
}

// DwellCapacity converts a sustained duration into a tick count, minimum 1.
func (r Rules) DwellCapacity(d time.Duration) int {
	if r.TickInterval <= 0 {
		return 1
	}
	n := int(d / r.TickInterval)
	if n < 1 {
		return 1
	}
	return n
}
