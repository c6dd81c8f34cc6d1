package rules

import (
	"fmt"
	"math"

	"github.com/banshee-data/citation.report/internal/telemetry"
	"github.com/banshee-data/citation.report/internal/violation"
)

// CriticalFaults checks rollover and the engine warning lamps. None of them
// fire until the engine is under load, so idle start-up readings are ignored.
func (r *Set) CriticalFaults(s *telemetry.Snapshot) []violation.Violation {
	if s == nil {
		return nil
	}
	t := s.Truck
	underLoad := t.EngineRPM > r.cfg.UnderLoadRPM || s.Speed() > r.cfg.UnderLoadSpeedKPH
	if !underLoad {
		return nil
	}

	var out []violation.Violation
	if math.Abs(t.Roll) > r.cfg.RollThreshold {
		out = append(out, violation.New(violation.FaultFlipped,
			"CRITICAL ACCIDENT: Truck is flipped! Shut down engine!",
			"{truck.placement.roll: %.1f, threshold: %g}", math.Abs(t.Roll), r.cfg.RollThreshold))
	}

	lamp := func(on bool, code violation.Code, field, msg string) {
		if !on {
			return
		}
		out = append(out, violation.New(code, msg,
			"{truck.%s: true, engine.rpm: %.0f, truck.speed: %.1f}", field, t.EngineRPM, s.Speed()))
	}
	lamp(t.AirPressureWarning, violation.FaultAir, "airPressureWarningOn",
		"CRITICAL FAULT: LOW AIR PRESSURE! STOP IMMEDIATELY!")
	lamp(t.WaterTempWarning, violation.FaultWater, "waterTemperatureWarningOn",
		"CRITICAL FAULT: ENGINE OVERHEATING! STOP IMMEDIATELY!")
	lamp(t.OilPressureWarning, violation.FaultOil, "oilPressureWarningOn",
		"CRITICAL FAULT: LOW OIL PRESSURE! STOP ENGINE NOW!")
	return out
}

// DrivingViolations checks every threshold rule that needs only the current
// snapshot. Nothing is reported while the game is disconnected.
func (r *Set) DrivingViolations(s *telemetry.Snapshot) []violation.Violation {
	if s == nil || !s.Game.Connected {
		return nil
	}
	cfg := r.cfg
	t := s.Truck
	speed := s.Speed()
	limit := s.Navigation.SpeedLimit
	night := r.isNight(s.Game)
	raining := s.Game.RainIntensity > cfg.RainThreshold

	var out []violation.Violation
	add := func(code violation.Code, msg, ctxFormat string, args ...any) {
		out = append(out, violation.New(code, msg, ctxFormat, args...))
	}

	if t.BrakeTemperature > cfg.BrakeTempThreshold {
		add(violation.FaultBrakeHot,
			fmt.Sprintf("BRAKE OVERHEAT: Brakes at %dC! Use retarder.", int(t.BrakeTemperature)),
			"{truck.brakeTemperature: %d, threshold: %g}", int(t.BrakeTemperature), cfg.BrakeTempThreshold)
	}
	if s.Trailer.Attached {
		if angle := s.HitchAngle(); angle > cfg.JackknifeThreshold {
			add(violation.FaultJackknife, "JACKKNIFE WARNING: Trailer angle is critical!",
				"{trailer.angle_difference: %.2f, threshold: %.2f}", angle, cfg.JackknifeThreshold)
		}
	}
	if s.Job.Income > 0 && !s.Trailer.Attached && speed > 5 {
		add(violation.FaultTrailerLost, "TRAILER DETACHED: The trailer has been lost mid-job!",
			"{job.income: %.0f, trailer.attached: false, truck.speed: %.1f}", s.Job.Income, speed)
	}
	if s.Trailer.Wear > cfg.DamageThreshold {
		pct := int(s.Trailer.Wear * 100)
		add(violation.FaultTrailerDamage, fmt.Sprintf("TRAILER UNROADWORTHY: Trailer damage at %d%%!", pct),
			"{trailer.wear: %d%%, threshold: %d%%}", pct, int(cfg.DamageThreshold*100))
	}
	if s.Job.Income > 0 {
		gameTime, okGame := telemetry.ParseTime(s.Game.Time)
		deadline, okDeadline := telemetry.ParseTime(s.Job.DeadlineTime)
		if okGame && okDeadline && gameTime.After(deadline) {
			add(violation.FaultLateDelivery, "PROFESSIONAL FAULT: Late for delivery!",
				"{game.time: %s, job.deadlineTime: %s}", gameTime.Format("15:04"), deadline.Format("15:04"))
		}
	}
	if damage := s.TruckDamage(); damage > cfg.DamageThreshold {
		pct := int(damage * 100)
		add(violation.FaultTruckDamage,
			fmt.Sprintf("VEHICLE UNROADWORTHY: Truck damage at %d%%. Vehicle is illegal!", pct),
			"{truck.wear: %d%%, threshold: %d%%}", pct, int(cfg.DamageThreshold*100))
	}

	if night && t.EngineOn && speed > 5 && !(t.LowBeam || t.HighBeam) {
		add(violation.ViolationLights, "LIGHTING VIOLATION: Headlights required after dark!",
			"{game.is_night: true, truck.speed: %.1f, truck.lightsBeamLowOn: false, truck.lightsBeamHighOn: false}", speed)
	}
	if raining && speed > 5 && !t.Wipers {
		add(violation.ViolationWipers, "POOR VISIBILITY: Wipers required in rain!",
			"{game.is_raining: true, truck.speed: %.1f, truck.wipersOn: false}", speed)
	}
	if night && r.inCity(limit) && t.HighBeam {
		add(violation.ViolationHighBeams, "LIGHTING VIOLATION: Improper use of high beams in city!",
			"{game.is_night: true, navigation.speedLimit: %.0f, truck.lightsBeamHighOn: true}", limit)
	}

	if v, ok := r.speedViolation(speed, limit); ok {
		out = append(out, v)
	}

	if raining && t.CruiseControl && speed > 30 {
		add(violation.ViolationCruiseRain, "POOR JUDGEMENT: Cruise control is unsafe in the rain!",
			"{game.is_raining: true, truck.cruiseControlOn: true}")
	}
	if r.inCity(limit) && speed > 20 && (t.MotorBrake || t.RetarderBrake > 0) {
		add(violation.ViolationNoise, "NOISE VIOLATION: Engine brake in city!",
			"{navigation.speedLimit: %.0f, truck.motorBrakeOn: %t, truck.retarderBrake: %g}", limit, t.MotorBrake, t.RetarderBrake)
	}
	if !t.EngineOn && speed > 10 {
		add(violation.ViolationCoasting, "DANGEROUS DRIVING: Coasting with engine off!",
			"{truck.engineOn: false, truck.speed: %.1f}", speed)
	}
	if t.Hazards && speed > 30 {
		add(violation.ViolationHazards, "LIGHTING VIOLATION: Improper use of hazard lights!",
			"{truck.lightsHazardOn: true, truck.speed: %.1f}", speed)
	}
	if t.Beacon && speed > 80 {
		add(violation.ViolationBeaconMisuse, "SAFETY VIOLATION: Improper use of warning beacon!",
			"{truck.lightsBeaconOn: true, truck.speed: %.1f}", speed)
	}

	a := t.Acceleration
	if math.Abs(a.Z) > cfg.HarshBrakeThreshold {
		add(violation.ViolationHarshBrake, "HARSH DRIVING: Harsh braking detected!",
			"{truck.acceleration.z: %.2f, threshold: %g}", a.Z, cfg.HarshBrakeThreshold)
	}
	if math.Abs(a.X) > cfg.HarshSwerveThreshold {
		add(violation.ViolationHarshSwerve, "HARSH DRIVING: Harsh swerving detected!",
			"{truck.acceleration.x: %.2f, threshold: %g}", a.X, cfg.HarshSwerveThreshold)
	}
	if math.Abs(a.Y) > cfg.HarshLandingThreshold {
		add(violation.ViolationHarshLanding, "HARSH DRIVING: Hard landing on curb/bump!",
			"{truck.acceleration.y: %.2f, threshold: %g}", a.Y, cfg.HarshLandingThreshold)
	}

	if redline := t.EngineRPMMax * 0.95; t.EngineOn && speed > 5 && t.EngineRPM > redline {
		add(violation.ViolationOverRev, "MECHANICAL ABUSE: Engine over-revving!",
			"{truck.engineRpm: %d, max_rpm_threshold: %d}", int(t.EngineRPM), int(redline))
	}

	if speed > cfg.TurnSignalMinSpeedKPH {
		switch {
		case t.Steer < -cfg.SteerThreshold && !t.BlinkerLeft:
			add(violation.ViolationNoBlinkerLeft, "TRAFFIC VIOLATION: Failure to indicate left turn!",
				"{truck.gameSteer: %.2f, truck.blinkerLeftOn: false, threshold: %g}", t.Steer, -cfg.SteerThreshold)
		case t.Steer > cfg.SteerThreshold && !t.BlinkerRight:
			add(violation.ViolationNoBlinkerRight, "TRAFFIC VIOLATION: Failure to indicate right turn!",
				"{truck.gameSteer: %.2f, truck.blinkerRightOn: false, threshold: %g}", t.Steer, cfg.SteerThreshold)
		}
	}

	if limit > 30 && speed < 10 && !t.ParkBrake && t.Brake < 0.1 {
		add(violation.ViolationCrawling,
			fmt.Sprintf("IMPEDING TRAFFIC: Crawling at %d in a %.0f zone!", int(speed), limit),
			"{truck.speed: %.1f, navigation.speedLimit: %.0f}", speed, limit)
	}
	if limit >= 80 && speed < 5 && t.Brake < 0.1 && !t.ParkBrake {
		add(violation.ViolationObstruction, "DANGEROUS OBSTRUCTION: Stopped on a high-speed road!",
			"{truck.speed: %.1f, navigation.speedLimit: %.0f}", speed, limit)
	}
	if t.ParkBrake && speed > 5 {
		add(violation.ViolationParkBrake, "MECHANICAL ABUSE: Driving with park brake on!",
			"{truck.parkBrakeOn: true, truck.speed: %.1f}", speed)
	}
	if t.EngineOn && speed < 1 && t.EngineRPM > 1800 {
		add(violation.ViolationIdling, "EXCESSIVE IDLING: Engine revving while stationary!",
			"{truck.speed: %.1f, truck.engineRpm: %d}", speed, int(t.EngineRPM))
	}

	if t.AdBlueWarning {
		add(violation.FaultAdBlue, "EMISSIONS FAULT: AdBlue level critical.", "{truck.adblueWarningOn: true}")
	}
	if t.BatteryWarning {
		add(violation.FaultBattery, "MECHANICAL FAULT: Low battery.", "{truck.batteryVoltageWarningOn: true}")
	}
	if t.FuelWarning {
		add(violation.FaultLowFuel, "LOW FUEL: Fuel level is critical.", "{truck.fuelWarningOn: true}")
	}
	return out
}

// speedViolation applies the tiered speed policy: reckless when the excess
// beats the flat threshold or the speed/limit ratio beats the percentage,
// otherwise speeding when the excess beats the tolerance. At most one is
// returned.
func (r *Set) speedViolation(speed, limit float64) (violation.Violation, bool) {
	if limit <= 0 {
		return violation.Violation{}, false
	}
	cfg := r.cfg
	over := speed - limit
	switch {
	case over > cfg.RecklessFlatKPH || speed/limit > cfg.RecklessPercent:
		return violation.New(violation.ViolationRecklessSpeeding,
			fmt.Sprintf("RECKLESS DRIVING: %d in a %.0f zone!", int(speed), limit),
			"{truck.speed: %.1f, navigation.speedLimit: %.0f, reckless_threshold_kph: %g, reckless_threshold_percent: %g}",
			speed, limit, cfg.RecklessFlatKPH, cfg.RecklessPercent), true
	case over > cfg.SpeedingToleranceKPH:
		return violation.New(violation.ViolationSpeeding,
			fmt.Sprintf("SPEEDING: %d in a %.0f zone!", int(speed), limit),
			"{truck.speed: %.1f, navigation.speedLimit: %.0f, tolerance: %g}",
			speed, limit, cfg.SpeedingToleranceKPH), true
	}
	return violation.Violation{}, false
}

// isNight reports whether the in-game hour falls in the configured night
// band. An unreadable time is treated as daytime.
func (r *Set) isNight(g telemetry.Game) bool {
	hour, ok := g.Hour()
	if !ok {
		return false
	}
	start, end := r.cfg.NightStartHour, r.cfg.NightEndHour
	if start <= end {
		return hour >= start && hour < end
	}
	return hour < end || hour >= start
}
