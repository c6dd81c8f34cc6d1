package rules

import (
	"math"
	"strings"

	"github.com/banshee-data/citation.report/internal/session"
	"github.com/banshee-data/citation.report/internal/telemetry"
	"github.com/banshee-data/citation.report/internal/violation"
)

// ClearFaults releases latched faults whose condition has resolved and
// returns one message per released active fault, in catalogue order.
// Pending latches are released silently. Faults whose inputs are missing
// from the snapshot stay latched. Announcing the messages is up to the
// caller; no cooldown applies.
func (r *Set) ClearFaults(s *telemetry.Snapshot, st *session.State) []string {
	if s == nil {
		return nil
	}
	var msgs []string
	for _, code := range st.LatchedFaults() {
		clear, known := r.resolved(code, s)
		if !known || !clear {
			continue
		}
		was := st.Latch(code)
		st.SetLatch(code, session.LatchClear)
		if was == session.LatchActive {
			msgs = append(msgs, ClearedMessage(code))
		}
	}
	return msgs
}

// resolved evaluates the clearance predicate for code. known is false when
// the snapshot lacks an input the predicate needs.
func (r *Set) resolved(code violation.Code, s *telemetry.Snapshot) (clear, known bool) {
	cfg := r.cfg
	t := s.Truck
	need := func(fields ...telemetry.Field) bool {
		for _, f := range fields {
			if !s.Has(f) {
				return false
			}
		}
		return true
	}

	switch code {
	case violation.FaultFlipped:
		return math.Abs(t.Roll) < cfg.RollThreshold, need(telemetry.FieldTruckRoll)
	case violation.FaultJackknife:
		return s.HitchAngle() < cfg.JackknifeThreshold, need(telemetry.FieldTruckHeading, telemetry.FieldTrailerHeading)
	case violation.FaultLateDelivery:
		return s.Job.Income == 0, need(telemetry.FieldJobIncome)
	case violation.FaultTrailerLost:
		return s.Trailer.Attached || s.Job.Income == 0, need(telemetry.FieldJobIncome)
	case violation.FaultTruckDamage:
		return s.TruckDamage() < cfg.DamageThreshold, need(telemetry.FieldTruckWear)
	case violation.FaultTrailerDamage:
		return s.Trailer.Wear < cfg.DamageThreshold, need(telemetry.FieldTrailerWear)
	case violation.FaultAir:
		return !t.AirPressureWarning, need(telemetry.FieldAirWarning)
	case violation.FaultWater:
		return !t.WaterTempWarning, need(telemetry.FieldWaterWarning)
	case violation.FaultOil:
		return !t.OilPressureWarning, need(telemetry.FieldOilWarning)
	case violation.FaultBrakeHot:
		return t.BrakeTemperature < cfg.BrakeTempThreshold, need(telemetry.FieldBrakeTemperature)
	case violation.FaultAdBlue:
		return !t.AdBlueWarning, need(telemetry.FieldAdBlueWarning)
	case violation.FaultBattery:
		return !t.BatteryWarning, need(telemetry.FieldBatteryWarning)
	case violation.FaultLowFuel:
		return !t.FuelWarning, need(telemetry.FieldFuelWarning)
	}
	return false, false
}

// ClearedMessage is the spoken text for a released fault.
func ClearedMessage(code violation.Code) string {
	switch code {
	case violation.FaultFlipped:
		return "Truck is upright. Accident cleared."
	case violation.FaultLateDelivery:
		return "Job finished. Late delivery cleared."
	}
	return strings.ToUpper(code.Slug()) + " fault cleared."
}
