package telemetry

import (
	"encoding/json"
	"fmt"
)

// DefaultEngineRPMMax applies when the server omits engineRpmMax.
const DefaultEngineRPMMax = 2500

type wirePlacement struct {
	Heading *float64 `json:"heading"`
	Roll    *float64 `json:"roll"`
}

type wireTruck struct {
	Speed     float64       `json:"speed"`
	Placement wirePlacement `json:"placement"`

	GameSteer   float64 `json:"gameSteer"`
	GameBrake   float64 `json:"gameBrake"`
	ParkBrakeOn bool    `json:"parkBrakeOn"`

	EngineOn     bool     `json:"engineOn"`
	EngineRPM    float64  `json:"engineRpm"`
	EngineRPMMax *float64 `json:"engineRpmMax"`

	CruiseControlOn bool    `json:"cruiseControlOn"`
	MotorBrakeOn    bool    `json:"motorBrakeOn"`
	RetarderBrake   float64 `json:"retarderBrake"`

	Acceleration Vec3 `json:"acceleration"`

	WearEngine       *float64 `json:"wearEngine"`
	WearTransmission *float64 `json:"wearTransmission"`
	WearCabin        *float64 `json:"wearCabin"`
	WearChassis      *float64 `json:"wearChassis"`
	WearWheels       *float64 `json:"wearWheels"`

	AirPressureWarningOn      *bool    `json:"airPressureWarningOn"`
	WaterTemperatureWarningOn *bool    `json:"waterTemperatureWarningOn"`
	OilPressureWarningOn      *bool    `json:"oilPressureWarningOn"`
	AdblueWarningOn           *bool    `json:"adblueWarningOn"`
	BatteryVoltageWarningOn   *bool    `json:"batteryVoltageWarningOn"`
	FuelWarningOn             *bool    `json:"fuelWarningOn"`
	BrakeTemperature          *float64 `json:"brakeTemperature"`

	LightsBeamLowOn  bool `json:"lightsBeamLowOn"`
	LightsBeamHighOn bool `json:"lightsBeamHighOn"`
	BlinkerLeftOn    bool `json:"blinkerLeftOn"`
	BlinkerRightOn   bool `json:"blinkerRightOn"`
	WipersOn         bool `json:"wipersOn"`
	LightsHazardOn   bool `json:"lightsHazardOn"`
	LightsBeaconOn   bool `json:"lightsBeaconOn"`
}

type wireTrailer struct {
	Attached  bool          `json:"attached"`
	Wear      *float64      `json:"wear"`
	Placement wirePlacement `json:"placement"`
}

type wireSnapshot struct {
	Game struct {
		Connected     bool     `json:"connected"`
		Time          string   `json:"time"`
		RainIntensity *float64 `json:"rainIntensity"`
		Raining       *float64 `json:"raining"`
	} `json:"game"`
	Truck      wireTruck   `json:"truck"`
	Trailer    wireTrailer `json:"trailer"`
	Navigation struct {
		SpeedLimit float64 `json:"speedLimit"`
	} `json:"navigation"`
	Job struct {
		Income       *float64 `json:"income"`
		DeadlineTime string   `json:"deadlineTime"`
	} `json:"job"`
}

// Decode parses a telemetry server document. Absent values decode to zero
// and, for presence-tracked fields, are recorded as missing.
func Decode(data []byte) (*Snapshot, error) {
	var w wireSnapshot
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode telemetry: %w", err)
	}

	var missing fieldSet
	f64 := func(p *float64, f Field) float64 {
		if p == nil {
			missing.add(f)
			return 0
		}
		return *p
	}
	flag := func(p *bool, f Field) bool {
		if p == nil {
			missing.add(f)
			return false
		}
		return *p
	}
	orZero := func(p *float64) float64 {
		if p == nil {
			return 0
		}
		return *p
	}

	t := w.Truck
	s := &Snapshot{
		Game: Game{
			Connected: w.Game.Connected,
			Time:      w.Game.Time,
		},
		Truck: Truck{
			Speed:   t.Speed,
			Heading: f64(t.Placement.Heading, FieldTruckHeading),
			Roll:    f64(t.Placement.Roll, FieldTruckRoll),

			Steer:     t.GameSteer,
			Brake:     t.GameBrake,
			ParkBrake: t.ParkBrakeOn,

			EngineOn:     t.EngineOn,
			EngineRPM:    t.EngineRPM,
			EngineRPMMax: DefaultEngineRPMMax,

			CruiseControl: t.CruiseControlOn,
			MotorBrake:    t.MotorBrakeOn,
			RetarderBrake: t.RetarderBrake,

			Acceleration: t.Acceleration,
			Wear: Wear{
				Engine:       orZero(t.WearEngine),
				Transmission: orZero(t.WearTransmission),
				Cabin:        orZero(t.WearCabin),
				Chassis:      orZero(t.WearChassis),
				Wheels:       orZero(t.WearWheels),
			},

			AirPressureWarning: flag(t.AirPressureWarningOn, FieldAirWarning),
			WaterTempWarning:   flag(t.WaterTemperatureWarningOn, FieldWaterWarning),
			OilPressureWarning: flag(t.OilPressureWarningOn, FieldOilWarning),
			AdBlueWarning:      flag(t.AdblueWarningOn, FieldAdBlueWarning),
			BatteryWarning:     flag(t.BatteryVoltageWarningOn, FieldBatteryWarning),
			FuelWarning:        flag(t.FuelWarningOn, FieldFuelWarning),
			BrakeTemperature:   f64(t.BrakeTemperature, FieldBrakeTemperature),

			LowBeam:      t.LightsBeamLowOn,
			HighBeam:     t.LightsBeamHighOn,
			BlinkerLeft:  t.BlinkerLeftOn,
			BlinkerRight: t.BlinkerRightOn,
			Wipers:       t.WipersOn,
			Hazards:      t.LightsHazardOn,
			Beacon:       t.LightsBeaconOn,
		},
		Trailer: Trailer{
			Attached: w.Trailer.Attached,
			Wear:     f64(w.Trailer.Wear, FieldTrailerWear),
			Heading:  f64(w.Trailer.Placement.Heading, FieldTrailerHeading),
		},
		Navigation: Navigation{SpeedLimit: w.Navigation.SpeedLimit},
		Job: Job{
			Income:       f64(w.Job.Income, FieldJobIncome),
			DeadlineTime: w.Job.DeadlineTime,
		},
	}

	if t.EngineRPMMax != nil && *t.EngineRPMMax > 0 {
		s.Truck.EngineRPMMax = *t.EngineRPMMax
	}
	switch {
	case w.Game.RainIntensity != nil:
		s.Game.RainIntensity = *w.Game.RainIntensity
	case w.Game.Raining != nil:
		s.Game.RainIntensity = *w.Game.Raining
	}
	if t.WearEngine == nil && t.WearTransmission == nil && t.WearCabin == nil &&
		t.WearChassis == nil && t.WearWheels == nil {
		missing.add(FieldTruckWear)
	}

	s.missing = missing
	return s, nil
}
