package telemetry

import (
	"context"
	"errors"
	"math"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/citation.report/internal/httputil"
)

const fullDocument = `{
  "game": {"connected": true, "time": "0001-01-05T22:15:00Z", "rainIntensity": 0.4},
  "truck": {
    "speed": -12.5,
    "placement": {"heading": 0.25, "roll": 0.01},
    "gameSteer": -0.3, "gameBrake": 0.2, "parkBrakeOn": false,
    "engineOn": true, "engineRpm": 1400, "engineRpmMax": 2200,
    "cruiseControlOn": true, "motorBrakeOn": false, "retarderBrake": 1,
    "acceleration": {"x": 0.5, "y": -0.2, "z": 3.1},
    "wearEngine": 0.02, "wearTransmission": 0.03, "wearCabin": 0.15, "wearChassis": 0.01, "wearWheels": 0.04,
    "airPressureWarningOn": false, "waterTemperatureWarningOn": false, "oilPressureWarningOn": true,
    "adblueWarningOn": false, "batteryVoltageWarningOn": false, "fuelWarningOn": false,
    "brakeTemperature": 120,
    "lightsBeamLowOn": true, "lightsBeamHighOn": false,
    "blinkerLeftOn": true, "blinkerRightOn": false,
    "wipersOn": true, "lightsHazardOn": false, "lightsBeaconOn": false
  },
  "trailer": {"attached": true, "wear": 0.05, "placement": {"heading": 0.5}},
  "navigation": {"speedLimit": 60},
  "job": {"income": 4200, "deadlineTime": "0001-01-06T03:00:00Z"}
}`

func TestDecode_Full(t *testing.T) {
	s, err := Decode([]byte(fullDocument))
	require.NoError(t, err)

	want := Truck{
		Speed: -12.5, Heading: 0.25, Roll: 0.01,
		Steer: -0.3, Brake: 0.2,
		EngineOn: true, EngineRPM: 1400, EngineRPMMax: 2200,
		CruiseControl: true, RetarderBrake: 1,
		Acceleration:       Vec3{X: 0.5, Y: -0.2, Z: 3.1},
		Wear:               Wear{Engine: 0.02, Transmission: 0.03, Cabin: 0.15, Chassis: 0.01, Wheels: 0.04},
		OilPressureWarning: true,
		BrakeTemperature:   120,
		LowBeam:            true,
		BlinkerLeft:        true,
		Wipers:             true,
	}
	if diff := cmp.Diff(want, s.Truck); diff != "" {
		t.Errorf("Truck mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 12.5, s.Speed())
	assert.InDelta(t, 0.15, s.TruckDamage(), 1e-9)
	assert.Equal(t, 0.4, s.Game.RainIntensity)
	assert.Equal(t, 60.0, s.Navigation.SpeedLimit)
	assert.Equal(t, 4200.0, s.Job.Income)
	assert.True(t, s.Trailer.Attached)

	for _, f := range Fields() {
		assert.True(t, s.Has(f), "field %d should be present", f)
	}

	hour, ok := s.Game.Hour()
	require.True(t, ok)
	assert.Equal(t, 22, hour)
}

func TestDecode_MissingFieldsAndDefaults(t *testing.T) {
	s, err := Decode([]byte(`{"game": {"connected": true, "raining": 0.7}, "truck": {"speed": 40}}`))
	require.NoError(t, err)

	assert.Equal(t, float64(DefaultEngineRPMMax), s.Truck.EngineRPMMax)
	assert.Equal(t, 0.7, s.Game.RainIntensity, "legacy raining key")
	for _, f := range Fields() {
		assert.False(t, s.Has(f), "field %d should be missing", f)
	}

	_, ok := s.Game.Hour()
	assert.False(t, ok)
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode([]byte(`{"truck": `))
	assert.Error(t, err)
}

func TestSnapshotLiteralHasEveryField(t *testing.T) {
	s := Snapshot{}
	assert.True(t, s.Has(FieldTruckRoll))

	s2 := s.Without(FieldTruckRoll, FieldJobIncome)
	assert.False(t, s2.Has(FieldTruckRoll))
	assert.False(t, s2.Has(FieldJobIncome))
	assert.True(t, s2.Has(FieldTrailerWear))
	assert.True(t, s.Has(FieldTruckRoll), "Without must not modify the receiver")
}

func TestHitchAngle(t *testing.T) {
	tests := []struct {
		name           string
		truck, trailer float64
		want           float64
	}{
		{"aligned", 1.0, 1.0, 0},
		{"small", 0.2, 0.5, 0.3},
		{"wraps across zero", 0.1, 2*math.Pi - 0.1, 0.2},
		{"opposite", 0, math.Pi, math.Pi},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Snapshot{Truck: Truck{Heading: tt.truck}, Trailer: Trailer{Heading: tt.trailer}}
			got := s.HitchAngle()
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, math.Pi)
		})
	}
}

func TestParseTime(t *testing.T) {
	for _, in := range []string{"0001-01-05T22:15:00Z", "2024-03-01T08:00:00", "2024-03-01T08:00"} {
		_, ok := ParseTime(in)
		assert.True(t, ok, in)
	}
	for _, in := range []string{"", "yesterday", "22:15"} {
		_, ok := ParseTime(in)
		assert.False(t, ok, in)
	}
}

func TestClient_Fetch(t *testing.T) {
	mock := httputil.NewMockHTTPClient().AddResponse(http.StatusOK, fullDocument)
	c := NewClient("", mock, 0)

	s, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, -12.5, s.Truck.Speed)

	req := mock.LastRequest()
	require.NotNil(t, req)
	assert.Equal(t, DefaultURL, req.URL.String())
	_, hasDeadline := req.Context().Deadline()
	assert.True(t, hasDeadline)
}

func TestClient_FetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*httputil.MockHTTPClient)
		wantErr error
	}{
		{
			name:  "transport",
			setup: func(m *httputil.MockHTTPClient) { m.AddErrorResponse(errors.New("connection refused")) },
		},
		{
			name:  "status",
			setup: func(m *httputil.MockHTTPClient) { m.AddResponse(http.StatusServiceUnavailable, "") },
		},
		{
			name:  "garbage",
			setup: func(m *httputil.MockHTTPClient) { m.AddResponse(http.StatusOK, "<html>") },
		},
		{
			name:    "not connected",
			setup:   func(m *httputil.MockHTTPClient) { m.AddResponse(http.StatusOK, `{"game":{"connected":false}}`) },
			wantErr: ErrNotConnected,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := httputil.NewMockHTTPClient()
			tt.setup(mock)

			s, err := NewClient(DefaultURL, mock, DefaultTimeout).Fetch(context.Background())
			require.Error(t, err)
			assert.Nil(t, s)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
