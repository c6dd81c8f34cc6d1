package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/banshee-data/citation.report/internal/violation"
)

// DefaultConfigPath is the path to the canonical rules defaults file.
const DefaultConfigPath = "config/rules.defaults.json"

const schemaURL = "citation://rules.schema.json"

//go:embed rules.schema.json
var rulesSchema []byte

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid rules configuration")

// SpamConfig configures one event-pattern detector: Events edge events
// inside Within is erratic.
type SpamConfig struct {
	Events *int    `json:"events,omitempty"`
	Within *string `json:"within,omitempty"` // duration string like "2s"
}

// PursuitConfig configures escalation into a pursuit.
type PursuitConfig struct {
	Triggers         []string `json:"triggers,omitempty"`
	PenaltyInterval  *string  `json:"penalty_interval,omitempty"`
	PenaltyPoints    *int     `json:"penalty_points,omitempty"`
	PullOverDuration *string  `json:"pull_over_duration,omitempty"`
	CreditPolicy     *string  `json:"credit_policy,omitempty"`
}

// RulesConfig is the on-disk rules configuration. Every field is optional;
// Resolve fills omitted fields with the built-in defaults, so partial files
// are safe.
type RulesConfig struct {
	TickInterval *string `json:"tick_interval,omitempty"`

	// Critical faults
	RollThreshold      *float64 `json:"roll_threshold,omitempty"`
	UnderLoadRPM       *float64 `json:"under_load_rpm,omitempty"`
	UnderLoadSpeedKPH  *float64 `json:"under_load_speed_kph,omitempty"`
	BrakeTempThreshold *float64 `json:"brake_temp_threshold,omitempty"`
	JackknifeThreshold *float64 `json:"jackknife_threshold,omitempty"`
	DamageThreshold    *float64 `json:"damage_threshold,omitempty"`

	// Driving violations
	NightStartHour        *int     `json:"night_start_hour,omitempty"`
	NightEndHour          *int     `json:"night_end_hour,omitempty"`
	RainThreshold         *float64 `json:"rain_threshold,omitempty"`
	SteerThreshold        *float64 `json:"steer_threshold,omitempty"`
	TurnSignalMinSpeed    *float64 `json:"turn_signal_min_speed_kph,omitempty"`
	CitySpeedLimit        *float64 `json:"city_speed_limit_kph,omitempty"`
	RecklessFlatKPH       *float64 `json:"reckless_flat_kph,omitempty"`
	RecklessPercent       *float64 `json:"reckless_percent,omitempty"`
	SpeedingToleranceKPH  *float64 `json:"speeding_tolerance_kph,omitempty"`
	HarshBrakeThreshold   *float64 `json:"harsh_brake_threshold,omitempty"`
	HarshSwerveThreshold  *float64 `json:"harsh_swerve_threshold,omitempty"`
	HarshLandingThreshold *float64 `json:"harsh_landing_threshold,omitempty"`

	// Stateful detectors
	MovingSpeedKPH           *float64   `json:"moving_speed_kph,omitempty"`
	ForgottenBlinkerDuration *string    `json:"forgotten_blinker_duration,omitempty"`
	DangerousParkingDuration *string    `json:"dangerous_parking_duration,omitempty"`
	BlinkerSpam              SpamConfig `json:"blinker_spam"`
	WiperSpam                SpamConfig `json:"wiper_spam"`
	HighBeamSpam             SpamConfig `json:"high_beam_spam"`
	SteerSpam                SpamConfig `json:"steer_spam"`
	SteerSwerveThreshold     *float64   `json:"steer_swerve_threshold,omitempty"`
	HitAndRunJump            *float64   `json:"hit_and_run_jump,omitempty"`

	// Scoring
	Points          map[string]int    `json:"points,omitempty"`
	DefaultPoints   *int              `json:"default_points,omitempty"`
	Cooldowns       map[string]string `json:"cooldowns,omitempty"`
	DefaultCooldown *string           `json:"default_cooldown,omitempty"`
	FaultCooldown   *string           `json:"fault_cooldown,omitempty"`

	Pursuit PursuitConfig `json:"pursuit"`
}

// EmptyRulesConfig returns a RulesConfig with every field unset.
func EmptyRulesConfig() *RulesConfig {
	return &RulesConfig{}
}

// LoadRulesConfig loads a RulesConfig from a JSON file. The file must have a
// .json extension, be under 1MB, match the embedded JSON Schema and pass
// Validate.
func LoadRulesConfig(path string) (*RulesConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseRulesConfig(data)
}

// ParseRulesConfig decodes and validates a JSON rules document.
func ParseRulesConfig(data []byte) (*RulesConfig, error) {
	if err := validateSchema(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	cfg := EmptyRulesConfig()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents. Panics if the file cannot
// be loaded, intended for test setup.
func MustLoadDefaultConfig() *RulesConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadRulesConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

func validateSchema(data []byte) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(rulesSchema)); err != nil {
		return fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	return schema.Validate(payload)
}

// Validate checks the cross-field constraints the schema cannot express.
func (c *RulesConfig) Validate() error {
	durations := map[string]*string{
		"tick_interval":              c.TickInterval,
		"forgotten_blinker_duration": c.ForgottenBlinkerDuration,
		"dangerous_parking_duration": c.DangerousParkingDuration,
		"default_cooldown":           c.DefaultCooldown,
		"fault_cooldown":             c.FaultCooldown,
		"blinker_spam.within":        c.BlinkerSpam.Within,
		"wiper_spam.within":          c.WiperSpam.Within,
		"high_beam_spam.within":      c.HighBeamSpam.Within,
		"steer_spam.within":          c.SteerSpam.Within,
		"pursuit.penalty_interval":   c.Pursuit.PenaltyInterval,
		"pursuit.pull_over_duration": c.Pursuit.PullOverDuration,
	}
	for name, v := range durations {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("%w: invalid %s '%s': %v", ErrInvalidConfig, name, *v, err)
		}
		if d < 0 {
			return fmt.Errorf("%w: %s must be non-negative, got %s", ErrInvalidConfig, name, *v)
		}
	}
	if c.TickInterval != nil && *c.TickInterval != "" {
		if d, _ := time.ParseDuration(*c.TickInterval); d == 0 {
			return fmt.Errorf("%w: tick_interval must be positive", ErrInvalidConfig)
		}
	}

	if c.NightStartHour != nil && (*c.NightStartHour < 0 || *c.NightStartHour > 23) {
		return fmt.Errorf("%w: night_start_hour must be between 0 and 23, got %d", ErrInvalidConfig, *c.NightStartHour)
	}
	if c.NightEndHour != nil && (*c.NightEndHour < 0 || *c.NightEndHour > 23) {
		return fmt.Errorf("%w: night_end_hour must be between 0 and 23, got %d", ErrInvalidConfig, *c.NightEndHour)
	}
	if c.DamageThreshold != nil && (*c.DamageThreshold <= 0 || *c.DamageThreshold > 1) {
		return fmt.Errorf("%w: damage_threshold must be in (0, 1], got %f", ErrInvalidConfig, *c.DamageThreshold)
	}

	for name := range c.Points {
		if _, err := violation.ParseCode(name); err != nil {
			return fmt.Errorf("%w: points: %v", ErrInvalidConfig, err)
		}
	}
	for name, d := range c.Cooldowns {
		if _, err := violation.ParseCode(name); err != nil {
			return fmt.Errorf("%w: cooldowns: %v", ErrInvalidConfig, err)
		}
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("%w: cooldowns.%s '%s': %v", ErrInvalidConfig, name, d, err)
		}
	}
	for _, name := range c.Pursuit.Triggers {
		if _, err := violation.ParseCode(name); err != nil {
			return fmt.Errorf("%w: pursuit.triggers: %v", ErrInvalidConfig, err)
		}
	}
	if c.Pursuit.CreditPolicy != nil {
		if _, err := ParseCreditPolicy(*c.Pursuit.CreditPolicy); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// Resolve produces the plain Rules the engine consumes, applying defaults to
// every unset field. Resolve assumes Validate has passed; unparsable values
// fall back to their defaults.
func (c *RulesConfig) Resolve() Rules {
	r := DefaultRules()

	r.TickInterval = orDuration(c.TickInterval, r.TickInterval)

	r.RollThreshold = orFloat(c.RollThreshold, r.RollThreshold)
	r.UnderLoadRPM = orFloat(c.UnderLoadRPM, r.UnderLoadRPM)
	r.UnderLoadSpeedKPH = orFloat(c.UnderLoadSpeedKPH, r.UnderLoadSpeedKPH)
	r.BrakeTempThreshold = orFloat(c.BrakeTempThreshold, r.BrakeTempThreshold)
	r.JackknifeThreshold = orFloat(c.JackknifeThreshold, r.JackknifeThreshold)
	r.DamageThreshold = orFloat(c.DamageThreshold, r.DamageThreshold)

	r.NightStartHour = orInt(c.NightStartHour, r.NightStartHour)
	r.NightEndHour = orInt(c.NightEndHour, r.NightEndHour)
	r.RainThreshold = orFloat(c.RainThreshold, r.RainThreshold)
	r.SteerThreshold = orFloat(c.SteerThreshold, r.SteerThreshold)
	r.TurnSignalMinSpeedKPH = orFloat(c.TurnSignalMinSpeed, r.TurnSignalMinSpeedKPH)
	r.CitySpeedLimitKPH = orFloat(c.CitySpeedLimit, r.CitySpeedLimitKPH)
	r.RecklessFlatKPH = orFloat(c.RecklessFlatKPH, r.RecklessFlatKPH)
	r.RecklessPercent = orFloat(c.RecklessPercent, r.RecklessPercent)
	r.SpeedingToleranceKPH = orFloat(c.SpeedingToleranceKPH, r.SpeedingToleranceKPH)
	r.HarshBrakeThreshold = orFloat(c.HarshBrakeThreshold, r.HarshBrakeThreshold)
	r.HarshSwerveThreshold = orFloat(c.HarshSwerveThreshold, r.HarshSwerveThreshold)
	r.HarshLandingThreshold = orFloat(c.HarshLandingThreshold, r.HarshLandingThreshold)

	r.MovingSpeedKPH = orFloat(c.MovingSpeedKPH, r.MovingSpeedKPH)
	r.ForgottenBlinkerDuration = orDuration(c.ForgottenBlinkerDuration, r.ForgottenBlinkerDuration)
	r.DangerousParkingDuration = orDuration(c.DangerousParkingDuration, r.DangerousParkingDuration)
	r.BlinkerSpam = c.BlinkerSpam.resolve(r.BlinkerSpam)
	r.WiperSpam = c.WiperSpam.resolve(r.WiperSpam)
	r.HighBeamSpam = c.HighBeamSpam.resolve(r.HighBeamSpam)
	r.SteerSpam = c.SteerSpam.resolve(r.SteerSpam)
	r.SteerSwerveThreshold = orFloat(c.SteerSwerveThreshold, r.SteerSwerveThreshold)
	r.HitAndRunJump = orFloat(c.HitAndRunJump, r.HitAndRunJump)

	for name, pts := range c.Points {
		if code, err := violation.ParseCode(name); err == nil {
			r.Points[code] = pts
		}
	}
	r.DefaultPoints = orInt(c.DefaultPoints, r.DefaultPoints)
	for name, v := range c.Cooldowns {
		code, err := violation.ParseCode(name)
		if err != nil {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil {
			r.Cooldowns[code] = d
		}
	}
	r.DefaultCooldown = orDuration(c.DefaultCooldown, r.DefaultCooldown)
	r.FaultCooldown = orDuration(c.FaultCooldown, r.FaultCooldown)

	if len(c.Pursuit.Triggers) > 0 {
		r.PursuitTriggers = make(map[violation.Code]bool, len(c.Pursuit.Triggers))
		for _, name := range c.Pursuit.Triggers {
			if code, err := violation.ParseCode(name); err == nil {
				r.PursuitTriggers[code] = true
			}
		}
	}
	r.PursuitPenaltyInterval = orDuration(c.Pursuit.PenaltyInterval, r.PursuitPenaltyInterval)
	r.PursuitPenaltyPoints = orInt(c.Pursuit.PenaltyPoints, r.PursuitPenaltyPoints)
	r.PullOverDuration = orDuration(c.Pursuit.PullOverDuration, r.PullOverDuration)
	if c.Pursuit.CreditPolicy != nil {
		if p, err := ParseCreditPolicy(*c.Pursuit.CreditPolicy); err == nil {
			r.PursuitCredit = p
		}
	}
	return r
}

func (s SpamConfig) resolve(def SpamRule) SpamRule {
	return SpamRule{
		Events: orInt(s.Events, def.Events),
		Within: orDuration(s.Within, def.Within),
	}
}

func orFloat(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func orInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func orDuration(p *string, def time.Duration) time.Duration {
	if p == nil || strings.TrimSpace(*p) == "" {
		return def
	}
	d, err := time.ParseDuration(*p)
	if err != nil {
		return def
	}
	return d
}
