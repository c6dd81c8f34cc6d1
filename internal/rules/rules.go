// Package rules evaluates telemetry snapshots into violations.
//
// Stateless evaluators (CriticalFaults, DrivingViolations) look at a single
// snapshot. Stateful evaluators (EventViolations, DwellViolations,
// ManualInputViolations) and ClearFaults also read and update the session
// state; each decides everything it will emit before it mutates any window,
// so a failure part-way through leaves the state as it was.
package rules

import (
	"github.com/banshee-data/citation.report/internal/config"
)

// Set evaluates every rule family against one configuration.
type Set struct {
	cfg config.Rules
}

// New returns a rule set bound to cfg.
func New(cfg config.Rules) *Set {
	return &Set{cfg: cfg}
}

// Config returns the rules the set was built with.
func (r *Set) Config() config.Rules { return r.cfg }

// inCity reports whether a posted limit falls in the urban band.
func (r *Set) inCity(limit float64) bool {
	return limit > 0 && limit <= r.cfg.CitySpeedLimitKPH
}
