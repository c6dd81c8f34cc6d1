package engine

import (
	"time"

	"github.com/banshee-data/citation.report/internal/telemetry"
)

// Outcome classifies a tick.
type Outcome string

const (
	OutcomeWaiting    Outcome = "waiting"
	OutcomePaused     Outcome = "paused"
	OutcomePursuit    Outcome = "pursuit"
	OutcomeMonitoring Outcome = "monitoring"
	OutcomeStopped    Outcome = "stopped"
)

// Status is an immutable view of the session after a tick.
type Status struct {
	Time        time.Time         `json:"time"`
	Outcome     Outcome           `json:"outcome"`
	Ticks       uint64            `json:"ticks"`
	SpeedKPH    float64           `json:"speed_kph"`
	SpeedLimit  float64           `json:"speed_limit_kph"`
	TotalPoints int               `json:"total_points"`
	Pursuit     *PursuitStatus    `json:"pursuit,omitempty"`
	Latches     map[string]string `json:"latches,omitempty"`
}

// PursuitStatus describes an active pursuit.
type PursuitStatus struct {
	Trigger      string    `json:"trigger"`
	StartedAt    time.Time `json:"started_at"`
	StoppedSince time.Time `json:"stopped_since,omitzero"`
}

// Status returns the status published by the most recent tick.
func (e *Engine) Status() *Status { return e.status.Load() }

func (e *Engine) publish(now time.Time, outcome Outcome, snap *telemetry.Snapshot) {
	st := &Status{
		Time:        now,
		Outcome:     outcome,
		Ticks:       e.ticks,
		TotalPoints: e.state.TotalPoints(),
	}
	if snap != nil {
		st.SpeedKPH = snap.Speed()
		st.SpeedLimit = snap.Navigation.SpeedLimit
	}
	if p := e.state.Pursuit; p.Active {
		st.Pursuit = &PursuitStatus{
			Trigger:      p.Trigger.Code.String(),
			StartedAt:    p.StartedAt,
			StoppedSince: p.StoppedSince,
		}
	}
	if latches := e.state.Latches(); len(latches) > 0 {
		st.Latches = make(map[string]string, len(latches))
		for code, l := range latches {
			st.Latches[code.String()] = l.String()
		}
	}
	e.status.Store(st)
}
