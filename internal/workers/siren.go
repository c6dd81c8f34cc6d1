package workers

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/banshee-data/citation.report/internal/monitoring"
	"github.com/banshee-data/citation.report/internal/timeutil"
)

// SirenPollInterval is how often the siren worker checks its flag.
const SirenPollInterval = 100 * time.Millisecond

// SirenPattern is the two-tone wail played once per poll while active.
var SirenPattern = []Beep{
	{FrequencyHz: 800, Duration: 200 * time.Millisecond},
	{FrequencyHz: 1200, Duration: 200 * time.Millisecond},
}

// Siren is the escalation-audio signal. The pursuit machine flips it; the
// worker started by Run observes it on its next poll.
type Siren struct {
	active atomic.Bool
	beeper Beeper
	clock  timeutil.Clock
}

// NewSiren creates an inactive siren. A nil clock uses the real clock.
func NewSiren(beeper Beeper, clock timeutil.Clock) *Siren {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Siren{beeper: beeper, clock: clock}
}

// Activate starts the siren pattern on the next poll.
func (s *Siren) Activate() { s.active.Store(true) }

// Deactivate stops the pattern after the tone in progress.
func (s *Siren) Deactivate() { s.active.Store(false) }

// Active reports whether the siren is on.
func (s *Siren) Active() bool { return s.active.Load() }

// Run polls the flag until ctx is cancelled. Start it with Group.Go.
func (s *Siren) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(SirenPollInterval)
	defer ticker.Stop()

	sounding := false
	for {
		select {
		case <-ctx.Done():
			if sounding {
				monitoring.Logf("[SIREN] Audio system deactivated.")
			}
			return ctx.Err()
		case <-ticker.C():
		}

		if !s.Active() {
			if sounding {
				sounding = false
				monitoring.Logf("[SIREN] Audio system deactivated.")
			}
			continue
		}
		if !sounding {
			sounding = true
			monitoring.Logf("[SIREN] Audio system activated.")
		}
		if s.beeper == nil {
			continue
		}
		for _, b := range SirenPattern {
			if err := s.beeper.Beep(ctx, b.FrequencyHz, b.Duration); err != nil {
				monitoring.Logf("[SIREN] beep failed: %v", err)
				break
			}
		}
	}
}
