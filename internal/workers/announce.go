package workers

import (
	"context"
	"fmt"
	"time"
)

// Beep is a tone played before an announcement.
type Beep struct {
	FrequencyHz int
	Duration    time.Duration
}

// Standard tones.
var (
	AlertBeep  = Beep{FrequencyHz: 1200, Duration: 300 * time.Millisecond}
	UrgentBeep = Beep{FrequencyHz: 1500, Duration: 500 * time.Millisecond}
)

// Announcement is either plain text or a tone followed by text.
type Announcement struct {
	Text string
	Beep *Beep
}

// Say is a plain-text announcement.
func Say(text string) Announcement { return Announcement{Text: text} }

// Alert is a tone followed by text.
func Alert(b Beep, text string) Announcement { return Announcement{Text: text, Beep: &b} }

// Speaker turns text into audible speech.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Beeper plays a tone.
type Beeper interface {
	Beep(ctx context.Context, frequencyHz int, d time.Duration) error
}

// AnnouncementHandler plays the beep, if any, then speaks the text.
func AnnouncementHandler(speaker Speaker, beeper Beeper) Handler[Announcement] {
	return func(ctx context.Context, a Announcement) error {
		if a.Beep != nil && beeper != nil && a.Beep.FrequencyHz > 0 && a.Beep.Duration > 0 {
			if err := beeper.Beep(ctx, a.Beep.FrequencyHz, a.Beep.Duration); err != nil {
				return fmt.Errorf("beep: %w", err)
			}
		}
		if a.Text == "" || speaker == nil {
			return nil
		}
		if err := speaker.Speak(ctx, a.Text); err != nil {
			return fmt.Errorf("speak %q: %w", a.Text, err)
		}
		return nil
	}
}
