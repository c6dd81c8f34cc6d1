package speech

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"time"
)

// Command speaks by running a local synthesizer with the text as its final
// argument.
type Command struct {
	Name string
	Args []string
}

// Espeak speaks at 170 words per minute.
func Espeak() Command {
	return Command{Name: "espeak-ng", Args: []string{"-s", "170"}}
}

func (c Command) Speak(ctx context.Context, text string) error {
	args := append(append([]string(nil), c.Args...), text)
	if out, err := exec.CommandContext(ctx, c.Name, args...).CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", c.Name, err, out)
	}
	return nil
}

// Printer is the console sink used by Console.
type Printer interface {
	Printf(format string, args ...any)
}

// Console prints announcements instead of speaking them.
type Console struct {
	Out Printer
}

func (c Console) Speak(_ context.Context, text string) error {
	c.Out.Printf("[Speech] %s", text)
	return nil
}

// CommandBeeper plays tones with the beep utility.
type CommandBeeper struct {
	Name string
}

func (b CommandBeeper) Beep(ctx context.Context, hz int, d time.Duration) error {
	name := b.Name
	if name == "" {
		name = "beep"
	}
	ms := strconv.FormatInt(d.Milliseconds(), 10)
	if out, err := exec.CommandContext(ctx, name, "-f", strconv.Itoa(hz), "-l", ms).CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, out)
	}
	return nil
}

// Bell rings the terminal bell and waits out the tone's duration, so timing
// matches a real tone.
type Bell struct {
	Out io.Writer
}

func (b Bell) Beep(ctx context.Context, _ int, d time.Duration) error {
	if _, err := io.WriteString(b.Out, "\a"); err != nil {
		return err
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
