// Package power sequences a single output line to power-cycle an external
// device: on, off, and an off-pause-on reboot pulse.
// Time is injectable through the Sleeper and clock in Options.
package power

import (
	"context"
	"time"

	"github.com/sweeney/power-switch/internal/gpio"
)

// Command selects one operation.
type Command string

const (
	CommandOn     Command = "on"
	CommandOff    Command = "off"
	CommandReboot Command = "reboot"
)

// Commands lists the recognized commands in help order.
var Commands = []Command{CommandOn, CommandOff, CommandReboot}

// ParseCommand maps a command-line argument to a Command.
// The second result is false for anything unrecognized, including "".
func ParseCommand(s string) (Command, bool) {
	switch c := Command(s); c {
	case CommandOn, CommandOff, CommandReboot:
		return c, true
	}
	return "", false
}

// Default delays.
const (
	DefaultRebootPause = time.Second
	DefaultSettle      = time.Second
)

// Result describes one Run.
type Result struct {
	Command    string
	Dispatched bool       // false when Command was not recognized
	Level      gpio.Level // logical level after dispatch
	Started    time.Time
	Finished   time.Time
}

// Sleeper blocks for d or until ctx is done, returning ctx.Err() in the
// latter case.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real-time Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
