package power

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/apex/log"

	"github.com/sweeney/power-switch/internal/gpio"
)

// ErrReleased is returned by operations on a controller whose pin has been
// released.
var ErrReleased = errors.New("power: pin released")

// Options tune a Controller. Zero delays are taken literally: a zero
// RebootPause switches straight back on and a zero Settle releases at once.
// Start from DefaultOptions to get the one-second stock delays.
type Options struct {
	RebootPause time.Duration
	Settle      time.Duration

	// ActiveLow inverts the physical line: logical HIGH drives it low.
	ActiveLow bool

	Logger log.Interface
	Sleep  Sleeper
	Now    func() time.Time
}

// DefaultOptions returns one-second reboot pause and settle delays.
func DefaultOptions() Options {
	return Options{
		RebootPause: DefaultRebootPause,
		Settle:      DefaultSettle,
	}
}

// Controller owns one output line for the lifetime of the process.
type Controller struct {
	pin  gpio.Pin
	opts Options

	mu         sync.Mutex
	released   bool
	releaseErr error
}

// NewController takes ownership of pin. The caller must call Release.
func NewController(pin gpio.Pin, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = log.Log
	}
	if opts.Sleep == nil {
		opts.Sleep = Sleep
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{pin: pin, opts: opts}
}

// TurnOn drives the line to logical HIGH.
func (c *Controller) TurnOn() error {
	return c.set(gpio.High)
}

// TurnOff drives the line to logical LOW.
func (c *Controller) TurnOff() error {
	return c.set(gpio.Low)
}

// Reboot turns the device off, waits RebootPause and turns it back on.
// If ctx is cancelled during the pause the line is left LOW.
func (c *Controller) Reboot(ctx context.Context) error {
	if err := c.TurnOff(); err != nil {
		return err
	}
	c.opts.Logger.WithField("pause", c.opts.RebootPause).Debug("reboot: waiting before power on")
	if err := c.opts.Sleep(ctx, c.opts.RebootPause); err != nil {
		return err
	}
	return c.TurnOn()
}

// Do runs a single recognized command.
func (c *Controller) Do(ctx context.Context, cmd Command) error {
	switch cmd {
	case CommandOn:
		return c.TurnOn()
	case CommandOff:
		return c.TurnOff()
	case CommandReboot:
		return c.Reboot(ctx)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// Run dispatches arg and then waits Settle, whether or not arg was
// recognized. An unrecognized arg leaves the line untouched, and so does a
// ctx that is already done.
func (c *Controller) Run(ctx context.Context, arg string) (Result, error) {
	res := Result{Command: arg, Started: c.opts.Now()}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	if cmd, ok := ParseCommand(arg); ok {
		if err := c.Do(ctx, cmd); err != nil {
			return res, err
		}
		res.Dispatched = true
	} else {
		c.opts.Logger.WithField("command", arg).Warn("unknown command, pin left unchanged")
	}

	if level, err := c.Level(); err != nil {
		c.opts.Logger.WithError(err).Debug("read back level")
	} else {
		res.Level = level
	}

	if err := c.opts.Sleep(ctx, c.opts.Settle); err != nil {
		return res, err
	}
	res.Finished = c.opts.Now()
	return res, nil
}

// Level returns the logical level currently driven.
func (c *Controller) Level() (gpio.Level, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return gpio.Low, ErrReleased
	}
	raw, err := c.pin.Level()
	if err != nil {
		return gpio.Low, err
	}
	return c.logical(raw), nil
}

// Release reverts the line to an input and frees it. Only the first call
// touches the hardware; later calls return the first call's error.
func (c *Controller) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return c.releaseErr
	}
	c.released = true
	c.releaseErr = c.pin.Close()
	c.opts.Logger.WithError(c.releaseErr).Debug("pin released")
	return c.releaseErr
}

func (c *Controller) set(level gpio.Level) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return ErrReleased
	}
	raw := c.physical(level)
	if err := c.pin.Set(raw); err != nil {
		return fmt.Errorf("set %s: %w", level, err)
	}
	c.opts.Logger.WithFields(log.Fields{
		"level": level.String(),
		"line":  raw.String(),
	}).Info("pin set")
	return nil
}

func (c *Controller) physical(level gpio.Level) gpio.Level {
	if !c.opts.ActiveLow {
		return level
	}
	if level == gpio.High {
		return gpio.Low
	}
	return gpio.High
}

// logical is its own inverse.
func (c *Controller) logical(raw gpio.Level) gpio.Level {
	return c.physical(raw)
}
