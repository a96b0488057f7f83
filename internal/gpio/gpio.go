// Package gpio drives a single digital output line with hardware abstraction.
// The real implementations use the Linux GPIO character device, memory-mapped
// registers (go-rpio) or periph.io host drivers.
// The fake implementation allows testing without hardware.
package gpio

import "fmt"

// Level is the electrical level of an output line.
type Level int

const (
	Low  Level = 0
	High Level = 1
)

// String returns "HIGH" or "LOW".
func (l Level) String() string {
	if l == High {
		return "HIGH"
	}
	return "LOW"
}

// Pin is one claimed output line.
type Pin interface {
	// Set drives the line to the given level.
	Set(level Level) error

	// Level returns the level currently driven on the line.
	Level() (Level, error)

	// Close reverts the line to an input and releases it.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendGPIOCDev = "gpiocdev"
	BackendRPIO     = "rpio"
	BackendPeriph   = "periph"
)

// Defaults (BCM numbering).
const (
	DefaultPin     = 21
	DefaultChip    = "gpiochip0"
	DefaultBackend = BackendGPIOCDev
)

// Config selects the backend and the line to claim.
type Config struct {
	Backend string
	Chip    string // gpiocdev only
	Pin     int
}

// Open claims the configured line as an output, keeping its current level.
func Open(cfg Config) (Pin, error) {
	switch cfg.Backend {
	case BackendGPIOCDev, "":
		chip := cfg.Chip
		if chip == "" {
			chip = DefaultChip
		}
		p, err := NewRealPin(chip, cfg.Pin)
		if err != nil {
			return nil, err
		}
		return p, nil
	case BackendRPIO:
		p, err := NewRPIOPin(cfg.Pin)
		if err != nil {
			return nil, err
		}
		return p, nil
	case BackendPeriph:
		p, err := NewPeriphPin(cfg.Pin)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown gpio backend %q", cfg.Backend)
	}
}

// ValidBackend reports whether name is accepted by Open.
func ValidBackend(name string) bool {
	switch name {
	case BackendGPIOCDev, BackendRPIO, BackendPeriph:
		return true
	}
	return false
}
