//go:build linux

package gpio

import (
	"github.com/pkg/errors"
	"github.com/stianeikeland/go-rpio/v4"
)

// RPIOPin drives a line through memory-mapped GPIO registers (/dev/gpiomem).
type RPIOPin struct {
	pin rpio.Pin
}

// NewRPIOPin maps GPIO memory and switches pin to an output, keeping the
// level it currently reads.
func NewRPIOPin(pin int) (*RPIOPin, error) {
	if pin < 0 || pin > 53 {
		return nil, errors.Errorf("pin %d out of range for rpio", pin)
	}
	if err := rpio.Open(); err != nil {
		return nil, errors.Wrap(err, "couldn't get GPIO access")
	}

	p := rpio.Pin(uint8(pin))
	current := p.Read()
	p.Output()
	p.Write(current)

	return &RPIOPin{pin: p}, nil
}

// Set drives the line.
func (p *RPIOPin) Set(level Level) error {
	if level == High {
		p.pin.High()
	} else {
		p.pin.Low()
	}
	return nil
}

// Level returns the driven value.
func (p *RPIOPin) Level() (Level, error) {
	if p.pin.Read() == rpio.High {
		return High, nil
	}
	return Low, nil
}

// Close returns the pin to input mode and unmaps GPIO memory.
func (p *RPIOPin) Close() error {
	p.pin.Input()
	return errors.Wrap(rpio.Close(), "couldn't close GPIO access")
}
