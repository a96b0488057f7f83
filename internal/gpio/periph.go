package gpio

import (
	"fmt"

	"github.com/pkg/errors"
	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// PeriphPin drives a line through periph.io host drivers.
type PeriphPin struct {
	pin pgpio.PinIO
}

// NewPeriphPin initializes periph.io and switches GPIO<pin> to an output,
// keeping the level it currently reads.
func NewPeriphPin(pin int) (*PeriphPin, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "periph host init")
	}

	name := fmt.Sprintf("GPIO%d", pin)
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, errors.Errorf("pin %d (%s) not found in hardware", pin, name)
	}

	if err := p.Out(p.Read()); err != nil {
		return nil, errors.Wrapf(err, "configure %s as output", name)
	}

	return &PeriphPin{pin: p}, nil
}

// Set drives the line.
func (p *PeriphPin) Set(level Level) error {
	l := pgpio.Low
	if level == High {
		l = pgpio.High
	}
	return errors.Wrapf(p.pin.Out(l), "set %s", p.pin.Name())
}

// Level returns the driven value.
func (p *PeriphPin) Level() (Level, error) {
	if p.pin.Read() == pgpio.High {
		return High, nil
	}
	return Low, nil
}

// Close returns the pin to a floating input.
func (p *PeriphPin) Close() error {
	if err := p.pin.In(pgpio.PullNoChange, pgpio.NoEdge); err != nil {
		return errors.Wrapf(err, "release %s", p.pin.Name())
	}
	return nil
}
