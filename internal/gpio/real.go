//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// consumer is the label shown for the claimed line in gpioinfo.
const consumer = "power-switch"

// RealPin drives a line through the Linux GPIO character device.
type RealPin struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealPin claims offset on the named chip and switches it to an output
// driving whatever level the line currently reads.
func NewRealPin(chipName string, offset int) (*RealPin, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(offset, gpiocdev.AsIs)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request pin %d: %w", offset, err)
	}

	v, err := line.Value()
	if err != nil {
		line.Close()
		chip.Close()
		return nil, fmt.Errorf("read pin %d: %w", offset, err)
	}

	if err := line.Reconfigure(gpiocdev.AsOutput(v)); err != nil {
		line.Close()
		chip.Close()
		return nil, fmt.Errorf("configure pin %d as output: %w", offset, err)
	}

	return &RealPin{chip: chip, line: line}, nil
}

// Set drives the line.
func (p *RealPin) Set(level Level) error {
	if err := p.line.SetValue(int(level)); err != nil {
		return fmt.Errorf("set pin: %w", err)
	}
	return nil
}

// Level returns the driven value.
func (p *RealPin) Level() (Level, error) {
	v, err := p.line.Value()
	if err != nil {
		return Low, fmt.Errorf("read pin: %w", err)
	}
	if v != 0 {
		return High, nil
	}
	return Low, nil
}

// Close reconfigures the line as an input before releasing it, which is
// where the kernel leaves unclaimed lines after boot.
func (p *RealPin) Close() error {
	var errs []error

	if p.line != nil {
		if err := p.line.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin: %w", err))
		}
		if err := p.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin: %w", err))
		}
	}
	if p.chip != nil {
		if err := p.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
