//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealPin is not available on non-Linux platforms.
type RealPin struct{}

// NewRealPin returns an error on non-Linux platforms.
func NewRealPin(chipName string, offset int) (*RealPin, error) {
	return nil, errUnsupported
}

// Set is not implemented on non-Linux platforms.
func (p *RealPin) Set(Level) error { return errUnsupported }

// Level is not implemented on non-Linux platforms.
func (p *RealPin) Level() (Level, error) { return Low, errUnsupported }

// Close is not implemented on non-Linux platforms.
func (p *RealPin) Close() error { return nil }

// RPIOPin is not available on non-Linux platforms.
type RPIOPin struct{}

// NewRPIOPin returns an error on non-Linux platforms.
func NewRPIOPin(pin int) (*RPIOPin, error) {
	return nil, errUnsupported
}

// Set is not implemented on non-Linux platforms.
func (p *RPIOPin) Set(Level) error { return errUnsupported }

// Level is not implemented on non-Linux platforms.
func (p *RPIOPin) Level() (Level, error) { return Low, errUnsupported }

// Close is not implemented on non-Linux platforms.
func (p *RPIOPin) Close() error { return nil }
