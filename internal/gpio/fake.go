package gpio

import "errors"

// FakePin is a test double that records every level written to it.
type FakePin struct {
	// Initial is the level reported before any Set call.
	Initial Level

	// History contains every level passed to a successful Set, in order.
	History []Level

	// SetError, if set, will be returned by Set.
	SetError error

	// LevelError, if set, will be returned by Level.
	LevelError error

	// CloseError, if set, will be returned by Close.
	CloseError error

	// Closed tracks if Close was called.
	Closed bool

	// CloseCount counts Close calls.
	CloseCount int
}

// NewFakePin creates a FakePin currently at the given level.
func NewFakePin(initial Level) *FakePin {
	return &FakePin{Initial: initial}
}

// Set records the level.
func (f *FakePin) Set(level Level) error {
	if f.Closed {
		return errors.New("pin closed")
	}
	if f.SetError != nil {
		return f.SetError
	}
	f.History = append(f.History, level)
	return nil
}

// Level returns the last level written, or Initial.
func (f *FakePin) Level() (Level, error) {
	if f.LevelError != nil {
		return Low, f.LevelError
	}
	if len(f.History) == 0 {
		return f.Initial, nil
	}
	return f.History[len(f.History)-1], nil
}

// Close marks the pin as closed.
func (f *FakePin) Close() error {
	f.Closed = true
	f.CloseCount++
	return f.CloseError
}

// Reset clears recorded writes and close state.
func (f *FakePin) Reset() {
	f.History = nil
	f.Closed = false
	f.CloseCount = 0
}
