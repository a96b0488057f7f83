package internal

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/memory"

	"github.com/sweeney/power-switch/internal/gpio"
	"github.com/sweeney/power-switch/internal/mqtt"
	"github.com/sweeney/power-switch/internal/power"
)

func newController(pin gpio.Pin, sleeps *[]time.Duration) *power.Controller {
	return power.NewController(pin, power.Options{
		RebootPause: power.DefaultRebootPause,
		Settle:      power.DefaultSettle,
		Logger:      &log.Logger{Handler: memory.New(), Level: log.DebugLevel},
		Sleep: func(ctx context.Context, d time.Duration) error {
			*sleeps = append(*sleeps, d)
			return ctx.Err()
		},
	})
}

// TestIntegrationFullFlow drives a sequence of runs against one pin using
// fakes, publishing an event for each dispatched command.
func TestIntegrationFullFlow(t *testing.T) {
	// Simulate: off -> on -> unknown -> reboot -> off
	commands := []string{"off", "on", "status", "reboot", "off"}

	pin := gpio.NewFakePin(gpio.High)
	publisher := mqtt.NewFakePublisher()
	var sleeps []time.Duration
	ctrl := newController(pin, &sleeps)

	for i, cmd := range commands {
		res, err := ctrl.Run(context.Background(), cmd)
		if err != nil {
			t.Fatalf("run %d (%s): %v", i, cmd, err)
		}
		if !res.Dispatched {
			continue
		}
		if err := publisher.Publish(context.Background(), mqtt.Event{
			Timestamp: res.Started,
			Command:   res.Command,
			Pin:       gpio.DefaultPin,
			Level:     res.Level,
		}); err != nil {
			t.Fatalf("run %d: publish error: %v", i, err)
		}
	}

	if err := ctrl.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}

	wantHistory := []gpio.Level{gpio.Low, gpio.High, gpio.Low, gpio.High, gpio.Low}
	if len(pin.History) != len(wantHistory) {
		t.Fatalf("history: got %v, want %v", pin.History, wantHistory)
	}
	for i := range wantHistory {
		if pin.History[i] != wantHistory[i] {
			t.Errorf("history[%d]: got %v, want %v", i, pin.History[i], wantHistory[i])
		}
	}

	// One settle per run plus one reboot pause.
	if len(sleeps) != len(commands)+1 {
		t.Errorf("sleeps: got %d, want %d", len(sleeps), len(commands)+1)
	}

	// Verify published events
	wantEvents := []struct {
		command string
		level   gpio.Level
	}{
		{"off", gpio.Low},
		{"on", gpio.High},
		{"reboot", gpio.High},
		{"off", gpio.Low},
	}
	if len(publisher.Events) != len(wantEvents) {
		t.Fatalf("expected %d events, got %d", len(wantEvents), len(publisher.Events))
	}
	for i, want := range wantEvents {
		got := publisher.Events[i]
		if got.Command != want.command || got.Level != want.level {
			t.Errorf("event %d: got %s/%v, want %s/%v", i, got.Command, got.Level, want.command, want.level)
		}
	}

	// Verify JSON payloads
	for i, payload := range publisher.Payloads {
		var parsed mqtt.Payload
		if err := json.Unmarshal(payload, &parsed); err != nil {
			t.Errorf("payload %d: invalid JSON: %v", i, err)
		}
		if parsed.Power.Timestamp == "" {
			t.Errorf("payload %d: missing timestamp", i)
		}
		if parsed.Power.Level == "" {
			t.Errorf("payload %d: missing level", i)
		}
	}

	if pin.CloseCount != 1 {
		t.Errorf("CloseCount: got %d, want 1", pin.CloseCount)
	}
}

// TestIntegrationUnknownCommandPreservesLevel verifies an unknown command
// leaves either level untouched.
func TestIntegrationUnknownCommandPreservesLevel(t *testing.T) {
	for _, initial := range []gpio.Level{gpio.Low, gpio.High} {
		pin := gpio.NewFakePin(initial)
		var sleeps []time.Duration
		ctrl := newController(pin, &sleeps)

		res, err := ctrl.Run(context.Background(), "foo")
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		ctrl.Release()

		if len(pin.History) != 0 {
			t.Errorf("initial %v: expected no writes, got %v", initial, pin.History)
		}
		if res.Level != initial {
			t.Errorf("initial %v: level got %v", initial, res.Level)
		}
	}
}

// TestIntegrationReleaseAfterInterrupt verifies release is safe at any point
// after the pin is claimed, and that an interrupt which lands before dispatch
// leaves the line untouched.
func TestIntegrationReleaseAfterInterrupt(t *testing.T) {
	for _, cmd := range []string{"on", "off", "reboot", "foo"} {
		pin := gpio.NewFakePin(gpio.Low)
		var sleeps []time.Duration
		ctrl := newController(pin, &sleeps)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := ctrl.Run(ctx, cmd); !errors.Is(err, context.Canceled) {
			t.Errorf("%s: expected context.Canceled, got %v", cmd, err)
		}
		if len(pin.History) != 0 {
			t.Errorf("%s: expected no writes, got %v", cmd, pin.History)
		}
		if len(sleeps) != 0 {
			t.Errorf("%s: expected no delays, got %v", cmd, sleeps)
		}

		for i := 0; i < 3; i++ {
			if err := ctrl.Release(); err != nil {
				t.Errorf("%s: release %d: %v", cmd, i, err)
			}
		}
		if pin.CloseCount != 1 {
			t.Errorf("%s: CloseCount got %d, want 1", cmd, pin.CloseCount)
		}
	}
}
