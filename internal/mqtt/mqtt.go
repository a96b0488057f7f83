// Package mqtt publishes power events with abstraction for testing.
package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sweeney/power-switch/internal/gpio"
)

// DefaultTopic is the MQTT topic for power events.
const DefaultTopic = "power-switch/events"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a power event to the broker, giving up when ctx is done.
	// Returns error if publishing fails (should not fail the run).
	Publish(ctx context.Context, event Event) error

	// Close disconnects from the broker.
	Close() error
}

// Event records one dispatched command.
type Event struct {
	Timestamp time.Time
	Command   string // "on", "off" or "reboot"
	Pin       int
	Level     gpio.Level // logical level after the command
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Power PowerPayload `json:"power"`
}

// PowerPayload contains the power event details.
type PowerPayload struct {
	Timestamp string `json:"timestamp"`
	Command   string `json:"command"`
	Pin       int    `json:"pin"`
	Level     string `json:"level"`
}

// FormatPayload creates the JSON payload for a power event.
func FormatPayload(event Event) ([]byte, error) {
	payload := Payload{
		Power: PowerPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Command:   event.Command,
			Pin:       event.Pin,
			Level:     event.Level.String(),
		},
	}
	return json.Marshal(payload)
}
