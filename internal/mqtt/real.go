package mqtt

import (
	"context"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client paho.Client
	topic  string
}

// NewRealPublisher creates a publisher connected to the given broker.
// An empty topic means DefaultTopic. Cancelling ctx abandons the connect.
func NewRealPublisher(ctx context.Context, broker, topic string) (*RealPublisher, error) {
	if topic == "" {
		topic = DefaultTopic
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID()).
		SetAutoReconnect(false).
		SetConnectTimeout(10 * time.Second)

	client := paho.NewClient(opts)
	if err := wait(ctx, client.Connect(), 10*time.Second); err != nil {
		client.Disconnect(0)
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &RealPublisher{
		client: client,
		topic:  topic,
	}, nil
}

// Publish sends a power event to the MQTT broker.
func (p *RealPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 1 (at-least-once), not retained: the process exits right after.
	if err := wait(ctx, p.client.Publish(p.topic, 1, false, payload), 5*time.Second); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	return nil
}

// wait blocks until token completes, the timeout passes or ctx is done.
func wait(ctx context.Context, token paho.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return fmt.Errorf("timeout after %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second quiesce
	return nil
}

// clientID is unique per host so two switches on one broker don't kick
// each other off.
func clientID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "power-switch"
	}
	return "power-switch-" + host
}
