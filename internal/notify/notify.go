// Package notify publishes conductor status changes to subscribers outside the service.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/ukydev/bus-tracker/internal/config"
	"github.com/ukydev/bus-tracker/internal/models"
)

// ErrPublishTimeout is returned when the broker does not acknowledge in time.
var ErrPublishTimeout = errors.New("mqtt publish timed out")

// Publisher sends status events.
type Publisher interface {
	PublishStatus(ctx context.Context, event models.StatusEvent) error
	Close()
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishStatus(context.Context, models.StatusEvent) error { return nil }
func (NopPublisher) Close()                                                  {}

// MQTTPublisher publishes status events as JSON to "<prefix>/<busName>/status".
type MQTTPublisher struct {
	client      mqtt.Client
	topicPrefix string
	qos         byte
	timeout     time.Duration
}

// New returns an MQTT publisher when a broker is configured, otherwise a NopPublisher.
func New(cfg config.MQTTConfig) (Publisher, error) {
	if cfg.Broker == "" {
		return NopPublisher{}, nil
	}
	return NewMQTTPublisher(cfg)
}

// NewMQTTPublisher connects to the broker.
func NewMQTTPublisher(cfg config.MQTTConfig) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(cfg.Timeout)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return newMQTTPublisher(client, cfg), nil
}

func newMQTTPublisher(client mqtt.Client, cfg config.MQTTConfig) *MQTTPublisher {
	return &MQTTPublisher{
		client:      client,
		topicPrefix: cfg.TopicPrefix,
		qos:         cfg.QoS,
		timeout:     cfg.Timeout,
	}
}

// Topic returns the topic a bus's events are published on.
func (p *MQTTPublisher) Topic(busName string) string {
	return p.topicPrefix + "/" + busName + "/status"
}

// PublishStatus publishes one event and waits for the broker, bounded by the
// publisher timeout and the context deadline.
func (p *MQTTPublisher) PublishStatus(ctx context.Context, event models.StatusEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal status event: %w", err)
	}

	token := p.client.Publish(p.Topic(event.BusName), p.qos, false, payload)

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return ErrPublishTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects from the broker, allowing in-flight messages 250ms to drain.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
