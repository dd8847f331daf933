// Package notify publishes trip changes to subscribers outside the service.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/freight-dispatch/internal/models"
)

// Trip actions carried in notices.
const (
	ActionCreated   = "created"
	ActionUpdated   = "updated"
	ActionEvent     = "event"
	ActionInvoiced  = "invoiced"
	ActionDeleted   = "deleted"
	ActionRecovered = "recovered"
)

// TripNotice is the payload published after a trip write.
type TripNotice struct {
	TripID       string            `json:"trip_id"`
	ServiceOrder string            `json:"service_order"`
	Status       models.TripStatus `json:"status"`
	Action       string            `json:"action"`
	AssignmentID string            `json:"assignment_id,omitempty"`
	Event        *models.Event     `json:"event,omitempty"`
	At           time.Time         `json:"at"`
}

// Publisher delivers trip notices.
type Publisher interface {
	PublishTrip(ctx context.Context, notice TripNotice) error
}

// Nop discards every notice.
type Nop struct{}

func (Nop) PublishTrip(context.Context, TripNotice) error { return nil }

// tokenPublisher is the part of mqtt.Client used for publishing.
type tokenPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTPublisher publishes notices as JSON to <prefix>/trips/<id>.
type MQTTPublisher struct {
	client  tokenPublisher
	closer  func()
	prefix  string
	qos     byte
	timeout time.Duration
}

// MQTTConfig configures the broker connection.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	Timeout     time.Duration
}

var ErrPublishTimeout = errors.New("mqtt publish timed out")

// NewMQTTPublisher connects to the broker.
func NewMQTTPublisher(cfg MQTTConfig) (*MQTTPublisher, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(cfg.Timeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		})
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("connect to %s: timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, err)
	}
	log.WithField("broker", cfg.Broker).Info("Connected to MQTT broker")
	p := newMQTTPublisher(client, cfg.TopicPrefix, cfg.Timeout)
	p.closer = func() { client.Disconnect(250) }
	return p, nil
}

func newMQTTPublisher(client tokenPublisher, prefix string, timeout time.Duration) *MQTTPublisher {
	return &MQTTPublisher{client: client, prefix: prefix, qos: 1, timeout: timeout}
}

// Topic returns the topic notices for tripID are published on.
func (p *MQTTPublisher) Topic(tripID string) string {
	if p.prefix == "" {
		return "trips/" + tripID
	}
	return p.prefix + "/trips/" + tripID
}

func (p *MQTTPublisher) PublishTrip(ctx context.Context, notice TripNotice) error {
	payload, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("marshal trip notice: %w", err)
	}
	token := p.client.Publish(p.Topic(notice.TripID), p.qos, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.timeout):
		return ErrPublishTimeout
	}
	return token.Error()
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	if p.closer != nil {
		p.closer()
	}
}
