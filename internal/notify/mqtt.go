package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig configures the push transport.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// TopicTemplate is expanded per device; "{token}" is replaced by the device token.
	TopicTemplate  string
	QoS            byte
	ConnectTimeout time.Duration
}

const defaultTopicTemplate = "dustinel/devices/{token}/alerts"

// MQTTPush publishes push notifications to per-device MQTT topics.
type MQTTPush struct {
	client   mqtt.Client
	template string
	qos      byte
	logger   *slog.Logger
}

type pushPayload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// NewMQTTPush connects to the broker and returns a ready transport.
func NewMQTTPush(cfg MQTTConfig, logger *slog.Logger) (*MQTTPush, error) {
	if strings.TrimSpace(cfg.Broker) == "" {
		return nil, errors.New("mqtt broker is required")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "dustinel-risk-engine"
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("mqtt connection lost", slog.Any("error", err))
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return newMQTTPush(client, cfg.TopicTemplate, cfg.QoS, logger), nil
}

func newMQTTPush(client mqtt.Client, template string, qos byte, logger *slog.Logger) *MQTTPush {
	if template == "" {
		template = defaultTopicTemplate
	}
	if qos > 2 {
		qos = 1
	}
	return &MQTTPush{client: client, template: template, qos: qos, logger: logger}
}

// SendPush publishes to every device topic. It succeeds when at least one device
// accepted the message.
func (p *MQTTPush) SendPush(ctx context.Context, deviceTokens []string, n Notification) error {
	payload, err := json.Marshal(pushPayload{Title: n.Title, Body: n.Body, Data: n.Data})
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	var (
		sent    int
		lastErr error
	)
	for _, deviceToken := range deviceTokens {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		topic := strings.ReplaceAll(p.template, "{token}", deviceToken)
		if err := p.publish(ctx, topic, payload); err != nil {
			lastErr = err
			p.logger.Debug("push to device failed", slog.String("topic", topic), slog.Any("error", err))
			continue
		}
		sent++
	}
	if sent == 0 {
		if lastErr == nil {
			lastErr = errors.New("no device tokens")
		}
		return fmt.Errorf("push failed: %w", lastErr)
	}
	return nil
}

func (p *MQTTPush) publish(ctx context.Context, topic string, payload []byte) error {
	token := p.client.Publish(topic, p.qos, false, payload)
	wait := time.Second
	if deadline, ok := ctx.Deadline(); ok {
		wait = time.Until(deadline)
	}
	if !token.WaitTimeout(wait) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	return token.Error()
}

// Close disconnects from the broker.
func (p *MQTTPush) Close() {
	if p != nil && p.client != nil {
		p.client.Disconnect(250)
	}
}
