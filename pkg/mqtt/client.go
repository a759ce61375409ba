package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"

	"github.com/Jtaz8681/boat-app/pkg/logx"
	"github.com/Jtaz8681/boat-app/pkg/telem"
	"github.com/Jtaz8681/boat-app/pkg/trip"
)

// Publisher pushes telemetry events to an MQTT broker. It is one-way:
// the daemon never acts on inbound messages, it only mirrors what the
// GPS session observes so dashboards off the vessel can follow along.
type Publisher struct {
	client    MQTT.Client
	logger    *logx.Logger
	config    *Config
	connected bool
}

// Config holds MQTT publisher configuration.
type Config struct {
	Broker      string `json:"broker" yaml:"broker"`
	Port        int    `json:"port" yaml:"port"`
	ClientID    string `json:"client_id" yaml:"client_id"`
	Username    string `json:"username" yaml:"username"`
	Password    string `json:"password" yaml:"password"`
	TopicPrefix string `json:"topic_prefix" yaml:"topic_prefix"`
	QoS         int    `json:"qos" yaml:"qos"`
	Retain      bool   `json:"retain" yaml:"retain"`
	Enabled     bool   `json:"enabled" yaml:"enabled"`
}

// DefaultConfig returns the publisher defaults; disabled until the
// operator opts in.
func DefaultConfig() *Config {
	return &Config{
		Broker:      "localhost",
		Port:        1883,
		ClientID:    "boattrackd",
		TopicPrefix: "boat",
		QoS:         1,
		Retain:      false,
		Enabled:     false,
	}
}

// NewPublisher creates a publisher. Connect must be called before use.
func NewPublisher(config *Config, logger *logx.Logger) *Publisher {
	return &Publisher{config: config, logger: logger}
}

// Connect establishes the broker connection. A disabled publisher
// connects to nothing and every publish becomes a no-op.
func (p *Publisher) Connect() error {
	if !p.config.Enabled {
		p.logger.Debug("mqtt_disabled")
		return nil
	}

	opts := MQTT.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", p.config.Broker, p.config.Port))
	opts.SetClientID(p.config.ClientID)

	if p.config.Username != "" {
		opts.SetUsername(p.config.Username)
		opts.SetPassword(p.config.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(1 * time.Minute)
	opts.SetOnConnectHandler(p.onConnect)
	opts.SetConnectionLostHandler(p.onConnectionLost)

	p.client = MQTT.NewClient(opts)

	if token := p.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	p.logger.Info("mqtt_connected", "broker", p.config.Broker, "port", p.config.Port)
	return nil
}

// Disconnect closes the broker connection.
func (p *Publisher) Disconnect() {
	if p.client != nil && p.connected {
		p.client.Disconnect(250)
		p.connected = false
		p.logger.Info("mqtt_disconnected")
	}
}

func (p *Publisher) onConnect(client MQTT.Client) {
	p.connected = true
	p.logger.Info("mqtt_connection_established")
}

func (p *Publisher) onConnectionLost(client MQTT.Client, err error) {
	p.connected = false
	p.logger.Error("mqtt_connection_lost", "error", err)
}

// PublishEvent mirrors a telemetry event onto the topic matching its
// type: <prefix>/position, <prefix>/error or <prefix>/state.
func (p *Publisher) PublishEvent(ev telem.Event) error {
	if !p.ready() {
		return nil
	}
	topic := fmt.Sprintf("%s/%s", p.config.TopicPrefix, ev.Type)
	return p.publishJSON(topic, ev)
}

// PublishTrip publishes the current trip summary to <prefix>/trip.
func (p *Publisher) PublishTrip(stats trip.Stats) error {
	if !p.ready() {
		return nil
	}
	topic := fmt.Sprintf("%s/trip", p.config.TopicPrefix)
	return p.publishJSON(topic, stats)
}

// IsConnected reports live broker connectivity.
func (p *Publisher) IsConnected() bool {
	return p.connected && p.client != nil && p.client.IsConnected()
}

func (p *Publisher) ready() bool {
	return p.config.Enabled && p.connected
}

func (p *Publisher) publishJSON(topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	token := p.client.Publish(topic, byte(p.config.QoS), p.config.Retain, data)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, token.Error())
	}

	p.logger.Debug("mqtt_published", "topic", topic, "size", len(data))
	return nil
}
