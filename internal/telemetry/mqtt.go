package telemetry

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"rtk-rover/internal/rover"
	"rtk-rover/internal/ubx"
)

type MQTTConfig struct {
	BrokerURL string
	ClientID  string
	Topic     string
	Username  string
	Password  string
}

// MQTT publishes position reports to a broker, retained so late subscribers
// immediately see the last known position.
type MQTT struct {
	client mqtt.Client
	topic  string
}

func NewMQTT(cfg MQTTConfig) (*MQTT, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.BrokerURL, token.Error())
	}
	log.Printf("mqtt connected broker=%s topic=%s", cfg.BrokerURL, cfg.Topic)
	return &MQTT{client: client, topic: cfg.Topic}, nil
}

func (m *MQTT) Publish(fix ubx.PositionFix, stats rover.Statistics, aux rover.Aux) error {
	body, err := json.Marshal(buildPayload(fix, stats, aux))
	if err != nil {
		return fmt.Errorf("mqtt marshal: %w", err)
	}
	token := m.client.Publish(m.topic, 0, true, body)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("mqtt publish: %w", token.Error())
	}
	return nil
}

func (m *MQTT) Close() {
	m.client.Disconnect(250)
}
