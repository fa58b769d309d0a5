package messaging

import (
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"cellcore/config"
)

type mqttBackend struct {
	cfg *config.MessagingConfig

	mu     sync.Mutex
	client mqtt.Client
}

func newMQTTBackend(cfg *config.MessagingConfig) *mqttBackend {
	return &mqttBackend{cfg: cfg}
}

func (b *mqttBackend) Connect() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(b.cfg.Broker)
	opts.SetClientID(b.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(5 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("messaging: mqtt connect timeout (%s)", b.cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("messaging: mqtt connect: %w", err)
	}
	b.mu.Lock()
	b.client = client
	b.mu.Unlock()
	return nil
}

func (b *mqttBackend) Publish(topic string, payload []byte) error {
	b.mu.Lock()
	client := b.client
	b.mu.Unlock()
	if client == nil || !client.IsConnected() {
		return fmt.Errorf("messaging: mqtt not connected")
	}
	token := client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(b.cfg.WriteTimeout()) {
		return fmt.Errorf("messaging: mqtt publish timeout (%s)", topic)
	}
	return token.Error()
}

func (b *mqttBackend) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.client != nil && b.client.IsConnected()
}

func (b *mqttBackend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client != nil && b.client.IsConnected() {
		b.client.Disconnect(250)
	}
	b.client = nil
}
