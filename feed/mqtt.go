package feed

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"cellcore/config"
)

// MQTTClient consumes plant readings from an MQTT broker. The gateway
// publishes data points on <prefix>/plc/# and operator commands arrive on
// <prefix>/commands/#.
type MQTTClient struct {
	cfg    *config.FeedConfig
	client mqtt.Client

	mu        sync.RWMutex
	connected bool
}

func NewMQTTClient(cfg *config.FeedConfig) *MQTTClient {
	c := &MQTTClient{cfg: cfg}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(false) // the engine owns the reconnect schedule
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		log.Printf("feed: connection lost: %v", err)
	}
	c.client = mqtt.NewClient(opts)
	return c
}

func (c *MQTTClient) Connect() error {
	token := c.client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("feed: connect timeout (%s)", c.cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("feed: connect: %w", err)
	}
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	return nil
}

func (c *MQTTClient) Disconnect() {
	if c.client.IsConnected() {
		c.client.Disconnect(250)
	}
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
}

func (c *MQTTClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.client.IsConnected()
}

// Subscribe registers the plc and command subscriptions. A reading whose
// payload is not valid JSON is still delivered, carrying the raw payload as
// its value, so the pipeline can count and drop it.
func (c *MQTTClient) Subscribe(onReading func(Reading), onCommand func(topic string, payload []byte)) error {
	plcTopic := c.cfg.TopicPrefix + "/plc/#"
	token := c.client.Subscribe(plcTopic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var r Reading
		if err := json.Unmarshal(msg.Payload(), &r); err != nil {
			r = Reading{Value: string(msg.Payload()), Timestamp: time.Now().Format(time.RFC3339)}
		}
		onReading(r)
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("feed: subscribe timeout (%s)", plcTopic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("feed: subscribe %s: %w", plcTopic, err)
	}

	cmdTopic := c.cfg.TopicPrefix + "/commands/#"
	token = c.client.Subscribe(cmdTopic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		onCommand(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("feed: subscribe timeout (%s)", cmdTopic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("feed: subscribe %s: %w", cmdTopic, err)
	}
	return nil
}
