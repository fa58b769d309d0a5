// Package messaging publishes core status and lifecycle events to the
// plant's broker. Two backends are supported: MQTT for on-site brokers and
// Kafka where the site aggregates into a cluster.
package messaging

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"cellcore/config"
)

// backend is the transport behind the client. Implementations must be safe
// for concurrent Publish calls.
type backend interface {
	Connect() error
	Publish(topic string, payload []byte) error
	IsConnected() bool
	Close()
}

// Client is the publish-side messaging facade. Payloads are JSON-encoded
// before they reach the backend.
type Client struct {
	mu      sync.RWMutex
	cfg     *config.MessagingConfig
	backend backend
}

func NewClient(cfg *config.MessagingConfig) (*Client, error) {
	b, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{cfg: cfg, backend: b}, nil
}

func newBackend(cfg *config.MessagingConfig) (backend, error) {
	switch cfg.Backend {
	case "mqtt":
		return newMQTTBackend(cfg), nil
	case "kafka":
		return newKafkaBackend(cfg), nil
	default:
		return nil, fmt.Errorf("messaging: unsupported backend %q", cfg.Backend)
	}
}

func (c *Client) Connect() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.backend.Connect()
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.backend.IsConnected()
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.backend.Close()
}

// Publish JSON-encodes payload and sends it on topic. Publish failures are
// logged, not returned: status publishing is best effort and must never
// stall the core.
func (c *Client) Publish(topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("messaging: marshal %s: %v", topic, err)
		return
	}
	c.mu.RLock()
	b := c.backend
	c.mu.RUnlock()
	if err := b.Publish(topic, data); err != nil {
		log.Printf("messaging: publish %s: %v", topic, err)
	}
}

// Reconfigure swaps the backend for one built from the new config. The old
// backend is closed after the new one connects.
func (c *Client) Reconfigure(cfg *config.MessagingConfig) error {
	nb, err := newBackend(cfg)
	if err != nil {
		return err
	}
	if err := nb.Connect(); err != nil {
		return err
	}
	c.mu.Lock()
	old := c.backend
	c.backend = nb
	c.cfg = cfg
	c.mu.Unlock()
	old.Close()
	return nil
}

// Topic builds "<prefix>/<parts...>".
func (c *Client) Topic(parts ...string) string {
	t := c.cfg.TopicPrefix
	for _, p := range parts {
		t += "/" + p
	}
	return t
}
