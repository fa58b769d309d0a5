package messaging

import (
	"context"
	"fmt"
	"sync"

	"github.com/segmentio/kafka-go"

	"cellcore/config"
)

// kafkaBackend writes every logical topic to one kafka topic per name.
// Writers are created lazily and reused; the kafka client manages its own
// connections so IsConnected only reflects configuration state.
type kafkaBackend struct {
	cfg *config.MessagingConfig

	mu      sync.Mutex
	writers map[string]*kafka.Writer
	open    bool
}

func newKafkaBackend(cfg *config.MessagingConfig) *kafkaBackend {
	return &kafkaBackend{cfg: cfg, writers: make(map[string]*kafka.Writer)}
}

func (b *kafkaBackend) Connect() error {
	if len(b.cfg.KafkaBrokers) == 0 {
		return fmt.Errorf("messaging: no kafka brokers configured")
	}
	b.mu.Lock()
	b.open = true
	b.mu.Unlock()
	return nil
}

func (b *kafkaBackend) writer(topic string) (*kafka.Writer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return nil, fmt.Errorf("messaging: kafka backend closed")
	}
	if w, ok := b.writers[topic]; ok {
		return w, nil
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(b.cfg.KafkaBrokers...),
		Topic:        kafkaTopic(topic),
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: b.cfg.WriteTimeout(),
		Async:        false,
	}
	b.writers[topic] = w
	return w, nil
}

func (b *kafkaBackend) Publish(topic string, payload []byte) error {
	w, err := b.writer(topic)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.WriteTimeout())
	defer cancel()
	return w.WriteMessages(ctx, kafka.Message{Value: payload})
}

func (b *kafkaBackend) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

func (b *kafkaBackend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, w := range b.writers {
		w.Close()
	}
	b.writers = make(map[string]*kafka.Writer)
	b.open = false
}

// kafkaTopic maps slash topics onto kafka's dot naming.
func kafkaTopic(topic string) string {
	out := make([]byte, len(topic))
	for i := 0; i < len(topic); i++ {
		if topic[i] == '/' {
			out[i] = '.'
		} else {
			out[i] = topic[i]
		}
	}
	return string(out)
}
