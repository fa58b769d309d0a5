// Package feed adapts the upstream plant feed (PLC gateway publishing over
// MQTT) into a stream of raw readings. Reconnection is the engine's
// responsibility; the adapter only reports state.
package feed

// Reading is one raw upstream record, as published by the plant gateway.
type Reading struct {
	SourceID  string `json:"node_id"`
	Value     any    `json:"value"`
	Timestamp string `json:"timestamp"`
	Quality   string `json:"quality"`
}

// Adapter is the boundary the core consumes the plant feed through.
type Adapter interface {
	Connect() error
	Disconnect()
	IsConnected() bool
	// Subscribe registers the reading callback and the raw command
	// callback. Must be re-invoked after every successful reconnect.
	Subscribe(onReading func(Reading), onCommand func(topic string, payload []byte)) error
}
