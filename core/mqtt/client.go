package mqtt

// Client publishes telemetry to the broker.
type Client interface {
	// Publish sends payload on topic, retrying transient failures. channel
	// selects the QoS and is used for accounting. It returns the number of
	// attempts made.
	Publish(channel, topic string, payload []byte) (attempts int, err error)

	// IsConnected reports whether the broker link is up.
	IsConnected() bool
}
