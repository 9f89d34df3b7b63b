package mqtt

import (
	"fmt"
	"sync"
)

// Published is a message captured by MockClient.
type Published struct {
	Channel string
	Topic   string
	Payload []byte
}

// MockClient is an in-memory Client used in tests.
type MockClient struct {
	Messages  []Published
	FailTopic map[string]bool
	Offline   bool
	mu        sync.Mutex
}

// NewMockClient creates a new MockClient.
func NewMockClient() *MockClient {
	return &MockClient{FailTopic: make(map[string]bool)}
}

// Publish records the message or fails if the topic is configured to fail.
func (m *MockClient) Publish(channel, topic string, payload []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Offline {
		return 0, ErrNotConnected
	}
	if m.FailTopic[topic] {
		return 1, fmt.Errorf("publish %s failed", topic)
	}
	m.Messages = append(m.Messages, Published{Channel: channel, Topic: topic, Payload: append([]byte(nil), payload...)})
	return 1, nil
}

func (m *MockClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.Offline
}

// Topics returns the captured topics in publish order.
func (m *MockClient) Topics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Messages))
	for i, msg := range m.Messages {
		out[i] = msg.Topic
	}
	return out
}
