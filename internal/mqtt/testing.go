// testing.go: mock Client implementation for tests in other packages.
package mqtt

import (
	"context"
	"sync"
)

// MockMessage is one payload captured by the mock client.
type MockMessage struct {
	Topic   string
	Payload string
}

// MockClient is an in-memory Client for tests. It records every publish
// and lets tests inject inbound messages to subscribed handlers.
type MockClient struct {
	mu         sync.Mutex
	connected  bool
	ConnectErr error
	PublishErr error
	Messages   []MockMessage
	handlers   map[string]func(topic, payload string)
}

// NewMockClient returns a disconnected mock client.
func NewMockClient() *MockClient { return &MockClient{} }

func (m *MockClient) Connect(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ConnectErr != nil {
		return m.ConnectErr
	}
	m.connected = true
	return nil
}

func (m *MockClient) Publish(_ context.Context, topic, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.Messages = append(m.Messages, MockMessage{Topic: topic, Payload: payload})
	return nil
}

func (m *MockClient) Subscribe(topic string, handler func(topic, payload string)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handlers == nil {
		m.handlers = make(map[string]func(topic, payload string))
	}
	m.handlers[topic] = handler
	return nil
}

// Inject delivers a payload to the handler subscribed on topic.
func (m *MockClient) Inject(topic, payload string) {
	m.mu.Lock()
	handler := m.handlers[topic]
	m.mu.Unlock()
	if handler != nil {
		handler(topic, payload)
	}
}

func (m *MockClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockClient) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
}

// Published returns a copy of the captured messages.
func (m *MockClient) Published() []MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockMessage, len(m.Messages))
	copy(out, m.Messages)
	return out
}
