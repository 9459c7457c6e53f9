package consumer

import (
	"context"
	"errors"
	"log"
	"sync"

	"agrochain/internal/models"
)

// MockConsumer serves queued messages from a channel and records acknowledgements.
// A NACKed message is queued again.
type MockConsumer struct {
	logger   *log.Logger
	messages chan *models.EventMessage

	mu     sync.Mutex
	closed bool
	acked  map[string]int
	nacks  map[string]int
}

// NewMockConsumer creates a MockConsumer preloaded with msgs
func NewMockConsumer(logger *log.Logger, msgs ...*models.EventMessage) *MockConsumer {
	mc := &MockConsumer{
		logger:   logger,
		messages: make(chan *models.EventMessage, len(msgs)+64),
		acked:    make(map[string]int),
		nacks:    make(map[string]int),
	}
	for _, msg := range msgs {
		mc.messages <- msg
	}
	logger.Printf("[MockConsumer] Loaded %d messages", len(msgs))
	return mc
}

// Push queues another message
func (m *MockConsumer) Push(msg *models.EventMessage) {
	m.messages <- msg
}

// Consume returns the next queued message
func (m *MockConsumer) Consume(ctx context.Context) (*models.EventMessage, func(success bool), error) {
	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case msg, ok := <-m.messages:
		if !ok || msg == nil {
			return nil, nil, errors.New("message channel closed")
		}
		ack := func(success bool) {
			m.mu.Lock()
			defer m.mu.Unlock()
			if success {
				m.acked[msg.EventID]++
				return
			}
			m.nacks[msg.EventID]++
			if m.closed {
				return
			}
			select {
			case m.messages <- msg:
			default:
				m.logger.Printf("[MockConsumer] Warning: failed to re-queue event %s", msg.EventID)
			}
		}
		return msg, ack, nil
	}
}

// Acked returns how many times eventID was acknowledged
func (m *MockConsumer) Acked(eventID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acked[eventID]
}

// Nacked returns how many times eventID was negatively acknowledged
func (m *MockConsumer) Nacked(eventID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nacks[eventID]
}

// Close closes the message channel
func (m *MockConsumer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.messages)
	}
	return nil
}

var _ Consumer = (*MockConsumer)(nil)
