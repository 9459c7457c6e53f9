package producer

import (
	"context"
	"sync"

	"agrochain/internal/models"
)

// MockProducer records published messages in memory. Err, when set, is returned
// by every publish call.
type MockProducer struct {
	mu        sync.Mutex
	published []*models.EventMessage
	batches   int
	Err       error
}

// NewMockProducer creates an empty MockProducer
func NewMockProducer() *MockProducer {
	return &MockProducer{}
}

func (m *MockProducer) Publish(_ context.Context, msg *models.EventMessage) error {
	return m.PublishBatch(context.Background(), []*models.EventMessage{msg})
}

func (m *MockProducer) PublishBatch(_ context.Context, msgs []*models.EventMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.published = append(m.published, msgs...)
	m.batches++
	return nil
}

// Published returns a copy of everything published so far
func (m *MockProducer) Published() []*models.EventMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.EventMessage, len(m.published))
	copy(out, m.published)
	return out
}

// Batches returns how many publish calls succeeded
func (m *MockProducer) Batches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batches
}

func (m *MockProducer) Close() error { return nil }

var _ Producer = (*MockProducer)(nil)
