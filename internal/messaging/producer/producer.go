package producer

import (
	"context"

	"agrochain/internal/models"
)

// Producer publishes traceability event messages
type Producer interface {
	// Publish sends a single event message
	Publish(ctx context.Context, msg *models.EventMessage) error

	// PublishBatch sends event messages in one write
	PublishBatch(ctx context.Context, msgs []*models.EventMessage) error

	// Close flushes and closes the producer connection
	Close() error
}
