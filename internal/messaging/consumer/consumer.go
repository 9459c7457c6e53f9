package consumer

import (
	"context"

	"agrochain/internal/models"
)

// Consumer reads published event messages.
type Consumer interface {
	// Consume blocks until a message is received or the context is cancelled.
	// ack(true) commits the message; ack(false) leaves it for redelivery.
	Consume(ctx context.Context) (msg *models.EventMessage, ack func(success bool), err error)

	// Close shuts down the consumer connection.
	Close() error
}
