// Package lifecycle holds the batch status state machine and the convenience
// loggers that pair a status change with an appended event.
//
// The machine is advisory: any status may follow any other (last write wins).
// Rank is only used by callers that want to move a batch forward when it is behind.
package lifecycle

import (
	"context"
	"fmt"
	"log"

	"agrochain/internal/models"
	"agrochain/storage/store"
)

// Machine applies status transitions to batches
type Machine struct {
	batches store.BatchStore
	logger  *log.Logger
}

// NewMachine creates a Machine over the batch store
func NewMachine(batches store.BatchStore, logger *log.Logger) *Machine {
	return &Machine{batches: batches, logger: logger}
}

// Transition sets the batch status without checking the current one
func (m *Machine) Transition(ctx context.Context, batchID string, target models.BatchStatus) error {
	if !target.Valid() {
		return &models.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status '%s'", target)}
	}
	if err := m.batches.UpdateBatchStatus(ctx, batchID, target); err != nil {
		return fmt.Errorf("failed to set batch %s to %s: %w", batchID, target, err)
	}
	return nil
}

// Advance sets target only when the batch currently ranks below it. It reports
// whether the status changed.
func (m *Machine) Advance(ctx context.Context, batchID string, target models.BatchStatus) (bool, error) {
	b, err := m.batches.GetBatchByID(ctx, batchID)
	if err != nil {
		return false, fmt.Errorf("batch %s: %w", batchID, err)
	}
	if b.CurrentStatus.Rank() >= target.Rank() {
		return false, nil
	}
	if err := m.Transition(ctx, batchID, target); err != nil {
		return false, err
	}
	return true, nil
}
