package store

import (
	"context"
	"errors"
	"time"

	"agrochain/internal/models"
)

var (
	// ErrNotFound is returned when a single-row lookup has no match
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique key (e.g. batch_code) already exists
	ErrDuplicate = errors.New("duplicate record")
)

// Anchor status values tracked on each traceability event
const (
	AnchorPending   = "PENDING"
	AnchorAnchoring = "ANCHORING"
	AnchorAnchored  = "ANCHORED"
	AnchorFailed    = "FAILED"
)

// BatchStore is CRUD over the batches table plus the read-only contract and farmer lookups
type BatchStore interface {
	CreateBatch(ctx context.Context, b *models.Batch) error
	GetBatchByID(ctx context.Context, id string) (*models.Batch, error)
	GetBatchByCode(ctx context.Context, code string) (*models.Batch, error)
	// FindLatestBatchByContract returns the newest batch linked to contractID
	FindLatestBatchByContract(ctx context.Context, contractID string) (*models.Batch, error)
	ListBatchesByFarmer(ctx context.Context, farmerID string) ([]models.Batch, error)
	UpdateBatchStatus(ctx context.Context, id string, status models.BatchStatus) error
	UpdateBatchLocation(ctx context.Context, id, location string, lat, lng *float64) error

	GetContract(ctx context.Context, id string) (*models.Contract, error)
	GetContractByCode(ctx context.Context, code string) (*models.Contract, error)
	GetFarmer(ctx context.Context, id string) (*models.Farmer, error)
}

// EventStore is the append-only traceability_events table. No update or delete
// of event content is exposed; only anchor bookkeeping columns change.
type EventStore interface {
	InsertEvent(ctx context.Context, ev *models.TraceabilityEvent) error
	// ListEventsByBatch returns events ascending by creation time
	ListEventsByBatch(ctx context.Context, batchID string) ([]models.TraceabilityEvent, error)
}

// AnchorTask is the anchoring state of one event
type AnchorTask struct {
	EventID   string
	EventHash string
	Status    string
	Attempts  int
}

// AnchorCompletion records a successful ledger anchoring
type AnchorCompletion struct {
	EventID     string
	TxHash      string
	HashOnChain string
	BlockHeight uint64
}

// AnchorFailure records a permanent anchoring failure
type AnchorFailure struct {
	EventID      string
	ErrorMessage string
}

// AnchorStore tracks ledger anchoring of event hashes
type AnchorStore interface {
	// GetAndMarkEventsForAnchoring moves eligible events to ANCHORING and returns their
	// state. Events that already used maxRetries attempts are marked FAILED and returned
	// with that status; already anchored events are omitted.
	GetAndMarkEventsForAnchoring(ctx context.Context, eventIDs []string, maxRetries int) (map[string]*AnchorTask, error)
	MarkAnchorsCompleted(ctx context.Context, records []AnchorCompletion) error
	MarkAnchorsFailed(ctx context.Context, records []AnchorFailure) error
	MarkAnchorsForRetry(ctx context.Context, eventIDs []string, errMsg string) error
}

// ProcessingStore persists warehouse workflow state, one row per batch
type ProcessingStore interface {
	GetProcessingResult(ctx context.Context, batchID string) (*models.ProcessingResult, error)
	SaveProcessingResult(ctx context.Context, r *models.ProcessingResult) error
}

// ActivityStore is the growth_activities table
type ActivityStore interface {
	InsertActivity(ctx context.Context, a *models.GrowthActivity) error
	// ListActivitiesByContract returns newest first; farmerID filters when non-empty
	ListActivitiesByContract(ctx context.Context, contractID, farmerID string) ([]models.GrowthActivity, error)
	ListActivitiesByFarmer(ctx context.Context, farmerID string, limit int) ([]models.GrowthActivity, error)
}

// Store is the full persistence handle built by the composition root
type Store interface {
	BatchStore
	EventStore
	AnchorStore
	ProcessingStore
	ActivityStore
	Close()
}

// timeNow is replaced in tests
var timeNow = time.Now
