package events

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"agrochain/internal/models"
	"agrochain/storage/store"
	"agrochain/traceability/hash"

	"github.com/google/uuid"
)

// Publisher is notified after an event is committed. It must not block.
type Publisher interface {
	PublishEvent(ctx context.Context, ev *models.TraceabilityEvent, batchCode string)
}

// Log is the append-only traceability event log
type Log struct {
	events    store.EventStore
	batches   store.BatchStore
	hasher    *hash.Hasher
	resolvers []Resolver
	publisher Publisher
	logger    *log.Logger
	now       func() time.Time
}

// NewLog creates an event Log resolving external keys with DefaultResolvers
func NewLog(events store.EventStore, batches store.BatchStore, hasher *hash.Hasher, logger *log.Logger) *Log {
	return &Log{
		events:    events,
		batches:   batches,
		hasher:    hasher,
		resolvers: DefaultResolvers(batches),
		logger:    logger,
		now:       time.Now,
	}
}

// SetPublisher registers the post-commit hook
func (l *Log) SetPublisher(p Publisher) {
	l.publisher = p
}

// Hasher returns the fingerprinting mode in use
func (l *Log) Hasher() *hash.Hasher {
	return l.hasher
}

// AddEvent stamps, hashes and persists ev and returns the stored copy.
// Contract and farmer links default to the owning batch's.
func (l *Log) AddEvent(ctx context.Context, ev *models.TraceabilityEvent) (*models.TraceabilityEvent, error) {
	if ev == nil {
		return nil, &models.ValidationError{Field: "event", Message: "is required"}
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	batch, err := l.batches.GetBatchByID(ctx, ev.BatchID)
	if err != nil {
		return nil, fmt.Errorf("batch %s: %w", ev.BatchID, err)
	}

	stored := *ev
	stored.ID = uuid.NewString()
	// anchor columns are written by the anchor engine only
	stored.AnchorTxHash = ""
	stored.AnchorBlockHeight = 0
	// timestamptz keeps microseconds; the hashed instant must survive a round trip
	stored.CreatedAt = l.now().UTC().Truncate(time.Microsecond)
	if stored.ContractID == nil {
		stored.ContractID = batch.ContractID
	}
	if stored.FarmerID == nil {
		stored.FarmerID = batch.FarmerID
	}
	stored.EventHash = l.hasher.Hash(hash.InputFromEvent(&stored), stored.CreatedAt)

	if err := l.events.InsertEvent(ctx, &stored); err != nil {
		return nil, fmt.Errorf("failed to append %s event to batch %s: %w", stored.EventType, batch.BatchCode, err)
	}

	if l.publisher != nil {
		l.publisher.PublishEvent(ctx, &stored, batch.BatchCode)
	}
	return &stored, nil
}

// GetEventsForBatch returns the batch's events in creation order; empty, not an error, when there are none
func (l *Log) GetEventsForBatch(ctx context.Context, batchID string) ([]models.TraceabilityEvent, error) {
	evs, err := l.events.ListEventsByBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events for batch %s: %w", batchID, err)
	}
	if evs == nil {
		evs = []models.TraceabilityEvent{}
	}
	return evs, nil
}

// Provenance is everything needed to render a public traceability page
type Provenance struct {
	Batch      *models.Batch              `json:"batch"`
	Events     []models.TraceabilityEvent `json:"events"`
	Farmer     *models.Farmer             `json:"farmer,omitempty"`
	Contract   *models.Contract           `json:"contract,omitempty"`
	ResolvedBy string                     `json:"resolved_by"`
}

// ResolveByExternalKey tries each resolver in order and returns the first match.
// A key nothing resolves yields (nil, nil).
func (l *Log) ResolveByExternalKey(ctx context.Context, key string) (*Provenance, error) {
	if key == "" {
		return nil, nil
	}

	var (
		batch *models.Batch
		by    string
	)
	for _, r := range l.resolvers {
		b, err := r.Resolve(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("%s lookup of '%s' failed: %w", r.Name(), key, err)
		}
		if b != nil {
			batch, by = b, r.Name()
			break
		}
	}
	if batch == nil {
		l.logger.Printf("Trace lookup: no batch for key '%s'", key)
		return nil, nil
	}

	evs, err := l.GetEventsForBatch(ctx, batch.ID)
	if err != nil {
		return nil, err
	}
	p := &Provenance{Batch: batch, Events: evs, ResolvedBy: by}

	if batch.ContractID != nil {
		p.Contract = l.optionalContract(ctx, *batch.ContractID)
	}
	farmerID := ""
	if batch.FarmerID != nil {
		farmerID = *batch.FarmerID
	} else if p.Contract != nil {
		farmerID = p.Contract.FarmerID
	}
	if farmerID != "" {
		p.Farmer = l.optionalFarmer(ctx, farmerID)
	}
	return p, nil
}

func (l *Log) optionalContract(ctx context.Context, id string) *models.Contract {
	c, err := l.batches.GetContract(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			l.logger.Printf("Trace lookup: contract %s unavailable: %v", id, err)
		}
		return nil
	}
	return c
}

func (l *Log) optionalFarmer(ctx context.Context, id string) *models.Farmer {
	f, err := l.batches.GetFarmer(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			l.logger.Printf("Trace lookup: farmer %s unavailable: %v", id, err)
		}
		return nil
	}
	return f
}
