// Package worker is the anchor engine: it consumes published event messages and
// records their hashes on the ledger in batches.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"agrochain/blockchain/types"
	"agrochain/config"
	"agrochain/internal/messaging/consumer"
	"agrochain/internal/models"
	"agrochain/storage/store"
)

// Anchorer is the part of the ledger client the engine needs
type Anchorer interface {
	SubmitAnchorsBatch(ctx context.Context, entries []types.AnchorEntry) (*types.BatchProof, []types.AnchorStatusInfo, error)
}

// Worker anchors event hashes in batches
type Worker struct {
	workerConfig       config.WorkerConfig
	batchTimeout       time.Duration
	consumerRetryDelay time.Duration
	blockchainTimeout  time.Duration

	maxAnchorRetries int
	logger           *log.Logger
	store            store.AnchorStore
	consumer         consumer.Consumer
	ledger           Anchorer
}

// New creates a new Worker instance
func New(cfg config.WorkerConfig, maxAnchorRetries int, logger *log.Logger, s store.AnchorStore, c consumer.Consumer, ledger Anchorer) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	batchTimeout, err := time.ParseDuration(cfg.BatchTimeout)
	if err != nil {
		logger.Printf("Warning: Invalid batch_timeout '%s', using default 2s", cfg.BatchTimeout)
		batchTimeout = 2 * time.Second
	}

	consumerRetryDelay, err := time.ParseDuration(cfg.ConsumerRetryDelay)
	if err != nil {
		logger.Printf("Warning: Invalid consumer_retry_delay '%s', using default 5s", cfg.ConsumerRetryDelay)
		consumerRetryDelay = 5 * time.Second
	}

	blockchainTimeout, err := time.ParseDuration(cfg.BlockchainTimeout)
	if err != nil {
		logger.Printf("Warning: Invalid blockchain_timeout '%s', using default 15s", cfg.BlockchainTimeout)
		blockchainTimeout = 15 * time.Second
	}

	return &Worker{
		workerConfig:       cfg,
		batchTimeout:       batchTimeout,
		consumerRetryDelay: consumerRetryDelay,
		blockchainTimeout:  blockchainTimeout,
		maxAnchorRetries:   maxAnchorRetries,
		logger:             logger,
		store:              s,
		consumer:           c,
		ledger:             ledger,
	}
}

// Run starts the worker pool and blocks until ctx is cancelled
func (w *Worker) Run(ctx context.Context) {
	w.logger.Printf("Starting anchor workers with concurrency: %d, BatchSize: %d, BatchTimeout: %s",
		w.workerConfig.Concurrency, w.workerConfig.BatchSize, w.batchTimeout)
	var wg sync.WaitGroup
	for i := 0; i < w.workerConfig.Concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.logger.Printf("Worker %d started", workerID)
			w.processMessagesInBatch(ctx, workerID)
			w.logger.Printf("Worker %d stopped", workerID)
		}(i + 1)
	}
	wg.Wait()
	w.logger.Println("Anchor worker pool stopped.")
}

// processMessagesInBatch is the main loop for a worker goroutine
func (w *Worker) processMessagesInBatch(ctx context.Context, workerID int) {
	batchMessages := make([]*models.EventMessage, 0, w.workerConfig.BatchSize)
	acks := make([]func(success bool), 0, w.workerConfig.BatchSize)
	batchTimer := time.NewTimer(0)
	if !batchTimer.Stop() {
		select {
		case <-batchTimer.C:
		default:
		}
	}

	processBatch := func() {
		if len(batchMessages) == 0 {
			return
		}
		if !batchTimer.Stop() {
			select {
			case <-batchTimer.C:
			default:
			}
		}

		w.processAndAckBatch(ctx, workerID, batchMessages, acks)

		batchMessages = make([]*models.EventMessage, 0, w.workerConfig.BatchSize)
		acks = make([]func(success bool), 0, w.workerConfig.BatchSize)
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Printf("Worker %d: Context cancelled, stopping.", workerID)
			for _, ack := range acks {
				ack(false)
			}
			return

		case <-batchTimer.C:
			processBatch()

		default:
			consumeCtx, consumeCancel := context.WithTimeout(ctx, 100*time.Millisecond)
			msg, ack, err := w.consumer.Consume(consumeCtx)
			consumeCancel()

			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
					continue
				}
				w.logger.Printf("Worker %d: Consumer error: %v", workerID, err)
				select {
				case <-ctx.Done():
				case <-time.After(w.consumerRetryDelay):
				}
				continue
			}
			if msg == nil {
				continue
			}

			if len(batchMessages) == 0 {
				batchTimer.Reset(w.batchTimeout)
			}
			batchMessages = append(batchMessages, msg)
			acks = append(acks, ack)

			if len(batchMessages) >= w.workerConfig.BatchSize {
				processBatch()
			}
		}
	}
}

// processAndAckBatch acks every message of a handled batch and nacks all of them
// when the ledger call failed, so they are redelivered
func (w *Worker) processAndAckBatch(ctx context.Context, workerID int, batch []*models.EventMessage, acks []func(success bool)) {
	if err := w.handleBatch(ctx, batch); err != nil {
		w.logger.Printf("Worker %d: Batch failed: %v (nacking %d messages)", workerID, err, len(acks))
		for _, ack := range acks {
			ack(false)
		}
		return
	}
	for _, ack := range acks {
		ack(true)
	}
}

func (w *Worker) handleBatch(ctx context.Context, batch []*models.EventMessage) error {
	batchStart := time.Now()

	eventIDs := make([]string, 0, len(batch))
	msgMap := make(map[string]*models.EventMessage, len(batch))
	for _, msg := range batch {
		if msg == nil || msg.EventID == "" {
			continue
		}
		if _, seen := msgMap[msg.EventID]; seen {
			continue
		}
		eventIDs = append(eventIDs, msg.EventID)
		msgMap[msg.EventID] = msg
	}
	if len(eventIDs) == 0 {
		return nil
	}

	dbStart := time.Now()
	tasks, err := w.store.GetAndMarkEventsForAnchoring(ctx, eventIDs, w.maxAnchorRetries)
	dbQueryDuration := time.Since(dbStart)
	if err != nil {
		return fmt.Errorf("GetAndMarkEventsForAnchoring failed: %w", err)
	}

	anchoring := make(map[string]*store.AnchorTask, len(tasks))
	entries := make([]types.AnchorEntry, 0, len(tasks))
	for id, task := range tasks {
		if task.Status != store.AnchorAnchoring {
			// out of attempts; already marked FAILED by the store
			continue
		}
		msg := msgMap[id]
		anchoring[id] = task
		entries = append(entries, types.AnchorEntry{
			EventHash: task.EventHash,
			EventID:   id,
			BatchID:   msg.BatchID,
			EventType: string(msg.EventType),
			Timestamp: msg.CreatedAt,
		})
	}
	if len(entries) == 0 {
		return nil
	}

	invokeCtx, cancel := context.WithTimeout(ctx, w.blockchainTimeout)
	defer cancel()
	bcStart := time.Now()
	proof, results, err := w.ledger.SubmitAnchorsBatch(invokeCtx, entries)
	bcDuration := time.Since(bcStart)

	if err != nil {
		w.logger.Printf("Blockchain error: %v", err)
		ids := make([]string, 0, len(anchoring))
		for id := range anchoring {
			ids = append(ids, id)
		}
		if markErr := w.store.MarkAnchorsForRetry(ctx, ids, err.Error()); markErr != nil {
			w.logger.Printf("CRITICAL: MarkAnchorsForRetry failed: %v", markErr)
		}
		return fmt.Errorf("SubmitAnchorsBatch failed: %w", err)
	}

	byHash := make(map[string]types.AnchorStatusInfo, len(results))
	for _, res := range results {
		byHash[res.EventHash] = res
	}

	var completions []store.AnchorCompletion
	var failures []store.AnchorFailure
	for id, task := range anchoring {
		info, found := byHash[task.EventHash]
		switch {
		case !found:
			failures = append(failures, store.AnchorFailure{
				EventID:      id,
				ErrorMessage: fmt.Sprintf("Missing result for event_hash %s (TxID: %s)", task.EventHash, proof.TransactionID),
			})
		case info.Status.Anchored():
			completions = append(completions, store.AnchorCompletion{
				EventID:     id,
				TxHash:      proof.TransactionID,
				HashOnChain: info.EventHash,
				BlockHeight: proof.BlockHeight,
			})
		default:
			failures = append(failures, store.AnchorFailure{
				EventID:      id,
				ErrorMessage: fmt.Sprintf("Contract failed: %s - %s", info.Status, info.Message),
			})
		}
	}

	dbUpdateStart := time.Now()
	var updateErrors []string
	if len(completions) > 0 {
		if err := w.store.MarkAnchorsCompleted(ctx, completions); err != nil {
			updateErrors = append(updateErrors, fmt.Sprintf("completion update failed: %v", err))
		}
	}
	if len(failures) > 0 {
		if err := w.store.MarkAnchorsFailed(ctx, failures); err != nil {
			updateErrors = append(updateErrors, fmt.Sprintf("failure update failed: %v", err))
		}
	}
	dbUpdateDuration := time.Since(dbUpdateStart)

	w.logger.Printf("Batch performance: size=%d, anchoring=%d, completions=%d, failures=%d, db_query=%v, db_updates=%v, blockchain=%v, total=%v",
		len(batch), len(anchoring), len(completions), len(failures), dbQueryDuration, dbUpdateDuration, bcDuration, time.Since(batchStart))
	if len(updateErrors) > 0 {
		w.logger.Printf("DB update errors: %s", strings.Join(updateErrors, "; "))
	}
	return nil
}
