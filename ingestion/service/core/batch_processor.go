package service

import (
	"context"
	"log"
	"sync"
	"time"

	"agrochain/config"
	"agrochain/internal/messaging/producer"
	"agrochain/internal/models"
)

// BatchProcessor buffers messages for appended events and publishes them in
// batches. It implements events.Publisher; publication is best effort and never
// blocks the request that appended the event.
type BatchProcessor struct {
	batchSize     int
	batchTimeout  time.Duration
	maxBufferSize int
	logger        *log.Logger
	producer      producer.Producer

	buffer      []*models.EventMessage
	bufferMutex sync.Mutex
	closed      bool
	flushChan   chan []*models.EventMessage

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBatchProcessor starts the timer and publisher goroutines
func NewBatchProcessor(cfg config.BatchProcessorConfig, p producer.Producer, logger *log.Logger) *BatchProcessor {
	ctx, cancel := context.WithCancel(context.Background())

	bp := &BatchProcessor{
		batchSize:     cfg.BatchSize,
		batchTimeout:  cfg.BatchTimeout,
		maxBufferSize: cfg.MaxBufferSize,
		logger:        logger,
		producer:      p,
		buffer:        make([]*models.EventMessage, 0, cfg.BatchSize),
		flushChan:     make(chan []*models.EventMessage, cfg.FlushChannelBuffer),
		ctx:           ctx,
		cancel:        cancel,
	}

	bp.wg.Add(2)
	go bp.batchTimer()
	go bp.batchPublisher()

	return bp
}

// PublishEvent queues the message form of ev
func (bp *BatchProcessor) PublishEvent(_ context.Context, ev *models.TraceabilityEvent, batchCode string) {
	bp.Submit(models.NewEventMessage(ev, batchCode))
}

// Submit queues msg, dropping it when the buffer is at capacity
func (bp *BatchProcessor) Submit(msg *models.EventMessage) {
	bp.bufferMutex.Lock()
	if bp.closed {
		bp.bufferMutex.Unlock()
		bp.logger.Printf("Batch processor closed, dropping event %s", msg.EventID)
		return
	}
	if bp.maxBufferSize > 0 && len(bp.buffer) >= bp.maxBufferSize {
		bp.bufferMutex.Unlock()
		bp.logger.Printf("Publish buffer full (%d), dropping event %s", bp.maxBufferSize, msg.EventID)
		return
	}
	bp.buffer = append(bp.buffer, msg)
	shouldFlush := len(bp.buffer) >= bp.batchSize
	bp.bufferMutex.Unlock()

	if shouldFlush {
		bp.flushIfNeeded()
	}
}

func (bp *BatchProcessor) batchTimer() {
	defer bp.wg.Done()

	ticker := time.NewTicker(bp.batchTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			bp.flushIfNeeded()
		case <-bp.ctx.Done():
			return
		}
	}
}

func (bp *BatchProcessor) batchPublisher() {
	defer bp.wg.Done()

	for {
		select {
		case batch := <-bp.flushChan:
			bp.publish(batch)
		case <-bp.ctx.Done():
			// drain queued batches, then whatever is still buffered
		drain:
			for {
				select {
				case batch := <-bp.flushChan:
					bp.publish(batch)
				default:
					break drain
				}
			}
			bp.publish(bp.takeBuffer())
			return
		}
	}
}

// flushIfNeeded hands the buffer to the publisher; if the flush channel is full
// the entries stay buffered for the next tick
func (bp *BatchProcessor) flushIfNeeded() {
	batch := bp.takeBuffer()
	if len(batch) == 0 {
		return
	}

	select {
	case bp.flushChan <- batch:
	default:
		bp.bufferMutex.Lock()
		bp.buffer = append(batch, bp.buffer...)
		bp.bufferMutex.Unlock()
	}
}

func (bp *BatchProcessor) takeBuffer() []*models.EventMessage {
	bp.bufferMutex.Lock()
	defer bp.bufferMutex.Unlock()

	if len(bp.buffer) == 0 {
		return nil
	}
	batch := make([]*models.EventMessage, len(bp.buffer))
	copy(batch, bp.buffer)
	bp.buffer = bp.buffer[:0]
	return batch
}

func (bp *BatchProcessor) publish(batch []*models.EventMessage) {
	if len(batch) == 0 {
		return
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := bp.producer.PublishBatch(ctx, batch); err != nil {
		// events are already committed; the engine can be re-fed from the table
		bp.logger.Printf("Batch publish of %d events failed: %v", len(batch), err)
		return
	}
	bp.logger.Printf("Batch published: %d events in %v", len(batch), time.Since(start))
}

// Close publishes what is buffered and stops the goroutines
func (bp *BatchProcessor) Close() {
	bp.bufferMutex.Lock()
	bp.closed = true
	bp.bufferMutex.Unlock()

	bp.cancel()
	bp.wg.Wait()
}
