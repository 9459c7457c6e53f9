package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"agrochain/config"
	"agrochain/internal/messaging/producer"
	"agrochain/internal/models"
	"agrochain/storage/store"
	"agrochain/traceability/batches"
	"agrochain/traceability/hash"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = log.New(io.Discard, "", 0)

func message(i int) *models.EventMessage {
	return &models.EventMessage{EventID: fmt.Sprintf("ev-%d", i), BatchID: "b", EventType: models.EventHarvest}
}

func TestBatchProcessorFlushesOnSize(t *testing.T) {
	p := producer.NewMockProducer()
	bp := NewBatchProcessor(config.BatchProcessorConfig{
		BatchSize: 3, BatchTimeout: time.Hour, MaxBufferSize: 100, FlushChannelBuffer: 4,
	}, p, discard)
	defer bp.Close()

	for i := 0; i < 3; i++ {
		bp.Submit(message(i))
	}
	require.Eventually(t, func() bool { return len(p.Published()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, p.Batches())
}

func TestBatchProcessorFlushesOnTimer(t *testing.T) {
	p := producer.NewMockProducer()
	bp := NewBatchProcessor(config.BatchProcessorConfig{
		BatchSize: 100, BatchTimeout: 10 * time.Millisecond, MaxBufferSize: 100, FlushChannelBuffer: 4,
	}, p, discard)
	defer bp.Close()

	bp.Submit(message(1))
	require.Eventually(t, func() bool { return len(p.Published()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestBatchProcessorCloseDrainsBuffer(t *testing.T) {
	p := producer.NewMockProducer()
	bp := NewBatchProcessor(config.BatchProcessorConfig{
		BatchSize: 100, BatchTimeout: time.Hour, MaxBufferSize: 100, FlushChannelBuffer: 4,
	}, p, discard)

	bp.Submit(message(1))
	bp.Submit(message(2))
	bp.Close()
	assert.Len(t, p.Published(), 2)

	bp.Submit(message(3))
	assert.Len(t, p.Published(), 2, "submissions after close are dropped")
}

func TestBatchProcessorDropsWhenFull(t *testing.T) {
	p := producer.NewMockProducer()
	bp := NewBatchProcessor(config.BatchProcessorConfig{
		BatchSize: 100, BatchTimeout: time.Hour, MaxBufferSize: 2, FlushChannelBuffer: 4,
	}, p, discard)

	for i := 0; i < 5; i++ {
		bp.Submit(message(i))
	}
	bp.Close()
	assert.Len(t, p.Published(), 2)
}

func TestBatchProcessorPublishErrorIsSwallowed(t *testing.T) {
	p := producer.NewMockProducer()
	p.Err = errors.New("broker down")
	bp := NewBatchProcessor(config.BatchProcessorConfig{
		BatchSize: 1, BatchTimeout: time.Hour, MaxBufferSize: 10, FlushChannelBuffer: 4,
	}, p, discard)

	bp.Submit(message(1))
	bp.Close()
	assert.Empty(t, p.Published())
	assert.Zero(t, p.Batches())
}

func TestServicePublishesAppendedEvents(t *testing.T) {
	st := store.NewMemoryStore(discard)
	p := producer.NewMockProducer()
	svc := NewService(st, p, nil, Options{
		HashMode: hash.ModeSHA256,
		BatchProcessor: config.BatchProcessorConfig{
			BatchSize: 10, BatchTimeout: time.Hour, MaxBufferSize: 100, FlushChannelBuffer: 4,
		},
	}, discard)

	ctx := context.Background()
	b, err := svc.Batches.Create(ctx, batches.CreateInput{CropType: "Maize", TotalQuantity: 20})
	require.NoError(t, err)
	ev, err := svc.Events.AddEvent(ctx, &models.TraceabilityEvent{
		BatchID: b.ID, EventType: models.EventHarvest, Title: "Harvest Complete",
		Actor: models.Actor{ID: "farmer-1"},
	})
	require.NoError(t, err)

	svc.Close()
	published := p.Published()
	require.Len(t, published, 1)
	assert.Equal(t, ev.ID, published[0].EventID)
	assert.Equal(t, ev.EventHash, published[0].EventHash)
	assert.Equal(t, b.BatchCode, published[0].BatchCode)
	assert.Equal(t, "farmer-1", published[0].ActorID)
}

func TestServiceWithoutProducer(t *testing.T) {
	svc := NewService(store.NewMemoryStore(discard), nil, nil, Options{HashMode: hash.ModePlaceholder}, discard)
	assert.False(t, svc.Events.Hasher().Tamperproof())
	assert.NotNil(t, svc.Workflow)
	svc.Close()
}
