package producer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"testing"

	"agrochain/config"
	"agrochain/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeKeysByBatch(t *testing.T) {
	msg := &models.EventMessage{EventID: "ev-1", BatchID: "batch-9", EventType: models.EventStorage, EventHash: "abc"}
	km, err := encode(msg)
	require.NoError(t, err)
	assert.Equal(t, []byte("batch-9"), km.Key)

	var back models.EventMessage
	require.NoError(t, json.Unmarshal(km.Value, &back))
	assert.Equal(t, *msg, back)
}

func TestNewKafkaProducerRequiresBrokersAndTopic(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	_, err := NewKafkaProducer(config.KafkaProducerConfig{Topic: "t"}, logger)
	assert.Error(t, err)
	_, err = NewKafkaProducer(config.KafkaProducerConfig{Brokers: []string{"localhost:9092"}}, logger)
	assert.Error(t, err)

	p, err := NewKafkaProducer(config.KafkaProducerConfig{Brokers: []string{"localhost:9092"}, Topic: "t"}, logger)
	require.NoError(t, err)
	assert.NoError(t, p.PublishBatch(context.Background(), nil), "empty batches never reach the broker")
	assert.NoError(t, p.Close())
}

func TestMockProducer(t *testing.T) {
	p := NewMockProducer()
	require.NoError(t, p.Publish(context.Background(), &models.EventMessage{EventID: "a"}))
	require.NoError(t, p.PublishBatch(context.Background(), []*models.EventMessage{{EventID: "b"}, {EventID: "c"}}))
	assert.Len(t, p.Published(), 3)
	assert.Equal(t, 2, p.Batches())

	p.Err = errors.New("down")
	assert.Error(t, p.Publish(context.Background(), &models.EventMessage{EventID: "d"}))
	assert.Len(t, p.Published(), 3)
}
