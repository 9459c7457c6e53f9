package producer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"agrochain/config"
	"agrochain/internal/models"

	"github.com/segmentio/kafka-go"
)

// KafkaProducer implements Producer on a kafka-go writer
type KafkaProducer struct {
	writer *kafka.Writer
	logger *log.Logger
	topic  string
}

// NewKafkaProducer creates a KafkaProducer for cfg.Topic
func NewKafkaProducer(cfg config.KafkaProducerConfig, logger *log.Logger) (*KafkaProducer, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, errors.New("kafka producer configuration incomplete: both brokers and topic are required")
	}

	batchSize := cfg.BatchSize
	if batchSize == 0 {
		batchSize = 100
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout == 0 {
		batchTimeout = 50 * time.Millisecond
	}
	batchBytes := cfg.BatchBytes
	if batchBytes == 0 {
		batchBytes = 1 << 20
	}

	var requiredAcks kafka.RequiredAcks
	switch cfg.RequiredAcks {
	case "none":
		requiredAcks = kafka.RequireNone
	case "one":
		requiredAcks = kafka.RequireOne
	default:
		requiredAcks = kafka.RequireAll
	}

	readTimeout := cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 5 * time.Second
	}

	w := &kafka.Writer{
		Addr: kafka.TCP(cfg.Brokers...),
		// events of one batch land on one partition so the engine sees them in order
		Topic:    cfg.Topic,
		Balancer: &kafka.Hash{},

		BatchSize:    batchSize,
		BatchTimeout: batchTimeout,
		BatchBytes:   int64(batchBytes),

		RequiredAcks: requiredAcks,
		Async:        cfg.Async,

		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  readTimeout,

		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Printf("Kafka Writer Error: "+msg, args...)
		}),
	}

	logger.Printf("Kafka producer created, connected to Brokers: %v, Topic: %s", cfg.Brokers, cfg.Topic)

	return &KafkaProducer{writer: w, logger: logger, topic: cfg.Topic}, nil
}

func encode(msg *models.EventMessage) (kafka.Message, error) {
	value, err := json.Marshal(msg)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to serialize event message (EventID: %s): %w", msg.EventID, err)
	}
	return kafka.Message{Key: []byte(msg.BatchID), Value: value}, nil
}

// Publish sends a single event message
func (p *KafkaProducer) Publish(ctx context.Context, msg *models.EventMessage) error {
	kafkaMsg, err := encode(msg)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, kafkaMsg); err != nil {
		p.logger.Printf("Failed to send Kafka message (EventID: %s): %v", msg.EventID, err)
		return fmt.Errorf("failed to write to Kafka: %w", err)
	}
	return nil
}

// PublishBatch sends event messages in one write
func (p *KafkaProducer) PublishBatch(ctx context.Context, msgs []*models.EventMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	kafkaMsgs := make([]kafka.Message, len(msgs))
	for i, msg := range msgs {
		km, err := encode(msg)
		if err != nil {
			return err
		}
		kafkaMsgs[i] = km
	}

	if err := p.writer.WriteMessages(ctx, kafkaMsgs...); err != nil {
		p.logger.Printf("Failed to send Kafka messages in batch (count: %d): %v", len(msgs), err)
		return fmt.Errorf("failed to batch write to Kafka: %w", err)
	}

	p.logger.Printf("Published %d event messages (Topic: %s)", len(msgs), p.topic)
	return nil
}

// Close flushes buffered messages and closes the writer
func (p *KafkaProducer) Close() error {
	p.logger.Println("Closing Kafka producer (and flushing buffer)...")
	return p.writer.Close()
}

var _ Producer = (*KafkaProducer)(nil)
