package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// KafkaConsumerConfig configures the reader the anchor engine pulls published events from
type KafkaConsumerConfig struct {
	Brokers           []string `yaml:"brokers"`             // e.g., ["kafka1:9092", "kafka2:9092"]
	Topic             string   `yaml:"topic"`               // Topic carrying traceability events
	GroupID           string   `yaml:"group_id"`            // Consumer group ID
	Count             int      `yaml:"count"`               // Number of consumers to create
	SessionTimeout    string   `yaml:"session_timeout"`     // Kafka session timeout
	HeartbeatInterval string   `yaml:"heartbeat_interval"`  // Kafka heartbeat interval
	MaxProcessingTime string   `yaml:"max_processing_time"` // Maximum time for processing a message
	AutoOffsetReset   string   `yaml:"auto_offset_reset"`   // earliest/latest
}

// SetDefaults fills unset consumer settings
func (c *KafkaConsumerConfig) SetDefaults() {
	if c.Topic == "" {
		c.Topic = "traceability-events"
		fmt.Printf("Warning: kafka_consumer.topic not set, defaulting to %s\n", c.Topic)
	}
	if c.GroupID == "" {
		c.GroupID = "anchor-engine"
		fmt.Printf("Warning: kafka_consumer.group_id not set, defaulting to %s\n", c.GroupID)
	}
	if c.Count <= 0 {
		c.Count = 1
		fmt.Printf("Warning: kafka_consumer.count not set or invalid, defaulting to %d\n", c.Count)
	}
	if c.SessionTimeout == "" {
		c.SessionTimeout = "30s"
		fmt.Printf("Warning: kafka_consumer.session_timeout not set, defaulting to %s\n", c.SessionTimeout)
	}
	if c.HeartbeatInterval == "" {
		c.HeartbeatInterval = "3s"
		fmt.Printf("Warning: kafka_consumer.heartbeat_interval not set, defaulting to %s\n", c.HeartbeatInterval)
	}
	if c.MaxProcessingTime == "" {
		c.MaxProcessingTime = "5m"
		fmt.Printf("Warning: kafka_consumer.max_processing_time not set, defaulting to %s\n", c.MaxProcessingTime)
	}
	if c.AutoOffsetReset == "" {
		c.AutoOffsetReset = "earliest"
		fmt.Printf("Warning: kafka_consumer.auto_offset_reset not set, defaulting to %s\n", c.AutoOffsetReset)
	}
}

// Validate checks the consumer configuration
func (c *KafkaConsumerConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka_consumer.brokers must list at least one broker")
	}
	if c.AutoOffsetReset != "earliest" && c.AutoOffsetReset != "latest" {
		return fmt.Errorf("kafka_consumer.auto_offset_reset must be earliest or latest, got '%s'", c.AutoOffsetReset)
	}
	return nil
}

// WorkerConfig configures the anchor worker pool
type WorkerConfig struct {
	Concurrency        int    `yaml:"concurrency"`          // Number of concurrent workers per consumer
	BatchSize          int    `yaml:"batch_size"`           // Number of event hashes per ledger transaction
	BatchTimeout       string `yaml:"batch_timeout"`        // Maximum wait time for a partial batch
	ConsumerRetryDelay string `yaml:"consumer_retry_delay"` // Delay when consumer encounters errors
	BlockchainTimeout  string `yaml:"blockchain_timeout"`   // Timeout for ledger operations
}

// SetDefaults fills unset worker settings
func (c *WorkerConfig) SetDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = 1
		fmt.Printf("Warning: worker.concurrency not set or invalid, defaulting to %d\n", c.Concurrency)
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
		fmt.Printf("Warning: worker.batch_size not set or invalid, defaulting to %d\n", c.BatchSize)
	}
	if c.BatchTimeout == "" {
		c.BatchTimeout = "2s"
		fmt.Printf("Warning: worker.batch_timeout not set, defaulting to %s\n", c.BatchTimeout)
	}
	if c.ConsumerRetryDelay == "" {
		c.ConsumerRetryDelay = "5s"
		fmt.Printf("Warning: worker.consumer_retry_delay not set, defaulting to %s\n", c.ConsumerRetryDelay)
	}
	if c.BlockchainTimeout == "" {
		c.BlockchainTimeout = "15s"
		fmt.Printf("Warning: worker.blockchain_timeout not set, defaulting to %s\n", c.BlockchainTimeout)
	}
}

// EngineMonitoringConfig configures the engine's health endpoint
type EngineMonitoringConfig struct {
	ListenAddr      string `yaml:"listen_addr"`       // Empty disables the endpoint
	HealthCheckPath string `yaml:"health_check_path"` // Health check endpoint path
}

// SetDefaults fills unset monitoring settings
func (c *EngineMonitoringConfig) SetDefaults() {
	if c.HealthCheckPath == "" {
		c.HealthCheckPath = "/health"
		fmt.Printf("Warning: monitoring.health_check_path not set, defaulting to %s\n", c.HealthCheckPath)
	}
}

// EngineConfig is the anchor engine configuration
type EngineConfig struct {
	Database      DatabaseConfig         `yaml:"database"`
	KafkaConsumer KafkaConsumerConfig    `yaml:"kafka_consumer"`
	Worker        WorkerConfig           `yaml:"worker"`
	Monitoring    EngineMonitoringConfig `yaml:"monitoring"`

	// Attempts per event before it is marked FAILED
	MaxAnchorRetries int `yaml:"max_anchor_retries"`

	BlockchainClientConfigPath string `yaml:"blockchain_client_config_path"`
}

// LoadEngineConfig reads, defaults and validates the engine configuration at path
func LoadEngineConfig(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	return ParseEngineConfig(data)
}

// ParseEngineConfig decodes an engine configuration document
func ParseEngineConfig(data []byte) (*EngineConfig, error) {
	var cfg EngineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config file: %w", err)
	}

	cfg.Database.SetDefaults()
	cfg.KafkaConsumer.SetDefaults()
	cfg.Worker.SetDefaults()
	cfg.Monitoring.SetDefaults()

	if cfg.MaxAnchorRetries <= 0 {
		cfg.MaxAnchorRetries = 3
		fmt.Printf("Warning: max_anchor_retries not set or invalid, defaulting to %d\n", cfg.MaxAnchorRetries)
	}
	if cfg.BlockchainClientConfigPath == "" {
		cfg.BlockchainClientConfigPath = "./config/client_config.yml"
		fmt.Printf("Warning: blockchain_client_config_path not set, defaulting to %s\n", cfg.BlockchainClientConfigPath)
	}

	if err := cfg.Database.Validate(); err != nil {
		return nil, fmt.Errorf("database configuration error: %w", err)
	}
	if err := cfg.KafkaConsumer.Validate(); err != nil {
		return nil, fmt.Errorf("kafka consumer configuration error: %w", err)
	}
	return &cfg, nil
}
