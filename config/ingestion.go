package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// KafkaProducerConfig configures publication of appended events. Publication is
// disabled when no brokers are listed.
type KafkaProducerConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`

	// Batch processing settings
	BatchSize    int           `yaml:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
	BatchBytes   int           `yaml:"batch_bytes"`

	// Reliability settings
	RequiredAcks string `yaml:"required_acks"` // none, one, all
	Async        bool   `yaml:"async"`

	WriteTimeout time.Duration `yaml:"write_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
}

// Enabled reports whether any broker is configured
func (c *KafkaProducerConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

// SetDefaults fills unset producer settings
func (c *KafkaProducerConfig) SetDefaults() {
	if c.Topic == "" {
		c.Topic = "traceability-events"
		fmt.Printf("Warning: kafka_producer.topic not set, defaulting to %s\n", c.Topic)
	}
	if c.RequiredAcks == "" {
		c.RequiredAcks = "all"
		fmt.Printf("Warning: kafka_producer.required_acks not set, defaulting to %s\n", c.RequiredAcks)
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
		fmt.Printf("Warning: kafka_producer.write_timeout not set, defaulting to %v\n", c.WriteTimeout)
	}
}

// Validate checks the producer configuration
func (c *KafkaProducerConfig) Validate() error {
	switch c.RequiredAcks {
	case "none", "one", "all":
		return nil
	default:
		return fmt.Errorf("kafka_producer.required_acks must be none, one or all, got '%s'", c.RequiredAcks)
	}
}

// BatchProcessorConfig configures buffering of event messages before publication
type BatchProcessorConfig struct {
	BatchSize          int           `yaml:"batch_size"`
	BatchTimeout       time.Duration `yaml:"batch_timeout"`
	MaxBufferSize      int           `yaml:"max_buffer_size"`
	FlushChannelBuffer int           `yaml:"flush_channel_buffer"`
}

// SetDefaults fills unset batch processor settings
func (c *BatchProcessorConfig) SetDefaults() {
	if c.BatchSize == 0 {
		c.BatchSize = 100
		fmt.Printf("Warning: batch_processor.batch_size not set, defaulting to %d\n", c.BatchSize)
	}
	if c.BatchTimeout == 0 {
		c.BatchTimeout = 200 * time.Millisecond
		fmt.Printf("Warning: batch_processor.batch_timeout not set, defaulting to %v\n", c.BatchTimeout)
	}
	if c.MaxBufferSize == 0 {
		c.MaxBufferSize = 10000
		fmt.Printf("Warning: batch_processor.max_buffer_size not set, defaulting to %d\n", c.MaxBufferSize)
	}
	if c.FlushChannelBuffer == 0 {
		c.FlushChannelBuffer = 100
		fmt.Printf("Warning: batch_processor.flush_channel_buffer not set, defaulting to %d\n", c.FlushChannelBuffer)
	}
}

// HttpServerConfig defines HTTP server timeouts
type HttpServerConfig struct {
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
}

// SetDefaults fills unset server timeouts
func (c *HttpServerConfig) SetDefaults() {
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		// minting happens inside the request
		c.WriteTimeout = 60 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 120 * time.Second
	}
	if c.MaxHeaderBytes == 0 {
		c.MaxHeaderBytes = 1 << 20
	}
}

// TraceabilityConfig tunes the event log and activity logger
type TraceabilityConfig struct {
	HashMode             string `yaml:"hash_mode"`              // sha256 or placeholder
	ActivityDefaultLimit int    `yaml:"activity_default_limit"` // Limit for farmer activity listings
}

// SetDefaults fills unset traceability settings
func (c *TraceabilityConfig) SetDefaults() {
	if c.HashMode == "" {
		c.HashMode = "sha256"
		fmt.Printf("Warning: traceability.hash_mode not set, defaulting to %s\n", c.HashMode)
	}
	if c.ActivityDefaultLimit <= 0 {
		c.ActivityDefaultLimit = 50
		fmt.Printf("Warning: traceability.activity_default_limit not set, defaulting to %d\n", c.ActivityDefaultLimit)
	}
}

// Validate checks the hash mode
func (c *TraceabilityConfig) Validate() error {
	if c.HashMode != "sha256" && c.HashMode != "placeholder" {
		return fmt.Errorf("traceability.hash_mode must be sha256 or placeholder, got '%s'", c.HashMode)
	}
	return nil
}

// MintingConfig configures the certificate minting collaborator
type MintingConfig struct {
	Enabled                    bool          `yaml:"enabled"`
	BlockchainClientConfigPath string        `yaml:"blockchain_client_config_path"`
	MetadataBaseURL            string        `yaml:"metadata_base_url"` // Metadata URL = base + "/" + batch code
	ExplorerBaseURL            string        `yaml:"explorer_base_url"` // Explorer URL = base + "/" + tx hash
	Timeout                    time.Duration `yaml:"timeout"`
}

// SetDefaults fills unset minting settings
func (c *MintingConfig) SetDefaults() {
	if !c.Enabled {
		return
	}
	if c.BlockchainClientConfigPath == "" {
		c.BlockchainClientConfigPath = "./config/client_config.yml"
		fmt.Printf("Warning: minting.blockchain_client_config_path not set, defaulting to %s\n", c.BlockchainClientConfigPath)
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
		fmt.Printf("Warning: minting.timeout not set, defaulting to %v\n", c.Timeout)
	}
}

// IngestionConfig is the configuration of the ingestion service (HTTP and gRPC APIs)
type IngestionConfig struct {
	HttpListenAddr string `yaml:"http_listen_addr"`
	GrpcListenAddr string `yaml:"grpc_listen_addr"`

	Store          StoreConfig          `yaml:"store"`
	Database       DatabaseConfig       `yaml:"database"`
	KafkaProducer  KafkaProducerConfig  `yaml:"kafka_producer"`
	BatchProcessor BatchProcessorConfig `yaml:"batch_processor"`
	HttpServer     HttpServerConfig     `yaml:"http_server"`
	Traceability   TraceabilityConfig   `yaml:"traceability"`
	Minting        MintingConfig        `yaml:"minting"`
}

// LoadIngestionConfig reads, defaults and validates the ingestion configuration at path
func LoadIngestionConfig(path string) (*IngestionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ingestion config file '%s': %w", path, err)
	}
	return ParseIngestionConfig(data)
}

// ParseIngestionConfig decodes an ingestion configuration document
func ParseIngestionConfig(data []byte) (*IngestionConfig, error) {
	var cfg IngestionConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse ingestion YAML config file: %w", err)
	}

	cfg.Store.SetDefaults()
	if cfg.Store.Driver == "postgres" {
		cfg.Database.SetDefaults()
	}
	cfg.KafkaProducer.SetDefaults()
	cfg.BatchProcessor.SetDefaults()
	cfg.HttpServer.SetDefaults()
	cfg.Traceability.SetDefaults()
	cfg.Minting.SetDefaults()

	if cfg.HttpListenAddr == "" && cfg.GrpcListenAddr == "" {
		return nil, fmt.Errorf("configuration error: at least one of http_listen_addr or grpc_listen_addr must be configured")
	}
	if err := cfg.Store.Validate(); err != nil {
		return nil, fmt.Errorf("store configuration error: %w", err)
	}
	if cfg.Store.Driver == "postgres" {
		if err := cfg.Database.Validate(); err != nil {
			return nil, fmt.Errorf("database configuration error: %w", err)
		}
	}
	if err := cfg.KafkaProducer.Validate(); err != nil {
		return nil, fmt.Errorf("kafka producer configuration error: %w", err)
	}
	if err := cfg.Traceability.Validate(); err != nil {
		return nil, fmt.Errorf("traceability configuration error: %w", err)
	}
	return &cfg, nil
}
