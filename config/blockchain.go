package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// BlockchainConfig selects the ledger implementation and its contract
type BlockchainConfig struct {
	BlockchainType string `yaml:"blockchain_type"` // only "chainmaker" is implemented

	RetryLimit     int `yaml:"retry_limit"`
	RetryInterval  int `yaml:"retry_interval"` // milliseconds
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// Chain-specific configuration, loaded separately per blockchain type
	ChainSpecific any `yaml:"-"`
}

// SetDefaults fills unset behavior settings
func (c *BlockchainConfig) SetDefaults() {
	if c.BlockchainType == "" {
		c.BlockchainType = "chainmaker"
		fmt.Printf("Warning: blockchain_type not set, defaulting to %s\n", c.BlockchainType)
	}
	if c.RetryLimit <= 0 {
		c.RetryLimit = 10
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = 500
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 10
	}
}

// LoadBlockchainConfig loads blockchain configuration from the YAML file at path
func LoadBlockchainConfig(path string) (*BlockchainConfig, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path of config file: %w", err)
	}

	fmt.Printf("Loading blockchain configuration from '%s'...\n", absPath)

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", absPath, err)
	}

	var cfg BlockchainConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config file: %w", err)
	}
	cfg.SetDefaults()

	fmt.Println("Blockchain configuration loaded successfully.")
	return &cfg, nil
}
