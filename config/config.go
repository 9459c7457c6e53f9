package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config bundles every configuration file found in one directory
type Config struct {
	Engine     *EngineConfig
	Ingestion  *IngestionConfig
	Blockchain *BlockchainConfig
}

// LoadConfig loads whichever of engine.defaults.yml, ingestion.defaults.yml and
// client_config.yml exist in configDir
func LoadConfig(configDir string) (*Config, error) {
	absDir, err := filepath.Abs(configDir)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path of config directory: %w", err)
	}

	config := &Config{}

	enginePath := filepath.Join(absDir, "engine.defaults.yml")
	if _, err := os.Stat(enginePath); err == nil {
		engineCfg, err := LoadEngineConfig(enginePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load engine config: %w", err)
		}
		config.Engine = engineCfg
	}

	ingestionPath := filepath.Join(absDir, "ingestion.defaults.yml")
	if _, err := os.Stat(ingestionPath); err == nil {
		ingestionCfg, err := LoadIngestionConfig(ingestionPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load ingestion config: %w", err)
		}
		config.Ingestion = ingestionCfg
	}

	blockchainPath := filepath.Join(absDir, "client_config.yml")
	if _, err := os.Stat(blockchainPath); err == nil {
		blockchainCfg, err := LoadBlockchainConfig(blockchainPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load blockchain config: %w", err)
		}
		config.Blockchain = blockchainCfg
	}

	return config, nil
}
