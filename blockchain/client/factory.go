package blockchain

import (
	"fmt"
	"log"
	"path/filepath"

	"agrochain/blockchain/client/chainmaker"
	"agrochain/config"
)

// BlockchainType names a ledger implementation
type BlockchainType string

const (
	ChainMaker BlockchainType = "chainmaker"
)

// LoadChainSpecificConfig loads clients/<type>.yml from configDir
func LoadChainSpecificConfig(blockchainType string, configDir string) (any, error) {
	switch BlockchainType(blockchainType) {
	case ChainMaker, "":
		return chainmaker.LoadChainMakerConfig(filepath.Join(configDir, "clients", "chainmaker.yml"))
	default:
		return nil, fmt.Errorf("unsupported blockchain type: %s", blockchainType)
	}
}

// NewBlockchainClient creates the ledger client selected by cfg
func NewBlockchainClient(cfg *config.BlockchainConfig, logger *log.Logger) (BlockchainClient, error) {
	switch BlockchainType(cfg.BlockchainType) {
	case ChainMaker, "":
		client, err := chainmaker.NewChainMakerClient(cfg, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported blockchain type: %s", cfg.BlockchainType)
	}
}

// NewBlockchainClientFromFile loads client_config.yml at configPath plus the chain-specific file next to it
func NewBlockchainClientFromFile(configPath string, logger *log.Logger) (BlockchainClient, error) {
	cfg, err := config.LoadBlockchainConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load common config from file '%s': %w", configPath, err)
	}

	chainSpecificCfg, err := LoadChainSpecificConfig(cfg.BlockchainType, filepath.Dir(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load chain-specific config: %w", err)
	}

	cfg.ChainSpecific = chainSpecificCfg
	return NewBlockchainClient(cfg, logger)
}

var _ BlockchainClient = (*chainmaker.Client)(nil)
