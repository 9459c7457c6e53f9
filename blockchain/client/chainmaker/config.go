package chainmaker

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// NodeConfig describes a single ChainMaker node connection
type NodeConfig struct {
	Address     string   `yaml:"address"`
	ConnCount   int      `yaml:"conn_count"`
	UseTLS      bool     `yaml:"use_tls"`
	TLSHostName string   `yaml:"tls_host_name"`
	CaPaths     []string `yaml:"ca_paths"`
}

// ChainMakerConfig stores ChainMaker-specific configuration
type ChainMakerConfig struct {
	// --- SDK Connection ---
	ChainID string `yaml:"chain_id"`
	OrgID   string `yaml:"org_id"`

	UserKeyPath  string `yaml:"user_key_path"`
	UserCertPath string `yaml:"user_cert_path"`

	UserSignKeyPath  string `yaml:"user_sign_key_path"`
	UserSignCertPath string `yaml:"user_sign_cert_path"`

	Nodes []NodeConfig `yaml:"nodes"`

	// --- Contract ---
	ContractName string `yaml:"contract_name"`

	SubmitAnchorsBatchMethodName string `yaml:"submit_anchors_batch_method_name"`
	ParamKeyAnchorsJson          string `yaml:"param_key_anchors_json"`
	FindAnchorByHashMethodName   string `yaml:"find_anchor_by_hash_method_name"`
	ParamKeyEventHash            string `yaml:"param_key_event_hash"`
	AnchorEventTopic             string `yaml:"anchor_event_topic"`

	MintCertificateMethodName string `yaml:"mint_certificate_method_name"`
	ParamKeyCertificateJson   string `yaml:"param_key_certificate_json"`
}

// SetDefaults fills unset contract method and parameter names
func (c *ChainMakerConfig) SetDefaults() {
	if c.SubmitAnchorsBatchMethodName == "" {
		c.SubmitAnchorsBatchMethodName = "submit_anchors_batch"
	}
	if c.ParamKeyAnchorsJson == "" {
		c.ParamKeyAnchorsJson = "anchors_json"
	}
	if c.FindAnchorByHashMethodName == "" {
		c.FindAnchorByHashMethodName = "find_anchor_by_hash"
	}
	if c.ParamKeyEventHash == "" {
		c.ParamKeyEventHash = "event_hash"
	}
	if c.AnchorEventTopic == "" {
		c.AnchorEventTopic = "event_anchored"
	}
	if c.MintCertificateMethodName == "" {
		c.MintCertificateMethodName = "mint_certificate"
	}
	if c.ParamKeyCertificateJson == "" {
		c.ParamKeyCertificateJson = "certificate_json"
	}
}

// Validate checks the connection settings
func (c *ChainMakerConfig) Validate() error {
	if c.ChainID == "" || c.OrgID == "" {
		return fmt.Errorf("chain_id and org_id are required")
	}
	if c.ContractName == "" {
		return fmt.Errorf("contract_name is required")
	}
	if len(c.Nodes) == 0 {
		return fmt.Errorf("no node configurations provided in config")
	}
	for _, node := range c.Nodes {
		if node.UseTLS && len(node.CaPaths) == 0 {
			return fmt.Errorf("node %s has TLS enabled but no ca_paths provided", node.Address)
		}
	}
	return nil
}

// LoadChainMakerConfig loads ChainMaker configuration from the YAML file at path
func LoadChainMakerConfig(path string) (*ChainMakerConfig, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path of ChainMaker config file: %w", err)
	}

	fmt.Printf("Loading ChainMaker configuration from '%s'...\n", absPath)

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read ChainMaker config file '%s': %w", absPath, err)
	}

	var cfg ChainMakerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse ChainMaker YAML config file: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ChainMaker config: %w", err)
	}

	fmt.Println("ChainMaker configuration loaded successfully.")
	return &cfg, nil
}
