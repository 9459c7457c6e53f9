package chainmaker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainMakerConfigDefaults(t *testing.T) {
	var c ChainMakerConfig
	c.SetDefaults()
	assert.Equal(t, "submit_anchors_batch", c.SubmitAnchorsBatchMethodName)
	assert.Equal(t, "anchors_json", c.ParamKeyAnchorsJson)
	assert.Equal(t, "event_anchored", c.AnchorEventTopic)
	assert.Equal(t, "mint_certificate", c.MintCertificateMethodName)
	assert.Equal(t, "certificate_json", c.ParamKeyCertificateJson)
}

func TestChainMakerConfigValidate(t *testing.T) {
	c := ChainMakerConfig{ChainID: "chain1", OrgID: "org1", ContractName: "agro_trace",
		Nodes: []NodeConfig{{Address: "127.0.0.1:12301", ConnCount: 2}}}
	assert.NoError(t, c.Validate())

	noNodes := c
	noNodes.Nodes = nil
	assert.Error(t, noNodes.Validate())

	tls := c
	tls.Nodes = []NodeConfig{{Address: "n1", UseTLS: true}}
	assert.ErrorContains(t, tls.Validate(), "ca_paths")

	noContract := c
	noContract.ContractName = ""
	assert.Error(t, noContract.Validate())
}

func TestLoadChainMakerConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chainmaker.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
chain_id: chain1
org_id: org1
contract_name: agro_trace
nodes:
  - address: 127.0.0.1:12301
    conn_count: 1
`), 0o644))

	cfg, err := LoadChainMakerConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "agro_trace", cfg.ContractName)
	assert.Equal(t, "find_anchor_by_hash", cfg.FindAnchorByHashMethodName)

	_, err = LoadChainMakerConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}
