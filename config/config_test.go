package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIngestionConfigDefaults(t *testing.T) {
	cfg, err := ParseIngestionConfig([]byte(`
http_listen_addr: ":8080"
store:
  driver: memory
`))
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.False(t, cfg.KafkaProducer.Enabled())
	assert.Equal(t, "traceability-events", cfg.KafkaProducer.Topic)
	assert.Equal(t, "all", cfg.KafkaProducer.RequiredAcks)
	assert.Equal(t, 100, cfg.BatchProcessor.BatchSize)
	assert.Equal(t, 200*time.Millisecond, cfg.BatchProcessor.BatchTimeout)
	assert.Equal(t, 60*time.Second, cfg.HttpServer.WriteTimeout)
	assert.Equal(t, "sha256", cfg.Traceability.HashMode)
	assert.Equal(t, 50, cfg.Traceability.ActivityDefaultLimit)
	assert.False(t, cfg.Minting.Enabled)
	assert.Empty(t, cfg.Minting.BlockchainClientConfigPath, "minting defaults only apply when enabled")
	assert.Zero(t, cfg.Database.MaxConnections, "database defaults only apply to postgres")
}

func TestParseIngestionConfigErrors(t *testing.T) {
	cases := map[string]string{
		"no listener":  "store:\n  driver: memory\n",
		"bad driver":   "http_listen_addr: \":1\"\nstore:\n  driver: sqlite\n",
		"postgres dsn": "http_listen_addr: \":1\"\nstore:\n  driver: postgres\n",
		"acks":         "http_listen_addr: \":1\"\nstore:\n  driver: memory\nkafka_producer:\n  required_acks: most\n",
		"hash mode":    "http_listen_addr: \":1\"\nstore:\n  driver: memory\ntraceability:\n  hash_mode: md5\n",
		"invalid yaml": "http_listen_addr: [",
	}
	for name, doc := range cases {
		_, err := ParseIngestionConfig([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestParseIngestionConfigMinting(t *testing.T) {
	cfg, err := ParseIngestionConfig([]byte(`
grpc_listen_addr: ":9090"
store:
  driver: memory
minting:
  enabled: true
`))
	require.NoError(t, err)
	assert.Equal(t, "./config/client_config.yml", cfg.Minting.BlockchainClientConfigPath)
	assert.Equal(t, 30*time.Second, cfg.Minting.Timeout)
}

func TestParseEngineConfig(t *testing.T) {
	cfg, err := ParseEngineConfig([]byte(`
database:
  dsn: postgres://localhost/agrochain
kafka_consumer:
  brokers: ["mock://local"]
`))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxAnchorRetries)
	assert.Equal(t, "anchor-engine", cfg.KafkaConsumer.GroupID)
	assert.Equal(t, 1, cfg.KafkaConsumer.Count)
	assert.Equal(t, "earliest", cfg.KafkaConsumer.AutoOffsetReset)
	assert.Equal(t, 50, cfg.Worker.BatchSize)
	assert.Equal(t, "2s", cfg.Worker.BatchTimeout)
	assert.Equal(t, "/health", cfg.Monitoring.HealthCheckPath)
	assert.Equal(t, 20, cfg.Database.MaxConnections)

	_, err = ParseEngineConfig([]byte("kafka_consumer:\n  brokers: [\"x:9092\"]\n"))
	assert.Error(t, err, "dsn is required")
	_, err = ParseEngineConfig([]byte("database:\n  dsn: x\n"))
	assert.Error(t, err, "brokers are required")
}

func TestDatabaseConfigValidate(t *testing.T) {
	c := DatabaseConfig{DSN: "x", MaxConnections: 2, MinConnections: 5}
	assert.Error(t, c.Validate())
	c.MinConnections = 1
	assert.NoError(t, c.Validate())
}

func TestLoadConfigDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ingestion.defaults.yml"),
		[]byte("http_listen_addr: \":8080\"\nstore:\n  driver: memory\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "client_config.yml"),
		[]byte("retry_limit: 3\n"), 0o644))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Nil(t, cfg.Engine)
	require.NotNil(t, cfg.Ingestion)
	assert.Equal(t, ":8080", cfg.Ingestion.HttpListenAddr)
	require.NotNil(t, cfg.Blockchain)
	assert.Equal(t, "chainmaker", cfg.Blockchain.BlockchainType)
	assert.Equal(t, 3, cfg.Blockchain.RetryLimit)
	assert.Equal(t, 500, cfg.Blockchain.RetryInterval)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "engine.defaults.yml"), []byte("worker: {}\n"), 0o644))
	_, err = LoadConfig(dir)
	assert.Error(t, err)
}

func TestLoadShippedDefaults(t *testing.T) {
	ing, err := LoadIngestionConfig("ingestion.defaults.yml")
	require.NoError(t, err)
	assert.True(t, ing.KafkaProducer.Enabled())
	assert.True(t, ing.Database.AutoMigrate)

	eng, err := LoadEngineConfig("engine.defaults.yml")
	require.NoError(t, err)
	assert.Equal(t, 2, eng.Worker.Concurrency)
}

func TestLoadShippedDirectory(t *testing.T) {
	cfg, err := LoadConfig(".")
	require.NoError(t, err)
	require.NotNil(t, cfg.Engine)
	require.NotNil(t, cfg.Ingestion)
	require.NotNil(t, cfg.Blockchain)
	assert.Equal(t, "chainmaker", cfg.Blockchain.BlockchainType)
	assert.Equal(t, 2, cfg.Engine.Worker.Concurrency)
}
