package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
log:
  level: debug
  format: console
redis:
  addr: "redis:6379"
postgres:
  host: "db"
  user: "yakgwan"
  password: "secret"
kafka:
  brokers: ["kafka:9092"]
ontology:
  path: "testdata/diseases.yaml"
extraction:
  backend: noop
`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeTempConfig(t, minimalYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "db", cfg.Postgres.Host)
	assert.Equal(t, []string{"kafka:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "noop", cfg.Extraction.Backend)

	// Defaults applied for unset fields.
	assert.Equal(t, DefaultKafkaTopic, cfg.Kafka.Topic)
	assert.Equal(t, DefaultFuzzyThreshold, cfg.Ontology.FuzzyThreshold)
	assert.Equal(t, DefaultTemplateSimilarityThreshold, cfg.Learning.TemplateSimilarityThreshold)
	assert.Equal(t, 7*24*time.Hour, cfg.Learning.ChunkTTL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoadInvalidConfig(t *testing.T) {
	path := writeTempConfig(t, `
log:
  level: screaming
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.level")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("YAKGWAN_REDIS_ADDR", "envredis:6379")
	t.Setenv("YAKGWAN_POSTGRES_HOST", "envdb")
	t.Setenv("YAKGWAN_POSTGRES_USER", "envuser")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "envredis:6379", cfg.Redis.Addr)
	assert.Equal(t, "envdb", cfg.Postgres.Host)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
}

func TestMustLoadPanics(t *testing.T) {
	assert.Panics(t, func() {
		MustLoad("/nonexistent/config.yaml")
	})
}

func TestApplyDefaultsNil(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}

func TestValidateThresholdRanges(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Postgres.User = "u"
	require.NoError(t, cfg.Validate())

	cfg.Learning.TemplateSimilarityThreshold = 1.5
	assert.Error(t, cfg.Validate())
}
