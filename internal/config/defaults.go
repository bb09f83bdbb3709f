package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "yakgwan:"

	DefaultPostgresHost = "localhost"
	DefaultPostgresPort = 5432
	DefaultPostgresDB   = "yakgwan"

	DefaultNeo4jURI      = "neo4j://localhost:7687"
	DefaultNeo4jDatabase = "neo4j"

	DefaultKafkaBroker     = "localhost:9092"
	DefaultKafkaGroupID    = "yakgwan-learners"
	DefaultKafkaTopic      = "policy.document.learn"
	DefaultDeadLetterTopic = "policy.document.learn.dlq"

	DefaultWorkerConcurrency = 4
	DefaultWorkerHealthPort  = 8081

	DefaultOntologyPath   = "ontology/diseases.yaml"
	DefaultFuzzyThreshold = 0.8

	DefaultExtractionBackend       = "openai"
	DefaultExtractionModel         = "gpt-4o-mini"
	DefaultExtractionMaxConcurrent = 4

	DefaultTemplateSimilarityThreshold    = 0.80
	DefaultIncrementalSimilarityThreshold = 0.85
)

// ApplyDefaults fills every zero-value field in cfg with the module default.
// Fields already set by the caller are left unchanged so that explicit
// configuration always wins.  It must be called after unmarshalling and
// before Validate() so optional-but-defaulted fields are never seen as
// missing.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}
	if cfg.Redis.ReadTimeout == 0 {
		cfg.Redis.ReadTimeout = 3 * time.Second
	}
	if cfg.Redis.WriteTimeout == 0 {
		cfg.Redis.WriteTimeout = 3 * time.Second
	}

	// ── Postgres ──────────────────────────────────────────────────────────────
	if cfg.Postgres.Host == "" {
		cfg.Postgres.Host = DefaultPostgresHost
	}
	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = DefaultPostgresPort
	}
	if cfg.Postgres.DBName == "" {
		cfg.Postgres.DBName = DefaultPostgresDB
	}
	if cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = "disable"
	}
	if cfg.Postgres.MaxOpenConns == 0 {
		cfg.Postgres.MaxOpenConns = 25
	}
	if cfg.Postgres.MaxIdleConns == 0 {
		cfg.Postgres.MaxIdleConns = 10
	}
	if cfg.Postgres.ConnMaxLifetime == 0 {
		cfg.Postgres.ConnMaxLifetime = 30 * time.Minute
	}
	if cfg.Postgres.MigrationsDir == "" {
		cfg.Postgres.MigrationsDir = "migrations"
	}

	// ── Neo4j ─────────────────────────────────────────────────────────────────
	if cfg.Neo4j.URI == "" {
		cfg.Neo4j.URI = DefaultNeo4jURI
	}
	if cfg.Neo4j.Database == "" {
		cfg.Neo4j.Database = DefaultNeo4jDatabase
	}
	if cfg.Neo4j.MaxConnectionPoolSize == 0 {
		cfg.Neo4j.MaxConnectionPoolSize = 50
	}
	if cfg.Neo4j.ConnectionTimeout == 0 {
		cfg.Neo4j.ConnectionTimeout = 10 * time.Second
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = DefaultKafkaTopic
	}
	if cfg.Kafka.DeadLetterTopic == "" {
		cfg.Kafka.DeadLetterTopic = DefaultDeadLetterTopic
	}
	if cfg.Kafka.MinBytes == 0 {
		cfg.Kafka.MinBytes = 1
	}
	if cfg.Kafka.MaxBytes == 0 {
		cfg.Kafka.MaxBytes = 10 << 20
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.HandlerTimeout == 0 {
		cfg.Worker.HandlerTimeout = 5 * time.Minute
	}
	if cfg.Worker.HealthPort == 0 {
		cfg.Worker.HealthPort = DefaultWorkerHealthPort
	}

	// ── Ontology ──────────────────────────────────────────────────────────────
	if cfg.Ontology.Path == "" {
		cfg.Ontology.Path = DefaultOntologyPath
	}
	if cfg.Ontology.FuzzyThreshold == 0 {
		cfg.Ontology.FuzzyThreshold = DefaultFuzzyThreshold
	}

	// ── Extraction ────────────────────────────────────────────────────────────
	if cfg.Extraction.Backend == "" {
		cfg.Extraction.Backend = DefaultExtractionBackend
	}
	if cfg.Extraction.Model == "" {
		cfg.Extraction.Model = DefaultExtractionModel
	}
	if cfg.Extraction.CallTimeout == 0 {
		cfg.Extraction.CallTimeout = 60 * time.Second
	}
	if cfg.Extraction.MaxConcurrent == 0 {
		cfg.Extraction.MaxConcurrent = DefaultExtractionMaxConcurrent
	}
	if cfg.Extraction.RequestsPerSecond == 0 {
		cfg.Extraction.RequestsPerSecond = 2
	}

	// ── Learning ──────────────────────────────────────────────────────────────
	if cfg.Learning.TemplateSimilarityThreshold == 0 {
		cfg.Learning.TemplateSimilarityThreshold = DefaultTemplateSimilarityThreshold
	}
	if cfg.Learning.IncrementalSimilarityThreshold == 0 {
		cfg.Learning.IncrementalSimilarityThreshold = DefaultIncrementalSimilarityThreshold
	}
	if cfg.Learning.TemplateTTL == 0 {
		cfg.Learning.TemplateTTL = 30 * 24 * time.Hour
	}
	if cfg.Learning.ChunkTTL == 0 {
		cfg.Learning.ChunkTTL = 7 * 24 * time.Hour
	}
	if cfg.Learning.LocalCacheTTL == 0 {
		cfg.Learning.LocalCacheTTL = 10 * time.Minute
	}
}
