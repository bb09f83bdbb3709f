// Package config defines all configuration structures for the yakgwan
// learning core.  No I/O or parsing logic lives here — only plain data
// types and validation.
package config

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level            string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format           string   `mapstructure:"format"` // "json" | "console"
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// RedisConfig holds connection parameters for the cache store backing the
// template and chunk caches.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// PostgresConfig holds connection parameters for the decision store.
type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// Neo4jConfig holds connection parameters for the policy graph sink.
type Neo4jConfig struct {
	URI                   string        `mapstructure:"uri"`
	User                  string        `mapstructure:"user"`
	Password              string        `mapstructure:"password"`
	Database              string        `mapstructure:"database"`
	MaxConnectionPoolSize int           `mapstructure:"max_connection_pool_size"`
	ConnectionTimeout     time.Duration `mapstructure:"connection_timeout"`
}

// KafkaConfig holds consumer parameters for the learning worker intake.
type KafkaConfig struct {
	Brokers         []string      `mapstructure:"brokers"`
	GroupID         string        `mapstructure:"group_id"`
	Topic           string        `mapstructure:"topic"`
	DeadLetterTopic string        `mapstructure:"dead_letter_topic"`
	MinBytes        int           `mapstructure:"min_bytes"`
	MaxBytes        int           `mapstructure:"max_bytes"`
	CommitInterval  time.Duration `mapstructure:"commit_interval"`
}

// WorkerConfig holds background-worker execution parameters.
type WorkerConfig struct {
	Concurrency    int           `mapstructure:"concurrency"`
	HandlerTimeout time.Duration `mapstructure:"handler_timeout"`
	HealthPort     int           `mapstructure:"health_port"`
}

// OntologyConfig holds parameters for the disease ontology reference file.
type OntologyConfig struct {
	Path           string  `mapstructure:"path"`
	FuzzyThreshold float64 `mapstructure:"fuzzy_threshold"`
	WatchFile      bool    `mapstructure:"watch_file"`
}

// ExtractionConfig holds parameters for the expensive external extraction
// capability.
type ExtractionConfig struct {
	Backend           string        `mapstructure:"backend"` // "openai" | "noop"
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Model             string        `mapstructure:"model"`
	CallTimeout       time.Duration `mapstructure:"call_timeout"`
	MaxConcurrent     int           `mapstructure:"max_concurrent"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

// LearningConfig holds the tiered strategy selector's thresholds and cache
// policy.  The similarity thresholds gate TEMPLATE and INCREMENTAL; the
// TTLs bound the staleness window of cached templates and chunks.
type LearningConfig struct {
	TemplateSimilarityThreshold    float64       `mapstructure:"template_similarity_threshold"`
	IncrementalSimilarityThreshold float64       `mapstructure:"incremental_similarity_threshold"`
	TemplateTTL                    time.Duration `mapstructure:"template_ttl"`
	ChunkTTL                       time.Duration `mapstructure:"chunk_ttl"`
	LocalCacheTTL                  time.Duration `mapstructure:"local_cache_ttl"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure for the learning core.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	Neo4j      Neo4jConfig      `mapstructure:"neo4j"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Ontology   OntologyConfig   `mapstructure:"ontology"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Learning   LearningConfig   `mapstructure:"learning"`
}

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error
// as fatal and refuse to start.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
	}

	if c.Postgres.Host == "" {
		return fmt.Errorf("config: postgres.host is required")
	}
	if c.Postgres.Port < 1 || c.Postgres.Port > 65535 {
		return fmt.Errorf("config: postgres.port %d is out of range [1, 65535]", c.Postgres.Port)
	}
	if c.Postgres.User == "" {
		return fmt.Errorf("config: postgres.user is required")
	}
	if c.Postgres.DBName == "" {
		return fmt.Errorf("config: postgres.db_name is required")
	}

	if c.Neo4j.URI == "" {
		return fmt.Errorf("config: neo4j.uri is required")
	}

	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
	}
	if c.Kafka.GroupID == "" {
		return fmt.Errorf("config: kafka.group_id is required")
	}
	if c.Kafka.Topic == "" {
		return fmt.Errorf("config: kafka.topic is required")
	}

	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("config: worker.concurrency must be ≥ 1, got %d", c.Worker.Concurrency)
	}

	if c.Ontology.Path == "" {
		return fmt.Errorf("config: ontology.path is required")
	}
	if c.Ontology.FuzzyThreshold < 0 || c.Ontology.FuzzyThreshold > 1 {
		return fmt.Errorf("config: ontology.fuzzy_threshold %v is out of range [0, 1]", c.Ontology.FuzzyThreshold)
	}

	switch c.Extraction.Backend {
	case "openai", "noop":
	default:
		return fmt.Errorf("config: extraction.backend %q is invalid; expected openai|noop", c.Extraction.Backend)
	}
	if c.Extraction.MaxConcurrent < 1 {
		return fmt.Errorf("config: extraction.max_concurrent must be ≥ 1, got %d", c.Extraction.MaxConcurrent)
	}

	if c.Learning.TemplateSimilarityThreshold <= 0 || c.Learning.TemplateSimilarityThreshold > 1 {
		return fmt.Errorf("config: learning.template_similarity_threshold %v is out of range (0, 1]", c.Learning.TemplateSimilarityThreshold)
	}
	if c.Learning.IncrementalSimilarityThreshold <= 0 || c.Learning.IncrementalSimilarityThreshold > 1 {
		return fmt.Errorf("config: learning.incremental_similarity_threshold %v is out of range (0, 1]", c.Learning.IncrementalSimilarityThreshold)
	}
	if c.Learning.ChunkTTL <= 0 {
		return fmt.Errorf("config: learning.chunk_ttl must be positive, got %v", c.Learning.ChunkTTL)
	}

	return nil
}
