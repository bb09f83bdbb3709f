// Package config provides configuration loading, defaults, and validation
// for the yakgwan learning core.
package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all module settings.
const envPrefix = "YAKGWAN"

// newViper builds a pre-configured Viper instance with the module's
// standard settings: YAML file type, YAKGWAN_ env prefix, automatic env
// binding, and a key replacer that maps "." → "_" so nested keys like
// "redis.addr" resolve to "YAKGWAN_REDIS_ADDR".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	registerKeys(v)
	return v
}

// registerKeys declares every configuration key to viper.  Unmarshal only
// sees keys viper knows about, so without this list env-only loading would
// silently ignore YAKGWAN_* variables for keys absent from the config file.
func registerKeys(v *viper.Viper) {
	for _, key := range []string{
		"log.level", "log.format", "log.output_paths", "log.error_output_paths",
		"redis.addr", "redis.password", "redis.db", "redis.pool_size",
		"redis.min_idle_conns", "redis.dial_timeout", "redis.read_timeout",
		"redis.write_timeout", "redis.key_prefix",
		"postgres.host", "postgres.port", "postgres.user", "postgres.password",
		"postgres.db_name", "postgres.ssl_mode", "postgres.max_open_conns",
		"postgres.max_idle_conns", "postgres.conn_max_lifetime", "postgres.migrations_dir",
		"neo4j.uri", "neo4j.user", "neo4j.password", "neo4j.database",
		"neo4j.max_connection_pool_size", "neo4j.connection_timeout",
		"kafka.brokers", "kafka.group_id", "kafka.topic", "kafka.dead_letter_topic",
		"kafka.min_bytes", "kafka.max_bytes", "kafka.commit_interval",
		"worker.concurrency", "worker.handler_timeout", "worker.health_port",
		"ontology.path", "ontology.fuzzy_threshold", "ontology.watch_file",
		"extraction.backend", "extraction.base_url", "extraction.api_key",
		"extraction.model", "extraction.call_timeout", "extraction.max_concurrent",
		"extraction.requests_per_second",
		"learning.template_similarity_threshold", "learning.incremental_similarity_threshold",
		"learning.template_ttl", "learning.chunk_ttl", "learning.local_cache_ttl",
	} {
		v.SetDefault(key, nil)
	}
}

// Load reads the YAML file at configPath, merges any YAKGWAN_* environment
// variable overrides, applies defaults for unset fields, and validates the
// result.  It returns a fully-populated *Config or a descriptive error.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from YAKGWAN_* environment
// variables, with no config file required.  This is the preferred loading
// strategy for containerised deployments.
//
// Naming convention: YAKGWAN_<SECTION>_<FIELD>, e.g. YAKGWAN_REDIS_ADDR,
// YAKGWAN_ONTOLOGY_PATH.
func LoadFromEnv() (*Config, error) {
	v := newViper()
	return unmarshalAndFinalize(v)
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath for changes and invokes onChange with the newly
// parsed Config whenever the file is modified on disk.  Intended for
// hot-reloading non-critical settings such as log level and similarity
// thresholds; callers are responsible for applying only the safe subset of
// changes at runtime.
//
// Watch is non-blocking; it starts a background goroutine managed by viper.
// If the changed file fails to parse or validate, onChange is not called.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)

	// Initial read; errors are ignored here — callers should Load first.
	_ = v.ReadInConfig()

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			// An invalid edit must not push the process into a broken state.
			return
		}
		onChange(cfg)
	})
}

// MustLoad is a convenience wrapper around Load that panics on any error.
// Intended for main() where a config-load failure is always fatal.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
