// Package config loads loglite's configuration: YAML file, then
// environment variable overrides, then defaults for anything still
// unset, followed by validation.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"

	"loglite/pkg/types"
)

// EnvConfigFile is checked when no -config flag is supplied.
const EnvConfigFile = "LOGLITE_CONFIG_FILE"

// Load reads configFile (if non-empty), applies environment overrides
// and defaults, then validates the result.
func Load(configFile string) (*types.Config, error) {
	cfg := &types.Config{}

	if configFile != "" {
		if err := loadFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configFile, err)
		}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *types.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyDefaults(cfg *types.Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "loglite"
	}
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.App.LogFormat == "" {
		cfg.App.LogFormat = "text"
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	if cfg.Store.DBURL == "" {
		cfg.Store.DBURL = "loglite.db"
	}

	if cfg.Search.IndexDir == "" {
		cfg.Search.IndexDir = "./loglite-index"
	}

	if cfg.App.NodeID == 0 {
		cfg.App.NodeID = 1
	}

	if cfg.Tailer.IntervalSecs == 0 {
		cfg.Tailer.IntervalSecs = 10
	}
	if cfg.Tailer.MaxWorkers == 0 {
		cfg.Tailer.MaxWorkers = 4
	}

	if cfg.Retain.RetentionDays == 0 {
		cfg.Retain.RetentionDays = 7
	}
	if cfg.Retain.TTLInterval == 0 {
		cfg.Retain.TTLInterval = 300
	}
	if cfg.Retain.BatchSize == 0 {
		cfg.Retain.BatchSize = 10000
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func applyEnvOverrides(cfg *types.Config) {
	cfg.App.Name = getEnvString("LOGLITE_APP_NAME", cfg.App.Name)
	cfg.App.LogLevel = getEnvString("LOGLITE_LOG_LEVEL", cfg.App.LogLevel)
	cfg.App.LogFormat = getEnvString("LOGLITE_LOG_FORMAT", cfg.App.LogFormat)
	cfg.App.NodeID = getEnvInt("LOGLITE_NODE_ID", cfg.App.NodeID)

	cfg.Server.Host = getEnvString("LOGLITE_SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("LOGLITE_SERVER_PORT", cfg.Server.Port)

	cfg.Store.DBURL = getEnvString("LOGLITE_DB_URL", cfg.Store.DBURL)
	cfg.Search.IndexDir = getEnvString("LOGLITE_INDEX_DIR", cfg.Search.IndexDir)

	cfg.Tailer.IntervalSecs = getEnvInt("LOGLITE_TAIL_INTERVAL_SECS", cfg.Tailer.IntervalSecs)
	cfg.Tailer.MaxWorkers = getEnvInt("LOGLITE_TAIL_MAX_WORKERS", cfg.Tailer.MaxWorkers)

	cfg.Retain.RetentionDays = getEnvInt("LOGLITE_RETENTION_DAYS", cfg.Retain.RetentionDays)
	cfg.Retain.TTLInterval = getEnvInt("LOGLITE_TTL_INTERVAL_SECS", cfg.Retain.TTLInterval)
	cfg.Retain.BatchSize = getEnvInt("LOGLITE_RETENTION_BATCH_SIZE", cfg.Retain.BatchSize)

	cfg.Metrics.Enabled = getEnvBool("LOGLITE_METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.Path = getEnvString("LOGLITE_METRICS_PATH", cfg.Metrics.Path)
}

func getEnvString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// Validate rejects configurations that would break an invariant loglite
// relies on at runtime.
func Validate(cfg *types.Config) error {
	if cfg.App.NodeID < 0 || cfg.App.NodeID > 1023 {
		return fmt.Errorf("node_id must be in 0..1023, got %d", cfg.App.NodeID)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", cfg.Server.Port)
	}
	if cfg.Tailer.IntervalSecs <= 0 {
		return fmt.Errorf("tailer.interval_secs must be positive, got %d", cfg.Tailer.IntervalSecs)
	}
	if cfg.Retain.RetentionDays <= 0 {
		return fmt.Errorf("retain.retention_days must be positive, got %d", cfg.Retain.RetentionDays)
	}
	if cfg.Retain.TTLInterval <= 0 {
		return fmt.Errorf("retain.ttl_interval_secs must be positive, got %d", cfg.Retain.TTLInterval)
	}
	return nil
}
