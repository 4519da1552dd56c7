package types

import "time"

// Config is loglite's full runtime configuration, loaded from YAML and
// then overridden by environment variables (see internal/config).
type Config struct {
	App     AppConfig     `yaml:"app"`
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Search  SearchConfig  `yaml:"search"`
	Tailer  TailerConfig  `yaml:"tailer"`
	Retain  RetainConfig  `yaml:"retention"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// AppConfig carries process-wide identity and logging knobs.
type AppConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	NodeID    int    `yaml:"node_id"`
}

// ServerConfig controls the HTTP API listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StoreConfig points at the relational store.
type StoreConfig struct {
	DBURL string `yaml:"db_url"`
}

// SearchConfig points at the full-text index directory.
type SearchConfig struct {
	IndexDir string `yaml:"index_dir"`
}

// TailerConfig controls the file-tailing background task.
type TailerConfig struct {
	IntervalSecs int `yaml:"tail_interval_secs"`
	MaxWorkers   int `yaml:"max_workers"`
}

// RetainConfig controls the retention background task.
type RetainConfig struct {
	RetentionDays int `yaml:"retention_days"`
	TTLInterval   int `yaml:"ttl_interval_secs"`
	BatchSize     int `yaml:"batch_size"`
}

// MetricsConfig holds the metrics section of the configuration. It is
// loaded and defaulted but not read by the HTTP router, which always
// serves the Prometheus endpoint at /metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// TailInterval returns the configured tail tick period as a duration.
func (c *Config) TailInterval() time.Duration {
	return time.Duration(c.Tailer.IntervalSecs) * time.Second
}

// TTLInterval returns the configured retention tick period as a duration.
func (c *Config) TTLInterval() time.Duration {
	return time.Duration(c.Retain.TTLInterval) * time.Second
}

// RetentionHorizon returns the configured retention window as a duration.
func (c *Config) RetentionHorizon() time.Duration {
	return time.Duration(c.Retain.RetentionDays) * 24 * time.Hour
}
