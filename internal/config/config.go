package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LogConfig holds the settings for the on-disk session log store.
type LogConfig struct {
	RootDir      string `yaml:"root_dir"`
	KeepSessions int    `yaml:"keep_sessions"`
}

// TailerConfig holds the settings for the incremental log tailer.
type TailerConfig struct {
	WindowCap int `yaml:"window_cap"`
}

// StatsConfig holds the settings for the statistics engine.
type StatsConfig struct {
	BucketWidth string `yaml:"bucket_width"`
	TopN        int    `yaml:"top_n"`
}

// ProbeConfig holds the NATS transport settings for the sample stream.
type ProbeConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// ClickHouseConfig holds the connection settings for the archive store.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// ArchiveConfig holds the settings for optional sample archival.
type ArchiveConfig struct {
	Enabled       bool             `yaml:"enabled"`
	BatchSize     int              `yaml:"batch_size"`
	FlushInterval string           `yaml:"flush_interval"`
	ClickHouse    ClickHouseConfig `yaml:"clickhouse"`
}

// APIConfig holds the settings for the HTTP query API.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// MonitorConfig holds the settings for the live terminal monitor.
type MonitorConfig struct {
	RefreshInterval string `yaml:"refresh_interval"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Tailer  TailerConfig  `yaml:"tailer"`
	Stats   StatsConfig   `yaml:"stats"`
	Probe   ProbeConfig   `yaml:"probe"`
	Archive ArchiveConfig `yaml:"archive"`
	API     APIConfig     `yaml:"api"`
	Monitor MonitorConfig `yaml:"monitor"`
}

// Default returns the configuration used when no config file is supplied.
func Default() *Config {
	return &Config{
		Log:     LogConfig{RootDir: "out", KeepSessions: 10},
		Tailer:  TailerConfig{WindowCap: 1000},
		Stats:   StatsConfig{BucketWidth: "1m", TopN: 10},
		Probe:   ProbeConfig{NATSURL: "nats://127.0.0.1:4222", Subject: "cwnd.samples"},
		Archive: ArchiveConfig{BatchSize: 500, FlushInterval: "5s"},
		API:     APIConfig{ListenAddr: ":8080"},
		Monitor: MonitorConfig{RefreshInterval: "2s"},
	}
}

// LoadConfig reads the configuration from a YAML file, filling unset
// fields with defaults.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults backfills zero values left by an explicit empty key in the
// YAML document.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Log.RootDir == "" {
		cfg.Log.RootDir = def.Log.RootDir
	}
	if cfg.Log.KeepSessions <= 0 {
		cfg.Log.KeepSessions = def.Log.KeepSessions
	}
	if cfg.Tailer.WindowCap <= 0 {
		cfg.Tailer.WindowCap = def.Tailer.WindowCap
	}
	if cfg.Stats.BucketWidth == "" {
		cfg.Stats.BucketWidth = def.Stats.BucketWidth
	}
	if cfg.Stats.TopN <= 0 {
		cfg.Stats.TopN = def.Stats.TopN
	}
	if cfg.Probe.NATSURL == "" {
		cfg.Probe.NATSURL = def.Probe.NATSURL
	}
	if cfg.Probe.Subject == "" {
		cfg.Probe.Subject = def.Probe.Subject
	}
	if cfg.Archive.BatchSize <= 0 {
		cfg.Archive.BatchSize = def.Archive.BatchSize
	}
	if cfg.Archive.FlushInterval == "" {
		cfg.Archive.FlushInterval = def.Archive.FlushInterval
	}
	if cfg.API.ListenAddr == "" {
		cfg.API.ListenAddr = def.API.ListenAddr
	}
	if cfg.Monitor.RefreshInterval == "" {
		cfg.Monitor.RefreshInterval = def.Monitor.RefreshInterval
	}
}
