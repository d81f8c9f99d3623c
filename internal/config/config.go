package config

import "indexnow-go/pkg/logger"

type Config struct {
	Site     SiteConfig     `mapstructure:"site"`
	IndexNow IndexNowConfig `mapstructure:"indexnow"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logger   logger.Config  `mapstructure:"logger"`
	Server   ServerConfig   `mapstructure:"server"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type SiteConfig struct {
	Domain       string   `mapstructure:"domain"`
	Sitemap      string   `mapstructure:"sitemap"`
	ExcludePaths []string `mapstructure:"exclude_paths"`
	DownloadMs   int      `mapstructure:"download_timeout_ms"`
}

type IndexNowConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	Key         string `mapstructure:"key"`
	KeyLocation string `mapstructure:"key_location"`
	BatchSize   int    `mapstructure:"batch_size"`
	TimeoutMs   int    `mapstructure:"timeout_ms"`

	// RateLimit is the number of batches per second; 0 disables pacing
	RateLimit   float64 `mapstructure:"rate_limit"`
	StopOnFatal bool    `mapstructure:"stop_on_fatal"`
}

type AuditConfig struct {
	Dir           string  `mapstructure:"dir"`
	FileName      string  `mapstructure:"file_name"`
	MaxFileSize   int64   `mapstructure:"max_file_size"`
	StatsWindow   int     `mapstructure:"stats_window"`
	WarnThreshold float64 `mapstructure:"warn_threshold"`
}

type StorageConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type MetricsConfig struct {
	// PushgatewayURL receives run metrics after a submission run; empty disables pushing
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

type Manager interface {
	Load(configPath string) (*Config, error)
	Reload() error
	GetConfig() *Config
}
