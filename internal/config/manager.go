package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"indexnow-go/pkg/audit"
	"indexnow-go/pkg/indexnow"
	"indexnow-go/pkg/parser"
	"indexnow-go/pkg/utils"
)

const EnvPrefix = "INDEXNOW"

type manager struct {
	mu         sync.RWMutex
	config     *Config
	viper      *viper.Viper
	configPath string
}

func NewManager() Manager {
	return &manager{
		viper: viper.New(),
	}
}

// Load reads configPath when non-empty, then overlays INDEXNOW_* environment
// variables. Every key has a default so the file is optional.
func (m *manager) Load(configPath string) (*Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.configPath = configPath
	m.setupViper()

	return m.read()
}

func (m *manager) Reload() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.config == nil {
		return fmt.Errorf("config not loaded")
	}

	_, err := m.read()
	return err
}

func (m *manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

func (m *manager) read() (*Config, error) {
	if m.configPath != "" {
		if err := m.viper.ReadInConfig(); err != nil {
			return nil, utils.NewIOError(err, "failed to read config %s", m.configPath)
		}
	}

	var config Config
	if err := m.viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	m.config = &config
	return &config, nil
}

func (m *manager) setupViper() {
	if m.configPath != "" {
		m.viper.SetConfigFile(m.configPath)
	}

	m.viper.SetEnvPrefix(EnvPrefix)
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.viper.AutomaticEnv()

	setDefaults(m.viper)
}

// setDefaults registers every key; AutomaticEnv only resolves keys viper knows about
func setDefaults(v *viper.Viper) {
	v.SetDefault("site.domain", "")
	v.SetDefault("site.sitemap", "public/sitemap.xml")
	v.SetDefault("site.exclude_paths", parser.DefaultExcludePaths)
	v.SetDefault("site.download_timeout_ms", 30000)

	v.SetDefault("indexnow.endpoint", indexnow.DefaultEndpoint)
	v.SetDefault("indexnow.key", "")
	v.SetDefault("indexnow.key_location", "")
	v.SetDefault("indexnow.batch_size", indexnow.MaxBatchSize)
	v.SetDefault("indexnow.timeout_ms", int(indexnow.DefaultTimeout.Milliseconds()))
	v.SetDefault("indexnow.rate_limit", 0)
	v.SetDefault("indexnow.stop_on_fatal", false)

	v.SetDefault("audit.dir", audit.DefaultDir)
	v.SetDefault("audit.file_name", audit.DefaultFileName)
	v.SetDefault("audit.max_file_size", audit.DefaultMaxFileSize)
	v.SetDefault("audit.stats_window", audit.DefaultStatsWindow)
	v.SetDefault("audit.warn_threshold", audit.DefaultWarnThreshold)

	v.SetDefault("storage.data_dir", "data")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output", "stderr")
	v.SetDefault("logger.time_format", "")
	v.SetDefault("logger.max_size_mb", 10)
	v.SetDefault("logger.max_backups", 3)

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)

	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "indexnow_submit")
}

// validateConfig checks ranges only. Domain and key presence are checked by
// Config.Validate because the stats server runs without them.
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return utils.NewConfigError("invalid server port: %d", config.Server.Port)
	}

	if config.IndexNow.BatchSize <= 0 || config.IndexNow.BatchSize > indexnow.MaxBatchSize {
		return utils.NewConfigError("batch_size must be between 1 and %d", indexnow.MaxBatchSize)
	}

	if config.IndexNow.TimeoutMs <= 0 {
		return utils.NewConfigError("timeout_ms must be positive")
	}

	if config.IndexNow.RateLimit < 0 {
		return utils.NewConfigError("rate_limit cannot be negative")
	}

	if config.Audit.WarnThreshold <= 0 || config.Audit.WarnThreshold > 1 {
		return utils.NewConfigError("warn_threshold must be in (0, 1]")
	}

	if config.Audit.Dir == "" {
		return utils.NewConfigError("audit dir cannot be empty")
	}

	if config.Storage.DataDir == "" {
		return utils.NewConfigError("data_dir cannot be empty")
	}

	return nil
}

// ValidateForSubmission checks what a submission run needs beyond validateConfig
// and fills KeyLocation from the domain when it is unset.
func (c *Config) ValidateForSubmission() error {
	var errs []error
	if c.Site.Domain == "" {
		errs = append(errs, utils.NewConfigError("site domain is required (INDEXNOW_SITE_DOMAIN)"))
	}
	if c.IndexNow.Key == "" {
		errs = append(errs, utils.NewConfigError("IndexNow key is required (INDEXNOW_INDEXNOW_KEY)"))
	} else if !utils.ValidateAPIKey(c.IndexNow.Key) {
		errs = append(errs, utils.NewValidationError("IndexNow key must be 8-128 hexadecimal characters"))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	if c.IndexNow.KeyLocation == "" {
		c.IndexNow.KeyLocation = indexnow.KeyLocationURL(c.Site.Domain, c.IndexNow.Key)
	}
	return nil
}
