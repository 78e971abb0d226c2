package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. ARCACHE_CACHE_ROOT_DIR
const EnvPrefix = "ARCACHE"

// Config represents the entire application configuration
type Config struct {
	Cache      CacheConfig       `mapstructure:"cache"`
	S3         S3Config          `mapstructure:"s3"`
	HTTP       HTTPConfig        `mapstructure:"http"`
	Logging    LoggingConfig     `mapstructure:"logging"`
	Database   DatabaseConfig    `mapstructure:"database"`
	Prefetch   PrefetchConfig    `mapstructure:"prefetch"`
	Placeables []PlaceableConfig `mapstructure:"placeables"`
}

// CacheConfig contains download cache settings
type CacheConfig struct {
	RootDir             string        `mapstructure:"root_dir"`
	FetchTimeout        time.Duration `mapstructure:"fetch_timeout"`
	UserAgent           string        `mapstructure:"user_agent"`
	UnknownSizeProgress float64       `mapstructure:"unknown_size_progress"`
	CoalesceRequests    bool          `mapstructure:"coalesce_requests"`
	CrossProcessLock    bool          `mapstructure:"cross_process_lock"`
	PreferLocalURL      bool          `mapstructure:"prefer_local_url"`
	ProgressLogInterval time.Duration `mapstructure:"progress_log_interval"`

	// MaxSizeMB and MaxDiskUsagePercent enable eviction when positive
	MaxSizeMB           int64         `mapstructure:"max_size_mb"`
	MaxDiskUsagePercent float64       `mapstructure:"max_disk_usage_percent"`
	EvictionInterval    time.Duration `mapstructure:"eviction_interval"`
	CleanupInterval     time.Duration `mapstructure:"cleanup_interval"`
	EventMaxAge         time.Duration `mapstructure:"event_max_age"`
}

// S3Config contains settings for s3:// identifiers
type S3Config struct {
	Enabled      bool   `mapstructure:"enabled"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

// HTTPConfig contains HTTP server configuration
type HTTPConfig struct {
	BindAddr     string        `mapstructure:"bind_addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// PrefetchConfig controls downloading the whole catalog
type PrefetchConfig struct {
	OnStartup   bool `mapstructure:"on_startup"`
	Concurrency int  `mapstructure:"concurrency"`
}

// PlaceableConfig is a catalog item seeded at startup
type PlaceableConfig struct {
	Name             string `mapstructure:"name"`
	Icon             string `mapstructure:"icon"`
	DownloadURL      string `mapstructure:"download_url"`
	LocalDownloadURL string `mapstructure:"local_download_url"`
}

// Load loads configuration from the specified file path. An empty path
// uses defaults and environment overrides only.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	hooks := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(&config, viper.DecodeHook(hooks)); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("cache.root_dir", "./data/cache")
	v.SetDefault("cache.fetch_timeout", "10m")
	v.SetDefault("cache.user_agent", "ar-asset-cache/1.0")
	v.SetDefault("cache.unknown_size_progress", 0.5)
	v.SetDefault("cache.coalesce_requests", true)
	v.SetDefault("cache.cross_process_lock", false)
	v.SetDefault("cache.prefer_local_url", false)
	v.SetDefault("cache.progress_log_interval", "5s")
	v.SetDefault("cache.max_size_mb", 0)
	v.SetDefault("cache.max_disk_usage_percent", 0)
	v.SetDefault("cache.eviction_interval", "5m")
	v.SetDefault("cache.cleanup_interval", "1h")
	v.SetDefault("cache.event_max_age", "168h")
	v.SetDefault("s3.enabled", false)
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.use_path_style", false)
	v.SetDefault("http.bind_addr", "0.0.0.0:8080")
	v.SetDefault("http.read_timeout", "30s")
	v.SetDefault("http.write_timeout", "15m")
	v.SetDefault("http.idle_timeout", "60s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file_path", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)
	v.SetDefault("database.path", "./data/ar-asset-cache.db")
	v.SetDefault("prefetch.on_startup", false)
	v.SetDefault("prefetch.concurrency", 4)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Cache.RootDir == "" {
		return fmt.Errorf("cache.root_dir is required")
	}
	if c.Cache.FetchTimeout <= 0 {
		return fmt.Errorf("cache.fetch_timeout must be positive")
	}
	if c.Cache.UnknownSizeProgress <= 0 || c.Cache.UnknownSizeProgress >= 1 {
		return fmt.Errorf("cache.unknown_size_progress must be between 0 and 1 (exclusive)")
	}
	if c.Cache.CrossProcessLock && !c.Cache.CoalesceRequests {
		return fmt.Errorf("cache.cross_process_lock requires cache.coalesce_requests")
	}
	if c.Cache.MaxSizeMB < 0 {
		return fmt.Errorf("cache.max_size_mb must not be negative")
	}
	if c.Cache.MaxDiskUsagePercent < 0 || c.Cache.MaxDiskUsagePercent > 100 {
		return fmt.Errorf("cache.max_disk_usage_percent must be between 0 and 100")
	}
	if c.Cache.EvictionInterval <= 0 || c.Cache.CleanupInterval <= 0 || c.Cache.EventMaxAge <= 0 {
		return fmt.Errorf("cache.eviction_interval, cache.cleanup_interval and cache.event_max_age must be positive")
	}

	if c.HTTP.BindAddr == "" {
		return fmt.Errorf("http.bind_addr is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Prefetch.Concurrency < 1 || c.Prefetch.Concurrency > 32 {
		return fmt.Errorf("prefetch.concurrency must be between 1 and 32")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid logging.format: %s", c.Logging.Format)
	}

	seen := make(map[string]bool, len(c.Placeables))
	for i, p := range c.Placeables {
		if p.Name == "" {
			return fmt.Errorf("placeables[%d].name is required", i)
		}
		if p.DownloadURL == "" {
			return fmt.Errorf("placeables[%d].download_url is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate placeable name: %s", p.Name)
		}
		seen[p.Name] = true
	}

	return nil
}

// MaxSizeBytes returns the cache size limit in bytes, 0 when unlimited
func (c *CacheConfig) MaxSizeBytes() int64 {
	return c.MaxSizeMB * 1024 * 1024
}

// EvictionEnabled reports whether a cache budget is configured
func (c *CacheConfig) EvictionEnabled() bool {
	return c.MaxSizeMB > 0 || c.MaxDiskUsagePercent > 0
}
