package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "PSX"

// minChunkDays is the shortest fixed fetch window accepted. The portal
// serves whole months, so shorter windows request the same month again for
// every window.
const minChunkDays = 28

type Config struct {
	Port     string         `mapstructure:"port"`
	DBPath   string         `mapstructure:"db_path"`
	Workers  int            `mapstructure:"workers"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Reports  ReportsConfig  `mapstructure:"reports"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Log      LogConfig      `mapstructure:"log"`
}

type FetchConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RateLimit    int           `mapstructure:"rate_limit"` // requests per second, 0 disables
	ChunkDays    int           `mapstructure:"chunk_days"` // 0 = calendar months, else at least minChunkDays
	Concurrency  int           `mapstructure:"concurrency"`
	Retries      int           `mapstructure:"retries"` // total attempts per unit, <= 1 disables
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

// BrowserConfig controls the headless browser that renders the Financial
// Reports tab. When it is disabled or Chrome is missing the tab is read as
// plain HTML.
type BrowserConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	NoSandbox bool          `mapstructure:"no_sandbox"`
	Settle    time.Duration `mapstructure:"settle"`
}

type ReportsConfig struct {
	Tab      string `mapstructure:"tab"`
	Years    int    `mapstructure:"years"`
	MaxPages int    `mapstructure:"max_pages"`
}

type ScheduleConfig struct {
	Cron         string   `mapstructure:"cron"` // empty disables the scheduler
	Symbols      []string `mapstructure:"symbols"`
	LookbackDays int      `mapstructure:"lookback_days"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format"` // "text" or "json"
}

// Load reads ./config.yaml or ~/.psx/config.yaml when present. Environment
// variables override file values, e.g. PSX_FETCH_RATE_LIMIT.
func Load() (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".psx"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return unmarshal(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("db_path", "psx.db")
	v.SetDefault("workers", 2)

	v.SetDefault("fetch.base_url", "https://dps.psx.com.pk")
	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("fetch.rate_limit", 10)
	v.SetDefault("fetch.chunk_days", 0)
	v.SetDefault("fetch.concurrency", 4)
	v.SetDefault("fetch.retries", 1)
	v.SetDefault("fetch.retry_backoff", time.Second)

	v.SetDefault("browser.enabled", true)
	v.SetDefault("browser.no_sandbox", false)
	v.SetDefault("browser.settle", 2*time.Second)

	v.SetDefault("reports.tab", "Financial Results")
	v.SetDefault("reports.years", 5)
	v.SetDefault("reports.max_pages", 20)

	v.SetDefault("schedule.cron", "")
	v.SetDefault("schedule.symbols", []string{})
	v.SetDefault("schedule.lookback_days", 7)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	switch {
	case c.Port == "":
		return errors.New("config: port is required")
	case c.DBPath == "":
		return errors.New("config: db_path is required")
	case c.Workers <= 0:
		return fmt.Errorf("config: workers must be positive, got %d", c.Workers)
	case c.Fetch.Concurrency <= 0:
		return fmt.Errorf("config: fetch.concurrency must be positive, got %d", c.Fetch.Concurrency)
	case c.Fetch.Timeout <= 0:
		return fmt.Errorf("config: fetch.timeout must be positive, got %s", c.Fetch.Timeout)
	case c.Fetch.ChunkDays < 0:
		return fmt.Errorf("config: fetch.chunk_days must not be negative, got %d", c.Fetch.ChunkDays)
	case c.Fetch.ChunkDays > 0 && c.Fetch.ChunkDays < minChunkDays:
		return fmt.Errorf("config: fetch.chunk_days must be 0 or at least %d, got %d", minChunkDays, c.Fetch.ChunkDays)
	case c.Browser.Settle < 0:
		return fmt.Errorf("config: browser.settle must not be negative, got %s", c.Browser.Settle)
	case c.Reports.Years < 0:
		return fmt.Errorf("config: reports.years must not be negative, got %d", c.Reports.Years)
	case c.Schedule.LookbackDays <= 0:
		return fmt.Errorf("config: schedule.lookback_days must be positive, got %d", c.Schedule.LookbackDays)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
