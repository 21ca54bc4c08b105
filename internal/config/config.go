package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/armcoincrypto/Armcalc/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Price     PriceConfig     `mapstructure:"price"`
	Convert   ConvertConfig   `mapstructure:"convert"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Sampler   SamplerConfig   `mapstructure:"sampler"`
	History   HistoryConfig   `mapstructure:"history"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// TelegramConfig covers Bot API connectivity for the chat front end.
type TelegramConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	BotToken    string        `mapstructure:"bot_token"`
	APIBase     string        `mapstructure:"api_base"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
}

// FeedConfig governs the exchange-direction XML feed.
type FeedConfig struct {
	URL            string        `mapstructure:"url"`
	TTL            time.Duration `mapstructure:"ttl"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// PriceConfig governs the crypto price API.
type PriceConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	TTL            time.Duration `mapstructure:"ttl"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
}

// ConvertConfig holds defaults for the conversion panel and code resolution.
type ConvertConfig struct {
	DefaultUSDTNetwork string `mapstructure:"default_usdt_network"`
	DefaultAMDUnit     string `mapstructure:"default_amd_unit"`
	DefaultUSDUnit     string `mapstructure:"default_usd_unit"`
	DefaultRUBMethod   string `mapstructure:"default_rub_method"`
	AutoFix            bool   `mapstructure:"auto_fix"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig selects the optional Redis panel-state store.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SamplerConfig drives the periodic rate snapshot job.
type SamplerConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Interval      time.Duration `mapstructure:"interval"`
	AlignToBucket bool          `mapstructure:"align_to_bucket"`
	StartupDelay  time.Duration `mapstructure:"startup_delay"`
	TrackedPairs  []string      `mapstructure:"tracked_pairs"`
}

// HistoryConfig bounds per-user history retention.
type HistoryConfig struct {
	Limit int `mapstructure:"limit"`
}

// ExportConfig is resolved per invocation from CLI flags; only the cap lives here.
const DefaultExportMaxPoints = 100000

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ARMCALC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "armcalc")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.api_base", "https://api.telegram.org")
	v.SetDefault("telegram.poll_timeout", "30s")

	v.SetDefault("feed.url", "https://exswaping.com/currencies.xml")
	v.SetDefault("feed.ttl", "15m")
	v.SetDefault("feed.request_timeout", "10s")
	v.SetDefault("feed.max_retries", 3)
	v.SetDefault("feed.user_agent", "armcalc/2.1")

	v.SetDefault("price.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("price.ttl", "60s")
	v.SetDefault("price.request_timeout", "10s")
	v.SetDefault("price.max_retries", 3)

	v.SetDefault("convert.default_usdt_network", "trc20")
	v.SetDefault("convert.default_amd_unit", "cash")
	v.SetDefault("convert.default_usd_unit", "cash")
	v.SetDefault("convert.default_rub_method", "sberbank")
	v.SetDefault("convert.auto_fix", true)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("redis.db", 0)

	v.SetDefault("sampler.enabled", false)
	v.SetDefault("sampler.interval", "5m")
	v.SetDefault("sampler.align_to_bucket", true)
	v.SetDefault("sampler.startup_delay", "0s")
	v.SetDefault("sampler.tracked_pairs", []string{"usdt:amd", "amd:usdt", "usdt:usd"})

	v.SetDefault("history.limit", 10)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Feed.TTL <= 0 {
		return fmt.Errorf("feed.ttl must be greater than zero")
	}
	if c.Price.TTL <= 0 {
		return fmt.Errorf("price.ttl must be greater than zero")
	}
	if c.Feed.MaxRetries < 0 || c.Price.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative")
	}
	if c.Sampler.Enabled && c.Sampler.Interval <= 0 {
		return fmt.Errorf("sampler.interval must be greater than zero")
	}
	if c.History.Limit <= 0 {
		return fmt.Errorf("history.limit must be greater than zero")
	}
	if c.Telegram.Enabled && c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required when telegram.enabled")
	}
	return nil
}
