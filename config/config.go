package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log          Logger       `mapstructure:"logger"`
	DB           Database     `mapstructure:"database"`
	API          API          `mapstructure:"api"`
	Backtest     Backtest     `mapstructure:"backtest"`
	Cache        Cache        `mapstructure:"cache"`
	Breaker      Breaker      `mapstructure:"breaker"`
	Gemini       Gemini       `mapstructure:"gemini"`
	Perplexity   Perplexity   `mapstructure:"perplexity"`
	AlphaVantage AlphaVantage `mapstructure:"alpha_vantage"`
	YahooFinance YahooFinance `mapstructure:"yahoo_finance"`
	Binance      Binance      `mapstructure:"binance"`
	CoinGecko    CoinGecko    `mapstructure:"coingecko"`
	Telegram     Telegram     `mapstructure:"telegram"`
}

type Logger struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type Database struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	TimeZone        string `mapstructure:"time_zone"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

// DSN is the keyword/value form used by the gorm postgres driver.
func (d Database) DSN() string {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		d.Host, d.User, d.Password, d.DBName, d.Port, d.SSLMode)
	if d.TimeZone != "" {
		dsn += fmt.Sprintf(" TimeZone=%s", d.TimeZone)
	}
	return dsn
}

// URL is the postgres:// form used by golang-migrate.
func (d Database) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

type API struct {
	Port               int           `mapstructure:"port"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	RateLimitPerSecond float64       `mapstructure:"rate_limit_per_second"`
	RateLimitBurst     int           `mapstructure:"rate_limit_burst"`
}

type Backtest struct {
	MaxConcurrency      int           `mapstructure:"max_concurrency"`
	RunTimeout          time.Duration `mapstructure:"run_timeout"`
	Commission          float64       `mapstructure:"commission"`
	Slippage            float64       `mapstructure:"slippage"`
	AnnualizationFactor float64       `mapstructure:"annualization_factor"`
	StaleAfter          time.Duration `mapstructure:"stale_after"`
	ReaperCron          string        `mapstructure:"reaper_cron"`
	SeedStrategy        bool          `mapstructure:"seed_strategy"`
	SyntheticFallback   bool          `mapstructure:"synthetic_fallback"`
}

type Cache struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
	MarketDataTTL     time.Duration `mapstructure:"market_data_ttl"`
}

type Breaker struct {
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
	OpenTimeout         time.Duration `mapstructure:"open_timeout"`
	HalfOpenRequests    uint32        `mapstructure:"half_open_requests"`
}

type Gemini struct {
	APIKey              string        `mapstructure:"api_key"`
	BaseModel           string        `mapstructure:"base_model"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	MaxTokenPerMinute   int           `mapstructure:"max_token_per_minute"`
}

type Perplexity struct {
	BaseURL             string        `mapstructure:"base_url"`
	APIKey              string        `mapstructure:"api_key"`
	Model               string        `mapstructure:"model"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
}

type AlphaVantage struct {
	BaseURL             string        `mapstructure:"base_url"`
	APIKey              string        `mapstructure:"api_key"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
}

type YahooFinance struct {
	BaseURL             string        `mapstructure:"base_url"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	Range               string        `mapstructure:"range"`
}

type Binance struct {
	BaseURL             string        `mapstructure:"base_url"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	QuoteAsset          string        `mapstructure:"quote_asset"`
	Limit               int           `mapstructure:"limit"`
}

type CoinGecko struct {
	BaseURL             string        `mapstructure:"base_url"`
	APIKey              string        `mapstructure:"api_key"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	Days                int           `mapstructure:"days"`
}

type Telegram struct {
	BotToken string        `mapstructure:"bot_token"`
	ChatID   int64         `mapstructure:"chat_id"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")

	v.SetDefault("api.port", 8080)
	v.SetDefault("api.request_timeout", 30*time.Second)
	v.SetDefault("api.rate_limit_per_second", 10)
	v.SetDefault("api.rate_limit_burst", 30)

	v.SetDefault("backtest.max_concurrency", 4)
	v.SetDefault("backtest.run_timeout", 2*time.Minute)
	v.SetDefault("backtest.commission", 0.001)
	v.SetDefault("backtest.slippage", 0.0005)
	v.SetDefault("backtest.annualization_factor", 252)
	v.SetDefault("backtest.stale_after", 15*time.Minute)
	v.SetDefault("backtest.reaper_cron", "*/5 * * * *")
	v.SetDefault("backtest.seed_strategy", true)
	v.SetDefault("backtest.synthetic_fallback", true)

	v.SetDefault("cache.default_expiration", 10*time.Minute)
	v.SetDefault("cache.cleanup_interval", 15*time.Minute)
	v.SetDefault("cache.market_data_ttl", time.Hour)

	v.SetDefault("breaker.consecutive_failures", 3)
	v.SetDefault("breaker.open_timeout", time.Minute)
	v.SetDefault("breaker.half_open_requests", 1)

	v.SetDefault("gemini.base_model", "gemini-2.0-flash")
	v.SetDefault("gemini.timeout", 60*time.Second)
	v.SetDefault("gemini.max_request_per_minute", 10)
	v.SetDefault("gemini.max_token_per_minute", 250000)

	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("perplexity.timeout", 60*time.Second)
	v.SetDefault("perplexity.max_request_per_minute", 20)

	v.SetDefault("alpha_vantage.base_url", "https://www.alphavantage.co")
	v.SetDefault("alpha_vantage.timeout", 30*time.Second)
	v.SetDefault("alpha_vantage.max_request_per_minute", 5)

	v.SetDefault("yahoo_finance.base_url", "https://query1.finance.yahoo.com/v8/finance/chart")
	v.SetDefault("yahoo_finance.timeout", 30*time.Second)
	v.SetDefault("yahoo_finance.max_request_per_minute", 30)
	v.SetDefault("yahoo_finance.range", "5y")

	v.SetDefault("binance.base_url", "https://api.binance.com")
	v.SetDefault("binance.timeout", 30*time.Second)
	v.SetDefault("binance.max_request_per_minute", 600)
	v.SetDefault("binance.quote_asset", "USDT")
	v.SetDefault("binance.limit", 1000)

	v.SetDefault("coingecko.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("coingecko.timeout", 30*time.Second)
	v.SetDefault("coingecko.max_request_per_minute", 10)
	v.SetDefault("coingecko.days", 365)

	v.SetDefault("telegram.timeout", 10*time.Second)

	// keys without a sensible default still need registering so env overrides reach Unmarshal
	for _, key := range []string{
		"database.host", "database.port", "database.user", "database.password", "database.name",
		"database.ssl_mode", "gemini.api_key", "perplexity.api_key", "alpha_vantage.api_key",
		"coingecko.api_key", "telegram.bot_token", "telegram.chat_id",
	} {
		_ = v.BindEnv(key)
	}
}

// Load reads config.yaml from the working directory. A .env file, when present, is
// loaded into the process environment first so both sources can override keys.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file loaded:", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Println("No config file loaded:", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &cfg, nil
}
