// Package config defines the top-level configuration for the collector and
// backtester and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by POLYHIST_* environment
// variables.
type Config struct {
	Polymarket PolymarketConfig `toml:"polymarket"`
	Database   DatabaseConfig   `toml:"database"`
	Redis      RedisConfig      `toml:"redis"`
	Archive    ArchiveConfig    `toml:"archive"`
	Collector  CollectorConfig  `toml:"collector"`
	Backtest   BacktestConfig   `toml:"backtest"`
	LogLevel   string           `toml:"log_level"`
}

// PolymarketConfig holds Polymarket API endpoints.
type PolymarketConfig struct {
	GammaHost string `toml:"gamma_host"`
	ClobHost  string `toml:"clob_host"`
	WsHost    string `toml:"ws_host"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. An empty Addr disables
// Redis entirely; the collector then falls back to a local in-process
// rate limiter.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ArchiveConfig holds S3-compatible object storage parameters for the
// optional post-collection series archive.
type ArchiveConfig struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
}

// CollectorConfig holds discovery and collection parameters.
type CollectorConfig struct {
	PageSize       int      `toml:"page_size"`
	MaxPages       int      `toml:"max_pages"`
	MaxRetries     int      `toml:"max_retries"`
	RetryDelay     duration `toml:"retry_delay"`
	RequestDelay   duration `toml:"request_delay"`
	RequestTimeout duration `toml:"request_timeout"`
	Workers        int      `toml:"workers"`
	RatePerSecond  int      `toml:"rate_per_second"`
	Interval       string   `toml:"interval"`
	Fidelity       int      `toml:"fidelity"`
}

// BacktestConfig holds evaluator parameters.
type BacktestConfig struct {
	Strategy            string  `toml:"strategy"`
	Sizing              string  `toml:"sizing"`
	Lookback            int     `toml:"lookback"`
	ZThreshold          float64 `toml:"z_threshold"`
	EntryBelow          float64 `toml:"entry_below"`
	TakeProfit          float64 `toml:"take_profit"`
	StopLoss            float64 `toml:"stop_loss"`
	InitialBankroll     float64 `toml:"initial_bankroll"`
	Stake               float64 `toml:"stake"`
	KellyWinProb        float64 `toml:"kelly_win_prob"`
	KellyRewardRisk     float64 `toml:"kelly_reward_risk"`
	KellyMultiplier     float64 `toml:"kelly_multiplier"`
	ResolutionThreshold float64 `toml:"resolution_threshold"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "500ms", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "500ms" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			GammaHost: "https://gamma-api.polymarket.com",
			ClobHost:  "https://clob.polymarket.com",
			WsHost:    "wss://ws-subscriptions-clob.polymarket.com/ws/market",
		},
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "polyhist",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "",
			DB:         0,
			PoolSize:   10,
			MaxRetries: 3,
		},
		Archive: ArchiveConfig{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "polyhist-archive",
			UseSSL:         false,
			ForcePathStyle: true,
			Prefix:         "series",
		},
		Collector: CollectorConfig{
			PageSize:       100,
			MaxPages:       200,
			MaxRetries:     3,
			RetryDelay:     duration{500 * time.Millisecond},
			RequestDelay:   duration{400 * time.Millisecond},
			RequestTimeout: duration{15 * time.Second},
			Workers:        1,
			RatePerSecond:  2,
			Interval:       "max",
			Fidelity:       60,
		},
		Backtest: BacktestConfig{
			Strategy:            "mean_reversion",
			Sizing:              "fixed",
			Lookback:            24,
			ZThreshold:          1.5,
			EntryBelow:          0.15,
			TakeProfit:          0.10,
			StopLoss:            0.05,
			InitialBankroll:     1000,
			Stake:               10,
			KellyWinProb:        0.55,
			KellyRewardRisk:     1.5,
			KellyMultiplier:     0.5,
			ResolutionThreshold: 0.95,
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// maxWorkers caps the collector fan-out. Unbounded parallel fetching
// triggers upstream throttling that corrupts collection results.
const maxWorkers = 8

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Polymarket.GammaHost == "" {
		errs = append(errs, "polymarket: gamma_host must not be empty")
	}
	if c.Polymarket.ClobHost == "" {
		errs = append(errs, "polymarket: clob_host must not be empty")
	}

	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}
	if c.Database.PoolMinConns < 0 {
		errs = append(errs, "database: pool_min_conns must be >= 0")
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
	}

	if c.Redis.Addr != "" && c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	if c.Archive.Enabled {
		if c.Archive.Endpoint == "" {
			errs = append(errs, "archive: endpoint must not be empty when enabled")
		}
		if c.Archive.Bucket == "" {
			errs = append(errs, "archive: bucket must not be empty when enabled")
		}
	}

	if c.Collector.PageSize < 1 || c.Collector.PageSize > 500 {
		errs = append(errs, fmt.Sprintf("collector: page_size must be 1-500, got %d", c.Collector.PageSize))
	}
	if c.Collector.MaxPages < 1 {
		errs = append(errs, "collector: max_pages must be >= 1")
	}
	if c.Collector.MaxRetries < 0 {
		errs = append(errs, "collector: max_retries must be >= 0")
	}
	if c.Collector.RequestDelay.Duration < 0 {
		errs = append(errs, "collector: request_delay must not be negative")
	}
	if c.Collector.Workers < 1 || c.Collector.Workers > maxWorkers {
		errs = append(errs, fmt.Sprintf("collector: workers must be 1-%d, got %d", maxWorkers, c.Collector.Workers))
	}
	if c.Collector.Workers > 1 && c.Collector.RatePerSecond < 1 {
		errs = append(errs, "collector: rate_per_second must be >= 1 when workers > 1")
	}

	if c.Backtest.Sizing != "fixed" && c.Backtest.Sizing != "kelly" {
		errs = append(errs, fmt.Sprintf("backtest: sizing must be fixed or kelly, got %q", c.Backtest.Sizing))
	}
	if c.Backtest.Lookback < 2 {
		errs = append(errs, "backtest: lookback must be >= 2")
	}
	if c.Backtest.ZThreshold <= 0 {
		errs = append(errs, "backtest: z_threshold must be > 0")
	}
	if c.Backtest.InitialBankroll <= 0 {
		errs = append(errs, "backtest: initial_bankroll must be > 0")
	}
	if c.Backtest.KellyWinProb <= 0 || c.Backtest.KellyWinProb >= 1 {
		errs = append(errs, "backtest: kelly_win_prob must be in (0,1)")
	}
	if c.Backtest.KellyRewardRisk <= 0 {
		errs = append(errs, "backtest: kelly_reward_risk must be > 0")
	}
	if c.Backtest.ResolutionThreshold < 0.5 || c.Backtest.ResolutionThreshold > 1 {
		errs = append(errs, "backtest: resolution_threshold must be in [0.5,1]")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
