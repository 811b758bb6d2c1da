package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies POLYHIST_* environment variable overrides, and
// returns the final Config. A missing file is not an error; defaults plus
// env overrides apply. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known POLYHIST_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at run time without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Polymarket ──
	setStr(&cfg.Polymarket.GammaHost, "POLYHIST_GAMMA_HOST")
	setStr(&cfg.Polymarket.ClobHost, "POLYHIST_CLOB_HOST")
	setStr(&cfg.Polymarket.WsHost, "POLYHIST_WS_HOST")

	// ── Database ──
	setStr(&cfg.Database.DSN, "POLYHIST_DATABASE_DSN")
	setStr(&cfg.Database.Host, "POLYHIST_DATABASE_HOST")
	setInt(&cfg.Database.Port, "POLYHIST_DATABASE_PORT")
	setStr(&cfg.Database.Database, "POLYHIST_DATABASE_NAME")
	setStr(&cfg.Database.User, "POLYHIST_DATABASE_USER")
	setStr(&cfg.Database.Password, "POLYHIST_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "POLYHIST_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "POLYHIST_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "POLYHIST_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "POLYHIST_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "POLYHIST_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "POLYHIST_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "POLYHIST_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "POLYHIST_REDIS_POOL_SIZE")
	setBool(&cfg.Redis.TLSEnabled, "POLYHIST_REDIS_TLS_ENABLED")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "POLYHIST_ARCHIVE_ENABLED")
	setStr(&cfg.Archive.Endpoint, "POLYHIST_ARCHIVE_ENDPOINT")
	setStr(&cfg.Archive.Region, "POLYHIST_ARCHIVE_REGION")
	setStr(&cfg.Archive.Bucket, "POLYHIST_ARCHIVE_BUCKET")
	setStr(&cfg.Archive.AccessKey, "POLYHIST_ARCHIVE_ACCESS_KEY")
	setStr(&cfg.Archive.SecretKey, "POLYHIST_ARCHIVE_SECRET_KEY")
	setBool(&cfg.Archive.UseSSL, "POLYHIST_ARCHIVE_USE_SSL")
	setBool(&cfg.Archive.ForcePathStyle, "POLYHIST_ARCHIVE_FORCE_PATH_STYLE")
	setStr(&cfg.Archive.Prefix, "POLYHIST_ARCHIVE_PREFIX")

	// ── Collector ──
	setInt(&cfg.Collector.PageSize, "POLYHIST_COLLECTOR_PAGE_SIZE")
	setInt(&cfg.Collector.MaxPages, "POLYHIST_COLLECTOR_MAX_PAGES")
	setInt(&cfg.Collector.MaxRetries, "POLYHIST_COLLECTOR_MAX_RETRIES")
	setDuration(&cfg.Collector.RetryDelay, "POLYHIST_COLLECTOR_RETRY_DELAY")
	setDuration(&cfg.Collector.RequestDelay, "POLYHIST_COLLECTOR_REQUEST_DELAY")
	setDuration(&cfg.Collector.RequestTimeout, "POLYHIST_COLLECTOR_REQUEST_TIMEOUT")
	setInt(&cfg.Collector.Workers, "POLYHIST_COLLECTOR_WORKERS")
	setInt(&cfg.Collector.RatePerSecond, "POLYHIST_COLLECTOR_RATE_PER_SECOND")
	setStr(&cfg.Collector.Interval, "POLYHIST_COLLECTOR_INTERVAL")
	setInt(&cfg.Collector.Fidelity, "POLYHIST_COLLECTOR_FIDELITY")

	// ── Backtest ──
	setStr(&cfg.Backtest.Strategy, "POLYHIST_BACKTEST_STRATEGY")
	setStr(&cfg.Backtest.Sizing, "POLYHIST_BACKTEST_SIZING")
	setInt(&cfg.Backtest.Lookback, "POLYHIST_BACKTEST_LOOKBACK")
	setFloat64(&cfg.Backtest.ZThreshold, "POLYHIST_BACKTEST_Z_THRESHOLD")
	setFloat64(&cfg.Backtest.InitialBankroll, "POLYHIST_BACKTEST_INITIAL_BANKROLL")
	setFloat64(&cfg.Backtest.Stake, "POLYHIST_BACKTEST_STAKE")
	setFloat64(&cfg.Backtest.ResolutionThreshold, "POLYHIST_BACKTEST_RESOLUTION_THRESHOLD")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "POLYHIST_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
