package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/blob/s3"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/cache/redis"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/config"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/domain"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/pipeline"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/platform/polymarket"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/store/postgres"
)

// Dependencies bundles everything the application modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Markets  domain.MarketStore
	Prices   domain.PriceStore
	Progress domain.ProgressStore

	Gamma   *polymarket.GammaClient
	Clob    *polymarket.ClobClient
	Limiter domain.Limiter

	// Archiver is nil when the archive is disabled.
	Archiver pipeline.SeriesArchiver

	WsURL string
}

// Wire constructs the concrete dependency implementations from the given
// configuration. The returned cleanup releases connections in reverse
// order and must be called on shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{WsURL: cfg.Polymarket.WsHost}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	deps.Markets = postgres.NewMarketStore(pgClient)
	deps.Prices = postgres.NewPriceStore(pgClient)
	deps.Progress = postgres.NewProgressStore(pgClient)

	// --- Rate limiter: shared via Redis when configured, local otherwise ---
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Limiter = redis.NewRateLimiter(redisClient, cfg.Collector.RatePerSecond, time.Second)
		logger.Info("using shared redis rate limiter",
			slog.Int("rate_per_second", cfg.Collector.RatePerSecond),
		)
	} else {
		deps.Limiter = pipeline.NewLocalLimiter(cfg.Collector.RequestDelay.Duration)
		logger.Info("using local rate limiter",
			slog.Duration("request_delay", cfg.Collector.RequestDelay.Duration),
		)
	}

	// --- Polymarket API clients ---
	retry := polymarket.RetryPolicy{
		MaxAttempts: cfg.Collector.MaxRetries,
		BaseDelay:   cfg.Collector.RetryDelay.Duration,
	}
	deps.Gamma = polymarket.NewGammaClient(cfg.Polymarket.GammaHost, deps.Limiter, retry, cfg.Collector.RequestTimeout.Duration)
	deps.Clob = polymarket.NewClobClient(cfg.Polymarket.ClobHost, deps.Limiter, retry, cfg.Collector.RequestTimeout.Duration)

	// --- S3 series archive (optional) ---
	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.Archive.Endpoint,
			Region:         cfg.Archive.Region,
			Bucket:         cfg.Archive.Bucket,
			AccessKey:      cfg.Archive.AccessKey,
			SecretKey:      cfg.Archive.SecretKey,
			UseSSL:         cfg.Archive.UseSSL,
			ForcePathStyle: cfg.Archive.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = pipeline.NewArchiver(s3blob.NewWriter(s3Client), cfg.Archive.Prefix, logger)
		logger.Info("series archive enabled",
			slog.String("bucket", cfg.Archive.Bucket),
			slog.String("prefix", cfg.Archive.Prefix),
		)
	}

	return deps, cleanup, nil
}
