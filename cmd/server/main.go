package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/JonMunkholm/provimport/internal/compliance"
	"github.com/JonMunkholm/provimport/internal/config"
	"github.com/JonMunkholm/provimport/internal/core"
	"github.com/JonMunkholm/provimport/internal/extraction"
	"github.com/JonMunkholm/provimport/internal/logging"
	"github.com/JonMunkholm/provimport/internal/store/memory"
	"github.com/JonMunkholm/provimport/internal/store/postgres"
	"github.com/JonMunkholm/provimport/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"database", cfg.Database.URL != "",
		"redis", cfg.Redis.URL != "",
		"extraction", cfg.Extraction.Endpoint != "",
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	ctx := context.Background()

	var (
		jobs      core.JobStore
		providers core.ProviderStore
	)
	if cfg.Database.URL != "" {
		pool, err := openPool(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		store := postgres.New(pool)
		if cfg.Database.Migrate {
			if err := store.Migrate(ctx); err != nil {
				slog.Error("failed to migrate database", "error", err)
				os.Exit(1)
			}
		}
		jobs, providers = store, store
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory stores")
		jobs, providers = memory.NewJobStore(), memory.NewProviderStore()
	}

	var robotsCache compliance.Cache
	if cfg.Redis.URL != "" {
		client, err := openRedis(ctx, cfg.Redis)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		robotsCache = compliance.NewRedisCache(client)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svcCfg := core.ServiceConfig{
		Jobs:      jobs,
		Providers: providers,
		Compliance: compliance.New(compliance.Config{
			UserAgent: cfg.Extraction.UserAgent,
			Timeout:   cfg.Extraction.RobotsTimeout,
			CacheTTL:  cfg.Extraction.RobotsCacheTTL,
			Cache:     robotsCache,
			Metrics:   compliance.NewMetrics(reg),
		}),
		Security: core.SecurityPolicy{
			MaxFileSize:       cfg.Import.MaxFileSize,
			AllowedExtensions: cfg.Import.AllowedExtensions,
			BlockedDomains:    cfg.Extraction.BlockedDomains,
		},
		Rules: core.RuleConfig{
			LicenseWindowMonths: cfg.Rules.LicenseWindowMonths,
			ResidencyMinYears:   cfg.Rules.ResidencyMinYears,
			ResidencyMaxYears:   cfg.Rules.ResidencyMaxYears,
			ConfidenceFloor:     cfg.Rules.ConfidenceFloor,
		},
		DedupeEnabled:  cfg.Dedupe.Enabled,
		CandidateLimit: cfg.Dedupe.CandidateLimit,
		ReadTimeout:    cfg.Import.FileReadTimeout,
		ExtractTimeout: cfg.Extraction.Timeout,
		MaxConcurrent:  cfg.Import.MaxConcurrent,
		MaxWait:        cfg.Import.MaxWait,
		Metrics:        core.NewMetrics(reg),
	}
	if cfg.Extraction.Endpoint != "" {
		extractor, err := extraction.New(extraction.Config{
			Endpoint:  cfg.Extraction.Endpoint,
			APIKey:    cfg.Extraction.APIKey,
			UserAgent: cfg.Extraction.UserAgent,
		})
		if err != nil {
			slog.Error("failed to create extraction client", "error", err)
			os.Exit(1)
		}
		svcCfg.Extractor = extractor
	} else {
		slog.Info("EXTRACTION_ENDPOINT not set, URL imports disabled")
	}

	service, err := core.NewService(svcCfg)
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	var metrics http.Handler
	if cfg.Metrics.Enabled {
		metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}
	server := web.NewServer(service, cfg, metrics)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartRetentionScheduler(jobCtx, core.RetentionConfig{
		JobRetention:  cfg.Retention.JobRetention,
		CheckInterval: cfg.Retention.CheckInterval,
	})

	// Graceful shutdown
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Stop accepting requests, then wait for running imports
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
		if active := service.Limiter().Active(); active > 0 {
			slog.Info("waiting for imports to complete", "active", active)
			if err := service.Limiter().Drain(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			}
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-shutdownDone
	slog.Info("server stopped")
}

// openPool connects to PostgreSQL with the configured pool limits.
func openPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}

// openRedis connects the robots.txt decision cache.
func openRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	slog.Info("connected to redis", "addr", opts.Addr)
	return client, nil
}
