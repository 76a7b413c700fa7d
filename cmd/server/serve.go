package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"opticpos/internal/cache"
	"opticpos/internal/config"
	"opticpos/internal/httpapi"
	"opticpos/internal/logger"
	"opticpos/internal/sequence"
	"opticpos/internal/service"
	"opticpos/internal/store"
	"opticpos/internal/store/memory"
	pgstore "opticpos/internal/store/postgres"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API.

Storage is PostgreSQL when DATABASE_URL is set, otherwise an in-memory store
seeded with demo data. REDIS_ADDR enables the catalog cache and, in atomic
sequence mode, the Redis invoice counter.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func setupLogging(cfg config.Config) error {
	logCfg := logger.DefaultConfig()
	if cfg.LogLevel != "" {
		logCfg.Level = cfg.LogLevel
	}
	if cfg.LogFormat != "" {
		logCfg.Format = cfg.LogFormat
	}
	return logger.Setup(logCfg)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	if err := setupLogging(cfg); err != nil {
		return fmt.Errorf("invalid logging configuration: %w", err)
	}
	log := logger.WithComponent("server")

	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("postgres unavailable and DATABASE_URL is set, refusing to start with in-memory fallback: %w", err)
		}
		applied, err := pg.Migrate(ctx)
		if err != nil {
			_ = pg.Close()
			return fmt.Errorf("migrate: %w", err)
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Info().Int("migrations_applied", applied).Msg("repository: postgres")
	} else {
		repo = memory.NewSeeded()
		log.Info().Msg("repository: in-memory")
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		client := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, using noop cache and store counter")
			_ = client.Close()
		} else {
			redisClient = client
			closers = append(closers, client.Close)
			log.Info().Str("addr", cfg.RedisAddr).Msg("cache: redis")
		}
	}

	catalog := cache.CatalogCache(cache.NoopCatalogCache{})
	var counter sequence.Counter = sequence.NewStoreCounter(repo, sequence.InvoiceCounterName)
	if redisClient != nil {
		catalog = cache.NewRedisCatalogCache(redisClient)
		counter = sequence.NewRedisCounter(redisClient, sequence.InvoiceCounterName)
	}

	seq, err := sequence.New(ctx, cfg.SequenceMode, cfg.InvoicePrefix, repo, counter)
	if err != nil {
		return err
	}
	log.Info().Str("mode", cfg.SequenceMode).Str("prefix", cfg.InvoicePrefix).Msg("invoice sequencer ready")

	svc := service.New(repo, catalog, seq, service.Options{
		ItemIDPrefix:     cfg.ItemIDPrefix,
		BulkItemIDPrefix: cfg.BulkItemIDPrefix,
		CatalogCacheTTL:  time.Duration(cfg.CatalogCacheTTLSeconds) * time.Second,
	})
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo)
	api := httpapi.New(svc, auth, cfg.AllowedOrigins)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Address()).Str("version", version).Msg("opticpos listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-sig:
	case runErr = <-serverErr:
		log.Error().Err(runErr).Msg("server error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("shutdown error")
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Warn().Err(err).Msg("close error")
		}
	}

	log.Info().Msg("server stopped")
	return runErr
}

func validateConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	switch cfg.SequenceMode {
	case "", sequence.ModeCount, sequence.ModeAtomic:
	default:
		return fmt.Errorf("SEQUENCE_MODE must be %q or %q, got %q", sequence.ModeCount, sequence.ModeAtomic, cfg.SequenceMode)
	}
	if cfg.InvoicePrefix == "" {
		return fmt.Errorf("INVOICE_PREFIX must not be empty")
	}
	if cfg.ItemIDPrefix == cfg.BulkItemIDPrefix {
		return fmt.Errorf("ITEM_ID_PREFIX and BULK_ITEM_ID_PREFIX must differ")
	}
	return nil
}
