// Command reqstate-watch keeps one resource fresh and serves its request
// state over HTTP.
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
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/reqstate/internal/config"
	"github.com/Sternrassler/reqstate/pkg/cache"
	"github.com/Sternrassler/reqstate/pkg/descriptor"
	"github.com/Sternrassler/reqstate/pkg/executor"
	"github.com/Sternrassler/reqstate/pkg/logging"
	"github.com/Sternrassler/reqstate/pkg/request"
	"github.com/Sternrassler/reqstate/pkg/transport"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("reqstate-watch failed")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	exec := executor.New(transport.NewHTTP(transport.Config{UserAgent: cfg.UserAgent}), store)
	req := mount(ctx, exec, cfg, logger)
	defer req.Close()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           newRouter(req),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().
			Str("addr", cfg.ListenAddr).
			Str("url", cfg.URL).
			Str("cache_policy", cfg.CachePolicy.String()).
			Str("cache_backend", cfg.CacheBackend).
			Dur("poll_interval", cfg.PollInterval).
			Msg("Starting reqstate-watch")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// mount warms the cache for the configured resource and starts watching it.
func mount(ctx context.Context, exec *executor.Executor, cfg *config.Config, logger zerolog.Logger) *request.Request {
	d := descriptor.URL(cfg.URL)

	if h := exec.Warmup(ctx, d, cfg.CachePolicy); h != nil {
		logger.Info().Str("url", cfg.URL).Msg("Warming result cache")
	}

	return request.New(d,
		request.WithExecutor(exec),
		request.WithCachePolicy(cfg.CachePolicy),
		request.WithPollInterval(cfg.PollInterval),
		request.WithOnSuccess(func(payload []byte) {
			logger.Debug().Int("bytes", len(payload)).Msg("Resource refreshed")
		}),
		request.WithOnError(func(err error) {
			logger.Error().Err(err).Msg("Resource fetch failed")
		}),
	)
}

// openStore builds the configured result store and returns a release func.
func openStore(ctx context.Context, cfg *config.Config) (cache.Store, func(), error) {
	switch cfg.CacheBackend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return cache.NewRedisStore(client), func() { client.Close() }, nil

	case config.BackendSQLite:
		store, err := cache.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil

	default:
		return cache.NewMemoryStore(), func() {}, nil
	}
}
