// Command batchdemo wires up and runs the batch dispatcher standalone:
// it builds the stack, starts the Processor and waits for SIGINT/SIGTERM
// to shut it down. It submits no requests of its own. Grounded on
// worker_server/main.go's logger-init / godotenv.Load / signal-driven
// graceful shutdown shape.
package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/bridgify/batchdispatch/config"
	"github.com/bridgify/batchdispatch/internal/batchworker"
	"github.com/bridgify/batchdispatch/internal/cache"
	"github.com/bridgify/batchdispatch/internal/clock"
	"github.com/bridgify/batchdispatch/internal/endpoint"
	"github.com/bridgify/batchdispatch/internal/metrics"
	"github.com/bridgify/batchdispatch/internal/processor"
	"github.com/bridgify/batchdispatch/internal/ratelimit"
)

const shutdownTimeout = 30 * time.Second

func main() {
	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		With().Timestamp().Str("component", "batchdemo").Logger()

	if err := godotenv.Load(); err != nil {
		zlog.Debug().Msg("no .env file found, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load config")
	}

	clk := clock.Real{}
	m := metrics.New()

	var limiter ratelimit.RateLimiter
	var respCache cache.Store

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			zlog.Fatal().Err(err).Msg("invalid redis url")
		}
		rdb := redis.NewClient(opts)
		limiter = ratelimit.NewRedisWindow(rdb, "batchdispatch", cfg.RequestsPerMinute, cfg.RequestsPerHour)
		l1 := cache.New(cfg.CacheMaxEntries, cfg.CacheTTL, clk)
		respCache = cache.NewRedisMirror(l1, rdb, "batchdispatch:cache", cfg.CacheTTL)
	} else {
		limiter = ratelimit.New(cfg.RequestsPerMinute, cfg.RequestsPerHour, clk)
		respCache = cache.New(cfg.CacheMaxEntries, cfg.CacheTTL, clk)
	}

	ep := endpoint.New(cfg, zlog)
	worker := batchworker.New(limiter, ep, respCache, cfg.CacheTTL, m, zlog)
	proc := processor.New(cfg, worker, respCache, m, clk, zlog)

	proc.Start()
	zlog.Info().Msg("batch dispatcher started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	zlog.Info().Dur("timeout", shutdownTimeout).Msg("shutting down batch dispatcher")

	done := make(chan struct{})
	go func() {
		proc.Stop()
		close(done)
	}()

	select {
	case <-done:
		zlog.Info().Msg("batch dispatcher shut down gracefully")
	case <-time.After(shutdownTimeout):
		zlog.Warn().Msg("shutdown timed out, forcing exit")
		os.Exit(1)
	}
}
