package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/riverglen/reddit-broker/internal/adminserver"
	"github.com/riverglen/reddit-broker/internal/cache"
	"github.com/riverglen/reddit-broker/internal/config"
	"github.com/riverglen/reddit-broker/internal/dispatch"
	"github.com/riverglen/reddit-broker/internal/errorreporting"
	"github.com/riverglen/reddit-broker/internal/handlers"
	"github.com/riverglen/reddit-broker/internal/ledger"
	"github.com/riverglen/reddit-broker/internal/logger"
	"github.com/riverglen/reddit-broker/internal/queue"
	"github.com/riverglen/reddit-broker/internal/ratepacer"
	"github.com/riverglen/reddit-broker/internal/redditclient"
	"github.com/riverglen/reddit-broker/internal/secrets"
	"github.com/riverglen/reddit-broker/internal/token"
	"github.com/riverglen/reddit-broker/internal/tracing"
)

// connectRetries/connectBackoff bound how long main waits for RabbitMQ to
// become reachable at startup, mirroring the teacher's database-connection
// retry shape in cmd/crawler.
const (
	connectRetries = 5
	connectBackoff = 2 * time.Second
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger.Init(cfg.LogLevel)
	logger.Info("initializing reddit api broker", "app", cfg.AppName, "log_level", cfg.LogLevel)

	if err := secrets.ValidateRequired(map[string]string{
		"REDDIT_USERNAME":      cfg.RedditUsername,
		"REDDIT_PASSWORD":      cfg.RedditPassword,
		"REDDIT_CLIENT_ID":     cfg.RedditClientID,
		"REDDIT_CLIENT_SECRET": cfg.RedditClientSecret,
	}); err != nil {
		logger.Error("missing required reddit credentials", "error", err)
		log.Fatalf("configuration error: %v", err)
	}

	if err := errorreporting.Init(cfg.SentryEnvironment); err != nil {
		logger.Warn("failed to initialize error reporting", "error", err)
	} else if errorreporting.IsSentryEnabled() {
		logger.Info("error reporting initialized", "environment", cfg.SentryEnvironment)
		defer func() {
			logger.Info("flushing error reports")
			errorreporting.Flush(2 * time.Second)
		}()
	}

	shutdownTracing, err := tracing.Init("reddit-api-broker")
	if err != nil {
		logger.Warn("failed to initialize tracing", "error", err)
	} else if cfg.OTELEnabled {
		logger.Info("tracing initialized", "endpoint", cfg.OTELEndpoint, "sample_rate", cfg.OTELSampleRate)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	}()

	q, err := connectWithRetry(cfg)
	if err != nil {
		logger.Error("failed to connect to amqp broker", "error", err)
		log.Fatalf("amqp connect failed: %v", err)
	}
	defer q.Close()

	respCache, err := cache.NewLRU(cfg.CacheMaxSizeMB, cfg.CacheMaxItems, cfg.CacheTTL)
	if err != nil {
		logger.Warn("failed to initialize response cache, proceeding without it", "error", err)
	}

	pacer := ratepacer.New(cfg.MinTimeBetweenRequests)
	auth := token.New(cfg, pacer)
	reddit := redditclient.New(cfg, cacheOrNil(respCache))
	registry := handlers.NewRegistry()
	ledg := ledger.New(nil)

	loop := dispatch.New(q, cfg.AMQPQueue, registry, reddit, auth, pacer, ledg, nil)

	admin := adminserver.New(cfg.AdminAddr, loop, ledg)
	admin.Start(ctx)

	logger.Info("dispatch loop starting", "inbound_queue", cfg.AMQPQueue, "min_interval", cfg.MinTimeBetweenRequests)
	if err := loop.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("dispatch loop exited with error", "error", err)
		errorreporting.CaptureError(err)
		log.Fatalf("dispatch loop failed: %v", err)
	}

	if shutdownTracing != nil {
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutCancel()
		if err := shutdownTracing(shutCtx); err != nil {
			logger.Error("failed to shutdown tracer", "error", err)
		}
	}

	logger.Info("reddit api broker shut down cleanly")
}

// connectWithRetry dials the AMQP broker, retrying with a fixed backoff —
// RabbitMQ and the broker process are typically started together by the
// surrounding orchestration and the broker may win the race.
func connectWithRetry(cfg *config.Config) (*queue.AMQPQueue, error) {
	var lastErr error
	for attempt := 1; attempt <= connectRetries; attempt++ {
		q, err := queue.Connect(cfg)
		if err == nil {
			return q, nil
		}
		lastErr = err
		logger.Warn("amqp connect attempt failed", "attempt", attempt, "error", err)
		time.Sleep(connectBackoff)
	}
	return nil, lastErr
}

// cacheOrNil adapts a possibly-nil *cache.LRUCache to the cache.Cache
// interface without leaving behind a non-nil interface wrapping a nil
// pointer, which would make the facade's nil checks ineffective.
func cacheOrNil(c *cache.LRUCache) cache.Cache {
	if c == nil {
		return nil
	}
	return c
}
