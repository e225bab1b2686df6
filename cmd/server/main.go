// Package main is the recommendation engine's API server entry point.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fashion-reco/reco-engine/internal/config"
	"github.com/fashion-reco/reco-engine/internal/feedback"
	"github.com/fashion-reco/reco-engine/internal/guard"
	"github.com/fashion-reco/reco-engine/internal/httpapi"
	"github.com/fashion-reco/reco-engine/internal/logging"
	"github.com/fashion-reco/reco-engine/internal/metrics"
	"github.com/fashion-reco/reco-engine/internal/ratelimit"
	"github.com/fashion-reco/reco-engine/internal/reccache"
	"github.com/fashion-reco/reco-engine/internal/recommend"
	"github.com/fashion-reco/reco-engine/internal/sessionlock"
	"github.com/fashion-reco/reco-engine/internal/storage/mongostore"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()
	log := logging.Default("server")
	log.Info("starting recommendation engine", "env", string(cfg.Env), "config", cfg.String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := mongostore.NewStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.WithError(err).Error("connecting to MongoDB failed")
		os.Exit(1)
	}
	defer store.Close(context.Background())
	log.Info("connected to MongoDB", "database", cfg.MongoDatabase)

	tables := guard.Tables(guard.NewMemoryTables())
	if cfg.RedisURL != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.WithError(err).Error("connecting to Redis failed, falling back to in-memory guard tables")
		} else {
			tables = guard.NewRedisTables(redisClient, "fashion-reco")
			log.Info("connected to Redis for guard tables")
		}
	}
	g := guard.New(tables)
	if !cfg.SkipCleanup() {
		go g.RunCleanup(ctx)
	} else {
		log.Info("guard auto-cleanup disabled")
	}

	rules, err := ratelimit.LoadTuning(cfg.RateLimitTuningFile)
	if err != nil {
		log.WithError(err).Error("loading rate limit tuning file failed, using defaults")
		rules = ratelimit.DefaultRules()
	}
	limiter := ratelimit.New(rules, cfg.RateLimitWhitelist)

	cache := reccache.New(cfg.CacheMaxSize, cfg.CacheTTL)

	locker := sessionlock.New()
	mtr := metrics.New("fashion_reco")

	engine := recommend.New(store, locker, cache, logging.Default("recommend"))
	processor := feedback.New(store, locker, cache, logging.Default("feedback"))

	server := &httpapi.Server{
		Store:    store,
		Engine:   engine,
		Feedback: processor,
		Guard:    g,
		Limiter:  limiter,
		Cache:    cache,
		Metrics:  mtr,
		Config:   cfg,
		Log:      log,
	}

	httpServer := &http.Server{
		Addr:         cfg.Host + ":" + cfg.Port,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("server shutdown error")
		}
		cancel()
	}()

	log.Info("listening", "addr", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Error("server error")
		os.Exit(1)
	}
}
