package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"time"

	"moviedb/proj/internal/api/tasks"
	"moviedb/proj/internal/config"
	"moviedb/proj/internal/lib/logger"
	"moviedb/proj/internal/services"
	"moviedb/proj/internal/storage/cache"
	"moviedb/proj/internal/storage/postgres"

	"github.com/joho/godotenv"
)

const (
	version = "1.0.0"

	startupTimeout   = 10 * time.Second
	bgWorkers        = 4
	bgTasksQueueSize = 100
)

func main() {
	cfgPath := flag.String("config", "config/local.yml", "path to config file")
	flag.Parse()
	// .env is optional, real environment variables win
	_ = godotenv.Load()
	cfg := config.MustLoad(*cfgPath)
	log := logger.SetupLogger(cfg.Debug, cfg.Log.File)

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	storage, err := postgres.New(ctx, cfg.DB.Dsn, cfg.DB.MaxConns, cfg.DB.MaxConnIdleTime)
	if err != nil {
		panic(err)
	}
	defer storage.Close()
	log.Info("database connection established")
	if cfg.DB.Migrate {
		if err := storage.Migrate(ctx); err != nil {
			panic(err)
		}
		log.Info("database migrations applied")
	}
	queryCache := setupCache(ctx, log, cfg)
	if closer, ok := queryCache.(io.Closer); ok {
		defer closer.Close()
	}

	bgTasks := tasks.New(log, bgWorkers, bgTasksQueueSize)
	bgTasks.Run()
	svcs := services.New(log, cfg, storage, queryCache, bgTasks)
	defer svcs.Close()

	runCtx, stop := context.WithCancel(context.Background())
	defer stop()
	sessionEvents := svcs.Auth.Subscribe(runCtx)
	go svcs.State.Follow(runCtx, sessionEvents.C)
	go svcs.Auth.RunExpiryLoop(runCtx, cfg.Sessions.SweepInterval)

	app := NewApplication(cfg, log, svcs, bgTasks)
	if err := app.serve(); err != nil {
		log.Error("shutting down the server", "reason", err.Error())
		stop()
		os.Exit(1)
	}
}

// setupCache picks redis when an address is configured and falls back to an
// in-process LRU otherwise.
func setupCache(ctx context.Context, log *slog.Logger, cfg *config.Config) cache.Cache {
	if cfg.Cache.RedisAddr == "" {
		log.Info("using in-memory query cache", "size", cfg.Cache.Size, "ttl", cfg.Cache.TTL)
		return cache.NewMemory(cfg.Cache.Size, cfg.Cache.TTL)
	}
	redisCache, err := cache.NewRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, cfg.Cache.TTL)
	if err != nil {
		log.Error("redis is unavailable, using in-memory query cache", "errMsg", err.Error())
		return cache.NewMemory(cfg.Cache.Size, cfg.Cache.TTL)
	}
	log.Info("using redis query cache", "addr", cfg.Cache.RedisAddr)
	return redisCache
}
