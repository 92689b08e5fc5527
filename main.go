package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"gofest/config"
	"gofest/database"
	"gofest/errors"
	"gofest/geocode"
	"gofest/handlers"
	"gofest/logger"
	"gofest/mailer"
	"gofest/ratelimit"
	"gofest/router"
)

const LOCATION_INTERVAL = 2 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var memory bool
	flag.StringVar(&configPath, "config", config.DEFAULT_CONFIG_PATH, "path to the toml config")
	flag.BoolVar(&memory, "memory", false, "keep everything in memory instead of MongoDB")
	flag.Parse()

	cfg, err := config.New(configPath)
	if err != nil {
		return err
	}
	log := logger.New(cfg.Server.LogLevel)
	if cfg.Auth.SecretKey == config.DEFAULT_SECRET_KEY {
		log.Warn("SECRET_KEY is not set, using the development default")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store database.Store
	if memory || cfg.Database.Memory {
		log.Info("using the in-memory store")
		store = database.NewMemory()
	} else {
		connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		db, err := database.Connect(connectCtx, cfg.Database, logger.Component(log, "database"))
		if err != nil {
			return err
		}
		defer db.Client().Disconnect(context.Background())
		if err := database.EnsureIndexes(connectCtx, db); err != nil {
			return err
		}
		store = database.NewMongo(db, logger.Component(log, "database"))
	}

	var notifier mailer.Notifier = mailer.Nop{}
	if cfg.Email.Enabled() {
		smtp, err := mailer.NewSMTP(cfg.Email)
		if err != nil {
			return err
		}
		notifier = smtp
		log.Infof("sending mail through %v:%d", cfg.Email.Host, cfg.Email.Port)
	} else {
		log.Warn("email is not configured, notifications are disabled")
	}

	limiter := ratelimit.NewStore(LOCATION_INTERVAL)
	limiter.StartJanitor(ctx)

	memoryStats := ratelimit.NewMemoryStats()
	stats := ratelimit.MultiStats{memoryStats}
	if cfg.Location.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.Location.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		stats = append(stats, ratelimit.NewRedisStats(rdb, "", 24*time.Hour))
		log.Info("recording rate limit stats to redis")
	}

	h := &handlers.Handler{
		Store:     store,
		SecretKey: cfg.Auth.SecretKey,
		Notifier:  notifier,
		Geocoder:  geocode.New(cfg.Location.NominatimURL),
		Stats:     memoryStats,
		Log:       logger.Component(log, "api"),
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: errors.Handler,
	})
	router.SetupRoutes(app, h, router.Options{
		Limiter:      limiter,
		LimiterStats: stats,
		AccessLog:    true,
	})

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		_ = app.Shutdown()
	}()

	log.Infof("listening on :%d", cfg.Server.Port)
	return app.Listen(fmt.Sprintf(":%d", cfg.Server.Port))
}
