package main

import (
	"context"
	"flag"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cbasnet001/order-matching-system/internal/api"
	"github.com/cbasnet001/order-matching-system/internal/config"
	"github.com/cbasnet001/order-matching-system/internal/db"
	"github.com/cbasnet001/order-matching-system/internal/engine"
	"github.com/cbasnet001/order-matching-system/internal/pubsub"
	"github.com/cbasnet001/order-matching-system/internal/replay"
	"github.com/cbasnet001/order-matching-system/internal/sink"
)

func main() {
	configPath := flag.String("config", "matchd.toml", "path to the matchd TOML config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: could not load .env file, using system environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	pool, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	postgresSink := sink.NewPostgresSink(pool)
	if err := postgresSink.EnsureSchema(ctx); err != nil {
		logger.Fatal("ensure event schema", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("ping redis", zap.Error(err))
	}
	defer redisClient.Close()

	publisher := pubsub.NewRedisPublisher(redisClient, logger)

	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		logger.Fatal("translate engine config", zap.Error(err))
	}

	registry := engine.NewRegistry(engineCfg, postgresSink, publisher, logger)

	if err := replay.Run(ctx, postgresSink, registry, logger); err != nil {
		logger.Fatal("replay durability sink", zap.Error(err))
	}

	app := fiber.New()
	api.InitializeRoutes(app, registry)

	addr := ":" + strconv.Itoa(cfg.Server.Port)
	logger.Info("listening", zap.String("addr", addr))
	log.Fatal(app.Listen(addr))
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

