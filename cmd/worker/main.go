package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/takuyakubo/knowledge-system/internal/cache"
	"github.com/takuyakubo/knowledge-system/internal/config"
	"github.com/takuyakubo/knowledge-system/internal/database"
	"github.com/takuyakubo/knowledge-system/internal/log"
	"github.com/takuyakubo/knowledge-system/internal/queue"
	"github.com/takuyakubo/knowledge-system/internal/repository"
	"github.com/takuyakubo/knowledge-system/internal/storage"
	"github.com/takuyakubo/knowledge-system/internal/tasks"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New("worker", cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	defer dbPool.Close()

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer redisClient.Close()

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}

	processor := tasks.NewProcessor(
		repository.NewSessionRepository(dbPool),
		repository.NewFileRepository(dbPool),
		repository.NewCategoryRepository(dbPool),
		objectStore,
		cfg.Jobs.OrphanCutoff,
		logger,
	)
	consumer := queue.NewConsumer(redisClient, cfg.Worker, logger, processor)

	go func() {
		if err := consumer.Start(ctx); err != nil && err != context.Canceled {
			logger.Fatal().Err(err).Msg("consumer stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")
	time.Sleep(500 * time.Millisecond)
}
