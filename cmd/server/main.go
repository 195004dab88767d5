package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/railway-reservation/internal/config"
	"github.com/iliyamo/railway-reservation/internal/database"
	"github.com/iliyamo/railway-reservation/internal/handler"
	"github.com/iliyamo/railway-reservation/internal/logging"
	"github.com/iliyamo/railway-reservation/internal/middleware"
	"github.com/iliyamo/railway-reservation/internal/queue"
	"github.com/iliyamo/railway-reservation/internal/repository"
	"github.com/iliyamo/railway-reservation/internal/router"
	"github.com/iliyamo/railway-reservation/internal/service"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("could not load .env", zap.Error(err))
	}
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	db, err := database.Open(cfg.DB)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		logger.Warn("redis unreachable, rate limiting and cache disabled", zap.String("addr", cfg.Redis.Addr))
	} else {
		defer func() { _ = rdb.Close() }()
	}

	purge := func(ctx context.Context) {
		if err := middleware.PurgeCache(ctx, rdb, cfg.Cache.Prefix); err != nil {
			logger.Warn("purge cache", zap.Error(err))
		}
	}

	store := repository.NewStore(db)
	svc, err := service.NewService(store, time.Now,
		service.WithOperationLogger(logging.NewOperationLogger(logger)),
		service.WithEventPublisher(middleware.NewCachePurgingPublisher(queue.NewPublisher(cfg.Queue), purge)),
	)
	if err != nil {
		logger.Fatal("build service", zap.Error(err))
	}

	trains := handler.NewTrainHandler(store, purge)
	reservations := handler.NewReservationHandler(svc)
	auth := handler.NewAuthHandler(cfg, store)

	e := echo.New()
	e.HideBanner = true
	e.Use(logging.RequestLogger(logger))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, auth, cfg.JWTSecret)
	router.RegisterTrains(e, trains, middleware.NewRedisCache(cfg.Cache, rdb, logger))
	router.RegisterReservations(e, reservations, cfg.JWTSecret, middleware.NewTokenBucket(cfg.RateLimit, rdb, logger))
	router.RegisterAdmin(e, trains, reservations, cfg.JWTSecret)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Queue.ConsumerEnabled {
		consumer := queue.NewConsumer(cfg.Queue, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("queue consumer stopped", zap.Error(err))
			}
		}()
	}

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
}
