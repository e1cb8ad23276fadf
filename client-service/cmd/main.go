package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	clientcmd "github.com/eaglebank/corebank/client-service/internal/command"
	"github.com/eaglebank/corebank/client-service/internal/config"
	"github.com/eaglebank/corebank/client-service/internal/handler"
	clientqry "github.com/eaglebank/corebank/client-service/internal/query"
	"github.com/eaglebank/corebank/client-service/internal/repository"
	sharedconfig "github.com/eaglebank/corebank/shared/config"
	"github.com/eaglebank/corebank/shared/database"
	"github.com/eaglebank/corebank/shared/events"
	"github.com/eaglebank/corebank/shared/logger"
	"github.com/eaglebank/corebank/shared/metrics"
	"github.com/eaglebank/corebank/shared/middleware"
	redisClient "github.com/eaglebank/corebank/shared/redis"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	dotenv := sharedconfig.LoadDotEnv()

	log, err := logger.New("client-service")
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	if !dotenv {
		log.Debug("no .env file found, relying on system env vars")
	}

	middleware.MustInitJWTSecret()
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, closeStore := openStore(ctx, cfg, log)
	defer closeStore()

	publisher, closePublisher := openPublisher(ctx, cfg, log)
	defer closePublisher()

	// --- CQRS wiring ---
	collector := metrics.NewCollector()
	commandSvc := clientcmd.NewClientCommandService(store, publisher, collector, log)
	querySvc := clientqry.NewClientQueryService(store)
	clientHandler := handler.NewClientHandler(commandSvc, querySvc)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.LoggingMiddleware(log))

	clientHandler.Register(
		router.Group("/v1/clients", middleware.AuthMiddleware()),
		router.Group("/internal/clients"),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "client-service"})
	})
	router.GET("/metrics", gin.WrapH(collector.Handler()))

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		log.Info("client service starting", zap.String("port", cfg.Port), zap.String("store", cfg.Store), zap.String("eventBus", cfg.EventBus.Kind))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (repository.ClientStore, func()) {
	if cfg.Store == config.StoreMemory {
		log.Warn("using in-memory client store, data is lost on restart")
		return repository.NewMemoryClientStore(), func() {}
	}

	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.RunMigrations(ctx, db, repository.Migrations()); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}
	db.Close()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to create connection pool", zap.Error(err))
	}
	if err := pool.Ping(ctx); err != nil {
		log.Fatal("failed to ping database", zap.Error(err))
	}
	return repository.NewClientRepository(pool), pool.Close
}

func openPublisher(ctx context.Context, cfg config.Config, log *zap.Logger) (events.Publisher, func()) {
	if cfg.EventBus.Kind == sharedconfig.EventBusKafka {
		pub := events.NewKafkaPublisher(cfg.EventBus.KafkaBrokers, cfg.EventBus.Topic, log)
		return pub, func() {
			if err := pub.Close(); err != nil {
				log.Warn("failed to close kafka writer", zap.Error(err))
			}
		}
	}

	redis, err := redisClient.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	return events.NewStreamPublisher(redis, cfg.EventBus.Topic), func() { redis.Close() }
}
