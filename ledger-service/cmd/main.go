package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eaglebank/corebank/ledger-service/internal/clientcache"
	ledgercmd "github.com/eaglebank/corebank/ledger-service/internal/command"
	"github.com/eaglebank/corebank/ledger-service/internal/config"
	"github.com/eaglebank/corebank/ledger-service/internal/handler"
	ledgerqry "github.com/eaglebank/corebank/ledger-service/internal/query"
	"github.com/eaglebank/corebank/ledger-service/internal/repository"
	sharedconfig "github.com/eaglebank/corebank/shared/config"
	"github.com/eaglebank/corebank/shared/database"
	"github.com/eaglebank/corebank/shared/events"
	"github.com/eaglebank/corebank/shared/logger"
	"github.com/eaglebank/corebank/shared/metrics"
	"github.com/eaglebank/corebank/shared/middleware"
	redisClient "github.com/eaglebank/corebank/shared/redis"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	dotenv := sharedconfig.LoadDotEnv()

	log, err := logger.New("ledger-service")
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

	redis, err := redisClient.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redis.Close()

	// --- client resolution ---
	collector := metrics.NewCollector()
	cache := clientcache.NewCache(redis, cfg.ClientCachePrefix, cfg.ClientCacheTTL, collector, log)
	lookup := clientcache.NewHTTPLookup(cfg.ClientServiceURL, cfg.ClientLookupTimeout)
	resolver := clientcache.NewResolver(cache, lookup, cfg.ClientLookupTimeout, collector, log)
	listener := clientcache.NewListener(cache, collector, log)

	go consumeClientEvents(ctx, cfg, redis, listener, log)

	// --- CQRS wiring ---
	accountCmds := ledgercmd.NewAccountCommandService(store, resolver, log)
	movementCmds := ledgercmd.NewMovementCommandService(store, collector, log)
	accountQrys := ledgerqry.NewAccountQueryService(store, resolver)
	movementQrys := ledgerqry.NewMovementQueryService(store)
	statements := ledgerqry.NewStatementService(store, resolver, log)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.LoggingMiddleware(log))

	v1 := router.Group("/v1", middleware.AuthMiddleware())
	handler.NewAccountHandler(accountCmds, accountQrys).Register(v1.Group("/accounts"))
	handler.NewMovementHandler(movementCmds, movementQrys).Register(v1.Group("/movements"))
	handler.NewReportHandler(statements).Register(v1.Group("/reports"))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "ledger-service"})
	})
	router.GET("/metrics", gin.WrapH(collector.Handler()))

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		log.Info("ledger service starting", zap.String("port", cfg.Port), zap.String("store", cfg.Store), zap.String("eventBus", cfg.EventBus.Kind))
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

func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (repository.LedgerStore, func()) {
	if cfg.Store == config.StoreMemory {
		log.Warn("using in-memory ledger store, data is lost on restart")
		return repository.NewMemoryStore(), func() {}
	}

	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.RunMigrations(ctx, db, repository.Migrations()); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}
	return repository.NewPostgresStore(db), func() { db.Close() }
}

// consumeClientEvents keeps the client cache in step with the client service
// until ctx ends.
func consumeClientEvents(ctx context.Context, cfg config.Config, redis *redisClient.Client, listener *clientcache.Listener, log *zap.Logger) {
	var err error
	if cfg.EventBus.Kind == sharedconfig.EventBusKafka {
		sub := events.NewKafkaSubscriber(events.KafkaSubscriberConfig{
			Brokers:     cfg.EventBus.KafkaBrokers,
			Topic:       cfg.EventBus.Topic,
			GroupID:     cfg.EventBus.Group,
			RoutingKeys: listener.RoutingKeys(),
			Handler:     listener.Handle,
			Logger:      log,
		})
		err = sub.Start(ctx)
	} else {
		consumer, _ := os.Hostname()
		sub := events.NewSubscriber(redis, events.SubscriberConfig{
			Group:       cfg.EventBus.Group,
			Consumer:    "ledger-" + consumer,
			Stream:      cfg.EventBus.Topic,
			RoutingKeys: listener.RoutingKeys(),
			Handler:     listener.Handle,
			Logger:      log,
		})
		err = sub.Start(ctx)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("client event subscriber stopped", zap.Error(err))
	}
}
