package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eaglebank/corebank/api-gateway/internal/proxy"
	sharedconfig "github.com/eaglebank/corebank/shared/config"
	"github.com/eaglebank/corebank/shared/logger"
	"github.com/eaglebank/corebank/shared/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	dotenv := sharedconfig.LoadDotEnv()

	log, err := logger.New("api-gateway")
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	if !dotenv {
		log.Debug("no .env file found, relying on system env vars")
	}

	middleware.MustInitJWTSecret()

	var (
		clientServiceURL = sharedconfig.GetEnv("CLIENT_SERVICE_URL", "http://localhost:8082")
		ledgerServiceURL = sharedconfig.GetEnv("LEDGER_SERVICE_URL", "http://localhost:8083")
		upstreamTimeout  = sharedconfig.GetDuration("UPSTREAM_TIMEOUT", 15*time.Second)
		tokenTTL         = sharedconfig.GetDuration("TOKEN_TTL", 24*time.Hour)
		port             = sharedconfig.GetEnv("PORT", "8080")
	)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.LoggingMiddleware(log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "api-gateway"})
	})

	p := proxy.New(upstreamTimeout, log)
	toClients := p.To(clientServiceURL)
	toLedger := p.To(ledgerServiceURL)

	v1 := router.Group("/v1", middleware.AuthMiddleware())
	v1.POST("/auth/refresh", middleware.RefreshToken(tokenTTL))

	// Client routes
	v1.POST("/clients", toClients)
	v1.GET("/clients", toClients)
	v1.GET("/clients/:id", toClients)
	v1.PUT("/clients/:clientKey", toClients)
	v1.DELETE("/clients/:id", toClients)

	// Account routes
	v1.POST("/accounts", toLedger)
	v1.GET("/accounts", toLedger)
	v1.GET("/accounts/:id", toLedger)
	v1.GET("/accounts/number/:accountNumber", toLedger)
	v1.PUT("/accounts/:id", toLedger)
	v1.DELETE("/accounts/:id", toLedger)

	// Movement routes
	v1.POST("/movements", toLedger)
	v1.GET("/movements", toLedger)
	v1.GET("/movements/:id", toLedger)
	v1.PUT("/movements/:id", toLedger)
	v1.DELETE("/movements/:id", toLedger)

	// Reports
	v1.GET("/reports", toLedger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := &http.Server{Addr: ":" + port, Handler: router}
	go func() {
		log.Info("api gateway starting", zap.String("port", port),
			zap.String("clientService", clientServiceURL), zap.String("ledgerService", ledgerServiceURL))
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
