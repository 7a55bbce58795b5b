// Command mockapi runs the reference marketplace backend: an in-memory
// implementation of the REST API the orderflow client talks to.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marketplace/orderflow/internal/domain/order"
	"github.com/marketplace/orderflow/internal/infrastructure/auth"
	"github.com/marketplace/orderflow/internal/infrastructure/config"
	"github.com/marketplace/orderflow/internal/infrastructure/logger"
	"github.com/marketplace/orderflow/internal/infrastructure/memstore"
	"github.com/marketplace/orderflow/internal/infrastructure/telemetry"
	"github.com/marketplace/orderflow/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	configFile := flag.String("config", "", "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := logger.ProductionConfig()
	logCfg.Level = cfg.Log.Level
	if cfg.Log.Format != "" {
		logCfg.Format = cfg.Log.Format
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	if cfg.MockAPI.JWTSecret == "" {
		log.Fatal("mockapi.jwt_secret is required")
	}
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	serviceName := cfg.Telemetry.ServiceName + "-mockapi"
	tp, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       serviceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	store := memstore.New()
	if cfg.MockAPI.Seed {
		if err := memstore.Seed(store); err != nil {
			log.Fatal("Failed to seed store", zap.Error(err))
		}
		log.Info("Store seeded", zap.String("password", memstore.SeedPassword))
	}

	engine := router.NewEngine(router.Deps{
		Store:       store,
		JWT:         auth.NewJWTService(cfg.MockAPI.JWTSecret, cfg.MockAPI.TokenTTL, cfg.App.Name),
		Machine:     order.NewMachine(cfg.Policy.DomainPolicy()),
		Logger:      log,
		ServiceName: serviceName,
	})

	// No write timeout: chat streams stay open
	srv := &http.Server{
		Addr:              ":" + cfg.MockAPI.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited gracefully")
}
