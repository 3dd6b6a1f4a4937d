package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wso2/case-consent-api/internal/system/cache"
	"github.com/wso2/case-consent-api/internal/system/config"
	"github.com/wso2/case-consent-api/internal/system/database"
	"github.com/wso2/case-consent-api/internal/system/log"
	"github.com/wso2/case-consent-api/internal/system/middleware"
)

// Version information (set by build script)
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	// Set Gin to release mode by default (can be overridden by GIN_MODE env var)
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "Server"))
	logger.Info("Starting Case Consent API Server...",
		log.String("version", version),
		log.String("build_date", buildDate))

	// Priority: CONFIG_PATH env var > repository/conf/deployment.yaml > cmd/server/repository/conf/deployment.yaml
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", log.Error(err))
	}
	log.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded successfully",
		log.String("config_path", configPath),
		log.String("log_level", log.GetLevel()))

	db, err := database.Initialize(&cfg.Database.Consent)
	if err != nil {
		logger.Fatal("Failed to initialize database", log.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database", log.Error(err))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	viewCache, err := cache.NewViewCache(ctx, cfg.Cache)
	cancel()
	if err != nil {
		logger.Fatal("Failed to connect to the view cache", log.Error(err))
	}
	defer func() {
		if err := viewCache.Close(); err != nil {
			logger.Error("Failed to close view cache", log.Error(err))
		}
	}()

	mux := http.NewServeMux()
	registerServices(mux, cfg, db, viewCache)

	server := &http.Server{
		Addr:           cfg.Server.GetServerAddress(),
		Handler:        middleware.WrapWithCorrelationID(mux),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	go func() {
		logger.Info("Starting HTTP server...", log.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", log.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", log.Error(err))
	}
	unregisterServices()

	logger.Info("Server exited gracefully")
}
