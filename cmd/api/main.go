package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/agritrace/agritrace/internal/adapter"
	"github.com/agritrace/agritrace/internal/api/server"
	"github.com/agritrace/agritrace/internal/config"
	"github.com/agritrace/agritrace/internal/identifier"
	"github.com/agritrace/agritrace/internal/ledger"
	"github.com/agritrace/agritrace/internal/logger"
	"github.com/agritrace/agritrace/internal/mediastore"
	"github.com/agritrace/agritrace/internal/providers/blob"
	"github.com/agritrace/agritrace/internal/registry"
	"github.com/agritrace/agritrace/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Create shutdown context with timeout
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "api-server",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting AgriTrace API")

	// Connect to database; TranslateError lets the store map duplicate-key
	// violations to domain collisions
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err), zap.String("dsn", cfg.Database.DSN()))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
	)

	// Initialize store
	dataStore := store.NewPGStore(db)

	// Connect to blob storage
	blobStore, err := blob.New(blob.Config{
		Endpoint:      cfg.Blob.Endpoint,
		AccessKey:     cfg.Blob.AccessKey,
		SecretKey:     cfg.Blob.SecretKey,
		UseSSL:        cfg.Blob.UseSSL,
		Region:        cfg.Blob.Region,
		Bucket:        cfg.Blob.Bucket,
		PublicBaseURL: cfg.Blob.PublicBaseURL,
	})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create blob store", zap.Error(err), zap.String("endpoint", cfg.Blob.Endpoint))
	}
	if err := blobStore.EnsureBucket(ctx); err != nil {
		logger.FatalCtx(ctx, "Failed to ensure blob bucket", zap.Error(err), zap.String("bucket", cfg.Blob.Bucket))
	}
	logger.InfoCtx(ctx, "Connected to blob storage",
		zap.String("endpoint", cfg.Blob.Endpoint),
		zap.String("bucket", cfg.Blob.Bucket),
	)

	// Initialize clock adapter
	clock := adapter.NewClock()

	// Initialize services
	attacher := mediastore.NewAttacher(blobStore, clock, cfg.Media.UploadTimeout)
	ids := identifier.NewGenerator(clock)
	batches := registry.NewBatchRegistry(dataStore, ids, attacher)
	activityLedger := ledger.NewLedger(dataStore)

	// Create server config
	serverConfig := server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		JWTPublicKey: cfg.Auth.JWTPublicKey,
	}

	// Create and start server
	srv := server.New(serverConfig, batches, activityLedger)

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
		cancel()
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	logger.InfoCtx(shutdownCtx, "Shutting down server...")

	// Shutdown server
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.FatalCtx(shutdownCtx, "Server forced to shutdown", zap.Error(err))
	}

	// Use non-context logger for final message since original ctx is canceled
	logger.Info("API server stopped")
}
