package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/go-review-ledger/internal/config"
	"github.com/go-review-ledger/internal/infrastructure/boltdb"
	"github.com/go-review-ledger/internal/infrastructure/dynamo"
	"github.com/go-review-ledger/internal/infrastructure/ledger"
	"github.com/go-review-ledger/internal/infrastructure/moderation"
	transporthttp "github.com/go-review-ledger/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry, closeRegistry, err := openRegistry(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open account registry", zap.String("backend", cfg.RegistryBackend), zap.Error(err))
	}
	defer closeRegistry()

	// The ledger binding is mandatory: without it no review can be written.
	gateway := ledger.NewGateway(ledger.Config{
		RPCURL:          cfg.LedgerRPCURL,
		ArtifactPath:    cfg.ContractArtifactPath,
		ContractAddress: cfg.ContractAddress,
		GasLimit:        cfg.LedgerGasLimit,
		Timeout:         cfg.LedgerTimeout,
		PollInterval:    cfg.LedgerPollInterval,
	}, logger)
	initCtx, cancelInit := context.WithTimeout(ctx, cfg.LedgerTimeout)
	err = gateway.Init(initCtx)
	cancelInit()
	if err != nil {
		logger.Fatal("Failed to initialize ledger", zap.String("rpc", cfg.LedgerRPCURL), zap.Error(err))
	}
	defer gateway.Close()

	if n, err := registry.Size(ctx); err == nil && n > gateway.Identities() {
		logger.Warn("More accounts than ledger identities; excess accounts share identity 0",
			zap.Int("accounts", n),
			zap.Int("identities", gateway.Identities()))
	}

	deps := &transporthttp.Deps{
		Registry:   registry,
		Moderation: moderation.NewClient(cfg.ModerationURL, cfg.ModerationTimeout, logger),
		Ledger:     gateway,
		Logger:     logger,
	}

	router := transporthttp.NewRouter(ctx, cfg, deps)

	// WriteTimeout leaves room for a full ledger confirmation.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.ModerationTimeout + cfg.LedgerTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting",
			zap.String("port", cfg.AppPort),
			zap.String("env", cfg.AppEnv),
			zap.String("registry", cfg.RegistryBackend))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Forced shutdown", zap.Error(err))
		return
	}
	logger.Info("Server stopped")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func openRegistry(ctx context.Context, cfg *config.Config, logger *zap.Logger) (transporthttp.RegistryStore, func(), error) {
	switch cfg.RegistryBackend {
	case config.RegistryBackendBolt:
		store, err := boltdb.NewRegistryStore(cfg.RegistryPath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Account registry opened", zap.String("path", cfg.RegistryPath))
		return store, func() { _ = store.Close() }, nil

	case config.RegistryBackendDynamo:
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		// Creates the registry tables if they don't exist.
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables, logger)
		return dynamo.NewRegistryStore(client, cfg.DynamoTables), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown registry backend %q", cfg.RegistryBackend)
}
