package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-checkpoint/pkg/adapters/datasource"
	_ "github.com/ekaya-inc/ekaya-checkpoint/pkg/adapters/datasource/mssql"
	_ "github.com/ekaya-inc/ekaya-checkpoint/pkg/adapters/datasource/oracle"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/config"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/crypto"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/handlers"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/logging"
	mcpserver "github.com/ekaya-inc/ekaya-checkpoint/pkg/mcp"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/middleware"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/repositories"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("repository", cfg.Repository.Driver),
		zap.Bool("mcp_enabled", cfg.MCP.Enabled),
		zap.Bool("credentials_key_set", cfg.CredentialsKey != ""))

	ctx := context.Background()

	store, err := repositories.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open checkpoint repository", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close checkpoint repository", zap.Error(err))
		}
	}()

	encryptor, err := crypto.NewOptionalEncryptor(cfg.CredentialsKey)
	if err != nil {
		logger.Fatal("Invalid credentials key", zap.Error(err))
	}
	resolver := config.NewHostResolver(cfg.Runner.RewriteLocalhostInDocker)

	factory := datasource.NewDatasourceAdapterFactory(nil, datasource.OpenOptions{
		ConnectTimeout:         cfg.Runner.ConnectTimeout(),
		Encrypt:                cfg.Runner.MSSQLEncrypt,
		TrustServerCertificate: cfg.Runner.MSSQLTrustServerCertificate,
	}, logger)

	runner := services.NewCheckpointRunner(factory, logger)
	checkpointService := services.NewCheckpointService(store.Checkpoints, store.Datasources, encryptor, resolver, runner, logger)
	datasourceService := services.NewDatasourceService(store.Datasources, encryptor, resolver, factory, services.DatasourceServiceOptions{
		CheckTimeout:     cfg.Runner.CheckTimeout(),
		PortProbeTimeout: cfg.Runner.PortProbeTimeout(),
	}, logger)

	mux := http.NewServeMux()

	// Register handlers
	handlers.NewHealthHandler(cfg, factory, logger).RegisterRoutes(mux)
	handlers.NewCheckpointsHandler(checkpointService, logger).RegisterRoutes(mux)
	handlers.NewDatasourcesHandler(datasourceService, logger).RegisterRoutes(mux)

	if cfg.MCP.Enabled {
		mcpSrv := mcpserver.NewServer("ekaya-checkpoint", cfg.Version, logger)
		mcpSrv.RegisterTools(mcpserver.ToolDeps{
			Version:           cfg.Version,
			Factory:           factory,
			CheckpointService: checkpointService,
			DatasourceService: datasourceService,
		})
		mux.Handle("/mcp", middleware.MCPRequestLogger(logger)(mcpSrv.NewStreamableHTTPServer()))
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting ekaya-checkpoint",
			zap.String("addr", srv.Addr),
			zap.String("version", cfg.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Runs in flight finish their current statement before the connection closes.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
}
