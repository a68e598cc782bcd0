// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AtRiskMedia/pulsetrack-go/internal/application/container"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/database"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
	persistence "github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/pulsetrack-go/internal/presentation/http/server"
	"github.com/AtRiskMedia/pulsetrack-go/pkg/config"
	"github.com/gin-gonic/gin"
)

// Initialize performs the complete startup sequence
func Initialize() error {
	setupLogging()

	start := time.Now().UTC()

	_, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	log.Println("\033[32m" + `
  ▄▄▄▄  ▄  ▄ ▄   ▄▄▄ ▄▄▄▄ ▄▄▄▄ ▄▄▄▄  ▄▄▄  ▄▄▄▄ ▄  ▄
  ██▄▄█ ██ █ ██  ██▄ ██▄   ██  ██▄█ ██▄██ ██   ██▄▀
  ██    ▀▄▄▀ ██▄ ▄▄█ ██▄▄  ██  ██ █ ██ ██ ██▄▄ ██ █
` + "\033[0m")

	// Step 1: Create channeled logger
	logger, err := logging.NewChanneledLogger(logging.DefaultLoggerConfig())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Startup().Info("Channeled logging initialized")

	// Step 2: Ensure auth secrets
	if config.JWTSecret == "" {
		ephemeral, err := security.GenerateSecureKey(64)
		if err != nil {
			return fmt.Errorf("failed to generate ephemeral JWT secret: %w", err)
		}
		config.JWTSecret = ephemeral
		logger.Startup().Warn("JWT_SECRET not set - generated ephemeral secret, tokens will not survive restarts")
	}

	// Step 3: Open database connection (Turso when configured, local sqlite otherwise)
	logger.Startup().Info("Opening database connection...")
	var db *persistence.DB
	if config.TursoDatabase != "" {
		dsn := persistence.BuildTursoDSN(config.TursoDatabase, config.TursoAuthToken)
		db, err = persistence.NewConnectionWithLogger("libsql", dsn, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to turso database: %w", err)
		}
		logger.Startup().Info("Connected to Turso database", "url", config.TursoDatabase)
	} else {
		db, err = persistence.NewConnectionWithLogger("sqlite3", config.DatabasePath, logger)
		if err != nil {
			return fmt.Errorf("failed to open sqlite database: %w", err)
		}
		logger.Startup().Info("Opened local sqlite database", "path", config.DatabasePath)
	}

	// Step 4: Bootstrap schema
	logger.Startup().Info("Ensuring telemetry schema...")
	tableCreator := database.NewTableCreator()
	if err := tableCreator.CreateSchema(db.DB); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	logger.Startup().Info("Telemetry schema ready")

	// Step 5: Create dependency injection container
	logger.Startup().Info("Initializing dependency injection container...")
	appContainer, err := container.NewContainer(db, logger)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}
	logger.Startup().Info("Dependency injection container created with singleton services")

	// Step 6: Start live activity broadcaster
	go appContainer.Broadcaster.Run()
	logger.Startup().Info("Activity broadcaster started")

	// Step 7: Start HTTP server
	startServerTime := time.Now()
	port := config.Port
	httpServer := server.New(port, appContainer)
	logger.Startup().Info("HTTP server initialized", "port", port, "duration", time.Since(startServerTime))

	// Step 8: Setup graceful shutdown
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.System().Info("Starting HTTP server", "address", ":"+port)
		if err := httpServer.Start(); err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
		}
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start),
		"port", port)

	// Wait for shutdown signal
	<-gracefulShutdown
	logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")

	shutdownStart := time.Now()

	// Cancel background tasks
	cancelBackgroundTasks()
	appContainer.Broadcaster.Stop()

	// Stop server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Shutdown().Info("Stopping HTTP server...")
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	// Close database
	logger.Shutdown().Info("Closing database connection...")
	if err := db.Close(); err != nil {
		logger.Shutdown().Error("Error closing database", "error", err.Error())
	} else {
		logger.Shutdown().Info("Database connection closed successfully")
	}

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))

	return nil
}

// setupLogging configures application logging
func setupLogging() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
