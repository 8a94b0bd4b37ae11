// Package main provides the Leadgate lead ingestion service.
//
// Leadgate accepts lead submissions over HTTP, validates and deduplicates
// them, persists them to PostgreSQL and publishes accepted leads to Kafka.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/leadgate-io/leadgate/internal/api"
	"github.com/leadgate-io/leadgate/internal/api/middleware"
	"github.com/leadgate-io/leadgate/internal/lead"
	"github.com/leadgate-io/leadgate/internal/metrics"
	"github.com/leadgate-io/leadgate/internal/publisher"
	"github.com/leadgate-io/leadgate/internal/storage"
)

const name = "leadgate"

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s %s\n", name, api.Version)
		os.Exit(0)
	}

	serverConfig := api.LoadServerConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: serverConfig.LogLevel,
	}))

	logger.Info("Starting Leadgate service",
		slog.String("service", name),
		slog.String("version", api.Version),
	)

	logger.Info("Loaded server configuration",
		slog.String("host", serverConfig.Host),
		slog.Int("port", serverConfig.Port),
		slog.Duration("read_timeout", serverConfig.ReadTimeout),
		slog.Duration("write_timeout", serverConfig.WriteTimeout),
		slog.Duration("shutdown_timeout", serverConfig.ShutdownTimeout),
		slog.String("log_level", serverConfig.LogLevel.String()),
	)

	// Load rate limiter configuration
	middlewareConfig := middleware.LoadConfig()

	// Create rate limiter instance (graceful shutdown handled by server.shutdown())
	rateLimiter := middleware.NewInMemoryRateLimiter(middlewareConfig)

	logger.Info("Rate limiter initialized",
		slog.Int("global_rps", middlewareConfig.GlobalRPS),
		slog.Int("client_rps", middlewareConfig.ClientRPS),
	)

	// Bearer token authentication. Without a configured token the auth
	// middleware is disabled entirely, which is only safe on trusted
	// networks.
	verifier, err := middleware.NewTokenVerifier(middleware.LoadAuthConfig())
	if err != nil {
		logger.Warn("API token not configured - authentication disabled",
			slog.String("security", "Only use in trusted networks (localhost, VPN, internal)"),
			slog.String("note", "Set LEADGATE_API_TOKEN or LEADGATE_API_TOKEN_HASH to enable authentication"),
		)

		verifier = nil
	}

	// Database connection is required: fail fast when unreachable.
	storageConfig := storage.LoadConfig()

	dbConn, err := storage.NewConnection(storageConfig)
	if err != nil {
		logger.Error("Failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer func() {
		_ = dbConn.Close() // Ensure connection closes on normal shutdown
	}()

	leadStore, err := storage.NewLeadStore(dbConn)
	if err != nil {
		logger.Error("Failed to create lead store", slog.String("error", err.Error()))

		_ = dbConn.Close()
		//nolint:gocritic // Explicit cleanup before os.Exit is intentional (defer won't run)
		os.Exit(1)
	}

	logger.Info("Lead store initialized",
		slog.String("database_url", storageConfig.MaskDatabaseURL()),
		slog.Int("database_max_open_conns", storageConfig.MaxOpenConns),
		slog.Int("database_max_idle_conns", storageConfig.MaxIdleConns),
		slog.Duration("database_conn_max_lifetime", storageConfig.ConnMaxLifetime),
		slog.Duration("database_conn_max_idle_time", storageConfig.ConnMaxIdleTime),
	)

	// Kafka is NOT required at startup: the publisher keeps probing in the
	// background and the ingestion protocol degrades to stored-not-published.
	publisherConfig := publisher.LoadConfig()

	pub, err := publisher.New(publisherConfig)
	if err != nil {
		logger.Error("Invalid publisher configuration", slog.String("error", err.Error()))

		_ = dbConn.Close()
		os.Exit(1)
	}

	ingestMetrics := metrics.NewIngestMetrics()

	ingestor := lead.NewIngestor(
		leadStore,
		pub,
		ingestMetrics,
		publisherConfig.PrimaryTopic,
		publisherConfig.DeadLetterTopic,
	)

	server := api.NewServer(
		serverConfig,
		leadStore,
		pub,
		ingestor,
		ingestMetrics.Handler(),
		verifier,
		rateLimiter,
	)

	if err := server.Start(); err != nil {
		logger.Error("Server failed to start",
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	logger.Info("Leadgate service stopped")
}
