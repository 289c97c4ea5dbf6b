package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/meridianbank/corebank/internal/alerting"
	"github.com/meridianbank/corebank/internal/api"
	"github.com/meridianbank/corebank/internal/auditchain"
	"github.com/meridianbank/corebank/internal/config"
	"github.com/meridianbank/corebank/internal/crypto/envelope"
	"github.com/meridianbank/corebank/internal/data/postgres"
	"github.com/meridianbank/corebank/internal/logger"
	"github.com/meridianbank/corebank/internal/platform/messaging/producers"
	"github.com/meridianbank/corebank/internal/platform/persistence"
	"github.com/meridianbank/corebank/internal/riskengine"
	"github.com/meridianbank/corebank/internal/screening"
	"github.com/meridianbank/corebank/internal/transfer"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("corebank")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting core banking service",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize PostgreSQL with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Initialize envelope encryption. Missing key material is fatal: the
	// service never stores transfer payloads in plaintext.
	keyWrapper := envelope.NewKeyWrapper(&cfg.Crypto, log)
	envelopeService, err := envelope.NewService(&cfg.Crypto, keyWrapper, log)
	if err != nil {
		log.Error("Failed to initialize envelope encryption", "error", err)
		os.Exit(1)
	}

	// Initialize the optional alert bus publisher
	var alertPublisher producers.AlertPublisher = producers.NoopAlertPublisher{}
	if cfg.AlertBus.Enabled() {
		kafkaPublisher, err := producers.NewKafkaAlertPublisher(appCtx, log, &cfg.AlertBus)
		if err != nil {
			log.Error("Failed to initialize alert bus publisher", "error", err)
			os.Exit(1)
		}
		alertPublisher = kafkaPublisher
	}

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	auditRepo := postgres.NewAuditRepository(log, postgresDB)
	complianceRepo := postgres.NewComplianceRepository(log, postgresDB)
	snapshotRepo := postgres.NewRiskSnapshotRepository(log, postgresDB)
	alertRepo := postgres.NewRiskAlertRepository(log, postgresDB)
	anomalyRepo := postgres.NewRiskAnomalyRepository(log, postgresDB)

	// Initialize services
	chain := auditchain.NewChain(postgresDB, auditRepo, log)
	dispatcher := alerting.NewDispatcher(postgresDB, alertRepo, chain, alertPublisher, log)
	simulator := screening.NewSimulator(cfg.Compliance, complianceRepo, dispatcher, chain, log)
	evaluator := riskengine.NewEvaluator(postgresDB, accountRepo, transactionRepo, snapshotRepo, anomalyRepo, dispatcher, cfg.Risk, log)
	orchestrator := transfer.NewOrchestrator(postgresDB, accountRepo, transactionRepo, envelopeService, chain, simulator, evaluator, dispatcher, log)

	transferService, err := transfer.NewWorkerPoolService(orchestrator, cfg.WorkerPool, log)
	if err != nil {
		log.Error("Failed to initialize transfer worker pool", "error", err)
		os.Exit(1)
	}

	// Initialize REST server
	server := api.NewServer(log, cfg, transferService, accountRepo, evaluator, dispatcher, chain)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first so no new transfers are accepted
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Drain the transfer worker pool
	transferService.Shutdown()

	if err = alertPublisher.Close(); err != nil {
		log.Error("Error closing alert bus publisher", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
