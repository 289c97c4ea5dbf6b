// Package api exposes the transactional core over a thin HTTP surface.
// Authentication happens upstream; callers arrive with identity headers.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meridianbank/corebank/internal/alerting"
	"github.com/meridianbank/corebank/internal/api/handler"
	"github.com/meridianbank/corebank/internal/auditchain"
	"github.com/meridianbank/corebank/internal/config"
	"github.com/meridianbank/corebank/internal/domain/account"
	"github.com/meridianbank/corebank/internal/riskengine"
	"github.com/meridianbank/corebank/internal/transfer"
)

// Server handles HTTP requests and manages the application's lifecycle
type Server struct {
	logger     *slog.Logger // For structured logging
	httpServer *http.Server // Underlying HTTP server
	httpRouter *gin.Engine  // Gin router instance
}

// NewServer creates and configures a new HTTP server over the core services
func NewServer(
	log *slog.Logger,
	cfg *config.Config,
	transfers transfer.Service,
	accounts account.Repository,
	risk *riskengine.Evaluator,
	dispatcher *alerting.Dispatcher,
	chain *auditchain.Chain,
) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()

	transferHandler := handler.NewTransferHandler(log, transfers)
	accountHandler := handler.NewAccountHandler(log, accounts, risk)
	alertHandler := handler.NewAlertHandler(log, dispatcher)
	auditHandler := handler.NewAuditHandler(log, chain)

	setupRouter(log, httpRouter, transferHandler, accountHandler, alertHandler, auditHandler)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:     log,
		httpServer: httpServer,
		httpRouter: httpRouter,
	}
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server with a timeout
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.httpServer.WriteTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}

	return nil
}
