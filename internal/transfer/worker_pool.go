package transfer

import (
	"context"
	"log/slog"

	"github.com/meridianbank/corebank/internal/config"
	"github.com/meridianbank/corebank/internal/domain/shared"
	"github.com/panjf2000/ants/v2"
)

// WorkerPoolService bounds transfer concurrency with a fixed worker pool.
// Each request executes as one task; callers block until their task finishes
// so the Service contract is unchanged.
type WorkerPoolService struct {
	base   Service
	pool   *ants.Pool
	logger *slog.Logger
}

type poolResult struct {
	result *Result
	err    error
}

// NewWorkerPoolService wraps a transfer service with a worker pool of the
// configured size
func NewWorkerPoolService(base Service, cfg config.WorkerPoolConfig, logger *slog.Logger) (*WorkerPoolService, error) {
	pool, err := ants.NewPool(cfg.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolService{
		base:   base,
		pool:   pool,
		logger: logger,
	}, nil
}

// Execute submits the transfer to the worker pool and waits for its result
func (s *WorkerPoolService) Execute(ctx context.Context, req shared.TransferRequest) (*Result, error) {
	resultChan := make(chan poolResult, 1)

	if err := s.pool.Submit(func() {
		result, err := s.base.Execute(ctx, req)
		resultChan <- poolResult{result: result, err: err}
	}); err != nil {
		s.logger.Error("failed to submit transfer to worker pool",
			"source_account_id", req.SourceAccountID.String(),
			"error", err,
		)
		return nil, err
	}

	select {
	case res := <-resultChan:
		return res.result, res.err
	case <-ctx.Done():
		// The task may still run to completion; its unit of work commits or
		// rolls back on its own, so abandoning the wait leaves no partial state
		return nil, ctx.Err()
	}
}

// Shutdown releases the worker pool
func (s *WorkerPoolService) Shutdown() {
	s.logger.Info("shutting down transfer worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of busy workers
func (s *WorkerPoolService) Running() int {
	return s.pool.Running()
}

// Capacity returns the pool size
func (s *WorkerPoolService) Capacity() int {
	return s.pool.Cap()
}
