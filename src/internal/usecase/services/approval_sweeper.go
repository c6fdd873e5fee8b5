package services

import (
	"context"
	"fmt"
	"time"

	"github.com/api-sage/transfer-orchestrator/src/internal/logger"
)

const DefaultApprovalSweepInterval = 30 * time.Second

type approvalProcessor interface {
	ProcessExpiredApprovals(ctx context.Context) (int, error)
}

type lockRegistry interface {
	Size() int
}

// ApprovalSweeper periodically releases transfers whose approval window has
// elapsed. A failed sweep is logged and the loop carries on.
type ApprovalSweeper struct {
	processor approvalProcessor
	interval  time.Duration
	locks     lockRegistry
	lastLocks int
}

func NewApprovalSweeper(processor approvalProcessor, interval time.Duration) *ApprovalSweeper {
	if interval <= 0 {
		interval = DefaultApprovalSweepInterval
	}
	return &ApprovalSweeper{processor: processor, interval: interval}
}

// WithLockRegistry makes every sweep report growth of the per-customer lock
// registry, which is never pruned.
func (s *ApprovalSweeper) WithLockRegistry(locks lockRegistry) *ApprovalSweeper {
	s.locks = locks
	return s
}

// Run sweeps once straight away, then every interval, until ctx is
// cancelled. It always returns nil so it can sit in an errgroup next to the
// HTTP server.
func (s *ApprovalSweeper) Run(ctx context.Context) error {
	logger.Info("approval sweeper started", logger.Fields{"interval": s.interval.String()})

	if ctx.Err() == nil {
		s.sweep(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("approval sweeper stopped", nil)
			return nil
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ApprovalSweeper) sweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("approval sweeper panicked", fmt.Errorf("%v", r), nil)
		}
	}()

	defer s.reportLocks()

	released, err := s.processor.ProcessExpiredApprovals(ctx)
	if err != nil {
		logger.Error("approval sweeper run failed", err, logger.Fields{"released": released})
		return
	}
	if released > 0 {
		logger.Info("approval sweeper released expired approvals", logger.Fields{"released": released})
	}
}

func (s *ApprovalSweeper) reportLocks() {
	if s.locks == nil {
		return
	}
	size := s.locks.Size()
	if size > s.lastLocks {
		logger.Info("customer lock registry grew", logger.Fields{"customerLocks": size})
		s.lastLocks = size
	}
}
