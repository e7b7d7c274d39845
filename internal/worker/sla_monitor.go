package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/observability"
	"github.com/spec-kit/support-engine/internal/service"
)

// OverdueSweeper runs one pass over tickets past their SLA deadline.
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context) (service.SweepResult, error)
}

// SlaMonitorTask periodically sweeps for SLA breaches. If a sweep is still
// running when the next tick fires, the tick is skipped, not queued.
type SlaMonitorTask struct {
	sweeper  OverdueSweeper
	metrics  *observability.Metrics
	logger   *zap.Logger
	interval time.Duration
	running  atomic.Bool
}

// NewSlaMonitorTask builds the monitor task.
func NewSlaMonitorTask(sweeper OverdueSweeper, metrics *observability.Metrics, logger *zap.Logger, interval time.Duration) *SlaMonitorTask {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &SlaMonitorTask{
		sweeper:  sweeper,
		metrics:  metrics,
		logger:   logger,
		interval: interval,
	}
}

// Name implements Task.
func (t *SlaMonitorTask) Name() string { return "sla_monitor" }

// Schedule implements Task.
func (t *SlaMonitorTask) Schedule() string {
	return fmt.Sprintf("@every %ds", int(t.interval.Seconds()))
}

// Timeout bounds a single sweep to two intervals so a hung sweep cannot pin
// the skip flag forever.
func (t *SlaMonitorTask) Timeout() time.Duration { return 2 * t.interval }

// Run executes one sweep unless the previous one is still going.
func (t *SlaMonitorTask) Run(ctx context.Context) error {
	if !t.running.CompareAndSwap(false, true) {
		t.logger.Warn("sla sweep still running, skipping tick")
		return nil
	}
	defer t.running.Store(false)

	start := time.Now()
	result, err := t.sweeper.SweepOverdue(ctx)
	if err != nil {
		return err
	}
	t.metrics.RecordSweep(result.Breached, time.Since(start))
	return nil
}
