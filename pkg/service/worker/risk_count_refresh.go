package worker

import (
	"context"
	"time"

	"github.com/secmon-lab/riskmatrix/pkg/domain/model"
	"github.com/secmon-lab/riskmatrix/pkg/utils/async"
	"github.com/secmon-lab/riskmatrix/pkg/utils/logging"
)

// RiskCounter reads the number of registered risk entries
type RiskCounter interface {
	RiskCount(ctx context.Context) model.RiskCount
}

// RiskCountRefreshWorker periodically reads the risk count so the exported gauge follows
// changes made by other instances sharing the store
type RiskCountRefreshWorker struct {
	counter  RiskCounter
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewRiskCountRefreshWorker creates a new worker refreshing every interval
func NewRiskCountRefreshWorker(counter RiskCounter, interval time.Duration) *RiskCountRefreshWorker {
	return &RiskCountRefreshWorker{
		counter:  counter,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background refresh loop without blocking
func (w *RiskCountRefreshWorker) Start(ctx context.Context) {
	logging.From(ctx).Info("Risk count refresh worker starting", "interval", w.interval.String())

	async.Dispatch(ctx, func(ctx context.Context) error {
		w.run(ctx)
		return nil
	})
}

// Stop signals the worker to stop and waits for completion
func (w *RiskCountRefreshWorker) Stop() {
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("Risk count refresh worker stopped")
}

func (w *RiskCountRefreshWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	w.refresh(ctx)

	if w.interval <= 0 {
		select {
		case <-w.stopCh:
		case <-ctx.Done():
		}
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.refresh(ctx)

		case <-w.stopCh:
			return

		case <-ctx.Done():
			return
		}
	}
}

func (w *RiskCountRefreshWorker) refresh(ctx context.Context) {
	count := w.counter.RiskCount(ctx)
	if !count.Available() {
		// RiskCount already logged the cause
		return
	}
	logging.From(ctx).Debug("Risk count refreshed", "count", count.Value)
}
