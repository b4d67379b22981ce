package workers

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"incidentwatch/services"
)

const DefaultPipelineInterval = 30 * time.Second

// PipelineWorker drives the periodic verification pipeline: it drains the
// pending queue, rescores every active report, and purges expired ones.
type PipelineWorker struct {
	reports  *services.ReportService
	clock    clockwork.Clock
	interval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func NewPipelineWorker(reports *services.ReportService, clock clockwork.Clock, interval time.Duration) *PipelineWorker {
	if interval <= 0 {
		interval = DefaultPipelineInterval
	}
	return &PipelineWorker{
		reports:  reports,
		clock:    clock,
		interval: interval,
	}
}

// Start launches the worker loop. Calling Start twice is a no-op.
func (w *PipelineWorker) Start() {
	w.once.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		w.cancel = cancel

		w.wg.Add(1)
		go w.run(ctx)
		logrus.Infof("Pipeline worker started, interval %s", w.interval)
	})
}

// Stop halts the loop and waits for the in-flight sweep to finish.
func (w *PipelineWorker) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	w.wg.Wait()
	logrus.Info("Pipeline worker stopped")
}

func (w *PipelineWorker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one pipeline pass. Exposed so tests and shutdown paths can
// trigger a pass without waiting for the ticker.
func (w *PipelineWorker) Sweep(ctx context.Context) {
	processed := w.reports.ProcessPendingVerifications(ctx)
	rescored := w.reports.RecalculateActivePriorities(ctx)
	purged := w.reports.PurgeExpired(ctx)

	if processed > 0 || rescored > 0 || purged > 0 {
		logrus.Infof("Pipeline sweep: %d pending processed, %d priorities changed, %d purged",
			processed, rescored, purged)
	}
}
