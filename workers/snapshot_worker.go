package workers

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"incidentwatch/store"
)

const DefaultSnapshotInterval = 5 * time.Minute

// SnapshotWorker periodically persists the in-memory stores to Redis so a
// restart can warm-start from recent state.
type SnapshotWorker struct {
	snapshot *store.SnapshotStore
	clock    clockwork.Clock
	interval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func NewSnapshotWorker(snapshot *store.SnapshotStore, clock clockwork.Clock, interval time.Duration) *SnapshotWorker {
	if interval <= 0 {
		interval = DefaultSnapshotInterval
	}
	return &SnapshotWorker{
		snapshot: snapshot,
		clock:    clock,
		interval: interval,
	}
}

func (w *SnapshotWorker) Start() {
	w.once.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		w.cancel = cancel

		w.wg.Add(1)
		go w.run(ctx)
		logrus.Infof("Snapshot worker started, interval %s", w.interval)
	})
}

// Stop takes a final snapshot before shutting the loop down.
func (w *SnapshotWorker) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	w.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := w.snapshot.Save(ctx); err != nil {
		logrus.Errorf("Final snapshot failed: %v", err)
	}
	logrus.Info("Snapshot worker stopped")
}

func (w *SnapshotWorker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if err := w.snapshot.Save(ctx); err != nil {
				logrus.Errorf("Snapshot failed: %v", err)
			}
		}
	}
}
