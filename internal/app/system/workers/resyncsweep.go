// internal/app/system/workers/resyncsweep.go
package workers

import (
	"context"
	"sync"
	"time"

	groupstore "github.com/dalemusser/cohortsync/internal/app/store/groups"
	groupsync "github.com/dalemusser/cohortsync/internal/app/sync"
	"github.com/dalemusser/cohortsync/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// ResyncSweep is a background worker that periodically enqueues a resync
// for every active group. It is the self-healing loop: drift introduced
// by missed syncs, manual edits, or expired retries gets reconciled on
// the next sweep without anyone asking.
type ResyncSweep struct {
	groups   *groupstore.Store
	retries  groupsync.RetryQueue
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewResyncSweep creates a new sweep worker.
func NewResyncSweep(groups *groupstore.Store, retries groupsync.RetryQueue, logger *zap.Logger, interval time.Duration) *ResyncSweep {
	return &ResyncSweep{
		groups:   groups,
		retries:  retries,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (w *ResyncSweep) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("resync sweep worker started",
		zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *ResyncSweep) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("resync sweep worker stopped")
}

func (w *ResyncSweep) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *ResyncSweep) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Long())
	defer cancel()

	ids, err := w.groups.ListActiveIDs(ctx)
	if err != nil {
		w.log.Error("resync sweep: list active groups failed", zap.Error(err))
		return
	}
	enqueued := 0
	for _, id := range ids {
		if err := w.retries.Enqueue(ctx, "sweep", id, 1); err != nil {
			w.log.Error("resync sweep: enqueue failed",
				zap.String("group_id", id.Hex()), zap.Error(err))
			continue
		}
		enqueued++
	}
	if enqueued > 0 {
		w.log.Info("resync sweep enqueued groups", zap.Int("count", enqueued))
	}
}
