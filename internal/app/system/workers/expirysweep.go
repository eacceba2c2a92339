// internal/app/system/workers/expirysweep.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/therapyrooms/internal/app/chat/lifecycle"
	"github.com/dalemusser/therapyrooms/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Sweeper runs one expiry sweep for the given day.
type Sweeper interface {
	RunExpirySweep(ctx context.Context, today time.Time) (lifecycle.SweepResult, error)
}

// ExpirySweep is a background worker that closes chat rooms past their
// expiry date.
type ExpirySweep struct {
	sweeper    Sweeper
	log        *zap.Logger
	interval   time.Duration
	runAtStart bool
	now        func() time.Time
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

// NewExpirySweep creates a new expiry sweep worker.
//
// Parameters:
//   - sweeper: the lifecycle manager
//   - logger: zap logger for logging
//   - interval: how often to sweep (e.g., 24 hours)
//   - runAtStart: sweep once immediately instead of waiting a full interval
func NewExpirySweep(sweeper Sweeper, logger *zap.Logger, interval time.Duration, runAtStart bool) *ExpirySweep {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &ExpirySweep{
		sweeper:    sweeper,
		log:        logger,
		interval:   interval,
		runAtStart: runAtStart,
		now:        time.Now,
		stopCh:     make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (w *ExpirySweep) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("expiry sweep worker started",
		zap.Duration("interval", w.interval),
		zap.Bool("run_at_start", w.runAtStart))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *ExpirySweep) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("expiry sweep worker stopped")
}

func (w *ExpirySweep) run() {
	defer w.wg.Done()

	if w.runAtStart {
		w.sweep()
	}

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

func (w *ExpirySweep) sweep() {
	ctx, cancel := timeouts.WithTimeout(context.Background(), timeouts.Sweep(), w.log, "expiry sweep")
	defer cancel()

	res, err := w.sweeper.RunExpirySweep(ctx, w.now())
	if err != nil {
		w.log.Error("expiry sweep failed", zap.String("run_id", res.RunID), zap.Error(err))
		return
	}

	if res.Closed > 0 || res.Failed > 0 {
		w.log.Info("expiry sweep closed rooms",
			zap.String("run_id", res.RunID),
			zap.Int("closed", res.Closed),
			zap.Int("failed", res.Failed))
	}
}
