package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/firms-fire-etl/internal/observability"
	"github.com/jonboulle/clockwork"
)

// CycleRunner runs a single ingestion cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context, trigger Trigger) error
}

// Refresher decides when cycles run: once at startup, on manual refresh, when
// the source selection or day window changes, and on a timer while the layer
// is enabled. Each trigger gets its own goroutine, so cycles may overlap.
type Refresher struct {
	runner   CycleRunner
	params   *ParamState
	status   StatusReporter
	clock    clockwork.Clock
	interval time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu  sync.Mutex
	ctx context.Context
	wg  sync.WaitGroup
}

// NewRefresher wires a Refresher to params so that source and day changes
// trigger a cycle. Triggers before Run or after shutdown are ignored.
func NewRefresher(runner CycleRunner, params *ParamState, status StatusReporter, clock clockwork.Clock, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Refresher {
	r := &Refresher{
		runner:   runner,
		params:   params,
		status:   status,
		clock:    clock,
		interval: interval,
		logger:   logger,
		metrics:  metrics,
	}
	params.OnChange(func(c ParamChange) {
		if c.SourcesSet || c.DaysSet {
			r.trigger(TriggerParams)
		}
	})
	return r
}

// Run starts the startup cycle and the refresh timer, then blocks until ctx
// is canceled and every in-flight cycle has returned.
func (r *Refresher) Run(ctx context.Context) error {
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()

	r.metrics.RefresherActive.Set(1)
	defer r.metrics.RefresherActive.Set(0)

	r.status.Report(StatusInitializing)
	r.trigger(TriggerStartup)

	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("refresher started", "interval", r.interval)
	for {
		select {
		case <-ctx.Done():
			r.mu.Lock()
			r.ctx = nil
			r.mu.Unlock()
			r.wg.Wait()
			r.logger.Info("refresher stopped")
			return nil
		case <-ticker.Chan():
			if !r.params.Params().Enabled {
				r.logger.Debug("layer disabled, skipping timed refresh")
				continue
			}
			r.trigger(TriggerTimer)
		}
	}
}

// Refresh starts a manual cycle. It reports false when the refresher is not
// running.
func (r *Refresher) Refresh() bool {
	return r.trigger(TriggerManual)
}

func (r *Refresher) trigger(t Trigger) bool {
	r.mu.Lock()
	ctx := r.ctx
	if ctx == nil {
		r.mu.Unlock()
		r.logger.Debug("refresher not running, ignoring trigger", "trigger", t)
		return false
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		// Errors are already reported as status by the runner.
		_ = r.runner.RunCycle(ctx, t)
	}()
	return true
}
