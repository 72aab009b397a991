package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/firms-fire-etl/internal/domain"
	"github.com/couchcryptid/firms-fire-etl/internal/observability"
	"golang.org/x/sync/errgroup"
)

// Status messages reported during a cycle.
const (
	StatusInitializing = "Initializing…"
	StatusDownloading  = "Downloading FIRMS data…"
	StatusNoSources    = "No sources selected."
)

// StatusShowing formats the success status for n displayed detections.
func StatusShowing(n int) string {
	return fmt.Sprintf("Showing %d detections.", n)
}

// StatusError formats a failure status.
func StatusError(err error) string {
	return "Error: " + err.Error()
}

// Trigger names what started a cycle. It only labels logs and metrics.
type Trigger string

const (
	TriggerStartup Trigger = "startup"
	TriggerManual  Trigger = "manual"
	TriggerParams  Trigger = "params"
	TriggerTimer   Trigger = "timer"
)

// Fetcher downloads the CSV body for one source query.
type Fetcher interface {
	FetchCSV(ctx context.Context, q domain.SourceQuery) (string, error)
}

// LayerSink displays a finished layer, replacing whatever it showed before.
type LayerSink interface {
	ReplaceAll(ctx context.Context, layer domain.Layer) error
}

// StatusReporter receives human-readable progress messages.
type StatusReporter interface {
	Report(msg string)
}

// ParamSource exposes the current map parameters.
type ParamSource interface {
	Params() Params
}

// Options configures an Orchestrator.
type Options struct {
	MapKey      string
	BoundingBox domain.BoundingBox

	// DiscardStale drops the result of a cycle that finishes after a newer
	// cycle has already written the sink. When false the last cycle to finish
	// wins, even if it started earlier.
	DiscardStale bool
}

// Orchestrator runs ingestion cycles: concurrent fetch of every selected
// source, parse, merge in selection order, dedupe, style, and a wholesale
// replace of the layer sink.
type Orchestrator struct {
	fetcher Fetcher
	params  ParamSource
	sink    LayerSink
	status  StatusReporter
	logger  *slog.Logger
	metrics *observability.Metrics
	opts    Options

	cycles atomic.Uint64
	ready  atomic.Bool

	writeMu     sync.Mutex
	lastWritten uint64
}

// New creates an Orchestrator with the given collaborators and observability.
func New(f Fetcher, params ParamSource, sink LayerSink, status StatusReporter, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Orchestrator {
	return &Orchestrator{
		fetcher: f,
		params:  params,
		sink:    sink,
		status:  status,
		logger:  logger,
		metrics: metrics,
		opts:    opts,
	}
}

// CheckReadiness returns nil once a cycle has rendered a layer, including the
// empty layer of a cycle with no sources selected.
func (o *Orchestrator) CheckReadiness(_ context.Context) error {
	if !o.ready.Load() {
		return errors.New("no ingestion cycle has completed yet")
	}
	return nil
}

// RunCycle performs one ingestion cycle. Any fetch failure aborts the cycle
// and leaves the displayed layer untouched; the error is reported as status
// and returned.
func (o *Orchestrator) RunCycle(ctx context.Context, trigger Trigger) error {
	cycle := o.cycles.Add(1)
	start := time.Now()
	logger := o.logger.With("cycle", cycle, "trigger", trigger)

	o.metrics.CyclesInFlight.Inc()
	defer o.metrics.CyclesInFlight.Dec()
	defer func() { o.metrics.CycleDuration.Observe(time.Since(start).Seconds()) }()

	o.status.Report(StatusDownloading)

	p := o.params.Params()
	if len(p.Sources) == 0 {
		applied, err := o.write(ctx, domain.EmptyLayer(cycle))
		if err != nil {
			return o.fail(logger, cycle, trigger, fmt.Errorf("clear layer: %w", err))
		}
		if applied {
			o.ready.Store(true)
			o.metrics.DetectionsDisplayed.Set(0)
			o.status.Report(StatusNoSources)
		}
		o.metrics.Cycles.WithLabelValues(string(trigger), "empty").Inc()
		logger.Info("no sources selected, layer cleared")
		return nil
	}

	queries, err := o.buildQueries(p)
	if err != nil {
		return o.fail(logger, cycle, trigger, err)
	}

	bodies, err := o.fetchAll(ctx, queries)
	if err != nil {
		return o.fail(logger, cycle, trigger, err)
	}

	records := o.parseAll(queries, bodies)
	unique := domain.Dedupe(records)
	o.metrics.DuplicatesDropped.Add(float64(len(records) - len(unique)))

	layer := domain.Render(cycle, unique)
	applied, err := o.write(ctx, layer)
	if err != nil {
		return o.fail(logger, cycle, trigger, fmt.Errorf("replace layer: %w", err))
	}
	if !applied {
		o.metrics.Cycles.WithLabelValues(string(trigger), "stale").Inc()
		logger.Info("newer cycle already rendered, discarding result", "detections", layer.Len())
		return nil
	}

	o.ready.Store(true)
	o.metrics.DetectionsDisplayed.Set(float64(layer.Len()))
	o.metrics.Cycles.WithLabelValues(string(trigger), "success").Inc()
	o.status.Report(StatusShowing(layer.Len()))

	logger.Info("ingestion cycle complete",
		"sources", len(queries),
		"records", len(records),
		"detections", layer.Len(),
		"duration", time.Since(start),
	)
	return nil
}

func (o *Orchestrator) buildQueries(p Params) ([]domain.SourceQuery, error) {
	queries := make([]domain.SourceQuery, 0, len(p.Sources))
	for _, src := range p.Sources {
		q, err := domain.NewSourceQuery(o.opts.MapKey, src, o.opts.BoundingBox[:], p.Days)
		if err != nil {
			return nil, fmt.Errorf("build query for %s: %w", src, err)
		}
		queries = append(queries, q)
	}
	return queries, nil
}

// fetchAll issues every query concurrently and waits for all of them. Bodies
// are returned in query order regardless of completion order. The first
// failure cancels the remaining requests and is returned.
func (o *Orchestrator) fetchAll(ctx context.Context, queries []domain.SourceQuery) ([]string, error) {
	bodies := make([]string, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			body, err := o.fetcher.FetchCSV(gctx, q)
			if err != nil {
				return err
			}
			bodies[i] = body
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bodies, nil
}

func (o *Orchestrator) parseAll(queries []domain.SourceQuery, bodies []string) []domain.DetectionRecord {
	var records []domain.DetectionRecord
	for i, body := range bodies {
		res := domain.ParseCSV(queries[i].Source(), body)
		o.metrics.RowsParsed.Add(float64(res.Rows))
		o.metrics.RowsDropped.Add(float64(res.Dropped))
		records = append(records, res.Records...)
	}
	return records
}

// write replaces the sink contents with layer. With DiscardStale set, a layer
// from a cycle older than the last written one is dropped and write reports
// false.
func (o *Orchestrator) write(ctx context.Context, layer domain.Layer) (bool, error) {
	o.writeMu.Lock()
	defer o.writeMu.Unlock()

	if o.opts.DiscardStale && layer.Cycle < o.lastWritten {
		return false, nil
	}
	if err := o.sink.ReplaceAll(ctx, layer); err != nil {
		return false, err
	}
	o.lastWritten = layer.Cycle
	return true, nil
}

// stale reports whether a newer cycle has already written the sink.
func (o *Orchestrator) stale(cycle uint64) bool {
	if !o.opts.DiscardStale {
		return false
	}
	o.writeMu.Lock()
	defer o.writeMu.Unlock()
	return cycle < o.lastWritten
}

func (o *Orchestrator) fail(logger *slog.Logger, cycle uint64, trigger Trigger, err error) error {
	o.metrics.Cycles.WithLabelValues(string(trigger), "error").Inc()
	logger.Error("ingestion cycle failed", "error", err)
	if !o.stale(cycle) {
		o.status.Report(StatusError(err))
	}
	return err
}
