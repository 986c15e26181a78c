package batch

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"bananalab/internal/domain"
	"bananalab/internal/infra"
	"bananalab/internal/metrics"
	"bananalab/internal/provider"
	"bananalab/internal/storage"
)

// Outer retry budget: up to five retries after the first attempt, each tier
// waiting longer than the last. This sits above the engine, whose own inner
// retry is disabled for orchestrated runs so only one layer owns backoff.
const MaxOuterRetries = 5

var OuterBackoff = []time.Duration{
	30 * time.Second,
	60 * time.Second,
	120 * time.Second,
	240 * time.Second,
	480 * time.Second,
}

// DefaultItemDelay is the courtesy pause between work items.
const DefaultItemDelay = 5 * time.Second

// DefaultItemTimeout bounds a single generation call, independent of any
// retry backoff, so one hung call cannot stall the batch.
const DefaultItemTimeout = 2 * time.Minute

// Engine is the generation contract consumed by the orchestrator.
type Engine interface {
	Generate(ctx context.Context, req provider.GenerationRequest) provider.GenerationResult
	Available() bool
}

// WorkItem is one unit of batch work: a request to run, the storage key for
// its output, and an optional commit writing the completion marker. Items
// with a nil Commit rely on storage-key existence for idempotence.
type WorkItem struct {
	ID      string
	Name    string
	Key     string
	Request provider.GenerationRequest
	Commit  func(ctx context.Context, url string) error
}

// Phase selects eligible work items and shapes their requests. Phases only
// differ in selection and request construction; retry, timeout, persistence
// and accounting live in the orchestrator.
type Phase interface {
	Name() string
	Select(ctx context.Context, batchSize int) ([]WorkItem, error)
}

// Report aggregates one orchestrator run.
type Report struct {
	Success int     `json:"success"`
	Fail    int     `json:"fail"`
	Skipped int     `json:"skipped"`
	Cost    float64 `json:"cost"`
}

// Options tunes one run.
type Options struct {
	// Delay is the fixed pause between items; zero means DefaultItemDelay,
	// negative means none.
	Delay time.Duration
	// BatchSize caps the selection; zero means unbounded.
	BatchSize int
	// DryRun estimates counts and cost without any transport call.
	DryRun bool
	// ItemTimeout is the hard per-item bound; zero means DefaultItemTimeout.
	ItemTimeout time.Duration
	// Budget caps accumulated spend; once reached, remaining items are
	// skipped. Zero means unlimited.
	Budget float64
}

// Orchestrator drives a phase over its backlog: strictly sequential items,
// escalating outer retry on transient failures, a durable completion marker
// committed after every item, and aggregate accounting.
type Orchestrator struct {
	engine  Engine
	blobs   storage.Store
	catalog *provider.Catalog
	logger  infra.Logger

	// sleep is a seam so tests do not wait out real backoff tiers.
	sleep func(ctx context.Context, d time.Duration) bool
}

// New wires an orchestrator.
func New(engine Engine, blobs storage.Store, catalog *provider.Catalog, logger infra.Logger) *Orchestrator {
	return &Orchestrator{
		engine:  engine,
		blobs:   blobs,
		catalog: catalog,
		logger:  logger,
		sleep:   sleepCtx,
	}
}

// NewQuiet is New with a discarded logger, for tests and tools.
func NewQuiet(engine Engine, blobs storage.Store, catalog *provider.Catalog) *Orchestrator {
	return New(engine, blobs, catalog, zerolog.New(io.Discard))
}

type itemOutcome int

const (
	itemFailed itemOutcome = iota
	itemSucceeded
	itemSkipped
)

// Run executes the phase. It fails fast when the provider or the blob store
// is unavailable, before selecting any work.
func (o *Orchestrator) Run(ctx context.Context, phase Phase, opts Options) (Report, error) {
	if o.engine == nil || !o.engine.Available() {
		return Report{}, domain.ErrProviderUnavailable
	}
	if o.blobs == nil || !o.blobs.Available() {
		return Report{}, domain.ErrStorageUnavailable
	}

	items, err := phase.Select(ctx, opts.BatchSize)
	if err != nil {
		return Report{}, fmt.Errorf("select work items: %w", err)
	}

	var report Report
	if opts.DryRun {
		for _, item := range items {
			report.Cost += o.catalog.EstimateCost(item.Request)
		}
		report.Skipped = len(items)
		o.logger.Info().
			Str("phase", phase.Name()).
			Int("items", len(items)).
			Float64("estimated_cost", report.Cost).
			Msg("batch: dry run")
		return report, nil
	}

	if len(items) == 0 {
		o.logger.Info().Str("phase", phase.Name()).Msg("batch: nothing to do")
		return report, nil
	}

	delay := opts.Delay
	if delay == 0 {
		delay = DefaultItemDelay
	}
	timeout := opts.ItemTimeout
	if timeout <= 0 {
		timeout = DefaultItemTimeout
	}

	for i, item := range items {
		if opts.Budget > 0 && report.Cost >= opts.Budget {
			report.Skipped += len(items) - i
			o.logger.Warn().
				Str("phase", phase.Name()).
				Float64("spent", report.Cost).
				Float64("budget", opts.Budget).
				Int("remaining", len(items)-i).
				Msg("batch: budget reached, skipping remainder")
			break
		}
		o.logger.Info().
			Str("phase", phase.Name()).
			Str("item", item.Name).
			Int("index", i+1).
			Int("total", len(items)).
			Msg("batch: processing item")

		outcome, cost := o.processItem(ctx, phase.Name(), item, timeout)
		switch outcome {
		case itemSucceeded:
			report.Success++
			report.Cost += cost
			metrics.BatchItemsTotal.WithLabelValues(phase.Name(), "success").Inc()
		case itemSkipped:
			report.Skipped++
			metrics.BatchItemsTotal.WithLabelValues(phase.Name(), "skipped").Inc()
		default:
			report.Fail++
			metrics.BatchItemsTotal.WithLabelValues(phase.Name(), "fail").Inc()
		}

		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		// Courtesy pause between items regardless of outcome; distinct from
		// any retry backoff.
		if i < len(items)-1 && delay > 0 {
			if !o.sleep(ctx, delay) {
				return report, ctx.Err()
			}
		}
	}

	o.logger.Info().
		Str("phase", phase.Name()).
		Int("success", report.Success).
		Int("fail", report.Fail).
		Int("skipped", report.Skipped).
		Float64("cost", report.Cost).
		Msg("batch: phase complete")
	return report, nil
}

// processItem runs one item under the outer retry schedule. Safety blocks
// skip immediately; transient failures wait out the escalating tiers; fatal
// errors and exhausted budgets mark the item permanently failed.
func (o *Orchestrator) processItem(ctx context.Context, phaseName string, item WorkItem, timeout time.Duration) (itemOutcome, float64) {
	for attempt := 0; ; attempt++ {
		result := o.generate(ctx, item, timeout)

		if result.SafetyBlocked {
			o.logger.Warn().
				Str("item", item.Name).
				Msg("batch: safety blocked, skipping")
			return itemSkipped, 0
		}

		errMsg := result.Error
		if result.Success && result.Image != nil {
			url, err := o.blobs.Save(ctx, item.Key, result.Image.Data, result.Image.MIME)
			if err == nil && item.Commit != nil {
				// Marker write commits immediately; a crash mid-run loses at
				// most the in-flight item.
				err = item.Commit(ctx, url)
			}
			if err == nil {
				o.logger.Info().
					Str("item", item.Name).
					Str("url", url).
					Float64("cost", result.Cost).
					Msg("batch: item done")
				return itemSucceeded, result.Cost
			}
			errMsg = err.Error()
		}
		if errMsg == "" {
			errMsg = "no image in result"
		}

		if provider.Classify(errMsg) == provider.ErrorTransient && attempt < MaxOuterRetries {
			tier := attempt
			if tier >= len(OuterBackoff) {
				tier = len(OuterBackoff) - 1
			}
			wait := OuterBackoff[tier]
			o.logger.Warn().
				Str("item", item.Name).
				Int("attempt", attempt+1).
				Int("max", MaxOuterRetries).
				Dur("wait", wait).
				Str("error", errMsg).
				Msg("batch: transient failure, backing off")
			metrics.BatchRetriesTotal.WithLabelValues(phaseName).Inc()
			if !o.sleep(ctx, wait) {
				return itemFailed, 0
			}
			continue
		}

		o.logger.Error().
			Str("item", item.Name).
			Str("error", errMsg).
			Msg("batch: item failed")
		return itemFailed, 0
	}
}

// generate calls the engine under the hard per-item timeout. The recover is
// the per-item catch-all: one misbehaving item must not abort the backlog.
func (o *Orchestrator) generate(ctx context.Context, item WorkItem, timeout time.Duration) (result provider.GenerationResult) {
	defer func() {
		if r := recover(); r != nil {
			result = provider.GenerationResult{
				Error:     fmt.Sprintf("panic: %v", r),
				ErrorType: provider.ErrorTypeFatal,
			}
		}
	}()

	itemCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return o.engine.Generate(itemCtx, item.Request)
}

// sleepCtx sleeps for d unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
