// Package pipeline locates monthly CEMS sources, loads them into normalized
// and localized batches, and commits them to the emissions store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/cems-etl/internal/domain"
	"github.com/couchcryptid/cems-etl/internal/observability"
	"github.com/couchcryptid/cems-etl/internal/store"
)

// Publisher forwards committed rows to a downstream sink.
type Publisher interface {
	Publish(ctx context.Context, source string, rows []domain.EmissionRow) error
}

// Ingestor orchestrates locate, load and commit for (month, state) pairs.
type Ingestor struct {
	locator   *Locator
	loader    *Loader
	store     *store.Store
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	mu        sync.Mutex
}

// New creates an Ingestor. Pass a nil publisher to disable the sink.
func New(locator *Locator, loader *Loader, st *store.Store, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics) *Ingestor {
	return &Ingestor{
		locator:   locator,
		loader:    loader,
		store:     st,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// Append loads the source for one month and state and commits it. A failed
// load leaves the store unchanged.
func (in *Ingestor) Append(ctx context.Context, month time.Time, state string) (store.LoadRecord, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	start := time.Now()
	src := in.locator.Locate(month, state)
	in.logger.Info("loading source", "source", src.Name, "location", src.Location, "local", src.Local)

	batch, err := in.loader.Load(ctx, src)
	if err != nil {
		in.metrics.SourcesLoaded.WithLabelValues("error").Inc()
		return store.LoadRecord{}, fmt.Errorf("append %s: %w", src.Name, err)
	}

	rec := in.store.Append(batch)
	in.metrics.SourcesLoaded.WithLabelValues("success").Inc()
	in.metrics.RowsAppended.Add(float64(rec.Rows))
	in.metrics.RowsMissingOffset.Add(float64(countWithoutTime(batch.Rows)))
	in.metrics.StoreRows.Set(float64(in.store.Len()))
	in.metrics.LoadDuration.Observe(time.Since(start).Seconds())
	in.logger.Info("source appended",
		"source", src.Name,
		"load_id", rec.ID,
		"rows", rec.Rows,
		"missing_offsets", len(rec.MissingOffsets),
	)

	in.publish(ctx, batch)
	return rec, nil
}

// AddData appends every month in [start, end] for every state. A failing
// source is logged and the run continues; all failures are joined into the
// returned error. Cancellation stops the run between sources.
func (in *Ingestor) AddData(ctx context.Context, start, end time.Time, states []string) error {
	in.metrics.IngestRunning.Set(1)
	defer in.metrics.IngestRunning.Set(0)

	months := domain.MonthRange(start, end)
	in.logger.Info("ingest started", "months", len(months), "states", states)

	var errs []error
	for _, month := range months {
		for _, state := range states {
			if err := ctx.Err(); err != nil {
				in.logger.Info("ingest stopping", "reason", err)
				return errors.Join(append(errs, err)...)
			}
			if _, err := in.Append(ctx, month, state); err != nil {
				in.logger.Error("append failed", "month", month.Format("2006-01"), "state", state, "error", err)
				errs = append(errs, err)
			}
		}
	}

	in.logger.Info("ingest finished", "rows", in.store.Len(), "failed", len(errs))
	return errors.Join(errs...)
}

func (in *Ingestor) publish(ctx context.Context, batch *store.Batch) {
	if in.publisher == nil || len(batch.Rows) == 0 {
		return
	}
	if err := in.publisher.Publish(ctx, batch.Source, batch.Rows); err != nil {
		in.metrics.PublishErrors.Inc()
		in.logger.Error("publish failed", "source", batch.Source, "rows", len(batch.Rows), "error", err)
		return
	}
	in.metrics.RowsPublished.Add(float64(len(batch.Rows)))
}

func countWithoutTime(rows []domain.EmissionRow) int {
	n := 0
	for i := range rows {
		if rows[i].Time == nil {
			n++
		}
	}
	return n
}
