package engine

import (
	"context"

	"github.com/openballot/ballotdedup/internal/types"
)

// GetActive returns canonical (non-duplicate) records matching the
// filter.
func (e *Engine) GetActive(ctx context.Context, filter types.MeasureFilter) ([]*types.Measure, error) {
	return e.store.ListActive(ctx, filter)
}

// GetMeasure returns one record by id, duplicate or not.
func (e *Engine) GetMeasure(ctx context.Context, id int64) (*types.Measure, error) {
	return e.store.GetMeasure(ctx, id)
}

// DuplicateReport breaks down duplicates by type and source.
func (e *Engine) DuplicateReport(ctx context.Context) (*types.DuplicateReport, error) {
	return e.store.DuplicateReport(ctx)
}

// Stats aggregates the active view.
func (e *Engine) Stats(ctx context.Context) (*types.Stats, error) {
	return e.store.Stats(ctx)
}

// GetChanges returns the journaled field transitions for a record,
// newest first.
func (e *Engine) GetChanges(ctx context.Context, measureID int64) ([]*types.FieldChange, error) {
	return e.store.GetChanges(ctx, measureID)
}

// GetIngestRuns returns recent batch-ingest audit rows.
func (e *Engine) GetIngestRuns(ctx context.Context, limit int) ([]*types.IngestRun, error) {
	return e.store.GetIngestRuns(ctx, limit)
}
