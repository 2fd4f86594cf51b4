// Package storage defines the Record Store contract consumed by the
// dedup engine: fingerprint-indexed lookup at each strictness tier,
// field-filtered queries over the active view, and atomic multi-row
// updates for group consolidation.
package storage

import (
	"context"

	"github.com/openballot/ballotdedup/internal/types"
)

// Storage is the persistence interface for ballot measures.
//
// Lookup methods return (nil, nil) when no row matches. All methods take
// a context; implementations must honor deadlines rather than hang.
type Storage interface {
	// CreateMeasure inserts a new measure and returns its assigned id.
	// A types.ConflictError is returned when the exact fingerprint
	// already exists; this is the serialization point between
	// concurrent ingest workers.
	CreateMeasure(ctx context.Context, m *types.Measure) (int64, error)

	// GetMeasure retrieves a measure by id.
	GetMeasure(ctx context.Context, id int64) (*types.Measure, error)

	// GetByExactFingerprint looks up the strictest tier: same event,
	// same source.
	GetByExactFingerprint(ctx context.Context, fp string) (*types.Measure, error)

	// FindActiveByContentHash returns non-duplicate measures whose
	// descriptive text hashes identically.
	FindActiveByContentHash(ctx context.Context, hash string) ([]*types.Measure, error)

	// FindActiveByMeasureFingerprint returns non-duplicate measures
	// describing the same real-world event, across sources.
	FindActiveByMeasureFingerprint(ctx context.Context, fp string) ([]*types.Measure, error)

	// UpdateMeasure applies allow-listed field updates to one measure,
	// journaling each change with its old and new value and bumping
	// updated_at, last_seen_at, and update_count.
	UpdateMeasure(ctx context.Context, id int64, updates map[string]interface{}, source types.DataSource) error

	// TouchLastSeen records a re-observation that changed nothing.
	TouchLastSeen(ctx context.Context, id int64) error

	// MarkDuplicate soft-marks a measure as a duplicate of master.
	MarkDuplicate(ctx context.Context, id, masterID int64, dtype types.DuplicateType) error

	// UnmarkDuplicate clears the duplicate state on a measure.
	UnmarkDuplicate(ctx context.Context, id int64) error

	// ListActive queries the active (non-duplicate) view.
	ListActive(ctx context.Context, filter types.MeasureFilter) ([]*types.Measure, error)

	// CrossSourceGroups returns the measure fingerprints shared by more
	// than one active record.
	CrossSourceGroups(ctx context.Context) ([]string, error)

	// ConsolidateGroup commits one group's consolidation atomically:
	// the master's merged fields, the followers' duplicate flags, and
	// the repointing of any earlier followers of a demoted master.
	// Partial application is never left behind.
	ConsolidateGroup(ctx context.Context, masterID int64, masterUpdates map[string]interface{}, mergedFrom []int64, followerIDs []int64) error

	// DuplicateReport counts duplicates by type and by source.
	DuplicateReport(ctx context.Context) (*types.DuplicateReport, error)

	// Stats aggregates the active view.
	Stats(ctx context.Context) (*types.Stats, error)

	// GetChanges returns the journaled field transitions for a measure,
	// newest first.
	GetChanges(ctx context.Context, measureID int64) ([]*types.FieldChange, error)

	// Ingest-run audit log.
	StartIngestRun(ctx context.Context, runID, runType string) error
	FinishIngestRun(ctx context.Context, runID string, result *types.BatchResult, status string, errMsg string) error
	GetIngestRuns(ctx context.Context, limit int) ([]*types.IngestRun, error)

	// Close releases the underlying resources.
	Close() error
}
