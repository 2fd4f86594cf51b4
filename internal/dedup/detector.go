package dedup

import (
	"context"

	"github.com/openballot/ballotdedup/internal/fingerprint"
	"github.com/openballot/ballotdedup/internal/storage"
	"github.com/openballot/ballotdedup/internal/types"
)

// MatchType classifies the outcome of duplicate detection for one
// incoming record.
type MatchType string

const (
	// MatchNone means the record is new: insert as active.
	MatchNone MatchType = "new"
	// MatchExact means the same record was re-observed from the same
	// source: treat as an update, not a duplicate.
	MatchExact MatchType = "exact"
	// MatchContent means a near-identical record already exists: mark
	// the incoming record as a within-source duplicate of it.
	MatchContent MatchType = "content"
	// MatchCrossSource means another source already reported this
	// event: insert as active and leave resolution to consolidation.
	MatchCrossSource MatchType = "cross_source"
)

// Detection is the detector's verdict, carrying the matched record so
// callers can explain why the link was (or was not) made.
type Detection struct {
	Type  MatchType
	Match *types.Measure
}

// Detector classifies incoming records against the store, strictest
// tier first.
type Detector struct {
	store storage.Storage
}

// NewDetector returns a Detector backed by the given store.
func NewDetector(store storage.Storage) *Detector {
	return &Detector{store: store}
}

// Detect runs the tier checks for a record with the given fingerprints
// and source.
func (d *Detector) Detect(ctx context.Context, fps fingerprint.Set, source types.DataSource) (*Detection, error) {
	// Tier 1: exact fingerprint. Same source, same event.
	existing, err := d.store.GetByExactFingerprint(ctx, fps.Exact)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &Detection{Type: MatchExact, Match: existing}, nil
	}

	// Tier 2: content hash among active records. The earliest match
	// becomes the master so repeated ingests stay stable.
	contentMatches, err := d.store.FindActiveByContentHash(ctx, fps.ContentHash)
	if err != nil {
		return nil, err
	}
	if len(contentMatches) > 0 {
		return &Detection{Type: MatchContent, Match: contentMatches[0]}, nil
	}

	// Tier 3: measure fingerprint from a different source. Master
	// selection needs the whole group, so this is only reported, not
	// marked.
	group, err := d.store.FindActiveByMeasureFingerprint(ctx, fps.Measure)
	if err != nil {
		return nil, err
	}
	for _, m := range group {
		if m.DataSource != source {
			return &Detection{Type: MatchCrossSource, Match: m}, nil
		}
	}

	return &Detection{Type: MatchNone}, nil
}
