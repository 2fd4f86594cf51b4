// Package engine wires the dedup pipeline together: fingerprint
// generation, tiered duplicate detection, batch consolidation, and the
// query surface over the canonical record set.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/openballot/ballotdedup/internal/dedup"
	"github.com/openballot/ballotdedup/internal/fingerprint"
	"github.com/openballot/ballotdedup/internal/identifier"
	"github.com/openballot/ballotdedup/internal/storage"
	"github.com/openballot/ballotdedup/internal/types"
)

// Engine is the public entry point for ingestion and consolidation.
// It holds no mutable state of its own; the store is the only shared
// state, and its exact-fingerprint uniqueness constraint is the only
// serialization point between concurrent workers.
type Engine struct {
	store    storage.Storage
	gen      *fingerprint.Generator
	detector *dedup.Detector
	selector *dedup.Selector
	merger   *dedup.Merger
	cfg      dedup.Config
	limiter  *rate.Limiter
}

// New builds an Engine over the given store with the given config.
func New(store storage.Storage, cfg dedup.Config) *Engine {
	var limiter *rate.Limiter
	if cfg.WriteRatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.WriteRatePerSec), cfg.WriteRatePerSec)
	}
	return &Engine{
		store:    store,
		gen:      fingerprint.NewGenerator(identifier.NewExtractor()),
		detector: dedup.NewDetector(store),
		selector: dedup.NewSelector(cfg),
		merger:   dedup.NewMerger(cfg),
		cfg:      cfg,
		limiter:  limiter,
	}
}

// Ingest processes one raw record through the full detection pipeline.
//
// The returned result always describes what happened; the error is
// non-nil for rejections (types.ValidationError) and for store
// failures that survived retries.
func (e *Engine) Ingest(ctx context.Context, raw *types.RawMeasure) (*types.IngestResult, error) {
	if err := raw.Validate(); err != nil {
		result := &types.IngestResult{Status: types.StatusRejected}
		var ve *types.ValidationError
		if errors.As(err, &ve) {
			result.RejectedField = ve.Field
		}
		return result, err
	}

	fps := e.gen.Generate(raw)
	result := &types.IngestResult{}

	var detection *dedup.Detection
	err := e.withRetry(ctx, result, func() error {
		var derr error
		detection, derr = e.detector.Detect(ctx, fps, raw.DataSource)
		return derr
	})
	if err != nil {
		result.Status = types.StatusFailed
		return result, err
	}

	switch detection.Type {
	case dedup.MatchExact:
		return e.applyUpdate(ctx, result, detection.Match, raw)

	case dedup.MatchContent:
		m := e.buildMeasure(raw, fps)
		m.IsDuplicate = true
		m.DuplicateType = types.DuplicateWithinSource
		masterID := detection.Match.ID
		m.MasterID = &masterID
		if err := e.insert(ctx, result, m, raw); err != nil {
			return result, err
		}
		if result.Status == types.StatusInserted {
			result.Status = types.StatusDuplicate
			result.MasterID = masterID
		}
		return result, nil

	case dedup.MatchCrossSource:
		m := e.buildMeasure(raw, fps)
		if err := e.insert(ctx, result, m, raw); err != nil {
			return result, err
		}
		if result.Status == types.StatusInserted {
			result.Status = types.StatusCrossSource
			result.MatchedSource = detection.Match.DataSource
		}
		return result, nil

	default:
		m := e.buildMeasure(raw, fps)
		if err := e.insert(ctx, result, m, raw); err != nil {
			return result, err
		}
		return result, nil
	}
}

// insert creates the measure, resolving an exact-fingerprint race by
// retrying once as an update against the winner's row.
func (e *Engine) insert(ctx context.Context, result *types.IngestResult, m *types.Measure, raw *types.RawMeasure) error {
	err := e.withRetry(ctx, result, func() error {
		if e.limiter != nil {
			if werr := e.limiter.Wait(ctx); werr != nil {
				return werr
			}
		}
		_, cerr := e.store.CreateMeasure(ctx, m)
		return cerr
	})
	if err == nil {
		result.Status = types.StatusInserted
		result.MeasureID = m.ID
		return nil
	}

	if types.IsConflict(err) {
		// Another worker inserted the same exact fingerprint first.
		existing, lerr := e.store.GetByExactFingerprint(ctx, m.ExactFingerprint)
		if lerr != nil || existing == nil {
			result.Status = types.StatusFailed
			return fmt.Errorf("conflict on %s but winner not found: %w", m.ExactFingerprint, err)
		}
		_, uerr := e.applyUpdate(ctx, result, existing, raw)
		return uerr
	}

	result.Status = types.StatusFailed
	return err
}

// applyUpdate diffs the incoming record against the stored row and
// overwrites only fields where the new value is present, never
// reducing a non-null field to null. Each change is journaled by the
// store with its old and new value.
func (e *Engine) applyUpdate(ctx context.Context, result *types.IngestResult, existing *types.Measure, raw *types.RawMeasure) (*types.IngestResult, error) {
	result.MeasureID = existing.ID

	updates := e.buildUpdates(existing, raw)

	if len(updates) == 0 {
		if terr := e.withRetry(ctx, result, func() error {
			return e.store.TouchLastSeen(ctx, existing.ID)
		}); terr != nil {
			result.Status = types.StatusFailed
			return result, terr
		}
		result.Status = types.StatusUnchanged
		return result, nil
	}

	if uerr := e.withRetry(ctx, result, func() error {
		if e.limiter != nil {
			if werr := e.limiter.Wait(ctx); werr != nil {
				return werr
			}
		}
		return e.store.UpdateMeasure(ctx, existing.ID, updates, raw.DataSource)
	}); uerr != nil {
		result.Status = types.StatusFailed
		return result, uerr
	}

	for field := range updates {
		result.Changed = append(result.Changed, field)
	}
	sort.Strings(result.Changed)
	result.Status = types.StatusUpdated
	return result, nil
}

// buildUpdates computes the field overwrites for a re-observed record.
func (e *Engine) buildUpdates(existing *types.Measure, raw *types.RawMeasure) map[string]interface{} {
	updates := make(map[string]interface{})

	diffString(updates, "title", existing.Title, raw.Title)
	diffString(updates, "description", existing.Description, raw.Description)
	diffString(updates, "ballot_question", existing.BallotQuestion, raw.BallotQuestion)
	diffString(updates, "document_url", existing.DocumentURL, raw.DocumentURL)
	diffString(updates, "source_url", existing.SourceURL, raw.SourceURL)
	diffString(updates, "summary_title", existing.SummaryTitle, raw.SummaryTitle)
	diffString(updates, "summary_text", existing.SummaryText, raw.SummaryText)
	diffString(updates, "measure_type", existing.MeasureType, raw.MeasureType)
	diffString(updates, "topic_primary", existing.TopicPrimary, raw.TopicPrimary)
	diffString(updates, "topic_secondary", existing.TopicSecondary, raw.TopicSecondary)
	diffString(updates, "election_type", existing.ElectionType, raw.ElectionType)

	if raw.ElectionDate != nil &&
		(existing.ElectionDate == nil || !existing.ElectionDate.Equal(*raw.ElectionDate)) {
		updates["election_date"] = *raw.ElectionDate
	}
	if _, ok := updates["summary_text"]; ok && !existing.HasSummary {
		updates["has_summary"] = true
	}

	// Vote counts travel as a pair; derived fields are recomputed from
	// the pair rather than copied from the source. A pair that cannot be
	// reconciled (zero total) is stored as bare counts, same as on
	// insert, and left for consolidation to report.
	if raw.YesVotes != nil && raw.NoVotes != nil {
		changed := existing.YesVotes == nil || *existing.YesVotes != *raw.YesVotes ||
			existing.NoVotes == nil || *existing.NoVotes != *raw.NoVotes
		if changed {
			updates["yes_votes"] = *raw.YesVotes
			updates["no_votes"] = *raw.NoVotes
			if out, err := dedup.DeriveOutcome(existing.MeasureFingerprint, *raw.YesVotes, *raw.NoVotes); err == nil {
				updates["total_votes"] = out.TotalVotes
				updates["percent_yes"] = out.PercentYes
				updates["percent_no"] = out.PercentNo
				updates["passed"] = out.Passed
				updates["pass_fail"] = out.PassFail
			}
		}
	}

	return updates
}

// buildMeasure maps a validated raw record onto a new Measure.
func (e *Engine) buildMeasure(raw *types.RawMeasure, fps fingerprint.Set) *types.Measure {
	m := &types.Measure{
		ExactFingerprint:   fps.Exact,
		MeasureFingerprint: fps.Measure,
		ContentHash:        fps.ContentHash,
		Year:               raw.Year,
		Jurisdiction:       raw.NormalizedJurisdiction(),
		DataSource:         raw.DataSource,
		ElectionDate:       raw.ElectionDate,
	}

	m.MeasureID = optStr(raw.MeasureID)
	m.MeasureLetter = optStr(raw.MeasureLetter)
	m.Title = optStr(raw.Title)
	m.Description = optStr(raw.Description)
	m.BallotQuestion = optStr(raw.BallotQuestion)
	m.MeasureType = optStr(raw.MeasureType)
	m.TopicPrimary = optStr(raw.TopicPrimary)
	m.TopicSecondary = optStr(raw.TopicSecondary)
	m.SourceURL = optStr(raw.SourceURL)
	m.DocumentURL = optStr(raw.DocumentURL)
	m.SummaryTitle = optStr(raw.SummaryTitle)
	m.SummaryText = optStr(raw.SummaryText)
	m.ElectionType = optStr(raw.ElectionType)
	m.HasSummary = m.SummaryText != nil

	if raw.YesVotes != nil && raw.NoVotes != nil {
		m.YesVotes = raw.YesVotes
		m.NoVotes = raw.NoVotes
		if out, err := dedup.DeriveOutcome(fps.Measure, *raw.YesVotes, *raw.NoVotes); err == nil {
			m.TotalVotes = &out.TotalVotes
			m.PercentYes = &out.PercentYes
			m.PercentNo = &out.PercentNo
			passed := out.Passed
			m.Passed = &passed
			label := out.PassFail
			m.PassFail = &label
		}
	} else {
		// A lone count is stored as-is; the outcome stays unknown until
		// a complete pair arrives.
		m.YesVotes = raw.YesVotes
		m.NoVotes = raw.NoVotes
	}

	return m
}

// withRetry runs fn, retrying transient store failures with exponential
// backoff up to the configured attempt count. Non-retryable errors
// surface immediately.
func (e *Engine) withRetry(ctx context.Context, result *types.IngestResult, fn func() error) error {
	backoff := 100 * time.Millisecond
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !types.IsRetryable(err) || attempt >= e.cfg.MaxRetries {
			return err
		}
		if result != nil {
			result.Retries++
		}
		log.Printf("[engine] transient store error (attempt %d/%d): %v",
			attempt+1, e.cfg.MaxRetries, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

func diffString(updates map[string]interface{}, field string, current *string, incoming string) {
	if incoming == "" {
		return
	}
	if current == nil || *current != incoming {
		updates[field] = incoming
	}
}

func optStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
