package dedup

import (
	"errors"
	"testing"

	"github.com/openballot/ballotdedup/internal/types"
)

func TestMergeFillsGapsFromHighestPrioritySource(t *testing.T) {
	merger := NewMerger(DefaultConfig())

	master := &types.Measure{
		ID: 1, DataSource: types.SourceICPSR,
		YesVotes: intp(100), NoVotes: intp(50),
	}
	ncsl := &types.Measure{
		ID: 2, DataSource: types.SourceNCSL,
		Description: strp("NCSL description"),
	}
	ceda := &types.Measure{
		ID: 3, DataSource: types.SourceCEDA,
		Description: strp("CEDA description"),
		DocumentURL: strp("https://example.org/doc.pdf"),
	}

	updates, err := merger.Merge("2024|PROP_8|STATEWIDE",
		[]*types.Measure{master, ncsl, ceda}, master)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	// NCSL outranks CEDA, so its description wins the gap fill.
	if got := updates["description"]; got != "NCSL description" {
		t.Errorf("description = %v, want NCSL description", got)
	}
	if got := updates["document_url"]; got != "https://example.org/doc.pdf" {
		t.Errorf("document_url = %v, want CEDA url", got)
	}
}

func TestMergeMasterValuesWin(t *testing.T) {
	merger := NewMerger(DefaultConfig())

	master := &types.Measure{
		ID: 1, DataSource: types.SourceCEDA,
		Description: strp("master description"),
	}
	other := &types.Measure{
		ID: 2, DataSource: types.SourceSOS,
		Description: strp("higher priority source description"),
	}

	updates, err := merger.Merge("2020|MEASURE_B|ALAMEDA",
		[]*types.Measure{master, other}, master)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if _, ok := updates["description"]; ok {
		t.Errorf("master's own description must not be overwritten")
	}
}

func TestMergeRecomputesVoteDerivedFields(t *testing.T) {
	merger := NewMerger(DefaultConfig())

	master := &types.Measure{ID: 1, DataSource: types.SourceSOS}
	archive := &types.Measure{
		ID: 2, DataSource: types.SourceICPSR,
		YesVotes: intp(100), NoVotes: intp(50),
		// Stale derived values from the source; they must be ignored in
		// favor of a recompute from the counts.
		PercentYes: floatp(99.9),
		TotalVotes: intp(9999),
	}

	updates, err := merger.Merge("2024|PROP_8|STATEWIDE",
		[]*types.Measure{master, archive}, master)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	if got := updates["yes_votes"]; got != 100 {
		t.Errorf("yes_votes = %v, want 100", got)
	}
	if got := updates["total_votes"]; got != 150 {
		t.Errorf("total_votes = %v, want 150", got)
	}
	if got := updates["percent_yes"]; got != 66.67 {
		t.Errorf("percent_yes = %v, want 66.67", got)
	}
	if got := updates["percent_no"]; got != 33.33 {
		t.Errorf("percent_no = %v, want 33.33", got)
	}
	if got := updates["passed"]; got != true {
		t.Errorf("passed = %v, want true", got)
	}
	if got := updates["pass_fail"]; got != "Pass" {
		t.Errorf("pass_fail = %v, want Pass", got)
	}
}

func TestMergeNeverMixesVoteCountsAcrossSources(t *testing.T) {
	merger := NewMerger(DefaultConfig())

	master := &types.Measure{
		ID: 1, DataSource: types.SourceSOS,
		// Master has only a yes count; incomplete pairs do not qualify.
		YesVotes: intp(999),
	}
	archive := &types.Measure{
		ID: 2, DataSource: types.SourceICPSR,
		YesVotes: intp(100), NoVotes: intp(50),
	}

	updates, err := merger.Merge("2024|PROP_8|STATEWIDE",
		[]*types.Measure{master, archive}, master)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	// The pair comes entirely from the archive record; the master's
	// lone yes count is replaced rather than paired with a foreign no.
	if got := updates["yes_votes"]; got != 100 {
		t.Errorf("yes_votes = %v, want 100 (from the complete pair)", got)
	}
	if got := updates["no_votes"]; got != 50 {
		t.Errorf("no_votes = %v, want 50", got)
	}
}

func TestMergeZeroTotalIsInconsistent(t *testing.T) {
	merger := NewMerger(DefaultConfig())

	master := &types.Measure{ID: 1, DataSource: types.SourceSOS}
	zero := &types.Measure{
		ID: 2, DataSource: types.SourceCEDA,
		YesVotes: intp(0), NoVotes: intp(0),
	}

	_, err := merger.Merge("1920|PROP_4|STATEWIDE",
		[]*types.Measure{master, zero}, master)
	var ime *types.InconsistentMergeError
	if !errors.As(err, &ime) {
		t.Fatalf("Merge error = %v, want InconsistentMergeError", err)
	}
	if ime.MeasureFingerprint != "1920|PROP_4|STATEWIDE" {
		t.Errorf("error fingerprint = %q", ime.MeasureFingerprint)
	}
}

func TestMergePassFailWithoutCounts(t *testing.T) {
	merger := NewMerger(DefaultConfig())

	master := &types.Measure{ID: 1, DataSource: types.SourceNCSL}
	passed := true
	other := &types.Measure{
		ID: 2, DataSource: types.SourceICPSR,
		Passed: &passed, PassFail: strp("Pass"),
	}

	updates, err := merger.Merge("1964|PROP_14|STATEWIDE",
		[]*types.Measure{master, other}, master)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if got := updates["passed"]; got != true {
		t.Errorf("passed = %v, want true", got)
	}
	if got := updates["pass_fail"]; got != "Pass" {
		t.Errorf("pass_fail = %v, want Pass", got)
	}
}

func floatp(f float64) *float64 { return &f }
