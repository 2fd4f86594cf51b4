package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/openballot/ballotdedup/internal/types"
)

func newTestStore(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "measures.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testMeasure(fp string, source types.DataSource) *types.Measure {
	title := "Proposition 8"
	return &types.Measure{
		ExactFingerprint:   fp,
		MeasureFingerprint: "2024|PROP_8|STATEWIDE",
		ContentHash:        "abcd1234abcd1234",
		Year:               2024,
		Jurisdiction:       "STATEWIDE",
		Title:              &title,
		DataSource:         source,
	}
}

func TestCreateAndGetMeasure(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	m := testMeasure("2024|PROP_8|STATEWIDE|CA_SOS", types.SourceSOS)
	id, err := store.CreateMeasure(ctx, m)
	if err != nil {
		t.Fatalf("CreateMeasure failed: %v", err)
	}
	if id == 0 {
		t.Fatal("CreateMeasure returned zero id")
	}

	got, err := store.GetMeasure(ctx, id)
	if err != nil {
		t.Fatalf("GetMeasure failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetMeasure returned nil for existing row")
	}
	if got.ExactFingerprint != m.ExactFingerprint {
		t.Errorf("fingerprint = %q, want %q", got.ExactFingerprint, m.ExactFingerprint)
	}
	if got.Title == nil || *got.Title != "Proposition 8" {
		t.Errorf("title not round-tripped: %v", got.Title)
	}
	if got.Decade == nil || *got.Decade != 2020 {
		t.Errorf("decade not derived: %v", got.Decade)
	}
	if got.Century == nil || *got.Century != 21 {
		t.Errorf("century not derived: %v", got.Century)
	}
	if got.YesVotes != nil {
		t.Errorf("yes_votes should be nil, got %v", *got.YesVotes)
	}
}

func TestCreateMeasureDuplicateFingerprint(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	fp := "2024|PROP_8|STATEWIDE|CA_SOS"
	if _, err := store.CreateMeasure(ctx, testMeasure(fp, types.SourceSOS)); err != nil {
		t.Fatalf("first CreateMeasure failed: %v", err)
	}

	_, err := store.CreateMeasure(ctx, testMeasure(fp, types.SourceSOS))
	if !types.IsConflict(err) {
		t.Errorf("second CreateMeasure error = %v, want ConflictError", err)
	}
}

func TestGetMeasureNotFound(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetMeasure(context.Background(), 999)
	if err != nil {
		t.Fatalf("GetMeasure failed: %v", err)
	}
	if got != nil {
		t.Errorf("GetMeasure(999) = %+v, want nil", got)
	}
}

func TestUpdateMeasureJournalsChanges(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	m := testMeasure("2024|PROP_8|STATEWIDE|CA_SOS", types.SourceSOS)
	id, err := store.CreateMeasure(ctx, m)
	if err != nil {
		t.Fatalf("CreateMeasure failed: %v", err)
	}

	err = store.UpdateMeasure(ctx, id, map[string]interface{}{
		"document_url": "https://example.org/prop8.pdf",
		"yes_votes":    100,
	}, types.SourceSOS)
	if err != nil {
		t.Fatalf("UpdateMeasure failed: %v", err)
	}

	got, err := store.GetMeasure(ctx, id)
	if err != nil {
		t.Fatalf("GetMeasure failed: %v", err)
	}
	if got.DocumentURL == nil || *got.DocumentURL != "https://example.org/prop8.pdf" {
		t.Errorf("document_url = %v, want updated value", got.DocumentURL)
	}
	if got.UpdateCount != 1 {
		t.Errorf("update_count = %d, want 1", got.UpdateCount)
	}

	changes, err := store.GetChanges(ctx, id)
	if err != nil {
		t.Fatalf("GetChanges failed: %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("got %d changes, want 2", len(changes))
	}
	byField := map[string]*types.FieldChange{}
	for _, c := range changes {
		byField[c.Field] = c
	}
	urlChange := byField["document_url"]
	if urlChange == nil {
		t.Fatal("no journal entry for document_url")
	}
	if urlChange.OldValue != nil {
		t.Errorf("old_value = %v, want nil (field was null)", *urlChange.OldValue)
	}
	if urlChange.NewValue == nil || *urlChange.NewValue != "https://example.org/prop8.pdf" {
		t.Errorf("new_value = %v, want the url", urlChange.NewValue)
	}
	if urlChange.Source != types.SourceSOS {
		t.Errorf("update_source = %s, want %s", urlChange.Source, types.SourceSOS)
	}
}

func TestUpdateMeasureRejectsUnknownField(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateMeasure(ctx, testMeasure("fp1|CA_SOS", types.SourceSOS))
	if err != nil {
		t.Fatalf("CreateMeasure failed: %v", err)
	}

	err = store.UpdateMeasure(ctx, id, map[string]interface{}{
		"fingerprint": "sneaky",
	}, types.SourceSOS)
	if err == nil {
		t.Error("expected error updating immutable field")
	}
}

func TestMarkDuplicateRejectsDuplicateMaster(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	masterID, err := store.CreateMeasure(ctx, testMeasure("fp-a|CA_SOS", types.SourceSOS))
	if err != nil {
		t.Fatalf("CreateMeasure failed: %v", err)
	}
	dupID, err := store.CreateMeasure(ctx, testMeasure("fp-b|CEDA", types.SourceCEDA))
	if err != nil {
		t.Fatalf("CreateMeasure failed: %v", err)
	}
	thirdID, err := store.CreateMeasure(ctx, testMeasure("fp-c|NCSL", types.SourceNCSL))
	if err != nil {
		t.Fatalf("CreateMeasure failed: %v", err)
	}

	if err := store.MarkDuplicate(ctx, dupID, masterID, types.DuplicateCrossSource); err != nil {
		t.Fatalf("MarkDuplicate failed: %v", err)
	}

	// Pointing a third record at the duplicate would create a chain.
	if err := store.MarkDuplicate(ctx, thirdID, dupID, types.DuplicateCrossSource); err == nil {
		t.Error("expected error marking toward a duplicate master")
	}
}

func TestConsolidateGroupAtomicAndRepoints(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	oldMasterID, err := store.CreateMeasure(ctx, testMeasure("fp-sos|CA_SOS", types.SourceSOS))
	if err != nil {
		t.Fatalf("CreateMeasure failed: %v", err)
	}
	followerID, err := store.CreateMeasure(ctx, testMeasure("fp-ceda|CEDA", types.SourceCEDA))
	if err != nil {
		t.Fatalf("CreateMeasure failed: %v", err)
	}
	if err := store.MarkDuplicate(ctx, followerID, oldMasterID, types.DuplicateCrossSource); err != nil {
		t.Fatalf("MarkDuplicate failed: %v", err)
	}

	// A better record arrives and wins master selection; the old master
	// is demoted and its follower must be repointed in the same commit.
	newMasterID, err := store.CreateMeasure(ctx, testMeasure("fp-icpsr|ICPSR", types.SourceICPSR))
	if err != nil {
		t.Fatalf("CreateMeasure failed: %v", err)
	}

	err = store.ConsolidateGroup(ctx, newMasterID,
		map[string]interface{}{"description": "merged description"},
		[]int64{oldMasterID, followerID},
		[]int64{oldMasterID, followerID})
	if err != nil {
		t.Fatalf("ConsolidateGroup failed: %v", err)
	}

	newMaster, _ := store.GetMeasure(ctx, newMasterID)
	if newMaster.IsDuplicate {
		t.Error("new master must not be a duplicate")
	}
	if newMaster.Description == nil || *newMaster.Description != "merged description" {
		t.Errorf("merged field not applied: %v", newMaster.Description)
	}
	if len(newMaster.MergedFrom) != 2 {
		t.Errorf("merged_from = %v, want both follower ids", newMaster.MergedFrom)
	}

	for _, id := range []int64{oldMasterID, followerID} {
		m, _ := store.GetMeasure(ctx, id)
		if !m.IsDuplicate {
			t.Errorf("measure %d should be a duplicate", id)
		}
		if m.MasterID == nil || *m.MasterID != newMasterID {
			t.Errorf("measure %d master_id = %v, want %d", id, m.MasterID, newMasterID)
		}
		// No chains: the referenced master must be active.
		master, _ := store.GetMeasure(ctx, *m.MasterID)
		if master.IsDuplicate {
			t.Errorf("measure %d points at duplicate master %d", id, *m.MasterID)
		}
	}
}

func TestListActiveFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := testMeasure("fp-1|CA_SOS", types.SourceSOS)
	a.Year = 2020
	b := testMeasure("fp-2|CEDA", types.SourceCEDA)
	b.Year = 2024
	yes, no := 100, 50
	b.YesVotes, b.NoVotes = &yes, &no
	c := testMeasure("fp-3|NCSL", types.SourceNCSL)
	c.Year = 2024

	for _, m := range []*types.Measure{a, b, c} {
		if _, err := store.CreateMeasure(ctx, m); err != nil {
			t.Fatalf("CreateMeasure failed: %v", err)
		}
	}
	if err := store.MarkDuplicate(ctx, c.ID, b.ID, types.DuplicateCrossSource); err != nil {
		t.Fatalf("MarkDuplicate failed: %v", err)
	}

	all, err := store.ListActive(ctx, types.MeasureFilter{})
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("active count = %d, want 2 (duplicate excluded)", len(all))
	}

	recent, err := store.ListActive(ctx, types.MeasureFilter{YearMin: 2024})
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(recent) != 1 || recent[0].ID != b.ID {
		t.Errorf("year filter returned %d rows", len(recent))
	}

	withVotes, err := store.ListActive(ctx, types.MeasureFilter{HasVotes: true})
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(withVotes) != 1 || withVotes[0].ID != b.ID {
		t.Errorf("has-votes filter returned %d rows", len(withVotes))
	}
}

func TestDuplicateReportCounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	masterID, err := store.CreateMeasure(ctx, testMeasure("fp-m|CA_SOS", types.SourceSOS))
	if err != nil {
		t.Fatalf("CreateMeasure failed: %v", err)
	}
	dupA := testMeasure("fp-d1|CEDA", types.SourceCEDA)
	if _, err := store.CreateMeasure(ctx, dupA); err != nil {
		t.Fatalf("CreateMeasure failed: %v", err)
	}
	dupB := testMeasure("fp-d2|NCSL", types.SourceNCSL)
	if _, err := store.CreateMeasure(ctx, dupB); err != nil {
		t.Fatalf("CreateMeasure failed: %v", err)
	}

	if err := store.MarkDuplicate(ctx, dupA.ID, masterID, types.DuplicateCrossSource); err != nil {
		t.Fatalf("MarkDuplicate failed: %v", err)
	}
	if err := store.MarkDuplicate(ctx, dupB.ID, masterID, types.DuplicateWithinSource); err != nil {
		t.Fatalf("MarkDuplicate failed: %v", err)
	}

	report, err := store.DuplicateReport(ctx)
	if err != nil {
		t.Fatalf("DuplicateReport failed: %v", err)
	}
	if report.TotalDuplicates != 2 {
		t.Errorf("total = %d, want 2", report.TotalDuplicates)
	}
	if report.ByType[types.DuplicateCrossSource] != 1 {
		t.Errorf("cross_source count = %d, want 1", report.ByType[types.DuplicateCrossSource])
	}
	if report.ByType[types.DuplicateWithinSource] != 1 {
		t.Errorf("within_source count = %d, want 1", report.ByType[types.DuplicateWithinSource])
	}
	if report.BySource[types.SourceCEDA] != 1 {
		t.Errorf("CEDA count = %d, want 1", report.BySource[types.SourceCEDA])
	}
}

func TestStatsOnEmptyStore(t *testing.T) {
	store := newTestStore(t)

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalActive != 0 || stats.WithVotes != 0 || stats.Passed != 0 {
		t.Errorf("empty store stats = %+v, want zeros", stats)
	}
}

func TestIngestRunLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.StartIngestRun(ctx, "run-1", "batch"); err != nil {
		t.Fatalf("StartIngestRun failed: %v", err)
	}

	result := &types.BatchResult{Checked: 10, Inserted: 7, Updated: 2, Duplicates: 1}
	if err := store.FinishIngestRun(ctx, "run-1", result, "success", ""); err != nil {
		t.Fatalf("FinishIngestRun failed: %v", err)
	}

	runs, err := store.GetIngestRuns(ctx, 5)
	if err != nil {
		t.Fatalf("GetIngestRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	run := runs[0]
	if run.Status != "success" || run.Checked != 10 || run.Inserted != 7 {
		t.Errorf("run = %+v", run)
	}
	if run.CompletedAt == nil {
		t.Error("completed_at not set")
	}
}
