package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/openballot/ballotdedup/internal/types"
)

// ListActive queries the active view with optional filters.
func (s *SQLiteStorage) ListActive(ctx context.Context, filter types.MeasureFilter) ([]*types.Measure, error) {
	var conds []string
	var args []interface{}

	if filter.YearMin > 0 {
		conds = append(conds, "year >= ?")
		args = append(args, filter.YearMin)
	}
	if filter.YearMax > 0 {
		conds = append(conds, "year <= ?")
		args = append(args, filter.YearMax)
	}
	if filter.Jurisdiction != "" {
		conds = append(conds, "jurisdiction = ?")
		args = append(args, strings.ToUpper(filter.Jurisdiction))
	}
	if filter.DataSource != "" {
		conds = append(conds, "data_source = ?")
		args = append(args, string(filter.DataSource))
	}
	if filter.Passed != nil {
		conds = append(conds, "passed = ?")
		args = append(args, *filter.Passed)
	}
	if filter.HasVotes {
		conds = append(conds, "yes_votes IS NOT NULL")
	}
	if filter.HasSummary {
		conds = append(conds, "has_summary = 1")
	}
	if filter.TitleContains != "" {
		conds = append(conds, "(title LIKE ? OR ballot_question LIKE ?)")
		pattern := "%" + filter.TitleContains + "%"
		args = append(args, pattern, pattern)
	}

	query := `SELECT ` + measureColumns + ` FROM active_measures`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY year DESC, jurisdiction, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	return s.queryMeasures(ctx, "list active", query, args...)
}

// DuplicateReport counts soft-marked duplicates by type and by source.
func (s *SQLiteStorage) DuplicateReport(ctx context.Context) (*types.DuplicateReport, error) {
	report := &types.DuplicateReport{
		ByType:   make(map[types.DuplicateType]int),
		BySource: make(map[types.DataSource]int),
	}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM measures WHERE is_duplicate = 1`).Scan(&report.TotalDuplicates)
	if err != nil {
		return nil, &types.StoreUnavailableError{Op: "duplicate report", Err: err}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT duplicate_type, COUNT(*)
		FROM measures WHERE is_duplicate = 1
		GROUP BY duplicate_type
	`)
	if err != nil {
		return nil, &types.StoreUnavailableError{Op: "duplicate report", Err: err}
	}
	defer rows.Close()
	for rows.Next() {
		var dtype string
		var count int
		if err := rows.Scan(&dtype, &count); err != nil {
			return nil, &types.StoreUnavailableError{Op: "duplicate report", Err: err}
		}
		report.ByType[types.DuplicateType(dtype)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, &types.StoreUnavailableError{Op: "duplicate report", Err: err}
	}

	srcRows, err := s.db.QueryContext(ctx, `
		SELECT data_source, COUNT(*)
		FROM measures WHERE is_duplicate = 1
		GROUP BY data_source
	`)
	if err != nil {
		return nil, &types.StoreUnavailableError{Op: "duplicate report", Err: err}
	}
	defer srcRows.Close()
	for srcRows.Next() {
		var source string
		var count int
		if err := srcRows.Scan(&source, &count); err != nil {
			return nil, &types.StoreUnavailableError{Op: "duplicate report", Err: err}
		}
		report.BySource[types.DataSource(source)] = count
	}
	if err := srcRows.Err(); err != nil {
		return nil, &types.StoreUnavailableError{Op: "duplicate report", Err: err}
	}

	groups, err := s.CrossSourceGroups(ctx)
	if err != nil {
		return nil, err
	}
	report.CrossSourceGroups = len(groups)

	return report, nil
}

// Stats aggregates the active view.
func (s *SQLiteStorage) Stats(ctx context.Context) (*types.Stats, error) {
	stats := &types.Stats{BySource: make(map[types.DataSource]int)}

	var yearMin, yearMax sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       SUM(has_summary),
		       SUM(CASE WHEN yes_votes IS NOT NULL THEN 1 ELSE 0 END),
		       MIN(year), MAX(year),
		       SUM(CASE WHEN passed = 1 THEN 1 ELSE 0 END),
		       SUM(CASE WHEN passed = 0 THEN 1 ELSE 0 END)
		FROM active_measures
	`).Scan(&stats.TotalActive, &nullSum{&stats.WithSummaries}, &nullSum{&stats.WithVotes},
		&yearMin, &yearMax, &nullSum{&stats.Passed}, &nullSum{&stats.Failed})
	if err != nil {
		return nil, &types.StoreUnavailableError{Op: "stats", Err: err}
	}
	if yearMin.Valid {
		stats.YearMin = int(yearMin.Int64)
	}
	if yearMax.Valid {
		stats.YearMax = int(yearMax.Int64)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT data_source, COUNT(*) FROM active_measures GROUP BY data_source
	`)
	if err != nil {
		return nil, &types.StoreUnavailableError{Op: "stats", Err: err}
	}
	defer rows.Close()
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, &types.StoreUnavailableError{Op: "stats", Err: err}
		}
		stats.BySource[types.DataSource(source)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, &types.StoreUnavailableError{Op: "stats", Err: err}
	}

	return stats, nil
}

// nullSum scans a SUM() result that is NULL on an empty table into an
// int, treating NULL as zero.
type nullSum struct {
	dest *int
}

func (n *nullSum) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*n.dest = 0
	case int64:
		*n.dest = int(v)
	case float64:
		*n.dest = int(v)
	}
	return nil
}

// GetChanges returns the journaled field transitions for a measure,
// newest first.
func (s *SQLiteStorage) GetChanges(ctx context.Context, measureID int64) ([]*types.FieldChange, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, measure_id, field_name, old_value, new_value, update_source, updated_at
		FROM measure_updates
		WHERE measure_id = ?
		ORDER BY id DESC
	`, measureID)
	if err != nil {
		return nil, &types.StoreUnavailableError{Op: "get changes", Err: err}
	}
	defer rows.Close()

	var changes []*types.FieldChange
	for rows.Next() {
		var c types.FieldChange
		var oldValue, newValue sql.NullString
		var source string
		if err := rows.Scan(&c.ID, &c.MeasureID, &c.Field, &oldValue, &newValue, &source, &c.ChangedAt); err != nil {
			return nil, &types.StoreUnavailableError{Op: "get changes", Err: err}
		}
		c.OldValue = nullStr(oldValue)
		c.NewValue = nullStr(newValue)
		c.Source = types.DataSource(source)
		changes = append(changes, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, &types.StoreUnavailableError{Op: "get changes", Err: err}
	}
	return changes, nil
}

// StartIngestRun opens an ingest-run audit row.
func (s *SQLiteStorage) StartIngestRun(ctx context.Context, runID, runType string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingest_runs (run_id, run_type, started_at, status)
		VALUES (?, ?, ?, 'running')
	`, runID, runType, time.Now().UTC())
	if err != nil {
		return &types.StoreUnavailableError{Op: "start ingest run", Err: err}
	}
	return nil
}

// FinishIngestRun records the outcome of a batch ingest.
func (s *SQLiteStorage) FinishIngestRun(ctx context.Context, runID string, result *types.BatchResult, status string, errMsg string) error {
	var errVal interface{}
	if errMsg != "" {
		errVal = errMsg
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE ingest_runs
		SET completed_at = ?, measures_checked = ?, new_measures = ?,
		    updated_measures = ?, duplicates_found = ?, status = ?, error_message = ?
		WHERE run_id = ?
	`, time.Now().UTC(), result.Checked, result.Inserted,
		result.Updated, result.Duplicates, status, errVal, runID)
	if err != nil {
		return &types.StoreUnavailableError{Op: "finish ingest run", Err: err}
	}
	return nil
}

// GetIngestRuns returns the most recent ingest runs, newest first.
func (s *SQLiteStorage) GetIngestRuns(ctx context.Context, limit int) ([]*types.IngestRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, run_type, started_at, completed_at,
		       measures_checked, new_measures, updated_measures, duplicates_found,
		       status, error_message
		FROM ingest_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, &types.StoreUnavailableError{Op: "get ingest runs", Err: err}
	}
	defer rows.Close()

	var runs []*types.IngestRun
	for rows.Next() {
		var r types.IngestRun
		var completedAt sql.NullTime
		var errMsg sql.NullString
		if err := rows.Scan(&r.RunID, &r.RunType, &r.StartedAt, &completedAt,
			&r.Checked, &r.Inserted, &r.Updated, &r.Duplicates,
			&r.Status, &errMsg); err != nil {
			return nil, &types.StoreUnavailableError{Op: "get ingest runs", Err: err}
		}
		if completedAt.Valid {
			t := completedAt.Time
			r.CompletedAt = &t
		}
		r.Error = nullStr(errMsg)
		runs = append(runs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, &types.StoreUnavailableError{Op: "get ingest runs", Err: err}
	}
	return runs, nil
}
