package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/openballot/ballotdedup/internal/types"
)

// allowedUpdateFields restricts map-driven updates to real columns,
// keeping field names out of SQL injection territory. Fingerprints,
// id, and created_at are deliberately absent: they are immutable.
var allowedUpdateFields = map[string]bool{
	"measure_id":      true,
	"measure_letter":  true,
	"jurisdiction":    true,
	"title":           true,
	"description":     true,
	"ballot_question": true,
	"yes_votes":       true,
	"no_votes":        true,
	"total_votes":     true,
	"percent_yes":     true,
	"percent_no":      true,
	"passed":          true,
	"pass_fail":       true,
	"measure_type":    true,
	"topic_primary":   true,
	"topic_secondary": true,
	"source_url":      true,
	"document_url":    true,
	"has_summary":     true,
	"summary_title":   true,
	"summary_text":    true,
	"election_type":   true,
	"election_date":   true,
}

// UpdateMeasure applies allow-listed field updates inside one
// transaction, journaling each field transition with its old and new
// value for audit.
func (s *SQLiteStorage) UpdateMeasure(ctx context.Context, id int64, updates map[string]interface{}, source types.DataSource) error {
	if len(updates) == 0 {
		return s.TouchLastSeen(ctx, id)
	}
	for field := range updates {
		if !allowedUpdateFields[field] {
			return fmt.Errorf("field %s cannot be updated", field)
		}
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return &types.StoreUnavailableError{Op: "update measure", Err: err}
	}
	defer conn.Close()

	// BEGIN IMMEDIATE takes the write lock up front so the read-diff-
	// write sequence below is not interleaved with another writer.
	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return &types.StoreUnavailableError{Op: "update measure", Err: err}
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	old, err := scanMeasure(conn.QueryRowContext(ctx,
		`SELECT `+measureColumns+` FROM measures WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return fmt.Errorf("measure %d not found", id)
	}
	if err != nil {
		return &types.StoreUnavailableError{Op: "update measure", Err: err}
	}

	now := time.Now().UTC()
	setClauses := make([]string, 0, len(updates)+3)
	args := make([]interface{}, 0, len(updates)+3)
	for field, value := range updates {
		setClauses = append(setClauses, field+" = ?")
		args = append(args, value)
	}
	setClauses = append(setClauses,
		"updated_at = ?", "last_seen_at = ?", "update_count = update_count + 1")
	args = append(args, now, now, id)

	query := "UPDATE measures SET " + strings.Join(setClauses, ", ") + " WHERE id = ?"
	if _, err := conn.ExecContext(ctx, query, args...); err != nil {
		return &types.StoreUnavailableError{Op: "update measure", Err: err}
	}

	for field, value := range updates {
		oldText := fieldText(old, field)
		newText := valueText(value)
		_, err := conn.ExecContext(ctx, `
			INSERT INTO measure_updates (measure_id, field_name, old_value, new_value, update_source, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id, field, oldText, newText, string(source), now)
		if err != nil {
			return &types.StoreUnavailableError{Op: "journal update", Err: err}
		}
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return &types.StoreUnavailableError{Op: "update measure", Err: err}
	}
	committed = true
	return nil
}

// TouchLastSeen records a re-observation that changed no fields.
func (s *SQLiteStorage) TouchLastSeen(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE measures SET last_seen_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return &types.StoreUnavailableError{Op: "touch last seen", Err: err}
	}
	return nil
}

// MarkDuplicate soft-marks a measure as a duplicate of master. The
// master must itself be active; marking toward a duplicate would create
// a chain.
func (s *SQLiteStorage) MarkDuplicate(ctx context.Context, id, masterID int64, dtype types.DuplicateType) error {
	if dtype == types.DuplicateNone {
		return fmt.Errorf("duplicate type is required")
	}
	master, err := s.GetMeasure(ctx, masterID)
	if err != nil {
		return err
	}
	if master == nil {
		return fmt.Errorf("master measure %d not found", masterID)
	}
	if master.IsDuplicate {
		return fmt.Errorf("measure %d is itself a duplicate and cannot be a master", masterID)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE measures
		SET is_duplicate = 1, duplicate_type = ?, master_id = ?, updated_at = ?
		WHERE id = ?
	`, string(dtype), masterID, time.Now().UTC(), id)
	if err != nil {
		return &types.StoreUnavailableError{Op: "mark duplicate", Err: err}
	}
	return nil
}

// UnmarkDuplicate restores a measure to the active view.
func (s *SQLiteStorage) UnmarkDuplicate(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE measures
		SET is_duplicate = 0, duplicate_type = '', master_id = NULL, updated_at = ?
		WHERE id = ?
	`, time.Now().UTC(), id)
	if err != nil {
		return &types.StoreUnavailableError{Op: "unmark duplicate", Err: err}
	}
	return nil
}

// fieldText renders the current value of a column as journal text.
func fieldText(m *types.Measure, field string) *string {
	switch field {
	case "measure_id":
		return m.MeasureID
	case "measure_letter":
		return m.MeasureLetter
	case "jurisdiction":
		return strPtr(m.Jurisdiction)
	case "title":
		return m.Title
	case "description":
		return m.Description
	case "ballot_question":
		return m.BallotQuestion
	case "yes_votes":
		return intText(m.YesVotes)
	case "no_votes":
		return intText(m.NoVotes)
	case "total_votes":
		return intText(m.TotalVotes)
	case "percent_yes":
		return floatText(m.PercentYes)
	case "percent_no":
		return floatText(m.PercentNo)
	case "passed":
		if m.Passed == nil {
			return nil
		}
		return strPtr(strconv.FormatBool(*m.Passed))
	case "pass_fail":
		return m.PassFail
	case "measure_type":
		return m.MeasureType
	case "topic_primary":
		return m.TopicPrimary
	case "topic_secondary":
		return m.TopicSecondary
	case "source_url":
		return m.SourceURL
	case "document_url":
		return m.DocumentURL
	case "has_summary":
		return strPtr(strconv.FormatBool(m.HasSummary))
	case "summary_title":
		return m.SummaryTitle
	case "summary_text":
		return m.SummaryText
	case "election_type":
		return m.ElectionType
	case "election_date":
		if m.ElectionDate == nil {
			return nil
		}
		return strPtr(m.ElectionDate.Format(time.RFC3339))
	}
	return nil
}

// valueText renders an update value as journal text, nil for NULLs.
func valueText(v interface{}) *string {
	switch val := v.(type) {
	case nil:
		return nil
	case *string:
		return val
	case string:
		return strPtr(val)
	case *int:
		return intText(val)
	case int:
		return strPtr(strconv.Itoa(val))
	case int64:
		return strPtr(strconv.FormatInt(val, 10))
	case *float64:
		return floatText(val)
	case float64:
		return strPtr(strconv.FormatFloat(val, 'f', -1, 64))
	case *bool:
		if val == nil {
			return nil
		}
		return strPtr(strconv.FormatBool(*val))
	case bool:
		return strPtr(strconv.FormatBool(val))
	case *time.Time:
		if val == nil {
			return nil
		}
		return strPtr(val.Format(time.RFC3339))
	case time.Time:
		return strPtr(val.Format(time.RFC3339))
	case []int64:
		b, err := json.Marshal(val)
		if err != nil {
			return nil
		}
		return strPtr(string(b))
	default:
		return strPtr(fmt.Sprintf("%v", val))
	}
}

func strPtr(s string) *string { return &s }

func intText(v *int) *string {
	if v == nil {
		return nil
	}
	return strPtr(strconv.Itoa(*v))
}

func floatText(v *float64) *string {
	if v == nil {
		return nil
	}
	return strPtr(strconv.FormatFloat(*v, 'f', -1, 64))
}
