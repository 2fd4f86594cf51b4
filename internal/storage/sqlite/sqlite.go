// Package sqlite implements the measure store on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/openballot/ballotdedup/internal/types"
)

// SQLiteStorage implements the storage.Storage interface using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// New creates a new SQLite storage backend at path, initializing the
// schema if needed. WAL mode keeps readers unblocked during ingestion;
// the busy timeout bounds lock waits instead of failing immediately.
func New(path string) (*SQLiteStorage, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// measureColumns is the canonical column list; every SELECT uses it so
// scanMeasure stays in one place.
const measureColumns = `
	id, fingerprint, measure_fingerprint, content_hash,
	measure_id, measure_letter, year, jurisdiction,
	title, description, ballot_question,
	yes_votes, no_votes, total_votes, percent_yes, percent_no, passed, pass_fail,
	measure_type, topic_primary, topic_secondary,
	data_source, source_url, document_url,
	has_summary, summary_title, summary_text,
	election_type, election_date, decade, century,
	created_at, updated_at, last_seen_at, update_count,
	is_duplicate, duplicate_type, master_id, merged_from`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMeasure(row rowScanner) (*types.Measure, error) {
	var m types.Measure
	var (
		measureID, measureLetter          sql.NullString
		title, description, question      sql.NullString
		yesVotes, noVotes, totalVotes     sql.NullInt64
		percentYes, percentNo             sql.NullFloat64
		passed                            sql.NullBool
		passFail                          sql.NullString
		measureType, topicPri, topicSec   sql.NullString
		sourceURL, documentURL            sql.NullString
		summaryTitle, summaryText         sql.NullString
		electionType                      sql.NullString
		electionDate                      sql.NullTime
		decade, century, masterID         sql.NullInt64
		mergedFrom                        sql.NullString
	)

	err := row.Scan(
		&m.ID, &m.ExactFingerprint, &m.MeasureFingerprint, &m.ContentHash,
		&measureID, &measureLetter, &m.Year, &m.Jurisdiction,
		&title, &description, &question,
		&yesVotes, &noVotes, &totalVotes, &percentYes, &percentNo, &passed, &passFail,
		&measureType, &topicPri, &topicSec,
		&m.DataSource, &sourceURL, &documentURL,
		&m.HasSummary, &summaryTitle, &summaryText,
		&electionType, &electionDate, &decade, &century,
		&m.CreatedAt, &m.UpdatedAt, &m.LastSeenAt, &m.UpdateCount,
		&m.IsDuplicate, &m.DuplicateType, &masterID, &mergedFrom,
	)
	if err != nil {
		return nil, err
	}

	m.MeasureID = nullStr(measureID)
	m.MeasureLetter = nullStr(measureLetter)
	m.Title = nullStr(title)
	m.Description = nullStr(description)
	m.BallotQuestion = nullStr(question)
	m.YesVotes = nullInt(yesVotes)
	m.NoVotes = nullInt(noVotes)
	m.TotalVotes = nullInt(totalVotes)
	m.PercentYes = nullFloat(percentYes)
	m.PercentNo = nullFloat(percentNo)
	if passed.Valid {
		v := passed.Bool
		m.Passed = &v
	}
	m.PassFail = nullStr(passFail)
	m.MeasureType = nullStr(measureType)
	m.TopicPrimary = nullStr(topicPri)
	m.TopicSecondary = nullStr(topicSec)
	m.SourceURL = nullStr(sourceURL)
	m.DocumentURL = nullStr(documentURL)
	m.SummaryTitle = nullStr(summaryTitle)
	m.SummaryText = nullStr(summaryText)
	m.ElectionType = nullStr(electionType)
	if electionDate.Valid {
		t := electionDate.Time
		m.ElectionDate = &t
	}
	m.Decade = nullInt(decade)
	m.Century = nullInt(century)
	if masterID.Valid {
		v := masterID.Int64
		m.MasterID = &v
	}
	if mergedFrom.Valid && mergedFrom.String != "" {
		if err := json.Unmarshal([]byte(mergedFrom.String), &m.MergedFrom); err != nil {
			return nil, fmt.Errorf("failed to decode merged_from for measure %d: %w", m.ID, err)
		}
	}

	return &m, nil
}

func nullStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// CreateMeasure inserts a new measure and returns its assigned id.
func (s *SQLiteStorage) CreateMeasure(ctx context.Context, m *types.Measure) (int64, error) {
	if err := m.Validate(); err != nil {
		return 0, fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	m.LastSeenAt = now
	m.SetDerivedDates()

	var mergedFrom interface{}
	if len(m.MergedFrom) > 0 {
		b, err := json.Marshal(m.MergedFrom)
		if err != nil {
			return 0, fmt.Errorf("failed to encode merged_from: %w", err)
		}
		mergedFrom = string(b)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO measures (
			fingerprint, measure_fingerprint, content_hash,
			measure_id, measure_letter, year, jurisdiction,
			title, description, ballot_question,
			yes_votes, no_votes, total_votes, percent_yes, percent_no, passed, pass_fail,
			measure_type, topic_primary, topic_secondary,
			data_source, source_url, document_url,
			has_summary, summary_title, summary_text,
			election_type, election_date, decade, century,
			created_at, updated_at, last_seen_at, update_count,
			is_duplicate, duplicate_type, master_id, merged_from
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
		          ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.ExactFingerprint, m.MeasureFingerprint, m.ContentHash,
		m.MeasureID, m.MeasureLetter, m.Year, m.Jurisdiction,
		m.Title, m.Description, m.BallotQuestion,
		m.YesVotes, m.NoVotes, m.TotalVotes, m.PercentYes, m.PercentNo, m.Passed, m.PassFail,
		m.MeasureType, m.TopicPrimary, m.TopicSecondary,
		m.DataSource, m.SourceURL, m.DocumentURL,
		m.HasSummary, m.SummaryTitle, m.SummaryText,
		m.ElectionType, m.ElectionDate, m.Decade, m.Century,
		m.CreatedAt, m.UpdatedAt, m.LastSeenAt, m.UpdateCount,
		m.IsDuplicate, string(m.DuplicateType), m.MasterID, mergedFrom,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, &types.ConflictError{Fingerprint: m.ExactFingerprint, Err: err}
		}
		return 0, &types.StoreUnavailableError{Op: "create measure", Err: err}
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, &types.StoreUnavailableError{Op: "create measure", Err: err}
	}
	m.ID = id
	return id, nil
}

// isUniqueViolation reports whether err is the exact-fingerprint
// uniqueness constraint firing.
func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// GetMeasure retrieves a measure by id. Returns (nil, nil) if not found.
func (s *SQLiteStorage) GetMeasure(ctx context.Context, id int64) (*types.Measure, error) {
	m, err := scanMeasure(s.db.QueryRowContext(ctx,
		`SELECT `+measureColumns+` FROM measures WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &types.StoreUnavailableError{Op: "get measure", Err: err}
	}
	return m, nil
}

// GetByExactFingerprint retrieves a measure by its unique fingerprint.
// Returns (nil, nil) if not found.
func (s *SQLiteStorage) GetByExactFingerprint(ctx context.Context, fp string) (*types.Measure, error) {
	m, err := scanMeasure(s.db.QueryRowContext(ctx,
		`SELECT `+measureColumns+` FROM measures WHERE fingerprint = ?`, fp))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &types.StoreUnavailableError{Op: "lookup by fingerprint", Err: err}
	}
	return m, nil
}

// FindActiveByContentHash returns active measures with identical
// descriptive text, oldest first.
func (s *SQLiteStorage) FindActiveByContentHash(ctx context.Context, hash string) ([]*types.Measure, error) {
	return s.queryMeasures(ctx, "lookup by content hash",
		`SELECT `+measureColumns+` FROM measures
		 WHERE content_hash = ? AND is_duplicate = 0
		 ORDER BY id`, hash)
}

// FindActiveByMeasureFingerprint returns active measures describing the
// same real-world event, oldest first.
func (s *SQLiteStorage) FindActiveByMeasureFingerprint(ctx context.Context, fp string) ([]*types.Measure, error) {
	return s.queryMeasures(ctx, "lookup by measure fingerprint",
		`SELECT `+measureColumns+` FROM measures
		 WHERE measure_fingerprint = ? AND is_duplicate = 0
		 ORDER BY id`, fp)
}

func (s *SQLiteStorage) queryMeasures(ctx context.Context, op, query string, args ...interface{}) ([]*types.Measure, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &types.StoreUnavailableError{Op: op, Err: err}
	}
	defer rows.Close()

	var measures []*types.Measure
	for rows.Next() {
		m, err := scanMeasure(rows)
		if err != nil {
			return nil, &types.StoreUnavailableError{Op: op, Err: err}
		}
		measures = append(measures, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &types.StoreUnavailableError{Op: op, Err: err}
	}
	return measures, nil
}
