package types

import "time"

// IngestStatus reports what happened to a single raw record.
type IngestStatus string

const (
	// StatusInserted means a new, non-duplicate row was created.
	StatusInserted IngestStatus = "inserted"
	// StatusUpdated means the record re-observed an existing row from the
	// same source and changed at least one field.
	StatusUpdated IngestStatus = "updated"
	// StatusUnchanged means re-observation with no field changes; only
	// last_seen_at was touched.
	StatusUnchanged IngestStatus = "unchanged"
	// StatusDuplicate means the record was stored but immediately marked
	// as a within-source duplicate of an existing row.
	StatusDuplicate IngestStatus = "duplicate"
	// StatusCrossSource means the record was stored as active and its
	// group will be consolidated in the next batch run.
	StatusCrossSource IngestStatus = "cross_source"
	// StatusRejected means the record failed boundary validation.
	StatusRejected IngestStatus = "rejected"
	// StatusFailed means a store error persisted through retries.
	StatusFailed IngestStatus = "failed"
)

// IngestResult is the outcome of ingesting one raw record.
type IngestResult struct {
	Status    IngestStatus `json:"status"`
	MeasureID int64        `json:"measure_id,omitempty"`

	// MasterID is set when Status is StatusDuplicate.
	MasterID int64 `json:"master_id,omitempty"`

	// MatchedSource is set when Status is StatusCrossSource: the source
	// of the already-stored record sharing the measure fingerprint.
	MatchedSource DataSource `json:"matched_source,omitempty"`

	// Changed lists the fields overwritten on an update.
	Changed []string `json:"changed,omitempty"`

	// RejectedField names the field that failed validation.
	RejectedField string `json:"rejected_field,omitempty"`

	// Retries counts transient store failures absorbed while
	// processing this record.
	Retries int `json:"retries,omitempty"`
}

// BatchResult summarizes one ingest run. Nothing is silently swallowed:
// every rejected, retried, or failed record is counted here.
type BatchResult struct {
	RunID       string    `json:"run_id"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`

	Checked     int `json:"checked"`
	Inserted    int `json:"inserted"`
	Updated     int `json:"updated"`
	Unchanged   int `json:"unchanged"`
	Duplicates  int `json:"duplicates"`
	CrossSource int `json:"cross_source"`
	Rejected    int `json:"rejected"`
	Failed      int `json:"failed"`
	Retried     int `json:"retried"`

	// Errors carries one message per rejected or failed record, in input
	// order, for the batch report.
	Errors []string `json:"errors,omitempty"`
}

// ConsolidateResult summarizes one consolidation pass over all
// cross-source duplicate groups.
type ConsolidateResult struct {
	GroupsProcessed int `json:"groups_processed"`
	RecordsMerged   int `json:"records_merged"`
	GroupsFailed    int `json:"groups_failed"`

	Errors []string `json:"errors,omitempty"`
}

// DuplicateReport breaks down soft-marked duplicates for inspection.
type DuplicateReport struct {
	TotalDuplicates   int                   `json:"total_duplicates"`
	ByType            map[DuplicateType]int `json:"by_type"`
	BySource          map[DataSource]int    `json:"by_source"`
	CrossSourceGroups int                   `json:"cross_source_groups"`
}

// MeasureFilter selects canonical records from the active view.
// Zero values mean "no constraint".
type MeasureFilter struct {
	YearMin       int
	YearMax       int
	Jurisdiction  string
	DataSource    DataSource
	Passed        *bool
	HasVotes      bool
	HasSummary    bool
	TitleContains string
	Limit         int
}

// FieldChange is one journaled field transition on a stored measure,
// recorded for audit whenever an update overwrites a value.
type FieldChange struct {
	ID        int64      `json:"id"`
	MeasureID int64      `json:"measure_id"`
	Field     string     `json:"field"`
	OldValue  *string    `json:"old_value,omitempty"`
	NewValue  *string    `json:"new_value,omitempty"`
	Source    DataSource `json:"source"`
	ChangedAt time.Time  `json:"changed_at"`
}

// Stats summarizes the active view for the stats command.
type Stats struct {
	TotalActive   int                `json:"total_active"`
	WithSummaries int                `json:"with_summaries"`
	WithVotes     int                `json:"with_votes"`
	YearMin       int                `json:"year_min"`
	YearMax       int                `json:"year_max"`
	Passed        int                `json:"passed"`
	Failed        int                `json:"failed"`
	BySource      map[DataSource]int `json:"by_source"`
}

// IngestRun is a persisted record of one batch ingest, kept so operators
// can audit what each run did.
type IngestRun struct {
	RunID       string     `json:"run_id"`
	RunType     string     `json:"run_type"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Checked     int        `json:"checked"`
	Inserted    int        `json:"inserted"`
	Updated     int        `json:"updated"`
	Duplicates  int        `json:"duplicates"`
	Status      string     `json:"status"`
	Error       *string    `json:"error,omitempty"`
}
