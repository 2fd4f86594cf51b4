package types

import (
	"fmt"
	"time"
)

// Measure represents one ballot-measure observation from one data source.
//
// A measure is created by ingestion and never hard-deleted: records later
// identified as duplicates are soft-marked via IsDuplicate/MasterID and
// excluded from the active view. Optional fields are pointers so that
// "absent" and "zero" stay distinguishable through merges.
type Measure struct {
	ID int64 `json:"id"`

	// Fingerprints. ExactFingerprint is unique per source and is the
	// primary dedup key; MeasureFingerprint identifies the same real-world
	// event across sources; ContentHash is the last-resort matching signal.
	ExactFingerprint   string `json:"fingerprint"`
	MeasureFingerprint string `json:"measure_fingerprint"`
	ContentHash        string `json:"content_hash"`

	// Identification
	MeasureID     *string `json:"measure_id,omitempty"`
	MeasureLetter *string `json:"measure_letter,omitempty"`
	Year          int     `json:"year"`
	Jurisdiction  string  `json:"jurisdiction"`

	// Content
	Title          *string `json:"title,omitempty"`
	Description    *string `json:"description,omitempty"`
	BallotQuestion *string `json:"ballot_question,omitempty"`

	// Vote results
	YesVotes   *int     `json:"yes_votes,omitempty"`
	NoVotes    *int     `json:"no_votes,omitempty"`
	TotalVotes *int     `json:"total_votes,omitempty"`
	PercentYes *float64 `json:"percent_yes,omitempty"`
	PercentNo  *float64 `json:"percent_no,omitempty"`
	Passed     *bool    `json:"passed,omitempty"` // nil = outcome unknown
	PassFail   *string  `json:"pass_fail,omitempty"`

	// Classification
	MeasureType    *string `json:"measure_type,omitempty"`
	TopicPrimary   *string `json:"topic_primary,omitempty"`
	TopicSecondary *string `json:"topic_secondary,omitempty"`

	// Source tracking
	DataSource  DataSource `json:"data_source"`
	SourceURL   *string    `json:"source_url,omitempty"`
	DocumentURL *string    `json:"document_url,omitempty"`

	// Summary enrichment
	HasSummary   bool    `json:"has_summary"`
	SummaryTitle *string `json:"summary_title,omitempty"`
	SummaryText  *string `json:"summary_text,omitempty"`

	// Election metadata
	ElectionType *string    `json:"election_type,omitempty"`
	ElectionDate *time.Time `json:"election_date,omitempty"`
	Decade       *int       `json:"decade,omitempty"`
	Century      *int       `json:"century,omitempty"`

	// Lifecycle tracking
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
	UpdateCount int       `json:"update_count"`

	// Dedup state. MasterID is a plain identifier, never an owning
	// reference; the store's index is the source of truth for the
	// master-to-followers relationship.
	IsDuplicate   bool          `json:"is_duplicate"`
	DuplicateType DuplicateType `json:"duplicate_type,omitempty"`
	MasterID      *int64        `json:"master_id,omitempty"`
	MergedFrom    []int64       `json:"merged_from,omitempty"`
}

// Validate checks invariants that are expressible on a single record.
// Cross-record invariants (master must not itself be a duplicate) are
// enforced by the store.
func (m *Measure) Validate() error {
	if m.ExactFingerprint == "" {
		return fmt.Errorf("fingerprint is required")
	}
	if m.Year < MinYear || m.Year > MaxYear {
		return fmt.Errorf("year must be between %d and %d (got %d)", MinYear, MaxYear, m.Year)
	}
	if m.DataSource == "" {
		return fmt.Errorf("data_source is required")
	}
	if !m.DuplicateType.IsValid() {
		return fmt.Errorf("invalid duplicate type: %s", m.DuplicateType)
	}
	if m.IsDuplicate && m.MasterID == nil {
		return fmt.Errorf("master_id is required when is_duplicate is set")
	}
	if !m.IsDuplicate && m.DuplicateType != DuplicateNone {
		return fmt.Errorf("duplicate_type %s set on non-duplicate record", m.DuplicateType)
	}
	if m.YesVotes != nil && *m.YesVotes < 0 {
		return fmt.Errorf("yes_votes cannot be negative (got %d)", *m.YesVotes)
	}
	if m.NoVotes != nil && *m.NoVotes < 0 {
		return fmt.Errorf("no_votes cannot be negative (got %d)", *m.NoVotes)
	}
	return nil
}

// SetDerivedDates fills decade and century from the year.
func (m *Measure) SetDerivedDates() {
	decade := (m.Year / 10) * 10
	century := ((m.Year - 1) / 100) + 1
	m.Decade = &decade
	m.Century = &century
}

// Year bounds accepted at the ingestion boundary.
const (
	MinYear = 1800
	MaxYear = 2100
)

// DataSource identifies which upstream feed a record came from.
type DataSource string

// Known sources, most authoritative first. Sources outside this list are
// accepted; they rank below all known sources for master selection.
const (
	SourceSOS        DataSource = "CA_SOS"
	SourceSOSScraper DataSource = "CA_SOS_Scraper"
	SourceNCSL       DataSource = "NCSL"
	SourceCEDA       DataSource = "CEDA"
	SourceICPSR      DataSource = "ICPSR"
	SourceUCLawSF    DataSource = "UC_Law_SF"
)

// DuplicateType classifies how a record was identified as a duplicate.
type DuplicateType string

const (
	// DuplicateNone marks an active, canonical record.
	DuplicateNone DuplicateType = ""
	// DuplicateWithinSource marks a near-identical record from the same
	// ingestion batch, matched by content hash.
	DuplicateWithinSource DuplicateType = "within_source"
	// DuplicateCrossSource marks a record folded into a master from
	// another source, matched by measure fingerprint.
	DuplicateCrossSource DuplicateType = "cross_source"
)

// IsValid checks if the duplicate type value is valid
func (d DuplicateType) IsValid() bool {
	switch d {
	case DuplicateNone, DuplicateWithinSource, DuplicateCrossSource:
		return true
	}
	return false
}

// DefaultJurisdiction is used when a raw record carries no jurisdiction.
const DefaultJurisdiction = "STATEWIDE"
