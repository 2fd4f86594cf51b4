package types

import (
	"fmt"
	"strings"
	"time"
)

// RawMeasure is the typed ingestion input handed over by source parsers.
// Parsers translate their native formats (HTML tables, Excel rows, CSV)
// into this struct at the boundary; untyped field maps do not propagate
// past it.
type RawMeasure struct {
	Year          int        `json:"year"`
	Jurisdiction  string     `json:"jurisdiction,omitempty"`
	MeasureID     string     `json:"measure_id,omitempty"`
	MeasureLetter string     `json:"measure_letter,omitempty"`
	DataSource    DataSource `json:"data_source"`

	Title          string `json:"title,omitempty"`
	BallotQuestion string `json:"ballot_question,omitempty"`
	Description    string `json:"description,omitempty"`

	YesVotes *int `json:"yes_votes,omitempty"`
	NoVotes  *int `json:"no_votes,omitempty"`

	MeasureType    string `json:"measure_type,omitempty"`
	TopicPrimary   string `json:"topic_primary,omitempty"`
	TopicSecondary string `json:"topic_secondary,omitempty"`

	SourceURL   string `json:"source_url,omitempty"`
	DocumentURL string `json:"document_url,omitempty"`

	SummaryTitle string `json:"summary_title,omitempty"`
	SummaryText  string `json:"summary_text,omitempty"`

	ElectionType string     `json:"election_type,omitempty"`
	ElectionDate *time.Time `json:"election_date,omitempty"`
}

// Validate applies the ingestion boundary rules: a usable year and at
// least one identifying text field. Records failing these are rejected,
// not stored.
func (r *RawMeasure) Validate() error {
	if r.Year < MinYear || r.Year > MaxYear {
		return &ValidationError{Field: "year",
			Reason: fmt.Sprintf("must be between %d and %d (got %d)", MinYear, MaxYear, r.Year)}
	}
	if strings.TrimSpace(r.Title) == "" && strings.TrimSpace(r.BallotQuestion) == "" {
		return &ValidationError{Field: "title",
			Reason: "at least one of title or ballot_question is required"}
	}
	if r.DataSource == "" {
		return &ValidationError{Field: "data_source", Reason: "is required"}
	}
	if r.YesVotes != nil && *r.YesVotes < 0 {
		return &ValidationError{Field: "yes_votes", Reason: "cannot be negative"}
	}
	if r.NoVotes != nil && *r.NoVotes < 0 {
		return &ValidationError{Field: "no_votes", Reason: "cannot be negative"}
	}
	return nil
}

// NormalizedJurisdiction returns the uppercased jurisdiction, defaulting
// to statewide when the parser supplied none.
func (r *RawMeasure) NormalizedJurisdiction() string {
	j := strings.TrimSpace(r.Jurisdiction)
	if j == "" {
		return DefaultJurisdiction
	}
	return strings.ToUpper(j)
}
