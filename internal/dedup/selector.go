package dedup

import (
	"strings"

	"github.com/openballot/ballotdedup/internal/types"
)

// Selector scores duplicate-group members and picks the canonical
// master record.
type Selector struct {
	cfg Config
}

// NewSelector returns a Selector using the given weights.
func NewSelector(cfg Config) *Selector {
	return &Selector{cfg: cfg}
}

// Score rates one record's data quality. Higher is better.
func (s *Selector) Score(m *types.Measure) int {
	score := 0

	if m.HasSummary {
		score += s.cfg.SummaryBonus
	}
	if m.YesVotes != nil {
		score += s.cfg.VotesBonus
	}
	if m.Description != nil && strings.TrimSpace(*m.Description) != "" {
		score += s.cfg.DescriptionBonus
	}
	if hasRealDocument(m) {
		score += s.cfg.DocumentBonus
	}
	if m.BallotQuestion != nil && strings.TrimSpace(*m.BallotQuestion) != "" {
		score += s.cfg.QuestionBonus
	}

	rank := s.cfg.SourceRank(m.DataSource)
	score += (s.cfg.DefaultSourceRank - rank) * s.cfg.SourceRankMultiplier

	if s.cfg.IsLiveScraper(m.DataSource) {
		score += s.cfg.LiveScraperBonus
	}

	return score
}

// SelectMaster picks the highest-scoring member of a group, ties broken
// by lowest id so the choice is stable across runs. The group must be
// non-empty.
func (s *Selector) SelectMaster(group []*types.Measure) *types.Measure {
	var best *types.Measure
	bestScore := -1
	for _, m := range group {
		score := s.Score(m)
		if score > bestScore || (score == bestScore && best != nil && m.ID < best.ID) {
			best = m
			bestScore = score
		}
	}
	return best
}

// hasRealDocument reports whether the record links an actual document,
// not a placeholder.
func hasRealDocument(m *types.Measure) bool {
	if m.DocumentURL == nil {
		return false
	}
	url := strings.TrimSpace(*m.DocumentURL)
	return url != "" && url != "#"
}
