package dedup

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/openballot/ballotdedup/internal/types"
)

// Merger folds non-conflicting fields from a duplicate group into its
// master record.
type Merger struct {
	cfg Config
}

// NewMerger returns a Merger using the given source priorities.
func NewMerger(cfg Config) *Merger {
	return &Merger{cfg: cfg}
}

// Merge computes the field updates that consolidate a group into
// master. The master's own non-null values always win; gaps are filled
// from the highest-priority source that has the field. Vote-derived
// fields (total, percentages, pass/fail) are recomputed from the merged
// yes/no counts, never combined across sources.
//
// The returned map contains only fields that actually change on the
// master; an empty map means the master already carries the best data.
func (g *Merger) Merge(measureFP string, group []*types.Measure, master *types.Measure) (map[string]interface{}, error) {
	donors := g.orderedDonors(group, master)
	updates := make(map[string]interface{})

	fillString(updates, "description", master.Description, donors, func(m *types.Measure) *string { return m.Description })
	fillString(updates, "ballot_question", master.BallotQuestion, donors, func(m *types.Measure) *string { return m.BallotQuestion })
	fillString(updates, "summary_title", master.SummaryTitle, donors, func(m *types.Measure) *string { return m.SummaryTitle })
	fillString(updates, "summary_text", master.SummaryText, donors, func(m *types.Measure) *string { return m.SummaryText })
	fillString(updates, "document_url", master.DocumentURL, donors, func(m *types.Measure) *string { return m.DocumentURL })
	fillString(updates, "source_url", master.SourceURL, donors, func(m *types.Measure) *string { return m.SourceURL })
	fillString(updates, "measure_type", master.MeasureType, donors, func(m *types.Measure) *string { return m.MeasureType })
	fillString(updates, "topic_primary", master.TopicPrimary, donors, func(m *types.Measure) *string { return m.TopicPrimary })
	fillString(updates, "topic_secondary", master.TopicSecondary, donors, func(m *types.Measure) *string { return m.TopicSecondary })
	fillString(updates, "election_type", master.ElectionType, donors, func(m *types.Measure) *string { return m.ElectionType })
	fillTime(updates, "election_date", master.ElectionDate, donors, func(m *types.Measure) *time.Time { return m.ElectionDate })

	if _, ok := updates["summary_text"]; ok && !master.HasSummary {
		updates["has_summary"] = true
	}

	if yes, no, ok := pickVotePair(donors); ok {
		if err := g.applyVotes(updates, master, measureFP, yes, no); err != nil {
			return nil, err
		}
	} else {
		// No member has a full vote count pair; the reported outcome is
		// the best available signal.
		if master.Passed == nil {
			for _, d := range donors {
				if d.Passed != nil {
					updates["passed"] = *d.Passed
					break
				}
			}
		}
		fillString(updates, "pass_fail", master.PassFail, donors, func(m *types.Measure) *string { return m.PassFail })
	}

	return updates, nil
}

// Outcome is the set of vote-derived fields computed from one yes/no
// count pair.
type Outcome struct {
	TotalVotes int
	PercentYes float64
	PercentNo  float64
	Passed     bool
	PassFail   string
}

// DeriveOutcome computes every vote-derived field from a yes/no pair.
// The counts must come from a single source record; deriving from mixed
// counts produces exactly the inconsistency this function exists to
// prevent.
func DeriveOutcome(measureFP string, yes, no int) (Outcome, error) {
	total := yes + no
	if total <= 0 {
		return Outcome{}, &types.InconsistentMergeError{
			MeasureFingerprint: measureFP,
			Detail:             fmt.Sprintf("vote counts sum to %d", total),
		}
	}

	percentYes := round2(float64(yes) / float64(total) * 100)
	percentNo := round2(float64(no) / float64(total) * 100)
	if math.Abs(percentYes+percentNo-100) > 0.011 {
		return Outcome{}, &types.InconsistentMergeError{
			MeasureFingerprint: measureFP,
			Detail: fmt.Sprintf("percentages do not reconcile: %.2f + %.2f != 100",
				percentYes, percentNo),
		}
	}

	out := Outcome{
		TotalVotes: total,
		PercentYes: percentYes,
		PercentNo:  percentNo,
		Passed:     percentYes > 50,
		PassFail:   "Fail",
	}
	if out.Passed {
		out.PassFail = "Pass"
	}
	return out, nil
}

// applyVotes recomputes every vote-derived field from one merged yes/no
// pair and verifies the result reconciles before it is committed.
func (g *Merger) applyVotes(updates map[string]interface{}, master *types.Measure, measureFP string, yes, no int) error {
	out, err := DeriveOutcome(measureFP, yes, no)
	if err != nil {
		return err
	}
	total, percentYes, percentNo := out.TotalVotes, out.PercentYes, out.PercentNo
	passed, label := out.Passed, out.PassFail

	setIfChangedInt(updates, "yes_votes", master.YesVotes, yes)
	setIfChangedInt(updates, "no_votes", master.NoVotes, no)
	setIfChangedInt(updates, "total_votes", master.TotalVotes, total)
	setIfChangedFloat(updates, "percent_yes", master.PercentYes, percentYes)
	setIfChangedFloat(updates, "percent_no", master.PercentNo, percentNo)
	if master.Passed == nil || *master.Passed != passed {
		updates["passed"] = passed
	}
	if master.PassFail == nil || *master.PassFail != label {
		updates["pass_fail"] = label
	}
	return nil
}

// orderedDonors returns the group with the master first and the rest
// sorted by source priority, then id, so "first non-null wins" prefers
// the most trusted source for each gap.
func (g *Merger) orderedDonors(group []*types.Measure, master *types.Measure) []*types.Measure {
	donors := make([]*types.Measure, 0, len(group))
	donors = append(donors, master)
	rest := make([]*types.Measure, 0, len(group)-1)
	for _, m := range group {
		if m.ID != master.ID {
			rest = append(rest, m)
		}
	}
	sort.Slice(rest, func(i, j int) bool {
		ri, rj := g.cfg.SourceRank(rest[i].DataSource), g.cfg.SourceRank(rest[j].DataSource)
		if ri != rj {
			return ri < rj
		}
		return rest[i].ID < rest[j].ID
	})
	return append(donors, rest...)
}

// pickVotePair takes yes and no from the same donor so counts from
// different sources are never combined.
func pickVotePair(donors []*types.Measure) (yes, no int, ok bool) {
	for _, d := range donors {
		if d.YesVotes != nil && d.NoVotes != nil {
			return *d.YesVotes, *d.NoVotes, true
		}
	}
	return 0, 0, false
}

func fillString(updates map[string]interface{}, field string, current *string, donors []*types.Measure, get func(*types.Measure) *string) {
	if current != nil && strings.TrimSpace(*current) != "" {
		return
	}
	for _, d := range donors {
		if v := get(d); v != nil && strings.TrimSpace(*v) != "" {
			updates[field] = *v
			return
		}
	}
}

func fillTime(updates map[string]interface{}, field string, current *time.Time, donors []*types.Measure, get func(*types.Measure) *time.Time) {
	if current != nil {
		return
	}
	for _, d := range donors {
		if v := get(d); v != nil {
			updates[field] = *v
			return
		}
	}
}

func setIfChangedInt(updates map[string]interface{}, field string, current *int, v int) {
	if current == nil || *current != v {
		updates[field] = v
	}
}

func setIfChangedFloat(updates map[string]interface{}, field string, current *float64, v float64) {
	if current == nil || math.Abs(*current-v) > 0.001 {
		updates[field] = v
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
