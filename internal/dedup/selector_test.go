package dedup

import (
	"testing"

	"github.com/openballot/ballotdedup/internal/types"
)

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }

func TestScore(t *testing.T) {
	sel := NewSelector(DefaultConfig())

	tests := []struct {
		name string
		m    types.Measure
		want int
	}{
		{
			name: "bare record from unknown source",
			m:    types.Measure{DataSource: "SomethingElse"},
			want: 0,
		},
		{
			name: "official source bonus only",
			m:    types.Measure{DataSource: types.SourceSOS},
			want: 45, // (10-1)*5
		},
		{
			name: "vote data",
			m:    types.Measure{DataSource: types.SourceICPSR, YesVotes: intp(100)},
			want: 75, // 50 votes + (10-5)*5
		},
		{
			name: "summary outweighs votes",
			m:    types.Measure{DataSource: types.SourceICPSR, HasSummary: true},
			want: 125, // 100 summary + (10-5)*5
		},
		{
			name: "live scraper recency bonus",
			m:    types.Measure{DataSource: types.SourceSOSScraper},
			want: 50, // (10-2)*5 + 10
		},
		{
			name: "placeholder document url does not count",
			m:    types.Measure{DataSource: types.SourceCEDA, DocumentURL: strp("#")},
			want: 30, // (10-4)*5 only
		},
		{
			name: "fully populated record",
			m: types.Measure{
				DataSource:     types.SourceSOS,
				HasSummary:     true,
				YesVotes:       intp(1),
				Description:    strp("desc"),
				DocumentURL:    strp("https://example.org/measure.pdf"),
				BallotQuestion: strp("Shall it pass?"),
			},
			want: 255, // 100+50+25+20+15+(10-1)*5
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sel.Score(&tt.m); got != tt.want {
				t.Errorf("Score() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSelectMasterPrefersVoteData(t *testing.T) {
	sel := NewSelector(DefaultConfig())

	sos := &types.Measure{ID: 1, DataSource: types.SourceSOS}
	archive := &types.Measure{
		ID: 2, DataSource: types.SourceICPSR,
		YesVotes: intp(100), NoVotes: intp(50),
	}

	// Archive scores 75 (votes + rank), SOS scores 45 (rank only): the
	// record with real election results wins despite the lower-priority
	// source.
	master := sel.SelectMaster([]*types.Measure{sos, archive})
	if master.ID != archive.ID {
		t.Errorf("SelectMaster picked id %d, want %d", master.ID, archive.ID)
	}
}

func TestSelectMasterTieBreaksOnLowestID(t *testing.T) {
	sel := NewSelector(DefaultConfig())

	a := &types.Measure{ID: 7, DataSource: types.SourceCEDA}
	b := &types.Measure{ID: 3, DataSource: types.SourceCEDA}
	c := &types.Measure{ID: 12, DataSource: types.SourceCEDA}

	master := sel.SelectMaster([]*types.Measure{a, b, c})
	if master.ID != 3 {
		t.Errorf("SelectMaster picked id %d, want 3 (lowest id on tie)", master.ID)
	}
}
