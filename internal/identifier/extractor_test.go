package identifier

import "testing"

func TestExtract(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{"proposition full", "Proposition 8", "PROP_8", true},
		{"proposition abbreviated", "Prop. 13 property tax", "PROP_13", true},
		{"proposition no period", "Prop 22 app-based drivers", "PROP_22", true},
		{"proposition with letter", "Proposition 1A High-Speed Rail", "PROP_1A", true},
		{"proposition item", "Proposition Item 5", "PROP_ITEM_5", true},
		{"hyphenated historical", "Proposition 1-G school bonds", "PROP_1_G", true},
		{"aca", "ACA 11 public housing", "ACA_11", true},
		{"sca", "SCA 3 homestead exemption", "SCA_3", true},
		{"ab", "AB 32 climate change", "AB_32", true},
		{"sb", "SB 1 transportation funding", "SB_1", true},
		{"local measure", "Measure B transit sales tax", "MEASURE_B", true},
		{"local measure multi letter", "Measure AA parcel tax", "MEASURE_AA", true},
		{"case insensitive", "proposition 8", "PROP_8", true},
		{"embedded in sentence", "Shall the Prop. 8 text (full text) be adopted?", "PROP_8", true},
		{"no identifier", "Shall the city issue bonds for parks?", "", false},
		{"empty text", "", "", false},
		{"whitespace only", "   ", "", false},
		{"number without keyword", "Item 12 on the ballot", "", false},
	}

	ex := NewExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ex.Extract(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("Extract(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Extract(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractFirstMatchWins(t *testing.T) {
	ex := NewExtractor()

	// Text mentioning both a proposition and a bill resolves to the
	// proposition, the earlier pattern in the ordered list.
	got, ok := ex.Extract("Proposition 99 implements AB 75")
	if !ok || got != "PROP_99" {
		t.Errorf("Extract = %q (ok=%v), want PROP_99", got, ok)
	}
}
