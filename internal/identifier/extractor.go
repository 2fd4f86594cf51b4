// Package identifier derives normalized measure identifiers from free text.
//
// Extraction is intentionally conservative: a false non-match is safe
// because callers fall through to weaker matching tiers, while a false
// match would corrupt cross-source linking. Patterns are anchored to
// their keywords and case-insensitive, never fuzzy.
package identifier

import (
	"fmt"
	"regexp"
	"strings"
)

// pattern pairs a compiled regexp with a formatter that builds the
// canonical identifier from the capture groups.
type pattern struct {
	re     *regexp.Regexp
	format func(groups []string) string
}

// Extractor applies an ordered pattern list to free text; the first
// matching pattern wins.
type Extractor struct {
	patterns []pattern
}

// NewExtractor builds the extractor with the standard pattern list.
//
// The hyphenated historical form ("Proposition 1-G") is tried before the
// plain proposition form: the plain pattern would otherwise capture the
// bare number and the hyphenated letter would be lost.
func NewExtractor() *Extractor {
	return &Extractor{
		patterns: []pattern{
			{
				// ICPSR historical format, e.g. "Proposition 1-G"
				re: regexp.MustCompile(`(?i)Proposition\s*(\d+)-([A-Z])`),
				format: func(g []string) string {
					return fmt.Sprintf("PROP_%s_%s", g[0], g[1])
				},
			},
			{
				// Live-scraper format, e.g. "Proposition Item 5"
				re: regexp.MustCompile(`(?i)Proposition\s+Item\s+(\d+)`),
				format: func(g []string) string {
					return fmt.Sprintf("PROP_ITEM_%s", g[0])
				},
			},
			{
				// "Proposition 8", "Prop. 13", "Prop 1A"
				re: regexp.MustCompile(`(?i)(?:Proposition|Prop\.?)\s*(\d+[A-Z]?)`),
				format: func(g []string) string {
					return fmt.Sprintf("PROP_%s", g[0])
				},
			},
			{
				// Constitutional amendments, e.g. "ACA 11", "SCA 3"
				re: regexp.MustCompile(`(?i)([AS]CA)\s*(\d+)`),
				format: func(g []string) string {
					return fmt.Sprintf("%s_%s", g[0], g[1])
				},
			},
			{
				// Bills, e.g. "AB 32", "SB 1"
				re: regexp.MustCompile(`(?i)\b(AB|SB)\s*(\d+)`),
				format: func(g []string) string {
					return fmt.Sprintf("%s_%s", g[0], g[1])
				},
			},
			{
				// Local measures, e.g. "Measure B", "Measure AA"
				re: regexp.MustCompile(`(?i)Measure\s+([A-Z]+)\b`),
				format: func(g []string) string {
					return fmt.Sprintf("MEASURE_%s", g[0])
				},
			},
		},
	}
}

// Extract returns the canonical identifier for the first matching
// pattern, or ok=false when no pattern matches. Callers fall back to
// other identifying fields or a content hash.
func (e *Extractor) Extract(text string) (id string, ok bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	for _, p := range e.patterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		return strings.ToUpper(p.format(m[1:])), true
	}
	return "", false
}
