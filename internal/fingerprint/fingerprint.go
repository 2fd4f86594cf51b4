// Package fingerprint derives the three dedup keys for a raw measure.
//
// Generation is deterministic: identical raw field values always yield
// identical fingerprints, which makes re-ingestion idempotent.
package fingerprint

import (
	"crypto/md5"
	"fmt"
	"strings"

	"github.com/openballot/ballotdedup/internal/identifier"
	"github.com/openballot/ballotdedup/internal/types"
)

// Set holds the three fingerprints in increasing order of leniency.
type Set struct {
	// Exact is unique per source: year|identifier|jurisdiction|source.
	// The store enforces uniqueness on it.
	Exact string
	// Measure identifies the same real-world event across sources:
	// year|identifier|jurisdiction.
	Measure string
	// ContentHash is a 16-hex digest of the descriptive text, the
	// last-resort matching signal when no identifier can be extracted.
	ContentHash string
}

// Generator produces fingerprint sets for raw measures.
type Generator struct {
	extractor *identifier.Extractor
}

// NewGenerator returns a Generator using the given identifier extractor.
func NewGenerator(ex *identifier.Extractor) *Generator {
	return &Generator{extractor: ex}
}

// Generate derives the fingerprint set for a raw measure.
func (g *Generator) Generate(raw *types.RawMeasure) Set {
	id := g.measureIdentifier(raw)
	jurisdiction := raw.NormalizedJurisdiction()
	source := strings.ToUpper(string(raw.DataSource))

	measureFP := fmt.Sprintf("%d|%s|%s", raw.Year, id, jurisdiction)
	return Set{
		Exact:       fmt.Sprintf("%s|%s", measureFP, source),
		Measure:     measureFP,
		ContentHash: ContentHash(raw.Title, raw.BallotQuestion, raw.Description),
	}
}

// measureIdentifier resolves the identifier component, trying the
// extractor on title then ballot question, then falling back in order:
// explicit measure id, explicit measure letter, content hash, UNKNOWN.
func (g *Generator) measureIdentifier(raw *types.RawMeasure) string {
	if id, ok := g.extractor.Extract(raw.Title); ok {
		return id
	}
	if id, ok := g.extractor.Extract(raw.BallotQuestion); ok {
		return id
	}
	if v := strings.TrimSpace(raw.MeasureID); v != "" {
		return "ID_" + strings.ToUpper(sanitize(v))
	}
	if v := strings.TrimSpace(raw.MeasureLetter); v != "" {
		return "MEASURE_" + strings.ToUpper(sanitize(v))
	}
	text := firstNonEmpty(raw.BallotQuestion, raw.Title, raw.Description)
	if text != "" {
		return fmt.Sprintf("HASH_%x", md5.Sum([]byte(text)))[:13] // HASH_ + 8 hex
	}
	return "UNKNOWN"
}

// ContentHash returns the 16-hex digest of the lowercased, trimmed
// concatenation of the descriptive fields.
func ContentHash(title, question, description string) string {
	content := strings.TrimSpace(strings.ToLower(
		strings.Join([]string{title, question, description}, "|")))
	return fmt.Sprintf("%x", md5.Sum([]byte(content)))[:16]
}

// sanitize collapses runs of non-alphanumerics to single underscores so
// free-form id fields cannot smuggle the pipe delimiter into a key.
func sanitize(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
