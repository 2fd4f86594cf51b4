package dedup

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/openballot/ballotdedup/internal/types"
)

// Config holds the master-selection weights and source priorities.
//
// The weights are heuristic constants carried over from years of
// scraped data; they are configuration, not law, and can be tuned per
// deployment through a YAML file or environment variables.
type Config struct {
	// SummaryBonus rewards a human-authored summary, the strongest
	// signal of record quality.
	SummaryBonus int `yaml:"summary_bonus"`

	// VotesBonus rewards recorded vote totals.
	VotesBonus int `yaml:"votes_bonus"`

	// DescriptionBonus rewards a description.
	DescriptionBonus int `yaml:"description_bonus"`

	// DocumentBonus rewards a real document URL (placeholders like "#"
	// do not count).
	DocumentBonus int `yaml:"document_bonus"`

	// QuestionBonus rewards the raw ballot question text.
	QuestionBonus int `yaml:"question_bonus"`

	// SourceRankMultiplier scales the source-priority bonus:
	// (DefaultSourceRank - rank) * SourceRankMultiplier.
	SourceRankMultiplier int `yaml:"source_rank_multiplier"`

	// DefaultSourceRank is the rank assigned to sources missing from
	// SourcePriority, below every known source.
	DefaultSourceRank int `yaml:"default_source_rank"`

	// LiveScraperBonus rewards records from live-scraper sources, whose
	// observations are the most recent.
	LiveScraperBonus int `yaml:"live_scraper_bonus"`

	// SourcePriority ranks sources, most authoritative first (rank 1).
	SourcePriority map[types.DataSource]int `yaml:"source_priority"`

	// LiveScraperSources lists the sources that earn LiveScraperBonus.
	LiveScraperSources []types.DataSource `yaml:"live_scraper_sources"`

	// MaxRetries bounds retries of transient store failures during
	// ingestion and consolidation.
	MaxRetries int `yaml:"max_retries"`

	// IngestWorkers bounds the ingest worker pool.
	IngestWorkers int `yaml:"ingest_workers"`

	// WriteRatePerSec throttles store writes during bulk ingest.
	// Zero disables throttling.
	WriteRatePerSec int `yaml:"write_rate_per_sec"`
}

// DefaultConfig returns the standard configuration. The weight values
// are the constants the heuristics were originally tuned with.
func DefaultConfig() Config {
	return Config{
		SummaryBonus:         100,
		VotesBonus:           50,
		DescriptionBonus:     25,
		DocumentBonus:        20,
		QuestionBonus:        15,
		SourceRankMultiplier: 5,
		DefaultSourceRank:    10,
		LiveScraperBonus:     10,
		SourcePriority: map[types.DataSource]int{
			types.SourceSOS:        1,
			types.SourceSOSScraper: 2,
			types.SourceNCSL:       3,
			types.SourceCEDA:       4,
			types.SourceICPSR:      5,
			types.SourceUCLawSF:    6,
		},
		LiveScraperSources: []types.DataSource{types.SourceSOSScraper},
		MaxRetries:         3,
		IngestWorkers:      4,
		WriteRatePerSec:    0,
	}
}

// Validate checks if the configuration has usable values.
func (c Config) Validate() error {
	if c.SummaryBonus < 0 || c.VotesBonus < 0 || c.DescriptionBonus < 0 ||
		c.DocumentBonus < 0 || c.QuestionBonus < 0 || c.LiveScraperBonus < 0 {
		return fmt.Errorf("score bonuses cannot be negative")
	}
	if c.SourceRankMultiplier < 0 {
		return fmt.Errorf("source_rank_multiplier cannot be negative (got %d)", c.SourceRankMultiplier)
	}
	if c.DefaultSourceRank <= 0 {
		return fmt.Errorf("default_source_rank must be positive (got %d)", c.DefaultSourceRank)
	}
	for source, rank := range c.SourcePriority {
		if rank <= 0 || rank > c.DefaultSourceRank {
			return fmt.Errorf("source %s rank %d out of range 1..%d", source, rank, c.DefaultSourceRank)
		}
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("max_retries must be between 0 and 10 (got %d)", c.MaxRetries)
	}
	if c.IngestWorkers <= 0 || c.IngestWorkers > 64 {
		return fmt.Errorf("ingest_workers must be between 1 and 64 (got %d)", c.IngestWorkers)
	}
	if c.WriteRatePerSec < 0 {
		return fmt.Errorf("write_rate_per_sec cannot be negative (got %d)", c.WriteRatePerSec)
	}
	return nil
}

// SourceRank returns the priority rank for a source, DefaultSourceRank
// for sources not in the table.
func (c Config) SourceRank(source types.DataSource) int {
	if rank, ok := c.SourcePriority[source]; ok {
		return rank
	}
	return c.DefaultSourceRank
}

// IsLiveScraper reports whether a source earns the recency bonus.
func (c Config) IsLiveScraper(source types.DataSource) bool {
	for _, s := range c.LiveScraperSources {
		if s == source {
			return true
		}
	}
	return false
}

// LoadConfigFile overlays YAML settings from path onto the defaults.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config in %s: %w", path, err)
	}
	return cfg, nil
}

// ConfigFromEnv overlays BALLOT_DEDUP_* environment variables onto cfg.
// Unset variables leave the existing values untouched.
func ConfigFromEnv(cfg Config) (Config, error) {
	overrides := map[string]*int{
		"BALLOT_DEDUP_SUMMARY_BONUS":     &cfg.SummaryBonus,
		"BALLOT_DEDUP_VOTES_BONUS":       &cfg.VotesBonus,
		"BALLOT_DEDUP_DESCRIPTION_BONUS": &cfg.DescriptionBonus,
		"BALLOT_DEDUP_DOCUMENT_BONUS":    &cfg.DocumentBonus,
		"BALLOT_DEDUP_QUESTION_BONUS":    &cfg.QuestionBonus,
		"BALLOT_DEDUP_LIVE_BONUS":        &cfg.LiveScraperBonus,
		"BALLOT_DEDUP_MAX_RETRIES":       &cfg.MaxRetries,
		"BALLOT_DEDUP_INGEST_WORKERS":    &cfg.IngestWorkers,
		"BALLOT_DEDUP_WRITE_RATE":        &cfg.WriteRatePerSec,
	}
	for name, dest := range overrides {
		raw := os.Getenv(name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return cfg, fmt.Errorf("invalid %s: %w", name, err)
		}
		*dest = v
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
