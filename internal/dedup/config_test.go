package dedup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/openballot/ballotdedup/internal/types"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"negative bonus", func(c *Config) { c.SummaryBonus = -1 }, true},
		{"zero default rank", func(c *Config) { c.DefaultSourceRank = 0 }, true},
		{"rank above default", func(c *Config) { c.SourcePriority[types.SourceSOS] = 11 }, true},
		{"too many workers", func(c *Config) { c.IngestWorkers = 200 }, true},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSourceRank(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.SourceRank(types.SourceSOS); got != 1 {
		t.Errorf("SourceRank(CA_SOS) = %d, want 1", got)
	}
	if got := cfg.SourceRank("SomeNewSource"); got != cfg.DefaultSourceRank {
		t.Errorf("SourceRank(unknown) = %d, want %d", got, cfg.DefaultSourceRank)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dedup.yaml")
	content := []byte(`
summary_bonus: 200
source_priority:
  CA_SOS: 1
  CEDA: 2
`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile failed: %v", err)
	}
	if cfg.SummaryBonus != 200 {
		t.Errorf("SummaryBonus = %d, want 200", cfg.SummaryBonus)
	}
	// Untouched fields keep their defaults.
	if cfg.VotesBonus != DefaultConfig().VotesBonus {
		t.Errorf("VotesBonus = %d, want default %d", cfg.VotesBonus, DefaultConfig().VotesBonus)
	}
	if got := cfg.SourceRank(types.SourceCEDA); got != 2 {
		t.Errorf("SourceRank(CEDA) = %d, want 2", got)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("BALLOT_DEDUP_VOTES_BONUS", "75")
	t.Setenv("BALLOT_DEDUP_INGEST_WORKERS", "8")

	cfg, err := ConfigFromEnv(DefaultConfig())
	if err != nil {
		t.Fatalf("ConfigFromEnv failed: %v", err)
	}
	if cfg.VotesBonus != 75 {
		t.Errorf("VotesBonus = %d, want 75", cfg.VotesBonus)
	}
	if cfg.IngestWorkers != 8 {
		t.Errorf("IngestWorkers = %d, want 8", cfg.IngestWorkers)
	}
}

func TestConfigFromEnvRejectsGarbage(t *testing.T) {
	t.Setenv("BALLOT_DEDUP_MAX_RETRIES", "lots")
	if _, err := ConfigFromEnv(DefaultConfig()); err == nil {
		t.Error("expected error for non-numeric override")
	}
}
