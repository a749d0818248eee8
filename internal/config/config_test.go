package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/Jasminestrone/MiataMaestro/internal/llm"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.LLM.Provider != llm.ProviderNone {
		t.Errorf("LLM.Provider = %q, want none", cfg.LLM.Provider)
	}
	if cfg.Scrape.ListingTimeout != 60*time.Second {
		t.Errorf("Scrape.ListingTimeout = %v, want 60s", cfg.Scrape.ListingTimeout)
	}
	if cfg.Search.YearMin != 1989 || cfg.Search.YearMax != 1997 {
		t.Errorf("Search years = %d-%d", cfg.Search.YearMin, cfg.Search.YearMax)
	}
	if err := cfg.Search.Validate(); err != nil {
		t.Errorf("default search params invalid: %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
search:
  year_min: 1990
  max_price: 8000
scrape:
  listing_timeout: 90s
  deterministic_ids: true
llm:
  provider: ollama
  model: llama3.2
storage:
  kind: s3
  s3:
    bucket: artifacts
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(viper.New(), path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Search.YearMin != 1990 || cfg.Search.MaxPrice != 8000 {
		t.Errorf("Search = %+v", cfg.Search)
	}
	if cfg.Search.YearMax != 1997 {
		t.Errorf("unset key lost its default: YearMax = %d", cfg.Search.YearMax)
	}
	if cfg.Scrape.ListingTimeout != 90*time.Second || !cfg.Scrape.DeterministicIDs {
		t.Errorf("Scrape = %+v", cfg.Scrape)
	}
	if cfg.LLM.Provider != llm.ProviderOllama || cfg.LLM.Model != "llama3.2" {
		t.Errorf("LLM = %+v", cfg.LLM)
	}
	if cfg.Storage.Kind != "s3" || cfg.Storage.S3.Bucket != "artifacts" || cfg.Storage.S3.Endpoint != "localhost:9002" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MIATA_SCRAPE_EMAIL", "driver@example.com")
	t.Setenv("MIATA_LLM_PROVIDER", "chat")
	t.Setenv("MIATA_SEARCH_MAX_MILEAGE", "120000")
	t.Setenv("MIATA_PACING_ENABLED", "false")

	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Scrape.Email != "driver@example.com" {
		t.Errorf("Scrape.Email = %q", cfg.Scrape.Email)
	}
	if cfg.LLM.Provider != llm.ProviderChat {
		t.Errorf("LLM.Provider = %q", cfg.LLM.Provider)
	}
	if cfg.Search.MaxMileage != 120000 {
		t.Errorf("Search.MaxMileage = %d", cfg.Search.MaxMileage)
	}
	if cfg.Pacing.Enabled {
		t.Error("Pacing.Enabled should be overridden to false")
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}
