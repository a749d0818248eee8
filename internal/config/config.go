// Package config loads MiataMaestro configuration from defaults, an
// optional YAML file and MIATA_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Jasminestrone/MiataMaestro/internal/browser"
	"github.com/Jasminestrone/MiataMaestro/internal/fetch"
	"github.com/Jasminestrone/MiataMaestro/internal/llm"
	"github.com/Jasminestrone/MiataMaestro/internal/maestro"
	"github.com/Jasminestrone/MiataMaestro/internal/mcp"
	"github.com/Jasminestrone/MiataMaestro/internal/pacing"
	"github.com/Jasminestrone/MiataMaestro/internal/scrape"
	"github.com/Jasminestrone/MiataMaestro/internal/storage"
	"github.com/Jasminestrone/MiataMaestro/internal/store"
	"github.com/Jasminestrone/MiataMaestro/pkg/models"
)

// EnvPrefix prefixes every environment override, e.g. MIATA_LLM_MODEL.
const EnvPrefix = "MIATA"

// Config holds all application configuration.
type Config struct {
	Search  models.SearchParams `mapstructure:"search"`
	Scrape  scrape.Config       `mapstructure:"scrape"`
	Browser browser.Config      `mapstructure:"browser"`
	Pacing  pacing.Config       `mapstructure:"pacing"`
	Store   store.Config        `mapstructure:"store"`
	Storage storage.Config      `mapstructure:"storage"`
	LLM     llm.Config          `mapstructure:"llm"`
	Fetch   fetch.Config        `mapstructure:"fetch"`
	Service maestro.Config      `mapstructure:"service"`
	MCP     mcp.Config          `mapstructure:"mcp"`
	Serve   Serve               `mapstructure:"serve"`
	Log     Log                 `mapstructure:"log"`
}

// Serve holds settings of the long-running server.
type Serve struct {
	// ProgressAddr, when set, exposes the SSE progress stream over HTTP.
	ProgressAddr string `mapstructure:"progress_addr"`
}

// Log holds logger settings.
type Log struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text, json, tint
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Search: models.SearchParams{
			YearMin:    1989,
			YearMax:    1997,
			MaxMileage: 200000,
			Limit:      20,
		},
		Scrape: scrape.Config{
			BaseURL:         scrape.DefaultBaseURL,
			LoginTimeout:    60 * time.Second,
			SearchTimeout:   60 * time.Second,
			ListingTimeout:  60 * time.Second,
			SelectorTimeout: 5 * time.Second,
			InputTimeout:    10 * time.Second,
			SubmitTimeout:   30 * time.Second,
			BodyTimeout:     10 * time.Second,
			SettleDelay:     500 * time.Millisecond,
		},
		Browser: browser.Config{
			Headless:     true,
			UserAgent:    browser.DefaultUserAgent,
			WindowWidth:  1366,
			WindowHeight: 768,
		},
		Pacing: pacing.Config{
			Enabled: true,
			Scale:   1,
		},
		Storage: storage.Config{
			Kind: "local",
			Dir:  "debug",
			S3: storage.S3Config{
				Endpoint:        "localhost:9002",
				Bucket:          "miata-maestro",
				AccessKeyID:     "minioadmin",
				SecretAccessKey: "minioadmin",
			},
		},
		LLM: llm.Config{
			Provider:   llm.ProviderNone, // requires a local model server
			BaseURL:    "http://localhost:11434",
			Model:      "llama3.1:8b",
			Timeout:    45 * time.Second,
			Attempts:   3,
			RetryDelay: time.Second,
		},
		Fetch: fetch.Config{
			UserAgent: "MiataMaestro/1.0",
			Timeout:   30 * time.Second,
		},
		Service: maestro.Config{
			Concurrency: 4,
		},
		MCP: mcp.Config{
			Name:    "miata-maestro",
			Version: "1.0.0",
		},
		Log: Log{
			Level:  "warn",
			Format: "text",
		},
	}
}

// envKeys lists the keys bound to environment variables. Unmarshal only
// sees env values for keys viper already knows about.
var envKeys = []string{
	"search.zip", "search.radius", "search.year_min", "search.year_max",
	"search.max_mileage", "search.max_price", "search.limit", "search.debug",
	"scrape.base_url", "scrape.email", "scrape.password",
	"scrape.listing_timeout", "scrape.search_timeout", "scrape.deterministic_ids",
	"browser.headless", "browser.exec_path", "browser.no_sandbox",
	"pacing.enabled", "pacing.scale",
	"store.dedup_by_url",
	"storage.kind", "storage.dir",
	"storage.s3.endpoint", "storage.s3.bucket", "storage.s3.access_key_id",
	"storage.s3.secret_access_key", "storage.s3.use_ssl", "storage.s3.prefix",
	"llm.provider", "llm.base_url", "llm.socket_path", "llm.model", "llm.timeout",
	"fetch.user_agent",
	"service.concurrency",
	"serve.progress_addr",
	"log.level", "log.format",
}

// Load reads configuration into a copy of Defaults. An empty file searches
// ./config, /etc/miata-maestro and the working directory for config.yaml;
// a missing file is not an error.
func Load(v *viper.Viper, file string) (Config, error) {
	cfg := Defaults()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/miata-maestro")
		v.AddConfigPath(".")
	}

	// MIATA_SCRAPE_EMAIL -> scrape.email
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return cfg, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
