package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Jasminestrone/MiataMaestro/internal/browser"
	"github.com/Jasminestrone/MiataMaestro/internal/config"
	"github.com/Jasminestrone/MiataMaestro/internal/llm"
	"github.com/Jasminestrone/MiataMaestro/internal/maestro"
	"github.com/Jasminestrone/MiataMaestro/internal/pacing"
	"github.com/Jasminestrone/MiataMaestro/internal/progress"
	"github.com/Jasminestrone/MiataMaestro/internal/scrape"
	"github.com/Jasminestrone/MiataMaestro/internal/storage"
	"github.com/Jasminestrone/MiataMaestro/internal/store"
)

// newService assembles the crawl pipeline and session service from cfg.
func newService(ctx context.Context, cfg *config.Config, broker *progress.Broker) (*maestro.Service, error) {
	sink, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact sink: %w", err)
	}

	controller := scrape.New(
		cfg.Scrape,
		browser.New(cfg.Browser),
		pacing.New(cfg.Pacing),
		broker,
		sink,
	)

	var evaluator maestro.Evaluator
	client, err := llm.New(cfg.LLM)
	switch {
	case errors.Is(err, llm.ErrDisabled):
		slog.Info("LLM features disabled")
	case err != nil:
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	default:
		slog.Info("LLM enabled", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)
		evaluator = client
	}

	return maestro.New(cfg.Service, controller, evaluator, store.New(cfg.Store), broker), nil
}
