// Package maestro ties crawls, the session listing store and the LLM
// collaborator together behind session-scoped operations.
package maestro

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Jasminestrone/MiataMaestro/internal/llm"
	"github.com/Jasminestrone/MiataMaestro/internal/progress"
	"github.com/Jasminestrone/MiataMaestro/internal/scrape"
	"github.com/Jasminestrone/MiataMaestro/internal/store"
	"github.com/Jasminestrone/MiataMaestro/pkg/models"
)

// ScrapeMoreLimit is how many listings a follow-up crawl visits.
const ScrapeMoreLimit = 10

var (
	// ErrNoPreviousSearch is returned by ScrapeMore before any Scrape.
	ErrNoPreviousSearch = errors.New("no previous search parameters found")
	// ErrNoListings is returned when the session holds no listings.
	ErrNoListings = errors.New("no stored listings found in session")
)

// Runner performs one crawl.
type Runner interface {
	Run(ctx context.Context, params models.SearchParams, session string) (*scrape.Result, error)
}

// Evaluator is the LLM surface used by the service.
type Evaluator interface {
	Evaluate(ctx context.Context, listing models.Listing) (*llm.Evaluation, error)
	LowballMessage(ctx context.Context, listing models.Listing) (string, error)
}

// Config holds service configuration.
type Config struct {
	// Concurrency bounds parallel evaluations in AnalyzeAll.
	Concurrency int `mapstructure:"concurrency"`
}

// Service runs session-scoped operations.
type Service struct {
	runner    Runner
	evaluator Evaluator
	store     *store.Store
	progress  *progress.Broker
	cfg       Config

	mu       sync.Mutex
	searches map[string]models.SearchParams
}

// New creates a Service. A nil evaluator disables LLM operations. The
// broker, when set, is the one the runner publishes to; Reset clears the
// session's catch-up event there.
func New(cfg Config, runner Runner, evaluator Evaluator, st *store.Store, broker *progress.Broker) *Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Service{
		runner:    runner,
		evaluator: evaluator,
		store:     st,
		progress:  broker,
		cfg:       cfg,
		searches:  make(map[string]models.SearchParams),
	}
}

// ScrapeResult is the outcome of Scrape.
type ScrapeResult struct {
	Listings  []models.Listing `json:"results"`
	SearchURL string           `json:"search_url,omitempty"`
	Skipped   int              `json:"skipped"`
	Failed    int              `json:"failed"`
}

// MoreResult is the outcome of ScrapeMore.
type MoreResult struct {
	Listings   []models.Listing `json:"results"`
	NewCount   int              `json:"new_count"`
	TotalCount int              `json:"total_count"`
}

// Scrape runs a crawl and replaces the session's listings with its result.
// A crawl interrupted between listings still stores what it accepted.
func (s *Service) Scrape(ctx context.Context, session string, params models.SearchParams) (*ScrapeResult, error) {
	res, err := s.runner.Run(ctx, params, session)
	if err != nil && !interrupted(ctx, res, err) {
		return nil, fmt.Errorf("scrape failed: %w", err)
	}

	s.store.Replace(session, res.Stored)
	s.mu.Lock()
	s.searches[session] = params
	s.mu.Unlock()

	slog.Info("Scrape finished", "session", session, "listings", len(res.Listings), "skipped", res.Skipped, "failed", res.Failed)
	out := &ScrapeResult{
		Listings:  res.Listings,
		SearchURL: res.SearchURL,
		Skipped:   res.Skipped,
		Failed:    res.Failed,
	}
	if err != nil {
		return out, fmt.Errorf("scrape interrupted: %w", err)
	}
	return out, nil
}

// ScrapeMore repeats the session's last search with a small limit and
// merges the result. Only listings that were not already stored are
// returned.
func (s *Service) ScrapeMore(ctx context.Context, session string) (*MoreResult, error) {
	s.mu.Lock()
	params, ok := s.searches[session]
	s.mu.Unlock()
	if !ok {
		return nil, ErrNoPreviousSearch
	}
	params.Limit = ScrapeMoreLimit
	params.Debug = false

	res, err := s.runner.Run(ctx, params, session)
	if err != nil && !interrupted(ctx, res, err) {
		return nil, fmt.Errorf("failed to scrape additional listings: %w", err)
	}

	merged := s.store.Merge(session, res.Stored)
	slog.Info("Merged results", "session", session, "new", merged.NewCount, "total", merged.TotalCount)

	// Keep discovery order for the new subset.
	inserted := make(map[string]bool, len(merged.Inserted))
	for _, l := range merged.Inserted {
		inserted[l.ID] = true
	}
	out := &MoreResult{NewCount: merged.NewCount, TotalCount: merged.TotalCount}
	for _, l := range res.Listings {
		if inserted[l.ID] {
			out.Listings = append(out.Listings, l)
		}
	}
	if err != nil {
		return out, fmt.Errorf("scrape interrupted: %w", err)
	}
	return out, nil
}

// interrupted reports whether err is the caller's cancellation arriving
// after the crawl already produced a partial result.
func interrupted(ctx context.Context, res *scrape.Result, err error) bool {
	return res != nil && ctx.Err() != nil && errors.Is(err, ctx.Err())
}

// Listings returns the session's stored listings.
func (s *Service) Listings(session string) []models.Listing {
	return s.store.List(session)
}

// Evaluate runs an LLM evaluation of one stored listing and attaches the
// parsed lowball price when present.
func (s *Service) Evaluate(ctx context.Context, session, id string) (*llm.Evaluation, error) {
	if s.evaluator == nil {
		return nil, llm.ErrDisabled
	}
	listing, err := s.store.Get(session, id)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", id, err)
	}
	return s.evaluate(ctx, session, listing)
}

func (s *Service) evaluate(ctx context.Context, session string, listing models.Listing) (*llm.Evaluation, error) {
	eval, err := s.evaluator.Evaluate(ctx, listing)
	if err != nil {
		return nil, err
	}
	if eval.LowballPrice != nil {
		if err := s.store.SetLowball(session, listing.ID, *eval.LowballPrice); err != nil {
			slog.Warn("Listing vanished before lowball could be stored", "id", listing.ID, "error", err)
		}
	}
	return eval, nil
}

// AnalysisResult is one entry of AnalyzeAll.
type AnalysisResult struct {
	Evaluation *llm.Evaluation `json:"evaluation,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// Analysis is the outcome of AnalyzeAll.
type Analysis struct {
	Results   map[string]AnalysisResult `json:"results"`
	Processed int                       `json:"processed"`
	Total     int                       `json:"total"`
}

// AnalyzeAll evaluates every stored listing concurrently and waits for all
// of them. A failed evaluation is recorded against its listing and does
// not stop the others.
func (s *Service) AnalyzeAll(ctx context.Context, session string) (*Analysis, error) {
	if s.evaluator == nil {
		return nil, llm.ErrDisabled
	}
	listings := s.store.List(session)
	if len(listings) == 0 {
		return nil, ErrNoListings
	}

	analysis := &Analysis{
		Results: make(map[string]AnalysisResult, len(listings)),
		Total:   len(listings),
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, l := range listings {
		g.Go(func() error {
			var r AnalysisResult
			eval, err := s.evaluate(gctx, session, l)
			if err != nil {
				slog.Error("Error evaluating listing", "id", l.ID, "error", err)
				r.Error = err.Error()
			} else {
				r.Evaluation = eval
			}

			mu.Lock()
			analysis.Results[l.ID] = r
			analysis.Processed++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return analysis, nil
}

// LowballMessage drafts an offer message for a stored listing.
func (s *Service) LowballMessage(ctx context.Context, session, id string) (string, error) {
	if s.evaluator == nil {
		return "", llm.ErrDisabled
	}
	listing, err := s.store.Get(session, id)
	if err != nil {
		return "", fmt.Errorf("listing %s: %w", id, err)
	}
	return s.evaluator.LowballMessage(ctx, listing)
}

// Reset forgets the session's listings, last search and latest progress
// event.
func (s *Service) Reset(session string) {
	s.store.Clear(session)
	if s.progress != nil {
		s.progress.Forget(session)
	}
	s.mu.Lock()
	delete(s.searches, session)
	s.mu.Unlock()
}
