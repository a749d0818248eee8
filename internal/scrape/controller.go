// Package scrape drives a browsing session from the marketplace search
// page to a set of extracted, classified and filtered listings.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Jasminestrone/MiataMaestro/internal/classify"
	"github.com/Jasminestrone/MiataMaestro/internal/extract"
	"github.com/Jasminestrone/MiataMaestro/internal/filter"
	"github.com/Jasminestrone/MiataMaestro/internal/pacing"
	"github.com/Jasminestrone/MiataMaestro/internal/progress"
	"github.com/Jasminestrone/MiataMaestro/internal/storage"
	"github.com/Jasminestrone/MiataMaestro/pkg/models"
)

// Config holds navigation settings.
type Config struct {
	BaseURL  string `mapstructure:"base_url"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`

	LoginTimeout    time.Duration `mapstructure:"login_timeout"`
	SearchTimeout   time.Duration `mapstructure:"search_timeout"`
	ListingTimeout  time.Duration `mapstructure:"listing_timeout"`
	SelectorTimeout time.Duration `mapstructure:"selector_timeout"` // per results-container candidate
	InputTimeout    time.Duration `mapstructure:"input_timeout"`
	SubmitTimeout   time.Duration `mapstructure:"submit_timeout"`
	BodyTimeout     time.Duration `mapstructure:"body_timeout"`

	// SettleDelay is waited after the listing body appears, before the
	// snapshot is taken.
	SettleDelay time.Duration `mapstructure:"settle_delay"`

	// DeterministicIDs derives listing ids from their URL instead of
	// generating a fresh one per discovery.
	DeterministicIDs bool `mapstructure:"deterministic_ids"`
}

// DefaultBaseURL is the marketplace origin.
const DefaultBaseURL = "https://www.facebook.com"

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	setDefault(&c.LoginTimeout, 60*time.Second)
	setDefault(&c.SearchTimeout, 60*time.Second)
	setDefault(&c.ListingTimeout, 60*time.Second)
	setDefault(&c.SelectorTimeout, 5*time.Second)
	setDefault(&c.InputTimeout, 10*time.Second)
	setDefault(&c.SubmitTimeout, 30*time.Second)
	setDefault(&c.BodyTimeout, 10*time.Second)
}

func setDefault(d *time.Duration, v time.Duration) {
	if *d == 0 {
		*d = v
	}
}

// Result is the outcome of one run.
type Result struct {
	// Listings holds accepted listings in discovery order.
	Listings []models.Listing
	// Stored maps listing id to listing for the same set.
	Stored    map[string]models.Listing
	SearchURL string
	Visited   int
	Skipped   int
	Failed    int
}

func (r *Result) add(l models.Listing) {
	r.Listings = append(r.Listings, l)
	r.Stored[l.ID] = l
}

// Controller runs marketplace crawls.
type Controller struct {
	cfg      Config
	launcher Launcher
	pacer    pacing.Pacer
	progress progress.Publisher
	sink     storage.Sink
	now      func() time.Time
}

// New creates a Controller. Nil pacer, publisher or sink disable the
// corresponding behavior.
func New(cfg Config, launcher Launcher, pacer pacing.Pacer, publisher progress.Publisher, sink storage.Sink) *Controller {
	cfg.applyDefaults()
	if pacer == nil {
		pacer = pacing.None{}
	}
	if publisher == nil {
		publisher = progress.Discard
	}
	if sink == nil {
		sink = storage.Discard{}
	}
	return &Controller{
		cfg:      cfg,
		launcher: launcher,
		pacer:    pacer,
		progress: publisher,
		sink:     sink,
		now:      time.Now,
	}
}

// Run performs one crawl for params and reports progress under session.
// If ctx is cancelled between listings, Run returns the listings accepted
// so far together with the context error.
func (c *Controller) Run(ctx context.Context, params models.SearchParams, session string) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	manifest := storage.Manifest{RunID: runID, Session: session, StartedAt: c.now()}
	result, err := c.run(ctx, params, session, runID)
	if result != nil {
		manifest.Search = result.SearchURL
		manifest.Visited = result.Visited
		manifest.Accepted = len(result.Listings)
		manifest.Skipped = result.Skipped
		manifest.Failed = result.Failed
	}
	if err != nil {
		manifest.Error = err.Error()
	}
	manifest.EndedAt = c.now()
	storage.PutManifest(context.WithoutCancel(ctx), c.sink, manifest)
	return result, err
}

func (c *Controller) run(ctx context.Context, params models.SearchParams, session, runID string) (*Result, error) {
	logger := slog.With("session", session, "run", runID)
	if params.Debug {
		logger.Info("Debug mode: processing only the first listings", "limit", models.DebugLimit)
	}

	c.progress.Publish(session, progress.StageInitializing, "Setting up scraping session...")
	c.progress.Publish(session, progress.StageBrowserStart, "Starting browser...")

	browser, err := c.launcher.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		if err := browser.Close(); err != nil {
			logger.Warn("Failed to close browser", "error", err)
		}
	}()

	tab, err := browser.NewTab(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}
	defer tab.Close()

	c.progress.Publish(session, progress.StageLoggingIn, "Navigating to login...")
	if err := c.login(ctx, session, tab); err != nil {
		return nil, err
	}

	c.progress.Publish(session, progress.StageNavigating, "Building search URL and navigating to Marketplace...")
	if err := c.pacer.Pause(ctx, 100*time.Millisecond, 200*time.Millisecond); err != nil {
		return nil, err
	}
	searchURL := SearchURL(c.cfg.BaseURL, params)
	logger.Info("Searching", "url", searchURL)
	if err := c.navigate(ctx, tab, searchURL, c.cfg.SearchTimeout); err != nil {
		return nil, err
	}
	if err := c.pacer.Pause(ctx, 200*time.Millisecond, 350*time.Millisecond); err != nil {
		return nil, err
	}
	c.progress.Publish(session, progress.StageSearching, "Successfully navigated to search results!")

	result := &Result{Stored: make(map[string]models.Listing), SearchURL: searchURL}

	if err := c.findResults(ctx, tab, searchURL, runID); err != nil {
		return result, err
	}

	c.progress.Publish(session, progress.StageSearching, "Extracting listing URLs from search results...")
	urls, candidates, err := c.collectURLs(ctx, tab)
	if err != nil {
		return result, err
	}
	logger.Info("Validated listing URLs", "valid", len(urls), "candidates", candidates)
	if len(urls) == 0 {
		return result, &NoValidListingsError{SearchURL: searchURL, Candidates: candidates}
	}

	urls = Truncate(urls, params.EffectiveLimit())
	c.progress.Publish(session, progress.StageExtracting,
		fmt.Sprintf("Found %d listings to process. Starting extraction...", len(urls)))

	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			logger.Info("Run cancelled", "processed", i, "accepted", len(result.Listings))
			return result, err
		}
		c.progress.Publish(session, progress.StageExtracting, fmt.Sprintf("Processing listing %d/%d...", i+1, len(urls)))

		result.Visited++
		l, err := c.visit(ctx, browser, u, params)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.Failed++
			logger.Warn("Skipping listing after error", "index", i+1, "error", err)
		case l == nil:
			result.Skipped++
		default:
			logger.Debug("Storing listing", "id", l.ID, "title", l.Title)
			result.add(*l)
		}
	}

	c.progress.Publish(session, progress.StageProcessing, fmt.Sprintf("Processing %d listings...", len(result.Listings)))
	c.progress.Publish(session, progress.StageComplete,
		fmt.Sprintf("Successfully processed %d listings!", len(result.Listings)))
	logger.Info("Run complete", "accepted", len(result.Listings), "skipped", result.Skipped, "failed", result.Failed)
	return result, nil
}

// findResults waits for the first results-container selector that matches.
func (c *Controller) findResults(ctx context.Context, tab Tab, searchURL, runID string) error {
	for _, sel := range ResultSelectors {
		if err := tab.WaitVisible(ctx, sel, c.cfg.SelectorTimeout); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Debug("Results selector not found, trying next", "selector", sel)
			continue
		}
		n, err := tab.Count(ctx, sel)
		if err != nil {
			return fmt.Errorf("failed to count results: %w", err)
		}
		if n > 0 {
			slog.Info("Found results", "selector", sel, "count", n)
			return nil
		}
	}

	artifacts := c.captureDiagnostics(ctx, tab, searchURL, runID)
	return &NoListingsFoundError{SearchURL: searchURL, Artifacts: artifacts}
}

// collectURLs gathers listing links from the results page.
func (c *Controller) collectURLs(ctx context.Context, tab Tab) ([]string, int, error) {
	set := newURLSet()

	primary, err := tab.Hrefs(ctx, itemLinkSelector)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to collect listing links: %w", err)
	}
	for _, u := range primary {
		if itemPath.MatchString(u) {
			set.add(u)
		}
	}

	if set.len() < minPrimaryLinks {
		loose, err := tab.Hrefs(ctx, marketplaceLinkSelector)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to collect marketplace links: %w", err)
		}
		for _, u := range loose {
			if isLooseListingURL(u) {
				set.add(u)
			}
		}
	}

	return ValidListingURLs(set.order), set.len(), nil
}

// visit processes one listing URL in its own tab. A nil listing with a nil
// error means the listing was rejected.
func (c *Controller) visit(ctx context.Context, browser Browser, u string, params models.SearchParams) (*models.Listing, error) {
	snap, err := c.snapshot(ctx, browser, u)
	if err != nil {
		return nil, &PerListingExtractionError{URL: u, Err: err}
	}

	cand := extract.Extract(snap)
	if d := classify.Classify(cand.Title, cand.Description); !d.Accepted {
		slog.Info("Skipping listing", "reason", d.Reason, "title", cand.Title, "url", u)
		return nil, nil
	}

	id := models.NewListingID()
	if c.cfg.DeterministicIDs {
		id = models.ListingIDFromURL(u)
	}
	l := cand.Listing(id, u, c.now())

	if ok, reason := filter.Check(l, params); !ok {
		slog.Info("Skipping listing", "reason", reason, "title", l.Title, "url", u)
		return nil, nil
	}
	return &l, nil
}

func (c *Controller) snapshot(ctx context.Context, browser Browser, u string) (*extract.Snapshot, error) {
	tab, err := browser.NewTab(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}
	defer tab.Close()

	if err := tab.Navigate(ctx, u, c.cfg.ListingTimeout); err != nil {
		return nil, fmt.Errorf("failed to load listing: %w", err)
	}
	if err := c.pacer.Pause(ctx, 100*time.Millisecond, 200*time.Millisecond); err != nil {
		return nil, err
	}
	if err := tab.WaitVisible(ctx, "body", c.cfg.BodyTimeout); err != nil {
		return nil, fmt.Errorf("failed waiting for body: %w", err)
	}
	if c.cfg.SettleDelay > 0 {
		if err := c.pacer.Pause(ctx, c.cfg.SettleDelay, c.cfg.SettleDelay); err != nil {
			return nil, err
		}
	}

	snap, err := tab.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot listing: %w", err)
	}
	if snap == nil {
		return nil, errors.New("empty snapshot")
	}
	return snap, nil
}
