// Package fetch retrieves single listing pages over plain HTTP, for
// extraction without a browser.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/Jasminestrone/MiataMaestro/internal/extract"
)

// Config holds fetcher configuration.
type Config struct {
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// Page is a fetched document.
type Page struct {
	URL         string
	HTML        []byte
	ContentType string
	StatusCode  int
	FetchedAt   time.Time
}

// Parse turns the document into an extraction surface.
func (p *Page) Parse() (*extract.HTMLPage, error) {
	return extract.NewHTMLPage(p.HTML)
}

// Fetcher downloads pages with colly.
type Fetcher struct {
	config Config
}

// New creates a new Fetcher with the given configuration.
func New(config Config) *Fetcher {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "MiataMaestro/1.0"
	}
	return &Fetcher{config: config}
}

// Fetch downloads pageURL without following links.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var page *Page
	var fetchErr error

	c := colly.NewCollector(
		colly.MaxDepth(1),
		colly.UserAgent(f.config.UserAgent),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(f.config.Timeout)

	c.OnResponse(func(r *colly.Response) {
		slog.Debug("fetched page", "url", r.Request.URL.String(), "status", r.StatusCode, "size", len(r.Body))
		page = &Page{
			URL:         r.Request.URL.String(),
			HTML:        r.Body,
			ContentType: r.Headers.Get("Content-Type"),
			StatusCode:  r.StatusCode,
			FetchedAt:   time.Now(),
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			fetchErr = fmt.Errorf("unexpected status %d: %w", r.StatusCode, err)
			return
		}
		fetchErr = err
	})

	if err := c.Visit(pageURL); err != nil && fetchErr == nil {
		fetchErr = err
	}
	c.Wait()

	if fetchErr != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, fetchErr)
	}
	if page == nil {
		return nil, fmt.Errorf("failed to fetch %s: no response", pageURL)
	}
	return page, nil
}
