package scrape

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Jasminestrone/MiataMaestro/internal/extract"
	"github.com/Jasminestrone/MiataMaestro/internal/progress"
)

// fakeBrowser scripts a marketplace session in memory.
type fakeBrowser struct {
	mu sync.Mutex

	loginLocation string // location after loading the login page; "" keeps the URL
	afterSubmit   string // location after the login button is clicked
	twoFactor     bool

	results  map[string]int      // results selector → element count
	hrefs    map[string][]string // anchor selector → hrefs
	listings map[string]*extract.Snapshot
	navErr   map[string]error
	onVisit  func(url string)

	typed     map[string]string
	navigated []string
	openTabs  int
	closed    bool
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{
		results:  make(map[string]int),
		hrefs:    make(map[string][]string),
		listings: make(map[string]*extract.Snapshot),
		navErr:   make(map[string]error),
		typed:    make(map[string]string),
	}
}

type fakeLauncher struct {
	browser  *fakeBrowser
	launched int
	err      error
}

func (l *fakeLauncher) Launch(context.Context) (Browser, error) {
	l.launched++
	if l.err != nil {
		return nil, l.err
	}
	return l.browser, nil
}

func (b *fakeBrowser) NewTab(context.Context) (Tab, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.openTabs++
	return &fakeTab{b: b}, nil
}

func (b *fakeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

type fakeTab struct {
	b        *fakeBrowser
	location string
	closed   bool
}

func (t *fakeTab) Navigate(_ context.Context, url string, _ time.Duration) error {
	t.b.mu.Lock()
	t.b.navigated = append(t.b.navigated, url)
	err := t.b.navErr[url]
	onVisit := t.b.onVisit
	_, isListing := t.b.listings[url]
	t.b.mu.Unlock()

	if err != nil {
		return err
	}
	t.location = url
	if strings.HasSuffix(url, "/login") && t.b.loginLocation != "" {
		t.location = t.b.loginLocation
	}
	if IsListingURL(url) {
		if onVisit != nil {
			onVisit(url)
		}
		if !isListing {
			return fmt.Errorf("net::ERR_CONNECTION_RESET at %s", url)
		}
	}
	return nil
}

func (t *fakeTab) Location(context.Context) (string, error) { return t.location, nil }

func (t *fakeTab) WaitVisible(_ context.Context, selector string, _ time.Duration) error {
	switch selector {
	case "body", emailSelector:
		return nil
	}
	if t.b.results[selector] > 0 {
		return nil
	}
	return fmt.Errorf("waiting for %s: %w", selector, context.DeadlineExceeded)
}

func (t *fakeTab) Count(_ context.Context, selector string) (int, error) {
	if selector == twoFactorSelector {
		if t.b.twoFactor {
			return 1, nil
		}
		return 0, nil
	}
	return t.b.results[selector], nil
}

func (t *fakeTab) Click(context.Context, string) error { return nil }

func (t *fakeTab) SendKeys(_ context.Context, selector, text string) error {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	t.b.typed[selector] += text
	return nil
}

func (t *fakeTab) ClickAndWait(context.Context, string, time.Duration) error {
	t.location = t.b.afterSubmit
	return nil
}

func (t *fakeTab) Hrefs(_ context.Context, selector string) ([]string, error) {
	return t.b.hrefs[selector], nil
}

func (t *fakeTab) Screenshot(context.Context) ([]byte, error) { return []byte("png"), nil }

func (t *fakeTab) HTML(context.Context) (string, error) {
	return "<html><head><title>Marketplace</title></head><body><p>No results</p></body></html>", nil
}

func (t *fakeTab) Snapshot(context.Context) (*extract.Snapshot, error) {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	return t.b.listings[t.location], nil
}

func (t *fakeTab) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	t.b.openTabs--
	return nil
}

// recorder captures published progress.
type recorder struct {
	mu     sync.Mutex
	stages []progress.Stage
	detail []string
}

func (r *recorder) Publish(_ string, stage progress.Stage, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
	r.detail = append(r.detail, detail)
}

// memSink keeps artifacts in memory.
type memSink struct {
	mu    sync.Mutex
	items map[string][]byte
}

func (s *memSink) Put(_ context.Context, name string, data []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.items == nil {
		s.items = make(map[string][]byte)
	}
	s.items[name] = data
	return "mem://" + name, nil
}

func listingPage(title, description, body string) *extract.Snapshot {
	return &extract.Snapshot{
		TextMap: map[string][]string{
			extract.TitleSelectors[0]:       {title},
			extract.DescriptionSelectors[0]: {description},
		},
		Body: title + "\n" + description + "\n" + body,
	}
}
