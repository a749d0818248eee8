package scrape

import (
	"context"
	"time"

	"github.com/Jasminestrone/MiataMaestro/internal/extract"
)

// Launcher starts a browsing session.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// Browser is a running browsing session. Close releases every tab and the
// underlying process.
type Browser interface {
	NewTab(ctx context.Context) (Tab, error)
	Close() error
}

// Tab is one isolated page context. Methods returning an error wrap
// context.DeadlineExceeded when the timeout is hit.
type Tab interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	Location(ctx context.Context) (string, error)
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Count(ctx context.Context, selector string) (int, error)
	Click(ctx context.Context, selector string) error
	// SendKeys types text into the element matching selector.
	SendKeys(ctx context.Context, selector, text string) error
	// ClickAndWait clicks selector and waits for the resulting navigation.
	ClickAndWait(ctx context.Context, selector string, timeout time.Duration) error
	// Hrefs returns the absolute href of every anchor matching selector.
	Hrefs(ctx context.Context, selector string) ([]string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	HTML(ctx context.Context) (string, error)
	// Snapshot captures the element texts and images the extraction
	// engine reads, plus the page's visible text.
	Snapshot(ctx context.Context) (*extract.Snapshot, error)
	Close() error
}
