// Package browser implements the scrape browsing surface on headless Chrome.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/Jasminestrone/MiataMaestro/internal/scrape"
)

// DefaultUserAgent mimics a desktop Chrome.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config holds Chrome launch settings.
type Config struct {
	Headless     bool   `mapstructure:"headless"`
	ExecPath     string `mapstructure:"exec_path"` // empty finds Chrome on PATH
	UserAgent    string `mapstructure:"user_agent"`
	WindowWidth  int    `mapstructure:"window_width"`
	WindowHeight int    `mapstructure:"window_height"`
	NoSandbox    bool   `mapstructure:"no_sandbox"`
}

// stealthScript hides the most common automation fingerprints.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
delete navigator.__proto__.webdriver;
window.chrome = { runtime: {} };
`

// Launcher starts Chrome processes.
type Launcher struct {
	config Config
}

// New creates a Launcher.
func New(config Config) *Launcher {
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.WindowWidth == 0 || config.WindowHeight == 0 {
		config.WindowWidth, config.WindowHeight = 1366, 768
	}
	return &Launcher{config: config}
}

// Launch starts a Chrome process. The process lives until Close, even if
// ctx is cancelled earlier.
func (l *Launcher) Launch(ctx context.Context) (scrape.Browser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.config.Headless),
		chromedp.Flag("no-sandbox", l.config.NoSandbox),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(l.config.UserAgent),
		chromedp.WindowSize(l.config.WindowWidth, l.config.WindowHeight),
	)
	if l.config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.config.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			slog.Debug(fmt.Sprintf(format, args...), "component", "chromedp")
		}),
	)

	// Run with no actions starts the process.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}
	slog.Debug("Chrome started", "headless", l.config.Headless)

	return &Browser{
		ctx:           browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
		config:        l.config,
	}, nil
}

// Browser is a running Chrome process.
type Browser struct {
	ctx           context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
	config        Config
}

// NewTab opens an isolated tab with the stealth script installed.
func (b *Browser) NewTab(ctx context.Context) (scrape.Tab, error) {
	tabCtx, cancel := chromedp.NewContext(b.ctx)
	t := &Tab{ctx: tabCtx, cancel: cancel}

	if err := ctx.Err(); err != nil {
		cancel()
		return nil, err
	}
	// The first Run allocates the tab, so it must use the tab context itself:
	// cancelling a derived context here would close the tab.
	err := chromedp.Run(tabCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}),
		chromedp.EmulateViewport(int64(b.config.WindowWidth), int64(b.config.WindowHeight)),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to prepare tab: %w", err)
	}
	return t, nil
}

// Close shuts Chrome down.
func (b *Browser) Close() error {
	err := chromedp.Cancel(b.ctx)
	b.cancelBrowser()
	b.cancelAlloc()
	if err != nil {
		return fmt.Errorf("failed to close chrome: %w", err)
	}
	return nil
}

// Tab is one Chrome tab.
type Tab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// scope derives a context for one chromedp call from the tab. It ends when
// the caller's ctx ends or after timeout, if positive.
func (t *Tab) scope(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(t.ctx)
	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, timeout)
		parent := cancel
		cancel = func() {
			cancelTimeout()
			parent()
		}
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (t *Tab) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, done := t.scope(ctx, timeout)
	defer done()
	return chromedp.Run(runCtx, actions...)
}

func (t *Tab) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := t.run(ctx, timeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (t *Tab) Location(ctx context.Context) (string, error) {
	var loc string
	if err := t.run(ctx, 0, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return loc, nil
}

func (t *Tab) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if err := t.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait for %s: %w", selector, err)
	}
	return nil
}

func (t *Tab) Count(ctx context.Context, selector string) (int, error) {
	var n int
	js := fmt.Sprintf(`document.querySelectorAll(%s).length`, jsString(selector))
	if err := t.run(ctx, 0, chromedp.Evaluate(js, &n)); err != nil {
		return 0, fmt.Errorf("count %s: %w", selector, err)
	}
	return n, nil
}

func (t *Tab) Click(ctx context.Context, selector string) error {
	if err := t.run(ctx, 0, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

func (t *Tab) SendKeys(ctx context.Context, selector, text string) error {
	if err := t.run(ctx, 0, chromedp.SendKeys(selector, text, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("type into %s: %w", selector, err)
	}
	return nil
}

// ClickAndWait clicks selector, then waits until the location changes and
// the new document has a body.
func (t *Tab) ClickAndWait(ctx context.Context, selector string, timeout time.Duration) error {
	var before string
	if err := t.run(ctx, 0, chromedp.Location(&before)); err != nil {
		return fmt.Errorf("read location: %w", err)
	}

	err := t.run(ctx, timeout,
		chromedp.Click(selector, chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			ticker := time.NewTicker(250 * time.Millisecond)
			defer ticker.Stop()
			for {
				var loc string
				if err := chromedp.Location(&loc).Do(ctx); err == nil && loc != before {
					return nil
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
				}
			}
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("submit %s: %w", selector, err)
	}
	return nil
}

func (t *Tab) Hrefs(ctx context.Context, selector string) ([]string, error) {
	var hrefs []string
	js := fmt.Sprintf(`Array.from(document.querySelectorAll(%s)).map(a => a.href).filter(Boolean)`, jsString(selector))
	if err := t.run(ctx, 0, chromedp.Evaluate(js, &hrefs)); err != nil {
		return nil, fmt.Errorf("collect hrefs %s: %w", selector, err)
	}
	return hrefs, nil
}

func (t *Tab) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	// Quality 100 encodes as PNG.
	if err := t.run(ctx, 0, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return buf, nil
}

func (t *Tab) HTML(ctx context.Context) (string, error) {
	var html string
	if err := t.run(ctx, 0, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read html: %w", err)
	}
	return html, nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	t.cancel()
	return nil
}
