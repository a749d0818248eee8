package scrape

import (
	"context"
	"log/slog"

	"github.com/Jasminestrone/MiataMaestro/internal/markdown"
)

// captureDiagnostics saves a screenshot and a Markdown dump of the current
// page. Failures are logged and skipped.
func (c *Controller) captureDiagnostics(ctx context.Context, tab Tab, pageURL, runID string) []string {
	ctx = context.WithoutCancel(ctx)
	var locations []string

	if shot, err := tab.Screenshot(ctx); err != nil {
		slog.Warn("Failed to capture screenshot", "error", err)
	} else if loc, err := c.sink.Put(ctx, "runs/"+runID+"/debug-marketplace.png", shot, "image/png"); err != nil {
		slog.Warn("Failed to store screenshot", "error", err)
	} else if loc != "" {
		locations = append(locations, loc)
	}

	raw, err := tab.HTML(ctx)
	if err != nil {
		slog.Warn("Failed to read page HTML", "error", err)
		return locations
	}
	dump, err := markdown.Dump(pageURL, raw)
	if err != nil {
		slog.Warn("Failed to convert page", "error", err)
		return locations
	}
	if loc, err := c.sink.Put(ctx, "runs/"+runID+"/debug-marketplace.md", []byte(dump), "text/markdown"); err != nil {
		slog.Warn("Failed to store page dump", "error", err)
	} else if loc != "" {
		locations = append(locations, loc)
	}

	if len(locations) > 0 {
		slog.Info("Saved diagnostics", "artifacts", locations)
	}
	return locations
}
