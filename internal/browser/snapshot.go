package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/chromedp"

	"github.com/Jasminestrone/MiataMaestro/internal/extract"
)

// snapshotScript collects, in one round trip, every element text and image
// the extraction engine may ask for. Images report their decoded size.
var snapshotScript = buildSnapshotScript(extract.TextSelectors(), extract.ImageSelectors)

func buildSnapshotScript(textSelectors, imageSelectors []string) string {
	return fmt.Sprintf(`(() => {
	const textSelectors = %s;
	const imageSelectors = %s;
	const texts = {};
	for (const sel of textSelectors) {
		try {
			texts[sel] = Array.from(document.querySelectorAll(sel)).map(el => (el.innerText || el.textContent || '').trim());
		} catch (e) {
			texts[sel] = [];
		}
	}
	const images = {};
	for (const sel of imageSelectors) {
		try {
			images[sel] = Array.from(document.querySelectorAll(sel))
				.filter(el => el.tagName === 'IMG')
				.map(img => ({ src: img.src || '', width: img.naturalWidth || 0, height: img.naturalHeight || 0 }));
		} catch (e) {
			images[sel] = [];
		}
	}
	return {
		url: location.href,
		texts,
		images,
		body: document.body ? document.body.innerText : '',
	};
})()`, jsArray(textSelectors), jsArray(imageSelectors))
}

// Snapshot captures the page surface read by the extraction engine.
func (t *Tab) Snapshot(ctx context.Context) (*extract.Snapshot, error) {
	var snap extract.Snapshot
	if err := t.run(ctx, 0, chromedp.Evaluate(snapshotScript, &snap)); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return &snap, nil
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func jsArray(ss []string) string {
	b, _ := json.Marshal(ss)
	return string(b)
}
