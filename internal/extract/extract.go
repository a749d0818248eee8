// Package extract turns a loaded listing page into candidate attributes.
// Every extractor is best-effort: a missing value is left unset, never
// reported as an error.
package extract

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Jasminestrone/MiataMaestro/pkg/models"
)

// Candidate holds attributes extracted before classification and filtering.
type Candidate struct {
	Title        string
	Description  string
	Price        *int
	Year         *int
	Mileage      *int
	Transmission models.Transmission
	Images       []string
}

// Extract runs every field extractor against the page.
func Extract(p Page) Candidate {
	c := Candidate{Transmission: models.TransmissionUnknown}

	c.Title, _ = titleChain().TryExtract(p)
	description, _ := extractDescription(p)
	c.Images = extractImages(p)

	if v, ok := priceChain().TryExtract(p); ok {
		c.Price = models.IntPtr(v)
	}

	sources := []func(Page) string{constant(c.Title), constant(description), bodyText}
	if v, ok := textChain(yearScanners, sources...).TryExtract(p); ok {
		c.Year = models.IntPtr(v)
	}
	if v, ok := textChain(mileageScanners, sources...).TryExtract(p); ok {
		c.Mileage = models.IntPtr(v)
	}

	c.Transmission = DetectTransmission(strings.Join([]string{c.Title, description, p.BodyText()}, " "))
	c.Description = truncateRunes(description, models.MaxDescriptionLen)
	return c
}

// Listing converts an accepted candidate into a Listing.
func (c Candidate) Listing(id, url string, scrapedAt time.Time) models.Listing {
	return models.Listing{
		ID:           id,
		Title:        c.Title,
		Description:  c.Description,
		Price:        c.Price,
		Year:         c.Year,
		Mileage:      c.Mileage,
		Transmission: c.Transmission,
		Images:       c.Images,
		URL:          url,
		ScrapedAt:    scrapedAt,
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
