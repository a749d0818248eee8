package scrape

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/Jasminestrone/MiataMaestro/pkg/models"
)

// SearchQuery is the fixed query term of every search.
const SearchQuery = "Miata"

// ResultSelectors locate the search results container, most specific first.
var ResultSelectors = []string{
	`[role="main"] [role="article"]`,
	`[data-testid="marketplace-search-results"] > div > div`,
	`.x9f619.x1n2onr6.x1ja2u2z > div`,
	`[aria-label*="Collection of Marketplace items"]`,
}

const (
	itemLinkSelector        = `a[href*="/marketplace/item/"]`
	marketplaceLinkSelector = `a[href*="marketplace"]`
	// minPrimaryLinks is the count below which the looser link pattern is tried.
	minPrimaryLinks = 5
)

var (
	itemPath = regexp.MustCompile(`/marketplace/item/\d+`)
	longID   = regexp.MustCompile(`\d{15,}`)
)

// SearchURL builds the marketplace search URL for params. Parameters are
// emitted in a fixed order; year bounds are sent only as a pair.
func SearchURL(baseURL string, params models.SearchParams) string {
	type kv struct{ k, v string }
	q := []kv{
		{"query", SearchQuery},
		{"sortBy", "best_match"},
		{"exact", "false"},
	}
	if params.YearMin > 0 && params.YearMax > 0 {
		q = append(q, kv{"minYear", strconv.Itoa(params.YearMin)}, kv{"maxYear", strconv.Itoa(params.YearMax)})
	}
	if params.MaxMileage > 0 {
		q = append(q, kv{"maxMileage", strconv.Itoa(params.MaxMileage)})
	}
	if params.MaxPrice > 0 {
		q = append(q, kv{"maxPrice", strconv.Itoa(params.MaxPrice)})
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimSuffix(baseURL, "/"))
	sb.WriteString("/marketplace/search?")
	for i, p := range q {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(p.k))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p.v))
	}
	return sb.String()
}

// IsListingURL reports whether u has the listing detail path shape.
func IsListingURL(u string) bool {
	return strings.Contains(u, "/marketplace/item/") && itemPath.MatchString(u)
}

func isLooseListingURL(u string) bool {
	if itemPath.MatchString(u) {
		return true
	}
	return strings.Contains(u, "marketplace") && longID.MatchString(u) && !strings.Contains(u, "search")
}

// urlSet is an insertion-ordered set of URLs.
type urlSet struct {
	seen  map[string]bool
	order []string
}

func newURLSet() *urlSet {
	return &urlSet{seen: make(map[string]bool)}
}

func (s *urlSet) add(u string) {
	if u == "" || s.seen[u] {
		return
	}
	s.seen[u] = true
	s.order = append(s.order, u)
}

func (s *urlSet) len() int { return len(s.order) }

// ValidListingURLs keeps only the URLs with the listing path shape.
func ValidListingURLs(urls []string) []string {
	var out []string
	for _, u := range urls {
		if IsListingURL(u) {
			out = append(out, u)
		}
	}
	return out
}

// Truncate caps urls at limit; a non-positive limit keeps every URL.
func Truncate(urls []string, limit int) []string {
	if limit > 0 && len(urls) > limit {
		return urls[:limit]
	}
	return urls
}
