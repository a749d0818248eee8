package extract

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Jasminestrone/MiataMaestro/internal/classify"
	"github.com/Jasminestrone/MiataMaestro/pkg/models"
)

const (
	minTitleText       = 4
	minDescriptionText = 21
	preferredDescLen   = 51
	minImageDimension  = 101
)

// titleChain prefers the first vehicle-related heading across all
// selectors, then falls back to the first non-empty one.
func titleChain() Chain[string] {
	var chain Chain[string]
	for _, sel := range TitleSelectors {
		chain = append(chain, selectorText(sel, classify.IsVehicleRelated))
	}
	for _, sel := range TitleSelectors {
		chain = append(chain, selectorText(sel, func(string) bool { return true }))
	}
	return chain
}

func selectorText(selector string, accept func(string) bool) Strategy[string] {
	return StrategyFunc[string](func(p Page) (string, bool) {
		for _, text := range p.Texts(selector) {
			if utf8.RuneCountInString(text) >= minTitleText && accept(text) {
				return text, true
			}
		}
		return "", false
	})
}

// extractDescription keeps the longest block of text, replacing an earlier
// pick only when the newcomer is long enough to be a real description.
func extractDescription(p Page) (string, bool) {
	var best string
	for _, sel := range DescriptionSelectors {
		for _, text := range p.Texts(sel) {
			n := utf8.RuneCountInString(text)
			if n < minDescriptionText {
				continue
			}
			if best == "" || (n > utf8.RuneCountInString(best) && n >= preferredDescLen) {
				best = text
			}
		}
	}
	return best, best != ""
}

func extractImages(p Page) []string {
	var images []string
	for _, sel := range ImageSelectors {
		for _, img := range p.Images(sel) {
			if !strings.HasPrefix(img.Src, "http://") && !strings.HasPrefix(img.Src, "https://") {
				continue
			}
			if img.Width < minImageDimension || img.Height < minImageDimension {
				continue
			}
			if slices.Contains(images, img.Src) {
				continue
			}
			images = append(images, img.Src)
			if len(images) == models.MaxImages {
				return images
			}
		}
	}
	return images
}

// numberScanner pulls the first in-range number captured by pattern.
type numberScanner struct {
	pattern *regexp.Regexp
	// exclude, when set, vetoes a match if the text right after it matches.
	exclude *regexp.Regexp
	convert func(int) (int, bool)
	accept  func(int) bool
}

func (s numberScanner) scan(text string) (int, bool) {
	for _, m := range s.pattern.FindAllStringSubmatchIndex(text, -1) {
		if s.exclude != nil && s.exclude.MatchString(text[m[1]:]) {
			continue
		}
		digits := strings.ReplaceAll(text[m[2]:m[3]], ",", "")
		n, err := strconv.Atoi(digits)
		if err != nil {
			continue
		}
		if m[3] < len(text) && (text[m[3]] == 'k' || text[m[3]] == 'K') {
			n *= 1000
		}
		if s.convert != nil {
			var ok bool
			if n, ok = s.convert(n); !ok {
				continue
			}
		}
		if s.accept(n) {
			return n, true
		}
	}
	return 0, false
}

func inRange(lo, hi int) func(int) bool {
	return func(n int) bool { return n >= lo && n <= hi }
}

var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$([0-9][0-9,]*)(?:\.[0-9]{2})?`),
	regexp.MustCompile(`(?i)Price[:\s]*\$?([0-9][0-9,]*)`),
	regexp.MustCompile(`(?i)Asking[:\s]*\$?([0-9][0-9,]*)`),
}

func priceChain() Chain[int] {
	var chain Chain[int]
	for _, re := range pricePatterns {
		sc := numberScanner{pattern: re, accept: inRange(models.MinPrice, models.MaxPrice)}
		chain = append(chain, StrategyFunc[int](func(p Page) (int, bool) {
			return sc.scan(p.BodyText())
		}))
	}
	return chain
}

var (
	fullYear  = regexp.MustCompile(`\b(19[89][0-9]|20[0-2][0-9])\b`)
	shortYear = regexp.MustCompile(`['’]([0-9]{2})\b`)
)

// expandShortYear maps '89-'99 to the 1900s and '00-'25 to the 2000s.
func expandShortYear(n int) (int, bool) {
	switch {
	case n >= 89:
		return 1900 + n, true
	case n <= 25:
		return 2000 + n, true
	}
	return 0, false
}

var yearScanners = []numberScanner{
	{pattern: fullYear, accept: inRange(models.MinYear, models.MaxYear)},
	{pattern: shortYear, convert: expandShortYear, accept: inRange(models.MinYear, models.MaxYear)},
}

// distanceContext marks "N miles" phrases that describe distance, not odometer.
var distanceContext = regexp.MustCompile(`(?i)^\s*(?:away|from|radius|drive|distance|per|mpg|to)\b`)

var mileageScanners = []numberScanner{
	// A bare "miles" label needs a colon so "45,000 miles 1995" is not read as 1995.
	{pattern: regexp.MustCompile(`(?i)(?:(?:mileage|odometer)[:\s]*|miles\s*:\s*)([0-9][0-9,]*)(?:\s*(?:miles?|mi)\b)?`)},
	{pattern: regexp.MustCompile(`(?i)(?:driven|has)[:\s]*([0-9][0-9,]*)\s*(?:miles?|mi)\b`)},
	{pattern: regexp.MustCompile(`(?i)([0-9][0-9,]*)\s*(?:miles?|mi)\b`), exclude: distanceContext},
	{pattern: regexp.MustCompile(`(?i)([0-9][0-9,]*)k\s*(?:miles?|mi)\b`)},
}

func init() {
	for i := range mileageScanners {
		mileageScanners[i].accept = inRange(models.MinMileage, models.MaxMileage)
	}
}

// textChain scans texts in priority order, running every scanner over a
// text before moving to the next one.
func textChain(scanners []numberScanner, texts ...func(Page) string) Chain[int] {
	var chain Chain[int]
	for _, text := range texts {
		for _, sc := range scanners {
			chain = append(chain, StrategyFunc[int](func(p Page) (int, bool) {
				t := text(p)
				if t == "" {
					return 0, false
				}
				return sc.scan(t)
			}))
		}
	}
	return chain
}

func constant(s string) func(Page) string {
	return func(Page) string { return s }
}

func bodyText(p Page) string { return p.BodyText() }

type keyword struct {
	phrase string
	weight int
	side   models.Transmission
}

// transmissionKeywords is sorted longest phrase first so that a phrase
// such as "manual transmission" is consumed before "manual".
var transmissionKeywords = func() []keyword {
	kws := []keyword{
		{"automatic", 3, models.TransmissionAutomatic},
		{"auto", 1, models.TransmissionAutomatic},
		{"a/t", 1, models.TransmissionAutomatic},
		{"torque converter", 1, models.TransmissionAutomatic},
		{"slushbox", 1, models.TransmissionAutomatic},
		{"tiptronic", 1, models.TransmissionAutomatic},
		{"cvt", 1, models.TransmissionAutomatic},
		{"continuously variable", 1, models.TransmissionAutomatic},

		{"manual", 3, models.TransmissionManual},
		{"stick", 1, models.TransmissionManual},
		{"m/t", 1, models.TransmissionManual},
		{"5 speed", 1, models.TransmissionManual},
		{"6 speed", 1, models.TransmissionManual},
		{"5-speed", 1, models.TransmissionManual},
		{"6-speed", 1, models.TransmissionManual},
		{"clutch", 1, models.TransmissionManual},
		{"stick shift", 1, models.TransmissionManual},
		{"manual transmission", 1, models.TransmissionManual},
		{"standard", 1, models.TransmissionManual},
		{"row your own", 1, models.TransmissionManual},
	}
	slices.SortStableFunc(kws, func(a, b keyword) int { return len(b.phrase) - len(a.phrase) })
	return kws
}()

// DetectTransmission scores text against automatic and manual keyword
// sets. Each keyword counts once; ties are Unknown.
func DetectTransmission(text string) models.Transmission {
	buf := []byte(strings.ToLower(text))
	var auto, manual int
	for _, kw := range transmissionKeywords {
		if !consumeWord(buf, kw.phrase) {
			continue
		}
		if kw.side == models.TransmissionAutomatic {
			auto += kw.weight
		} else {
			manual += kw.weight
		}
	}
	switch {
	case manual > auto:
		return models.TransmissionManual
	case auto > manual:
		return models.TransmissionAutomatic
	}
	return models.TransmissionUnknown
}

// consumeWord blanks every word-bounded occurrence of phrase in buf and
// reports whether there was one.
func consumeWord(buf []byte, phrase string) bool {
	found := false
	s := string(buf)
	offset := 0
	for {
		idx := strings.Index(s[offset:], phrase)
		if idx < 0 {
			return found
		}
		start := offset + idx
		end := start + len(phrase)
		if (start == 0 || !isWordByte(s[start-1])) && (end == len(s) || !isWordByte(s[end])) {
			found = true
			for i := start; i < end; i++ {
				buf[i] = ' '
			}
		}
		offset = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b >= 'A' && b <= 'Z'
}
