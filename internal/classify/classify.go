// Package classify decides whether extracted listing text describes a
// complete Miata for sale.
package classify

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Jasminestrone/MiataMaestro/pkg/models"
)

// Reason explains why a candidate was rejected.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonNotVehicleRelated Reason = "not vehicle related"
	ReasonPartsOnly         Reason = "parts only"
	ReasonInvalidTitle      Reason = "missing or too short title"
	ReasonNotModel          Reason = "not a Miata"
)

// Decision is the outcome of classifying one candidate listing.
type Decision struct {
	Accepted bool
	Reason   Reason
}

var modelKeywords = []string{"miata", "mx-5", "mx5"}

var partsIndicators = []string{
	"part out", "parting out", "parts only", "for parts",
	"parting", "just parts", "parts car",
}

var carIndicators = []string{
	"runs", "drives", "running", "driving", "starts",
	"title", "registered", "insured", "daily driver",
	"project car", "convertible", "complete car",
	"whole car", "entire car", "full car",
	"miles", "mileage", "manual", "automatic",
	"engine runs", "motor runs", "street legal",
}

// negation matches a negating word immediately before an indicator,
// as in "no title" or "without a motor".
var negation = regexp.MustCompile(`\b(?:no|without|missing|lost|needs)\s+(?:a\s+|the\s+|clean\s+)?$`)

// IsVehicleRelated reports whether text mentions the target vehicle family.
func IsVehicleRelated(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range modelKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	if strings.Contains(lower, "roadster") {
		return true
	}
	return strings.Contains(lower, "mazda") &&
		(strings.Contains(lower, "convertible") || strings.Contains(lower, "roadster"))
}

// IsPartsOnly reports whether the listing sells components rather than a
// whole car. A listing with neither title nor description counts as parts.
func IsPartsOnly(title, description string) bool {
	if title == "" && description == "" {
		return true
	}
	combined := strings.ToLower(title + " " + description)

	hasParts := false
	for _, ind := range partsIndicators {
		if strings.Contains(combined, ind) {
			hasParts = true
			break
		}
	}
	if !hasParts {
		return false
	}

	for _, ind := range carIndicators {
		if containsAffirmed(combined, ind) {
			return false
		}
	}
	return true
}

// containsAffirmed reports whether phrase occurs in text at least once
// without a negating word right before it.
func containsAffirmed(text, phrase string) bool {
	offset := 0
	for {
		idx := strings.Index(text[offset:], phrase)
		if idx < 0 {
			return false
		}
		pos := offset + idx
		if !negation.MatchString(text[:pos]) {
			return true
		}
		offset = pos + len(phrase)
	}
}

// mentionsModel is the stricter recheck applied once a title is known.
func mentionsModel(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range modelKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Classify accepts or rejects a candidate from its title and description.
// Rejections are expected outcomes, not errors.
func Classify(title, description string) Decision {
	if !IsVehicleRelated(title) && !IsVehicleRelated(description) {
		return Decision{Reason: ReasonNotVehicleRelated}
	}
	if IsPartsOnly(title, description) {
		return Decision{Reason: ReasonPartsOnly}
	}
	if utf8.RuneCountInString(strings.TrimSpace(title)) < models.MinTitleLength {
		return Decision{Reason: ReasonInvalidTitle}
	}
	if !mentionsModel(title) && !mentionsModel(description) {
		return Decision{Reason: ReasonNotModel}
	}
	return Decision{Accepted: true}
}
