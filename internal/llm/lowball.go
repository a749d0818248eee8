package llm

import (
	"regexp"
	"strconv"
	"strings"
)

var lowballPattern = regexp.MustCompile(`<strong>Lowball:</strong>\s*\$([0-9,]+)`)

// ParseLowball extracts the lowball offer from an evaluation. The amount
// must follow a "<strong>Lowball:</strong> $" marker; thousands separators
// are ignored.
func ParseLowball(text string) (int, bool) {
	m := lowballPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	digits := strings.ReplaceAll(m[1], ",", "")
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}
