package extract

// Candidate selectors for listing detail pages, most specific first.
// The marketplace rotates its generated class names, so the tail of each
// list falls back to structural selectors.
var (
	TitleSelectors = []string{
		`h1[dir="auto"]`,
		`span[dir="auto"][role="heading"]`,
		`[data-testid*="title"]`,
		`h1`,
		`h2`,
		`[role="heading"]`,
		`span[dir="auto"]`,
	}

	DescriptionSelectors = []string{
		`[data-testid="marketplace_pdp_description"]`,
		`[data-testid*="description"]`,
		`div[role="main"] div[dir="auto"]`,
		`div[role="main"] p`,
		`div[role="main"] div:not(:empty)`,
		`[role="article"] div[dir="auto"]`,
		`.x1lliihq`,
		`.x193iq5w`,
	}

	ImageSelectors = []string{
		`img[src*="scontent"]`,
		`[data-testid*="image"] img`,
		`[role="main"] img`,
		`img[alt*="vehicle"], img[alt*="car"], img[alt*="Miata"]`,
	}
)

// TextSelectors returns every selector whose element texts the engine reads.
func TextSelectors() []string {
	out := make([]string, 0, len(TitleSelectors)+len(DescriptionSelectors))
	out = append(out, TitleSelectors...)
	return append(out, DescriptionSelectors...)
}
