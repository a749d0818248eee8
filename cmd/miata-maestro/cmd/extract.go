package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Jasminestrone/MiataMaestro/internal/classify"
	"github.com/Jasminestrone/MiataMaestro/internal/extract"
	"github.com/Jasminestrone/MiataMaestro/internal/fetch"
	"github.com/Jasminestrone/MiataMaestro/internal/filter"
	"github.com/Jasminestrone/MiataMaestro/internal/markdown"
	"github.com/Jasminestrone/MiataMaestro/pkg/models"
)

var (
	extractFile     string
	extractMarkdown bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [url]",
	Short: "Extract listing fields from one page",
	Long: `Fetch a single listing page (or read a saved HTML file), run field
extraction and classification, and check it against the configured search
bounds. No browser or login is involved, so pages that need JavaScript or
a session are best saved from a browser first.

Examples:
  miata-maestro extract https://www.facebook.com/marketplace/item/1234567890/
  miata-maestro extract --file listing.html --markdown`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVar(&extractFile, "file", "", "read HTML from a local file instead of fetching")
	extractCmd.Flags().BoolVar(&extractMarkdown, "markdown", false, "also print the page as markdown")
}

type extractReport struct {
	Listing  models.Listing `json:"listing"`
	Accepted bool           `json:"accepted"`
	Reason   string         `json:"reason,omitempty"`
	Markdown string         `json:"markdown,omitempty"`
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	raw, pageURL, page, err := loadPage(context.Background(), cfg.Fetch, extractFile, args)
	if err != nil {
		return err
	}

	candidate := extract.Extract(page)
	listing := candidate.Listing(models.ListingIDFromURL(pageURL), pageURL, time.Now())
	report := extractReport{Listing: listing}

	decision := classify.Classify(candidate.Title, candidate.Description)
	report.Accepted, report.Reason = decision.Accepted, string(decision.Reason)
	if decision.Accepted {
		report.Accepted, report.Reason = filter.Check(listing, cfg.Search)
	}

	if extractMarkdown {
		md, err := markdown.Dump(pageURL, string(raw))
		if err != nil {
			return fmt.Errorf("failed to convert page: %w", err)
		}
		report.Markdown = md
	}

	return printJSON(cmd.OutOrStdout(), report)
}

// loadPage reads file when set, otherwise fetches the single URL argument.
func loadPage(ctx context.Context, fetchCfg fetch.Config, file string, args []string) ([]byte, string, *extract.HTMLPage, error) {
	var (
		raw     []byte
		pageURL string
		page    *extract.HTMLPage
		err     error
	)
	switch {
	case file != "":
		raw, err = os.ReadFile(file)
		if err != nil {
			return nil, "", nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		pageURL = "file://" + file
		page, err = extract.NewHTMLPage(raw)
	case len(args) == 1:
		fetched, ferr := fetch.New(fetchCfg).Fetch(ctx, args[0])
		if ferr != nil {
			return nil, "", nil, ferr
		}
		raw, pageURL = fetched.HTML, fetched.URL
		page, err = fetched.Parse()
	default:
		return nil, "", nil, fmt.Errorf("a URL argument or --file is required")
	}
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return raw, pageURL, page, nil
}
