package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Jasminestrone/MiataMaestro/internal/maestro"
	"github.com/Jasminestrone/MiataMaestro/internal/progress"
	"github.com/Jasminestrone/MiataMaestro/pkg/models"
)

var (
	scrapeSession  string
	scrapeJSON     bool
	scrapeEvaluate bool
	scrapeQuiet    bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Search Marketplace and print the accepted listings",
	Long: `Run one Marketplace search, visit each listing, and print the ones that
are whole Miatas within your bounds.

Credentials come from MIATA_SCRAPE_EMAIL / MIATA_SCRAPE_PASSWORD or the
config file. Unset numeric bounds (0) are not applied.

Examples:
  # NA Miatas under 150k miles
  miata-maestro scrape --year-min 1990 --year-max 1997 --max-mileage 150000

  # Quick check of the first 3 listings
  miata-maestro scrape --debug

  # Evaluate every result with the configured LLM, JSON output
  miata-maestro scrape --evaluate --json`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	f := scrapeCmd.Flags()
	f.Int("year-min", 0, "minimum model year")
	f.Int("year-max", 0, "maximum model year")
	f.Int("max-mileage", 0, "maximum mileage")
	f.Int("max-price", 0, "maximum price in dollars")
	f.Int("limit", 0, "maximum listings to visit (0 = all found)")
	f.String("zip", "", "zip code of the search area")
	f.Int("radius", 0, "search radius in miles")
	f.Bool("debug", false, "only process the first 3 listings")
	f.StringVar(&scrapeSession, "session", "cli", "session id used for progress events")
	f.BoolVar(&scrapeJSON, "json", false, "print JSON instead of a table")
	f.BoolVar(&scrapeEvaluate, "evaluate", false, "evaluate every listing with the LLM")
	f.BoolVarP(&scrapeQuiet, "quiet", "q", false, "do not print progress")
}

// searchFromFlags overlays explicitly set flags on the configured search.
func searchFromFlags(cmd *cobra.Command, params models.SearchParams) models.SearchParams {
	f := cmd.Flags()
	ints := map[string]*int{
		"year-min":    &params.YearMin,
		"year-max":    &params.YearMax,
		"max-mileage": &params.MaxMileage,
		"max-price":   &params.MaxPrice,
		"limit":       &params.Limit,
		"radius":      &params.Radius,
	}
	for name, dst := range ints {
		if f.Changed(name) {
			*dst, _ = f.GetInt(name)
		}
	}
	if f.Changed("zip") {
		params.Zip, _ = f.GetString("zip")
	}
	if f.Changed("debug") {
		params.Debug, _ = f.GetBool("debug")
	}
	return params
}

func runScrape(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	params := searchFromFlags(cmd, cfg.Search)
	if err := params.Validate(); err != nil {
		return err
	}

	broker := progress.NewBroker(progress.DefaultBuffer)
	svc, err := newService(ctx, &cfg, broker)
	if err != nil {
		return err
	}

	if !scrapeQuiet {
		sub := broker.Subscribe(scrapeSession)
		defer broker.Unsubscribe(sub)
		go printProgress(cmd.ErrOrStderr(), sub)
	}

	res, err := svc.Scrape(ctx, scrapeSession, params)
	if err != nil && res == nil {
		return err
	}
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Stopped early: %v\n", err)
	}

	var analysis *maestro.Analysis
	if scrapeEvaluate && len(res.Listings) > 0 {
		analysis, err = svc.AnalyzeAll(ctx, scrapeSession)
		if err != nil {
			return fmt.Errorf("evaluation failed: %w", err)
		}
	}

	// Evaluation attaches lowball prices to the stored copies.
	listings := svc.Listings(scrapeSession)
	if scrapeJSON {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"results":  listings,
			"skipped":  res.Skipped,
			"failed":   res.Failed,
			"analysis": analysis,
		})
	}

	renderListings(cmd.OutOrStdout(), listings)
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d listings (%d skipped, %d failed)\n", len(listings), res.Skipped, res.Failed)
	return nil
}

func printProgress(w io.Writer, sub *progress.Subscription) {
	for ev := range sub.Events() {
		fmt.Fprintf(w, "[%s] %s\n", ev.Stage, ev.Detail)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderListings(w io.Writer, listings []models.Listing) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Title", "Year", "Price", "Mileage", "Trans", "Lowball", "URL"})
	for _, l := range listings {
		t.AppendRow(table.Row{
			l.ID,
			l.Title,
			intCell(l.Year, false),
			dollars(l.Price),
			intCell(l.Mileage, true),
			l.Transmission,
			dollars(l.LowballPrice),
			l.URL,
		})
	}
	t.Render()
}

func intCell(v *int, grouped bool) string {
	switch {
	case v == nil:
		return "-"
	case grouped:
		return humanize.Comma(int64(*v))
	default:
		return strconv.Itoa(*v)
	}
}

func dollars(v *int) string {
	if v == nil {
		return "-"
	}
	return "$" + humanize.Comma(int64(*v))
}

