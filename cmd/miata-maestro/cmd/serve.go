package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Jasminestrone/MiataMaestro/internal/mcp"
	"github.com/Jasminestrone/MiataMaestro/internal/progress"
)

var progressAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the MCP server for Miata hunting.

The server communicates via stdio and provides these tools:
  - scrape_listings: Search Marketplace and store accepted listings
  - scrape_more: Fetch 10 more listings for the last search
  - list_listings: List stored listings
  - evaluate_listing: LLM evaluation with a lowball offer
  - analyze_all: Evaluate every stored listing
  - lowball_message: Draft a message to the seller

With --progress-addr, crawl progress is also streamed as server-sent
events at GET /progress/{session}.

Example:
  miata-maestro serve --progress-addr localhost:8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&progressAddr, "progress-addr", "", "listen address for the SSE progress endpoint (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := GetConfig()
	if progressAddr != "" {
		cfg.Serve.ProgressAddr = progressAddr
	}

	broker := progress.NewBroker(progress.DefaultBuffer)
	svc, err := newService(ctx, &cfg, broker)
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(cfg.MCP, svc)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	if cfg.Serve.ProgressAddr != "" {
		httpServer := newProgressServer(cfg.Serve.ProgressAddr, broker)
		go func() {
			slog.Info("Progress endpoint listening", "addr", cfg.Serve.ProgressAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Progress endpoint failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			httpServer.Shutdown(shutdownCtx)
		}()
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "Starting MCP server...")

	return server.ServeStdio()
}

func newProgressServer(addr string, broker *progress.Broker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /progress/{session}", progress.SSEHandler(broker))
	mux.Handle("GET /progress", progress.SSEHandler(broker))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
