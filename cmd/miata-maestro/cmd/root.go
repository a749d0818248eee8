package cmd

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Jasminestrone/MiataMaestro/internal/config"
)

var (
	cfgFile   string
	verbose   bool
	logFormat string
	cfg       config.Config
	cfgErr    error
)

// GetConfig returns the loaded configuration.
func GetConfig() config.Config {
	return cfg
}

var rootCmd = &cobra.Command{
	Use:   "miata-maestro",
	Short: "MiataMaestro: find, grade and lowball Mazda Miatas on Marketplace",
	Long: `MiataMaestro searches Facebook Marketplace for Mazda Miatas, extracts
price, year, mileage and transmission from each listing, drops parts-only
and off-model posts, filters by your bounds and can ask a local LLM for an
evaluation and a lowball offer.

Commands:
  scrape   Run one search and print the accepted listings
  extract  Extract fields from a single listing page or saved HTML file
  serve    Start the MCP server (and optional SSE progress endpoint)`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return cfgErr
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text, json or tint (default from config)")
}

func initLogger() {
	level := slog.LevelWarn
	if cfg.Log.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
			level = slog.LevelWarn
		}
	}
	if verbose {
		level = slog.LevelDebug
	}

	format := cfg.Log.Format
	if logFormat != "" {
		format = logFormat
	}
	slog.SetDefault(slog.New(newHandler(os.Stderr, format, level)))
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	switch format {
	case "json":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case "tint":
		return tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	default:
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	}
}

func initConfig() {
	cfg, cfgErr = config.Load(viper.GetViper(), cfgFile)
}
