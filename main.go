package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"phonewatch/app"
	"phonewatch/config"
	"phonewatch/debug"
	"phonewatch/domain/monitor"
	"phonewatch/ui"
)

var (
	flagConfig    string
	flagHeadless  bool
	flagDebug     bool
	flagListen    string
	flagInterval  float64
	flagThreshold float64
	flagModel     string
	flagOllamaURL string
	flagZones     string
)

var rootCmd = &cobra.Command{
	Use:   "phonewatch",
	Short: "Alerts when a smartphone appears on screen",
	Long: `phonewatch periodically captures the screen, asks a local vision model
whether a smartphone is visible, filters hits against user-defined exclusion
zones and raises a debounced alert for the rest.

By default it opens a control window. With --headless it starts monitoring
immediately and runs until interrupted; add --listen to stream events to
WebSocket clients.`,
	RunE:         run,
	SilenceUsage: true,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flagConfig, "config", "phonewatch.json", "path to the JSON config file")
	f.BoolVar(&flagHeadless, "headless", false, "run without a window, monitoring immediately")
	f.BoolVar(&flagDebug, "debug", false, "debug logging plus runtime metric tickers")
	f.StringVar(&flagListen, "listen", "", "WebSocket event listener address, e.g. :8844")
	f.Float64Var(&flagInterval, "interval", 0, "capture interval in seconds")
	f.Float64Var(&flagThreshold, "threshold", 0, "detection confidence threshold (0..1]")
	f.StringVar(&flagModel, "model", "", "vision model name")
	f.StringVar(&flagOllamaURL, "ollama-url", "", "ollama server base URL")
	f.StringVar(&flagZones, "zones", "", "path to the exclusion zones file")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	bootstrapLogger := NewLogger(flagDebug)
	if err != nil {
		// Unreadable config falls back to defaults; say so instead of dying.
		bootstrapLogger.Warn("config not loaded, using defaults", "path", flagConfig, "error", err)
	}
	applyFlagOverrides(cmd, cfg)
	_ = cfg.Validate()

	logger := NewLogger(cfg.Debug)
	if cfg.Debug {
		debug.StartGoroutineLogger(5*time.Second, logger)
		debug.StartMemLogger(5*time.Second, logger)
	}

	if flagHeadless {
		c, err := app.Build(cfg, logger, monitor.EventCallbacks{})
		if err != nil {
			return err
		}
		return app.RunHeadless(c)
	}
	return ui.Run(cfg, logger)
}

// applyFlagOverrides lets explicitly-set flags win over file and environment
// values.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("debug") {
		cfg.Debug = flagDebug
	}
	if f.Changed("listen") {
		cfg.Listen = flagListen
	}
	if f.Changed("interval") {
		cfg.CaptureIntervalSeconds = flagInterval
	}
	if f.Changed("threshold") {
		cfg.ConfidenceThreshold = flagThreshold
	}
	if f.Changed("model") {
		cfg.Model = flagModel
	}
	if f.Changed("ollama-url") {
		cfg.OllamaURL = flagOllamaURL
	}
	if f.Changed("zones") {
		cfg.ZonesPath = flagZones
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
