package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"gold-rate/internal/cache"
	"gold-rate/internal/config"
	"gold-rate/internal/goldapi"
	"gold-rate/internal/logger"
	"gold-rate/internal/route"
	"gold-rate/internal/tui"
)

var version = "dev"

var (
	cfgFile  string
	logLevel string
	cfg      *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "gold-rate [city]",
	Short: "Live gold prices per city",
	Long: `Fetches 24K, 22K and 18K gold prices per city from the price service,
keeps the last answer per city in a local cache and renders cards, a trend
line and a chart. Without a subcommand the terminal UI starts.`,
	Args:              cobra.MaximumNArgs(1),
	PersistentPreRunE: loadConfig,
	SilenceUsage:      true,
	RunE:              runTUI,
}

var tuiCmd = &cobra.Command{
	Use:   "tui [city]",
	Short: "Start the interactive terminal UI",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.goldrate/goldrate.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug | info | warn | error (overrides config)")
	rootCmd.AddCommand(tuiCmd, showCmd, chartCmd, prefetchCmd, feedbackCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	// "config init" must work before any config exists.
	if cmd.Parent() == configCmd {
		return nil
	}
	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	logger.SetOutput(os.Stderr)
	logger.Init(c.LogLevel)
	cfg = c
	return nil
}

// openDeps builds the price client, the connectivity probe and the cache
// store shared by every command.
func openDeps() (*goldapi.Client, *goldapi.Probe, cache.Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, nil, nil, fmt.Errorf("create data dir: %w", err)
	}
	store, err := cache.Open(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open %s cache: %w", cfg.CacheBackend, err)
	}
	client := goldapi.NewClient(cfg.APIBase, cfg.RateLimit)
	return client, goldapi.NewProbe(cfg.APIBase), store, nil
}

// startPath turns an optional city argument into the initial route.
func startPath(args []string) string {
	if len(args) == 0 {
		return "/"
	}
	return route.Path(args[0])
}

func runTUI(cmd *cobra.Command, args []string) error {
	client, probe, store, err := openDeps()
	if err != nil {
		return err
	}
	defer store.Close()

	logFile, err := os.OpenFile(filepath.Join(cfg.DataDir, "goldrate.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err == nil {
		logger.SetOutput(logFile)
		defer logFile.Close()
	}
	logger.Banner(version)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go probe.Run(ctx, cfg.ProbeInterval)

	return tui.Run(tui.Deps{Config: cfg, Fetcher: client, Net: probe, Store: store}, startPath(args))
}
