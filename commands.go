package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"gold-rate/internal/cache"
	"gold-rate/internal/chart"
	"gold-rate/internal/clock"
	"gold-rate/internal/config"
	"gold-rate/internal/goldapi"
	"gold-rate/internal/logger"
	"gold-rate/internal/rates"
	"gold-rate/internal/render"
	"gold-rate/internal/session"
	"gold-rate/internal/share"
)

var (
	unitFlag    string
	gradeFlag   string
	shareFlag   bool
	chartOut    string
	chartFormat string
	fbCity      string
	fbEmail     string
	parallel    int
	maxAge      time.Duration
)

var showCmd = &cobra.Command{
	Use:   "show [city]",
	Short: "Fetch and print prices once",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runShow,
}

var chartCmd = &cobra.Command{
	Use:   "chart [city]",
	Short: "Write the history chart of one grade as PNG or SVG",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runChart,
}

var prefetchCmd = &cobra.Command{
	Use:   "prefetch",
	Short: "Warm the cache for every configured city",
	Args:  cobra.NoArgs,
	RunE:  runPrefetch,
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback <message>",
	Short: "Send feedback to the price service",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFeedback,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default config file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

func init() {
	for _, c := range []*cobra.Command{showCmd, chartCmd} {
		c.Flags().StringVarP(&unitFlag, "unit", "u", "", "weight: 1g | 8g | 10g | 100g")
		c.Flags().StringVarP(&gradeFlag, "grade", "g", "", "purity: 24K | 22K | 18K")
	}
	showCmd.Flags().BoolVar(&shareFlag, "share", false, "share the result (native share command, else clipboard)")
	chartCmd.Flags().StringVarP(&chartOut, "out", "o", "", "output file (default <city>-<grade>.<format>)")
	chartCmd.Flags().StringVarP(&chartFormat, "format", "f", "png", "png | svg")
	prefetchCmd.Flags().IntVarP(&parallel, "parallel", "p", 4, "concurrent requests")
	prefetchCmd.Flags().DurationVar(&maxAge, "max-age", 30*24*time.Hour, "drop sqlite cache entries older than this (0 keeps all)")
	feedbackCmd.Flags().StringVar(&fbCity, "city", "", "city the feedback is about")
	feedbackCmd.Flags().StringVar(&fbEmail, "email", "", "reply address")
	configCmd.AddCommand(configInitCmd)
}

// selectionConfig applies --unit and --grade on top of the loaded config.
func selectionConfig() (*config.Config, error) {
	c := *cfg
	c.Animate = false
	if unitFlag != "" {
		u, ok := rates.ParseUnit(unitFlag)
		if !ok {
			return nil, fmt.Errorf("unknown unit %q", unitFlag)
		}
		c.DefaultUnit = int(u)
	}
	if gradeFlag != "" {
		g, ok := rates.ParseGrade(gradeFlag)
		if !ok {
			return nil, fmt.Errorf("unknown grade %q", gradeFlag)
		}
		c.DefaultGrade = string(g)
	}
	return &c, nil
}

// headless runs one session on a private event loop until its first price
// request has been answered.
func headless(ctx context.Context, args []string) (*session.Session, func(), error) {
	c, err := selectionConfig()
	if err != nil {
		return nil, nil, err
	}
	client, probe, store, err := openDeps()
	if err != nil {
		return nil, nil, err
	}
	probe.Check(ctx)

	loop := clock.NewLoop()
	s := session.New(session.Deps{
		Config:    c,
		Fetcher:   client,
		Net:       probe,
		Store:     store,
		Exec:      loop.Post,
		Sched:     clock.NewReal(loop.Post),
		Sharer:    share.NewExecSharer(c.ShareCommand),
		Clipboard: share.SystemClipboard{},
	})
	cleanup := func() {
		s.Close()
		store.Close()
	}

	s.Start(startPath(args))
	deadline := time.Now().Add(c.RequestTimeout + 2*time.Second)
	for s.View().Loading {
		if time.Now().After(deadline) {
			cleanup()
			return nil, nil, errors.New("timed out waiting for the price service")
		}
		loop.Step(100 * time.Millisecond)
	}
	loop.Drain()
	return s, cleanup, nil
}

func runShow(cmd *cobra.Command, args []string) error {
	s, cleanup, err := headless(cmd.Context(), args)
	if err != nil {
		return err
	}
	defer cleanup()

	v := s.View()
	printView(cmd, v, s.Sparkline(40))
	if v.Status != "" && s.Payload() == nil {
		return errors.New(v.Status)
	}
	if shareFlag {
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		ch, err := s.Share(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "shared via %s\n", ch)
	}
	return nil
}

func printView(cmd *cobra.Command, v render.View, spark string) {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, v.Heading)
	fmt.Fprintln(w, v.Updated)
	fmt.Fprintln(w)
	for _, c := range v.Cards {
		marker := " "
		if c.Grade == v.Grade {
			marker = "*"
		}
		arrow := " "
		switch c.Trend {
		case render.Up:
			arrow = "▲"
		case render.Down:
			arrow = "▼"
		}
		fmt.Fprintf(w, "%s %-4s ₹%-14s %s %s\n", marker, c.Grade, c.Amount, arrow, c.Delta)
	}
	fmt.Fprintln(w)
	if v.Insight.Text != "" {
		fmt.Fprintln(w, v.Insight.Text)
	}
	if v.ChartVisible && spark != "" {
		fmt.Fprintln(w, spark)
	}
	if v.Status != "" {
		fmt.Fprintln(w, v.Status)
	}
}

func runChart(cmd *cobra.Command, args []string) error {
	format := chart.PNG
	switch strings.ToLower(chartFormat) {
	case "png":
	case "svg":
		format = chart.SVG
	default:
		return fmt.Errorf("unknown chart format %q", chartFormat)
	}

	s, cleanup, err := headless(cmd.Context(), args)
	if err != nil {
		return err
	}
	defer cleanup()

	v := s.View()
	if !v.ChartVisible {
		if v.Status != "" {
			return errors.New(v.Status)
		}
		return fmt.Errorf("not enough %s history for %s to draw a chart", v.Grade, v.Location)
	}
	out := chartOut
	if out == "" {
		out = fmt.Sprintf("%s-%s-%s.%s", strings.ReplaceAll(strings.ToLower(v.Location), " ", "-"),
			strings.ToLower(string(v.Grade)), v.Unit.Label(), strings.ToLower(chartFormat))
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := s.WriteChart(f, format); err != nil {
		f.Close()
		return fmt.Errorf("render chart: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	logger.Success("CHART", "Wrote "+out)
	return nil
}

func runPrefetch(cmd *cobra.Command, _ []string) error {
	logger.Banner(version)
	client, _, store, err := openDeps()
	if err != nil {
		return err
	}
	defer store.Close()

	logger.Section("Prefetch")
	hctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout)
	healthy := client.HealthCheck(hctx)
	cancel()
	if !healthy {
		return fmt.Errorf("price service at %s is not answering", client.Base())
	}
	start := time.Now()
	var ok, failed atomic.Int32

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(max(1, parallel))
	for _, city := range cfg.Cities {
		city := rates.NormalizeCity(city)
		g.Go(func() error {
			reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
			defer cancel()
			p, err := client.FullPrice(reqCtx, city)
			if err != nil {
				failed.Add(1)
				logger.Warn("PREFETCH", fmt.Sprintf("%s: %v", city, err))
				return nil
			}
			if err := store.Put(ctx, p); err != nil {
				return fmt.Errorf("cache %s: %w", city, err)
			}
			ok.Add(1)
			logger.Info("PREFETCH", city)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if sq, isSQLite := store.(*cache.SQLiteStore); isSQLite {
		if maxAge > 0 {
			sq.Cleanup(cmd.Context(), maxAge)
		}
		if locs, err := sq.Locations(cmd.Context()); err == nil {
			logger.Stats("Cached", len(locs))
		}
	}
	logger.Stats("Fetched", ok.Load())
	logger.Stats("Failed", failed.Load())
	logger.Stats("Took", time.Since(start).Round(time.Millisecond))
	if ok.Load() == 0 && failed.Load() > 0 {
		return errors.New("prefetch: every request failed")
	}
	return nil
}

func runFeedback(cmd *cobra.Command, args []string) error {
	client, _, store, err := openDeps()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout)
	defer cancel()

	id, err := clientID(ctx, store)
	if err != nil {
		return err
	}
	client.SetClientID(id)

	city := fbCity
	if city == "" {
		city, _ = store.Meta(ctx, cache.MetaLastLocation)
	}
	fb := goldapi.Feedback{Message: strings.Join(args, " "), City: city, Email: fbEmail}
	if err := client.SubmitFeedback(ctx, fb); err != nil {
		return err
	}
	logger.Success("FEEDBACK", "Thanks, feedback sent")
	return nil
}

// clientID returns the persisted feedback id, creating one on first use.
func clientID(ctx context.Context, store cache.Store) (string, error) {
	id, err := store.Meta(ctx, cache.MetaClientID)
	if err != nil {
		return "", fmt.Errorf("read client id: %w", err)
	}
	if id != "" {
		return id, nil
	}
	id = uuid.NewString()
	if err := store.SetMeta(ctx, cache.MetaClientID, id); err != nil {
		return "", fmt.Errorf("store client id: %w", err)
	}
	return id, nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := "~/.goldrate/goldrate.yaml"
	if len(args) == 1 {
		path = args[0]
	}
	path, err := homedir.Expand(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := config.WriteDefault(path); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "wrote "+filepath.Clean(path))
	return nil
}
