package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"magga.pvnkmrksk.org/internal/analysis"
	"magga.pvnkmrksk.org/internal/batch"
	"magga.pvnkmrksk.org/internal/bundle"
	"magga.pvnkmrksk.org/internal/logging"
	"magga.pvnkmrksk.org/internal/model"
	"magga.pvnkmrksk.org/internal/subset"
	"magga.pvnkmrksk.org/internal/topology"
)

// config holds every command-line setting. A run is either a batch run
// (-batch points at a task file) or a single subset described by the
// criteria flags.
type config struct {
	input      string
	output     string
	stops      []string
	routes     []string
	minTrips   int
	classify   bool
	similarity float64
	batchFile  string
	stats      bool
	verbose    bool
}

type application struct {
	config config
	logger *slog.Logger
}

func main() {
	var cfg config
	var stopsFlag, routesFlag string

	flag.StringVar(&cfg.input, "input", "", "Path to the input schedule bundle (zip)")
	flag.StringVar(&cfg.output, "output", "subset.zip", "Path for the subset bundle")
	flag.StringVar(&stopsFlag, "stops", "", "Comma separated stop ids to keep")
	flag.StringVar(&routesFlag, "routes", "", "Comma separated route name patterns, * wildcards allowed")
	flag.IntVar(&cfg.minTrips, "min-trips", 0, "Drop routes with fewer trips than this in the result")
	flag.BoolVar(&cfg.classify, "classify", false, "Classify stop roles and write a stop sets JSON file")
	flag.Float64Var(&cfg.similarity, "similarity", topology.DefaultSimilarityThreshold, "Route-set similarity threshold for segment growth")
	flag.StringVar(&cfg.batchFile, "batch", "", "Path to a YAML task file; runs every task against the input bundle")
	flag.BoolVar(&cfg.stats, "stats", false, "Write ranking reports and run a strict feed check")
	flag.BoolVar(&cfg.verbose, "verbose", false, "Enable debug logging")
	flag.Parse()

	cfg.stops = splitList(stopsFlag)
	cfg.routes = splitList(routesFlag)

	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := logging.NewStructuredLogger(os.Stderr, level)

	app := &application{config: cfg, logger: logger}
	if err := app.run(context.Background()); err != nil {
		logging.LogError(logger, "run failed", err)
		os.Exit(1)
	}
}

func (app *application) run(ctx context.Context) error {
	if app.config.input == "" {
		return fmt.Errorf("missing -input bundle path")
	}

	raw, err := os.ReadFile(app.config.input)
	if err != nil {
		return fmt.Errorf("error reading input bundle: %w", err)
	}
	schedule, err := bundle.ReadBytes(raw)
	if err != nil {
		return err
	}
	analysis.LogSummary(app.logger, "input", schedule)

	if app.config.stats {
		app.reportStats(ctx, raw, schedule)
	}

	if app.config.batchFile != "" {
		return app.runBatch(ctx, schedule)
	}

	if len(app.config.stops) == 0 && len(app.config.routes) == 0 && app.config.minTrips == 0 {
		if app.config.stats {
			return nil
		}
		return fmt.Errorf("no criteria given: set -stops, -routes or -min-trips (or -stats, or -batch)")
	}
	return app.runSubset(ctx, schedule)
}

func (app *application) runSubset(_ context.Context, schedule *model.Schedule) error {
	criteria := subset.Criteria{
		StopIDs:       app.config.stops,
		RoutePatterns: app.config.routes,
		MinTrips:      app.config.minTrips,
	}
	app.logger.Info("resolving criteria", slog.String("criteria", criteria.String()))

	res, err := subset.Resolve(schedule, criteria)
	if err != nil {
		return err
	}
	for _, pattern := range res.UnmatchedPatterns {
		app.logger.Warn("route pattern matched no routes", slog.String("pattern", pattern))
	}

	sub, err := subset.Extract(schedule, res.Trips)
	if err != nil {
		return err
	}
	if err := bundle.Write(app.config.output, sub); err != nil {
		return err
	}
	analysis.LogSummary(app.logger, "subset", sub)
	app.logger.Info("wrote subset bundle", slog.String("path", app.config.output))

	if !app.config.classify {
		return nil
	}

	clsCfg := topology.DefaultConfig()
	clsCfg.SimilarityThreshold = app.config.similarity
	classification, err := topology.Classify(sub, clsCfg)
	if err != nil {
		return err
	}
	stopsPath := strings.TrimSuffix(app.config.output, ".zip") + ".stops.json"
	if err := topology.WriteStopSets(stopsPath, classification.StopSets(app.config.stops)); err != nil {
		return err
	}
	app.logger.Info("wrote stop sets",
		slog.String("path", stopsPath),
		slog.Int("junctions", len(classification.Junctions())),
		slog.Int("terminals", len(classification.Terminals())))
	return nil
}

func (app *application) runBatch(ctx context.Context, schedule *model.Schedule) error {
	tf, err := batch.LoadTaskFile(app.config.batchFile)
	if err != nil {
		return err
	}
	runner := &batch.Runner{Schedule: schedule, Logger: app.logger, Workers: tf.Workers}
	results, failures := runner.Run(ctx, tf)
	app.logger.Info("batch finished",
		slog.Int("tasks", len(results)),
		slog.Int("failures", failures),
		slog.String("results", batch.Describe(results)))
	if failures > 0 {
		return fmt.Errorf("%d of %d batch tasks failed", failures, len(results))
	}
	return nil
}

// reportStats is best effort: the run carries on whatever it finds.
func (app *application) reportStats(ctx context.Context, raw []byte, schedule *model.Schedule) {
	if report, err := analysis.CheckFeed(raw); err != nil {
		app.logger.Warn("strict feed check failed", slog.String("error", err.Error()))
	} else {
		app.logger.Info("strict feed check passed",
			slog.Int("agencies", report.Agencies),
			slog.Int("routes", report.Routes),
			slog.Int("stops", report.Stops),
			slog.Int("trips", report.Trips),
			slog.Int("warnings", report.Warnings))
	}

	analyzer, err := analysis.NewAnalyzer(ctx, schedule, app.logger)
	if err != nil {
		logging.LogError(app.logger, "analysis unavailable", err)
		return
	}
	defer logging.SafeCloseWithLogging(analyzer, app.logger, "close analyzer")

	dir := strings.TrimSuffix(app.config.output, ".zip") + ".reports"
	if err := analyzer.WriteReports(ctx, dir); err != nil {
		logging.LogError(app.logger, "failed to write reports", err)
		return
	}
	app.logger.Info("wrote ranking reports", slog.String("dir", dir))
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
