package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"magga.pvnkmrksk.org/internal/bundle"
	"magga.pvnkmrksk.org/internal/logging"
	"magga.pvnkmrksk.org/internal/model"
	"magga.pvnkmrksk.org/internal/subset"
	"magga.pvnkmrksk.org/internal/topology"
)

// TaskResult records one task's outcome.
type TaskResult struct {
	Name       string
	BundlePath string // written subset bundle, empty on failure
	StopsPath  string // written stop sets JSON, empty unless classified
	Err        error
}

// Runner executes batch tasks over a shared read-only schedule. Workers only
// read the schedule and write to per-task paths, so no locking is needed.
type Runner struct {
	Schedule *model.Schedule
	Logger   *slog.Logger
	Workers  int
}

// Run executes every task in the file and returns the per-task results in
// task order, plus the number of failures. A cancelled context abandons
// tasks that have not started; finished outputs stay in place.
func (r *Runner) Run(ctx context.Context, tf *TaskFile) ([]TaskResult, int) {
	results := make([]TaskResult, len(tf.Tasks))
	for i := range tf.Tasks {
		results[i] = TaskResult{Name: tf.Tasks[i].Name}
	}

	if err := os.MkdirAll(tf.OutputDir, 0o755); err != nil {
		for i := range results {
			results[i].Err = fmt.Errorf("error creating output directory: %w", err)
		}
		return results, len(results)
	}

	workers := r.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(tf.Tasks) {
		workers = len(tf.Tasks)
	}

	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				results[i] = r.runTask(ctx, tf, tf.Tasks[i])
			}
		}()
	}

	for i := range tf.Tasks {
		if ctx.Err() != nil {
			results[i].Err = ctx.Err()
			continue
		}
		select {
		case <-ctx.Done():
			results[i].Err = ctx.Err()
		case indexes <- i:
		}
	}
	close(indexes)
	wg.Wait()

	failures := 0
	for i := range results {
		if results[i].Err != nil {
			failures++
		}
	}
	return results, failures
}

func (r *Runner) runTask(ctx context.Context, tf *TaskFile, task Task) TaskResult {
	result := TaskResult{Name: task.Name}
	logger := r.Logger

	criteria := subset.Criteria{
		StopIDs:       task.Stops,
		RoutePatterns: task.Routes,
		MinTrips:      task.minTrips(tf.Defaults),
	}

	res, err := subset.Resolve(r.Schedule, criteria)
	if err != nil {
		result.Err = fmt.Errorf("task %q: %w", task.Name, err)
		logging.LogError(logger, "batch task failed", result.Err, slog.String("task", task.Name))
		return result
	}
	if logger != nil {
		for _, pattern := range res.UnmatchedPatterns {
			logger.Warn("route pattern matched no routes",
				slog.String("task", task.Name),
				slog.String("pattern", pattern))
		}
	}

	sub, err := subset.Extract(r.Schedule, res.Trips)
	if err != nil {
		result.Err = fmt.Errorf("task %q: %w", task.Name, err)
		logging.LogError(logger, "batch task failed", result.Err, slog.String("task", task.Name))
		return result
	}

	stem := cleanName(task.Name)
	bundlePath := filepath.Join(tf.OutputDir, stem+".zip")
	if err := bundle.Write(bundlePath, sub); err != nil {
		result.Err = fmt.Errorf("task %q: %w", task.Name, err)
		logging.LogError(logger, "batch task failed", result.Err, slog.String("task", task.Name))
		return result
	}
	result.BundlePath = bundlePath

	if task.classify(tf.Defaults) {
		cfg := topology.DefaultConfig()
		cfg.SimilarityThreshold = tf.Defaults.SimilarityThreshold
		classification, err := topology.Classify(sub, cfg)
		if err != nil {
			result.Err = fmt.Errorf("task %q: %w", task.Name, err)
			logging.LogError(logger, "batch task failed", result.Err, slog.String("task", task.Name))
			return result
		}
		stopsPath := filepath.Join(tf.OutputDir, stem+".stops.json")
		if err := topology.WriteStopSets(stopsPath, classification.StopSets(task.Stops)); err != nil {
			result.Err = fmt.Errorf("task %q: %w", task.Name, err)
			logging.LogError(logger, "batch task failed", result.Err, slog.String("task", task.Name))
			return result
		}
		result.StopsPath = stopsPath
	}

	logging.LogOperation(logger, "batch task complete",
		slog.String("task", task.Name),
		slog.String("bundle", result.BundlePath),
		slog.Int("trips", len(sub.Trips)),
		slog.Int("stops", len(sub.Stops)))
	return result
}

// Describe renders a one-line summary of the results, for CLI output.
func Describe(results []TaskResult) string {
	var parts []string
	for _, res := range results {
		if res.Err != nil {
			parts = append(parts, res.Name+": failed")
		} else {
			parts = append(parts, res.Name+": ok")
		}
	}
	return strings.Join(parts, ", ")
}
