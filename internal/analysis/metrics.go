// Package analysis computes ranking metrics over a schedule: the busiest
// stops by trip and route coverage and the busiest routes by trip count.
// The heavy lifting happens in SQL via the analysisdb package.
package analysis

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"magga.pvnkmrksk.org/analysisdb"
	"magga.pvnkmrksk.org/internal/model"
)

// Analyzer answers metric queries for one schedule.
type Analyzer struct {
	client *analysisdb.Client
}

// NewAnalyzer loads the schedule into a fresh in-memory database.
func NewAnalyzer(ctx context.Context, s *model.Schedule, logger *slog.Logger) (*Analyzer, error) {
	client, err := analysisdb.NewClient(analysisdb.NewConfig("", false), logger)
	if err != nil {
		return nil, err
	}
	if err := client.ImportSchedule(ctx, s); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("error importing schedule: %w", err)
	}
	return &Analyzer{client: client}, nil
}

func (a *Analyzer) Close() error {
	return a.client.Close()
}

// StopsByTripCount ranks stops by distinct visiting trips, busiest first.
func (a *Analyzer) StopsByTripCount(ctx context.Context) ([]analysisdb.StopTripCount, error) {
	return a.client.StopsByTripCount(ctx)
}

// StopsByRouteCount ranks stops by distinct serving routes, busiest first.
func (a *Analyzer) StopsByRouteCount(ctx context.Context) ([]analysisdb.StopRouteCount, error) {
	return a.client.StopsByRouteCount(ctx)
}

// RoutesByTripCount ranks routes by trip count, busiest first.
func (a *Analyzer) RoutesByTripCount(ctx context.Context) ([]analysisdb.RouteTripCount, error) {
	return a.client.RoutesByTripCount(ctx)
}

// WriteReports writes the three ranking tables as CSV files into dir,
// creating it if needed.
func (a *Analyzer) WriteReports(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating report directory: %w", err)
	}

	stopsByTrips, err := a.StopsByTripCount(ctx)
	if err != nil {
		return err
	}
	rows := [][]string{{"stop_id", "stop_name", "trip_count"}}
	for _, r := range stopsByTrips {
		rows = append(rows, []string{r.StopID, r.StopName, strconv.FormatInt(r.TripCount, 10)})
	}
	if err := writeCSV(filepath.Join(dir, "stops_by_trips.csv"), rows); err != nil {
		return err
	}

	stopsByRoutes, err := a.StopsByRouteCount(ctx)
	if err != nil {
		return err
	}
	rows = [][]string{{"stop_id", "stop_name", "route_count"}}
	for _, r := range stopsByRoutes {
		rows = append(rows, []string{r.StopID, r.StopName, strconv.FormatInt(r.RouteCount, 10)})
	}
	if err := writeCSV(filepath.Join(dir, "stops_by_routes.csv"), rows); err != nil {
		return err
	}

	routesByTrips, err := a.RoutesByTripCount(ctx)
	if err != nil {
		return err
	}
	rows = [][]string{{"route_id", "route_short_name", "route_long_name", "trip_count"}}
	for _, r := range routesByTrips {
		rows = append(rows, []string{r.RouteID, r.ShortName, r.LongName, strconv.FormatInt(r.TripCount, 10)})
	}
	return writeCSV(filepath.Join(dir, "routes_by_trips.csv"), rows)
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("error closing %s: %w", path, err)
	}
	return nil
}
