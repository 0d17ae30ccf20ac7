package analysis

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magga.pvnkmrksk.org/internal/logging"
	"magga.pvnkmrksk.org/internal/model"
)

func analysisSchedule() *model.Schedule {
	return &model.Schedule{
		Stops: []model.Stop{
			{ID: "A", Name: "Alpha"},
			{ID: "B", Name: "Beta"},
			{ID: "C", Name: "Gamma"},
		},
		Routes: []model.Route{
			{ID: "R1", ShortName: "138", LongName: "Market Loop"},
			{ID: "R2", ShortName: "201", LongName: "Hill Express"},
		},
		Trips: []model.Trip{
			{ID: "T1", RouteID: "R1", ServiceID: "WK"},
			{ID: "T2", RouteID: "R1", ServiceID: "WK"},
			{ID: "T3", RouteID: "R2", ServiceID: "WK"},
		},
		StopVisits: []model.StopVisit{
			{TripID: "T1", StopID: "A", Sequence: 1},
			{TripID: "T1", StopID: "B", Sequence: 2},
			{TripID: "T2", StopID: "A", Sequence: 1},
			{TripID: "T2", StopID: "B", Sequence: 2},
			{TripID: "T3", StopID: "B", Sequence: 1},
			{TripID: "T3", StopID: "C", Sequence: 2},
		},
	}
}

func TestSummarize(t *testing.T) {
	summary := Summarize(analysisSchedule())
	assert.Equal(t, Summary{Stops: 3, Routes: 2, Trips: 3, StopVisits: 6}, summary)
}

func TestLogSummary(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewStructuredLogger(&buf, slog.LevelInfo)

	LogSummary(logger, "subset", analysisSchedule())

	output := buf.String()
	assert.Contains(t, output, `"msg":"schedule_summary"`)
	assert.Contains(t, output, `"schedule":"subset"`)
	assert.Contains(t, output, `"trips":3`)
	assert.Contains(t, output, `"stop_visits":6`)
}

func TestAnalyzerRankings(t *testing.T) {
	ctx := context.Background()
	analyzer, err := NewAnalyzer(ctx, analysisSchedule(), nil)
	require.NoError(t, err)
	defer analyzer.Close()

	byTrips, err := analyzer.StopsByTripCount(ctx)
	require.NoError(t, err)
	require.Len(t, byTrips, 3)
	assert.Equal(t, "B", byTrips[0].StopID)
	assert.Equal(t, int64(3), byTrips[0].TripCount)
	assert.Equal(t, "A", byTrips[1].StopID)
	assert.Equal(t, "C", byTrips[2].StopID)

	byRoutes, err := analyzer.StopsByRouteCount(ctx)
	require.NoError(t, err)
	require.Len(t, byRoutes, 3)
	assert.Equal(t, "B", byRoutes[0].StopID)
	assert.Equal(t, int64(2), byRoutes[0].RouteCount)

	routes, err := analyzer.RoutesByTripCount(ctx)
	require.NoError(t, err)
	require.Len(t, routes, 2)
	assert.Equal(t, "R1", routes[0].RouteID)
	assert.Equal(t, int64(2), routes[0].TripCount)
	assert.Equal(t, "R2", routes[1].RouteID)
}

func TestWriteReports(t *testing.T) {
	ctx := context.Background()
	analyzer, err := NewAnalyzer(ctx, analysisSchedule(), nil)
	require.NoError(t, err)
	defer analyzer.Close()

	dir := filepath.Join(t.TempDir(), "reports")
	require.NoError(t, analyzer.WriteReports(ctx, dir))

	rows := readCSVFile(t, filepath.Join(dir, "stops_by_trips.csv"))
	require.NotEmpty(t, rows)
	assert.Equal(t, []string{"stop_id", "stop_name", "trip_count"}, rows[0])
	assert.Equal(t, []string{"B", "Beta", "3"}, rows[1])

	rows = readCSVFile(t, filepath.Join(dir, "stops_by_routes.csv"))
	assert.Equal(t, []string{"stop_id", "stop_name", "route_count"}, rows[0])
	assert.Equal(t, []string{"B", "Beta", "2"}, rows[1])

	rows = readCSVFile(t, filepath.Join(dir, "routes_by_trips.csv"))
	assert.Equal(t, []string{"route_id", "route_short_name", "route_long_name", "trip_count"}, rows[0])
	assert.Equal(t, []string{"R1", "138", "Market Loop", "2"}, rows[1])
}

func readCSVFile(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCheckFeed(t *testing.T) {
	t.Run("accepts a complete feed", func(t *testing.T) {
		report, err := CheckFeed(strictFeedZip(t))
		require.NoError(t, err)
		assert.Equal(t, 1, report.Agencies)
		assert.Equal(t, 1, report.Routes)
		assert.Equal(t, 2, report.Stops)
		assert.Equal(t, 1, report.Trips)
	})

	t.Run("rejects a feed without an agency table", func(t *testing.T) {
		var buf bytes.Buffer
		w := zip.NewWriter(&buf)
		for name, content := range map[string]string{
			"stops.txt":      "stop_id\nA\n",
			"routes.txt":     "route_id,route_type\nR1,3\n",
			"trips.txt":      "trip_id,route_id,service_id\nT1,R1,WK\n",
			"stop_times.txt": "trip_id,stop_id,stop_sequence,departure_time\nT1,A,1,08:00:00\n",
		} {
			f, err := w.Create(name)
			require.NoError(t, err)
			_, err = f.Write([]byte(content))
			require.NoError(t, err)
		}
		require.NoError(t, w.Close())

		_, err := CheckFeed(buf.Bytes())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "strict GTFS parse failed")
	})

	t.Run("rejects bytes that are not a zip", func(t *testing.T) {
		_, err := CheckFeed([]byte("not a zip archive"))
		require.Error(t, err)
	})
}

// strictFeedZip builds a feed with every table the strict parser demands,
// including the agency and calendar rows the subset bundles leave out.
func strictFeedZip(t *testing.T) []byte {
	t.Helper()
	tables := map[string]string{
		"agency.txt":     "agency_name,agency_url,agency_timezone\nMetro,https://metro.example,UTC\n",
		"stops.txt":      "stop_id,stop_name,stop_lat,stop_lon\nA,Alpha,12.97,77.59\nB,Beta,12.98,77.60\n",
		"routes.txt":     "route_id,route_short_name,route_type\nR1,138,3\n",
		"calendar.txt":   "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\nWK,1,1,1,1,1,0,0,20250101,20251231\n",
		"trips.txt":      "trip_id,route_id,service_id\nT1,R1,WK\n",
		"stop_times.txt": "trip_id,stop_id,stop_sequence,arrival_time,departure_time\nT1,A,1,08:00:00,08:00:00\nT1,B,2,08:10:00,08:10:00\n",
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range tables {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}
