package analysis

import (
	"log/slog"

	"magga.pvnkmrksk.org/internal/logging"
	"magga.pvnkmrksk.org/internal/model"
)

// Summary holds the table sizes of a schedule.
type Summary struct {
	Stops       int
	Routes      int
	Trips       int
	StopVisits  int
	ShapePoints int
}

// Summarize counts the schedule's rows.
func Summarize(s *model.Schedule) Summary {
	return Summary{
		Stops:       len(s.Stops),
		Routes:      len(s.Routes),
		Trips:       len(s.Trips),
		StopVisits:  len(s.StopVisits),
		ShapePoints: len(s.ShapePoints),
	}
}

// LogSummary emits the feed counts as one structured log record.
func LogSummary(logger *slog.Logger, name string, s *model.Schedule) {
	summary := Summarize(s)
	logging.LogOperation(logger, "schedule_summary",
		slog.String("schedule", name),
		slog.Int("stops", summary.Stops),
		slog.Int("routes", summary.Routes),
		slog.Int("trips", summary.Trips),
		slog.Int("stop_visits", summary.StopVisits),
		slog.Int("shape_points", summary.ShapePoints),
	)
}
