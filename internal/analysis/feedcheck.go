package analysis

import (
	"fmt"

	"github.com/jamespfennell/gtfs"
)

// FeedReport summarizes a strict parse of raw bundle bytes.
type FeedReport struct {
	Agencies int
	Routes   int
	Stops    int
	Trips    int
	Warnings int
}

// CheckFeed runs the raw bundle bytes through a strict GTFS parser and
// reports what it saw. The tolerant bundle reader accepts feeds this parser
// rejects (missing agency table, odd encodings), so callers treat a failure
// here as a diagnostic, never as a reason to stop.
func CheckFeed(raw []byte) (*FeedReport, error) {
	static, err := gtfs.ParseStatic(raw, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("strict GTFS parse failed: %w", err)
	}
	return &FeedReport{
		Agencies: len(static.Agencies),
		Routes:   len(static.Routes),
		Stops:    len(static.Stops),
		Trips:    len(static.Trips),
		Warnings: len(static.Warnings),
	}, nil
}
