// Package subset selects trips out of a schedule by stop, route-pattern and
// minimum-frequency criteria, and extracts the referentially closed schedule
// those trips span.
package subset

import (
	"fmt"
	"strings"

	"magga.pvnkmrksk.org/internal/model"
)

// Criteria describes which trips qualify for a subset. All fields are
// optional; an empty Criteria selects every trip.
type Criteria struct {
	// StopIDs keeps trips that visit at least one of these stops.
	StopIDs []string
	// RoutePatterns keeps trips of routes whose short name matches one of
	// these patterns. A '*' matches zero or more characters; a pattern
	// without '*' must match exactly.
	RoutePatterns []string
	// MinTrips drops a route's trips when the route has fewer than this many
	// qualifying trips. Counted after the stop and route filters, so a route
	// must clear the bar within the filtered set, not feed-wide.
	MinTrips int
}

func (c Criteria) String() string {
	var parts []string
	if len(c.StopIDs) > 0 {
		parts = append(parts, "stops="+strings.Join(c.StopIDs, ","))
	}
	if len(c.RoutePatterns) > 0 {
		parts = append(parts, "routes="+strings.Join(c.RoutePatterns, ","))
	}
	if c.MinTrips > 0 {
		parts = append(parts, fmt.Sprintf("min_trips=%d", c.MinTrips))
	}
	if len(parts) == 0 {
		return "all trips"
	}
	return strings.Join(parts, " ")
}

// TripSet is a set of trip ids.
type TripSet map[string]struct{}

// Contains reports whether the trip is in the set.
func (ts TripSet) Contains(tripID string) bool {
	_, ok := ts[tripID]
	return ok
}

// Result is the outcome of resolving criteria against a schedule. Unmatched
// patterns are diagnostics, not errors; callers surface them as warnings.
type Result struct {
	Trips             TripSet
	MatchedRoutes     map[string][]string // pattern -> matched route ids
	UnmatchedPatterns []string
}

// EmptyResultError reports criteria that resolved to zero trips. Callers
// decide whether that is fatal.
type EmptyResultError struct {
	Criteria Criteria
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("no trips match criteria (%s)", e.Criteria)
}

// Resolve computes the qualifying trip set for the criteria. Stop and route
// filters compose by intersection when both are present; with neither, every
// trip qualifies. The minimum-trip threshold then prunes routes whose
// qualifying trip count falls short.
func Resolve(s *model.Schedule, c Criteria) (*Result, error) {
	res := &Result{MatchedRoutes: make(map[string][]string)}

	var qualifying TripSet

	if len(c.RoutePatterns) > 0 {
		routeTrips := make(TripSet)
		for _, pattern := range dedupe(c.RoutePatterns) {
			var matched []string
			for i := range s.Routes {
				if matchPattern(pattern, s.Routes[i].ShortName) {
					matched = append(matched, s.Routes[i].ID)
					for _, tripID := range s.TripsForRoute(s.Routes[i].ID) {
						routeTrips[tripID] = struct{}{}
					}
				}
			}
			if len(matched) == 0 {
				res.UnmatchedPatterns = append(res.UnmatchedPatterns, pattern)
				continue
			}
			res.MatchedRoutes[pattern] = matched
		}
		qualifying = routeTrips
	}

	if len(c.StopIDs) > 0 {
		stopTrips := make(TripSet)
		for _, stopID := range dedupe(c.StopIDs) {
			for _, tripID := range s.TripsThroughStop(stopID) {
				stopTrips[tripID] = struct{}{}
			}
		}
		if qualifying == nil {
			qualifying = stopTrips
		} else {
			qualifying = intersect(qualifying, stopTrips)
		}
	}

	if qualifying == nil {
		qualifying = make(TripSet, len(s.Trips))
		for i := range s.Trips {
			qualifying[s.Trips[i].ID] = struct{}{}
		}
	}

	if c.MinTrips > 0 {
		qualifying = applyMinTrips(s, qualifying, c.MinTrips)
	}

	if len(qualifying) == 0 {
		return res, &EmptyResultError{Criteria: c}
	}

	res.Trips = qualifying
	return res, nil
}

// applyMinTrips counts qualifying trips per route and drops the trips of
// routes below the threshold.
func applyMinTrips(s *model.Schedule, trips TripSet, minTrips int) TripSet {
	perRoute := make(map[string]int)
	for tripID := range trips {
		if trip, ok := s.TripByID(tripID); ok {
			perRoute[trip.RouteID]++
		}
	}

	kept := make(TripSet, len(trips))
	for tripID := range trips {
		trip, ok := s.TripByID(tripID)
		if !ok {
			continue
		}
		if perRoute[trip.RouteID] >= minTrips {
			kept[tripID] = struct{}{}
		}
	}
	return kept
}

// matchPattern matches a route short name against a wildcard pattern.
// Everything except '*' is literal, so patterns never go through regexp.
func matchPattern(pattern, name string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == name
	}
	if !strings.HasPrefix(name, parts[0]) {
		return false
	}
	name = name[len(parts[0]):]
	for _, part := range parts[1 : len(parts)-1] {
		i := strings.Index(name, part)
		if i < 0 {
			return false
		}
		name = name[i+len(part):]
	}
	return strings.HasSuffix(name, parts[len(parts)-1])
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func intersect(a, b TripSet) TripSet {
	if len(b) < len(a) {
		a, b = b, a
	}
	out := make(TripSet)
	for id := range a {
		if _, ok := b[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}
