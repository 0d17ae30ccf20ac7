package subset

import (
	"fmt"

	"magga.pvnkmrksk.org/internal/model"
)

// Extract builds a new schedule containing exactly the qualifying trips,
// their stop visits, and every route, stop and shape those rows reference.
// Output tables are stable filters of the input tables: row order is
// preserved and sequence numbers are copied verbatim.
//
// The result is verified to be referentially closed before it is returned;
// a closure failure indicates a defect here, not bad input.
func Extract(s *model.Schedule, trips TripSet) (*model.Schedule, error) {
	if len(trips) == 0 {
		return nil, fmt.Errorf("cannot extract an empty trip set")
	}

	routesKept := make(map[string]struct{})
	shapesKept := make(map[string]struct{})
	out := &model.Schedule{}

	for i := range s.Trips {
		t := s.Trips[i]
		if !trips.Contains(t.ID) {
			continue
		}
		out.Trips = append(out.Trips, t)
		routesKept[t.RouteID] = struct{}{}
		if t.ShapeID != "" {
			shapesKept[t.ShapeID] = struct{}{}
		}
	}

	stopsKept := make(map[string]struct{})
	for _, v := range s.StopVisits {
		if !trips.Contains(v.TripID) {
			continue
		}
		out.StopVisits = append(out.StopVisits, v)
		stopsKept[v.StopID] = struct{}{}
	}

	for i := range s.Routes {
		if _, ok := routesKept[s.Routes[i].ID]; ok {
			out.Routes = append(out.Routes, s.Routes[i])
		}
	}
	for i := range s.Stops {
		if _, ok := stopsKept[s.Stops[i].ID]; ok {
			out.Stops = append(out.Stops, s.Stops[i])
		}
	}
	for i := range s.ShapePoints {
		if _, ok := shapesKept[s.ShapePoints[i].ShapeID]; ok {
			out.ShapePoints = append(out.ShapePoints, s.ShapePoints[i])
		}
	}

	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("extracted subset failed closure check: %w", err)
	}
	return out, nil
}
