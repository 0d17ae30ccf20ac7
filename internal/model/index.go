package model

import "sort"

// index holds the derived lookups over a Schedule. It is built once, on first
// access, and shared by all readers afterwards.
type index struct {
	stopByID  map[string]*Stop
	routeByID map[string]*Route
	tripByID  map[string]*Trip

	tripsByRoute map[string][]string
	visitsByTrip map[string][]StopVisit // ordered by Sequence
	tripsByStop  map[string][]string    // distinct, first-visit order
	routesByStop map[string][]string    // distinct, sorted
}

func (s *Schedule) index() *index {
	s.indexOnce.Do(func() {
		s.idx = buildIndex(s)
	})
	return s.idx
}

func buildIndex(s *Schedule) *index {
	idx := &index{
		stopByID:     make(map[string]*Stop, len(s.Stops)),
		routeByID:    make(map[string]*Route, len(s.Routes)),
		tripByID:     make(map[string]*Trip, len(s.Trips)),
		tripsByRoute: make(map[string][]string),
		visitsByTrip: make(map[string][]StopVisit),
		tripsByStop:  make(map[string][]string),
		routesByStop: make(map[string][]string),
	}

	for i := range s.Stops {
		idx.stopByID[s.Stops[i].ID] = &s.Stops[i]
	}
	for i := range s.Routes {
		idx.routeByID[s.Routes[i].ID] = &s.Routes[i]
	}
	for i := range s.Trips {
		t := &s.Trips[i]
		idx.tripByID[t.ID] = t
		idx.tripsByRoute[t.RouteID] = append(idx.tripsByRoute[t.RouteID], t.ID)
	}

	for _, v := range s.StopVisits {
		idx.visitsByTrip[v.TripID] = append(idx.visitsByTrip[v.TripID], v)
	}
	for tripID := range idx.visitsByTrip {
		visits := idx.visitsByTrip[tripID]
		sort.SliceStable(visits, func(i, j int) bool {
			return visits[i].Sequence < visits[j].Sequence
		})
	}

	seenTrip := make(map[string]map[string]bool)
	routeSets := make(map[string]map[string]bool)
	for _, v := range s.StopVisits {
		if seenTrip[v.StopID] == nil {
			seenTrip[v.StopID] = make(map[string]bool)
		}
		if !seenTrip[v.StopID][v.TripID] {
			seenTrip[v.StopID][v.TripID] = true
			idx.tripsByStop[v.StopID] = append(idx.tripsByStop[v.StopID], v.TripID)
		}
		if trip, ok := idx.tripByID[v.TripID]; ok {
			if routeSets[v.StopID] == nil {
				routeSets[v.StopID] = make(map[string]bool)
			}
			routeSets[v.StopID][trip.RouteID] = true
		}
	}
	for stopID, set := range routeSets {
		routes := make([]string, 0, len(set))
		for routeID := range set {
			routes = append(routes, routeID)
		}
		sort.Strings(routes)
		idx.routesByStop[stopID] = routes
	}

	return idx
}

// StopByID returns the stop with the given id, if present.
func (s *Schedule) StopByID(id string) (*Stop, bool) {
	stop, ok := s.index().stopByID[id]
	return stop, ok
}

// RouteByID returns the route with the given id, if present.
func (s *Schedule) RouteByID(id string) (*Route, bool) {
	route, ok := s.index().routeByID[id]
	return route, ok
}

// TripByID returns the trip with the given id, if present.
func (s *Schedule) TripByID(id string) (*Trip, bool) {
	trip, ok := s.index().tripByID[id]
	return trip, ok
}

// TripsForRoute returns the trip ids belonging to a route, in table order.
func (s *Schedule) TripsForRoute(routeID string) []string {
	return s.index().tripsByRoute[routeID]
}

// VisitsForTrip returns a trip's stop visits ordered by sequence number.
func (s *Schedule) VisitsForTrip(tripID string) []StopVisit {
	return s.index().visitsByTrip[tripID]
}

// VisitSequence returns the ordered stop ids a trip passes through.
func (s *Schedule) VisitSequence(tripID string) []string {
	visits := s.index().visitsByTrip[tripID]
	seq := make([]string, len(visits))
	for i, v := range visits {
		seq[i] = v.StopID
	}
	return seq
}

// TripsThroughStop returns the distinct trips visiting a stop, in the order
// their first visit appears in the stop_times table.
func (s *Schedule) TripsThroughStop(stopID string) []string {
	return s.index().tripsByStop[stopID]
}

// RoutesThroughStop returns the distinct routes whose trips visit a stop,
// sorted by route id.
func (s *Schedule) RoutesThroughStop(stopID string) []string {
	return s.index().routesByStop[stopID]
}
