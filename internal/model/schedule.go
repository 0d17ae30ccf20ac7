// Package model holds the in-memory relational representation of a transit
// schedule: stops, routes, trips and the ordered stop visits of each trip.
// Tables preserve source row order; derived lookups are built lazily and the
// tables themselves are never mutated after loading.
package model

import "sync"

// Stop is a single boarding location in the schedule.
type Stop struct {
	ID   string  // stop_id
	Name string  // stop_name
	Lat  float64 // stop_lat
	Lon  float64 // stop_lon
}

// Route is a named service line owning zero or more trips.
type Route struct {
	ID        string // route_id
	ShortName string // route_short_name
	LongName  string // route_long_name
}

// Trip is one scheduled run of a route.
type Trip struct {
	ID          string // trip_id
	RouteID     string // route_id
	ServiceID   string // service_id
	DirectionID int    // direction_id
	ShapeID     string // shape_id, optional
}

// StopVisit is a single stop_times row. Its identity is (TripID, Sequence);
// within one trip sequence numbers are strictly increasing.
type StopVisit struct {
	TripID   string // trip_id
	StopID   string // stop_id
	Sequence int    // stop_sequence
}

// ShapePoint is one vertex of a trip's polyline. Shapes are cosmetic and are
// carried through subsets untouched.
type ShapePoint struct {
	ShapeID  string  // shape_id
	Lat      float64 // shape_pt_lat
	Lon      float64 // shape_pt_lon
	Sequence int     // shape_pt_sequence
}

// Schedule is a full relational schedule dataset. Slices hold rows in source
// order. A Schedule is immutable once built; analysis code only reads it.
type Schedule struct {
	Stops       []Stop
	Routes      []Route
	Trips       []Trip
	StopVisits  []StopVisit
	ShapePoints []ShapePoint

	indexOnce sync.Once
	idx       *index
}
