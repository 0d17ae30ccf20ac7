package model

import "fmt"

// DanglingReferenceError reports a foreign key with no matching row. It can
// only arise from a defect in code that assembles or filters schedules, so
// callers treat it as an internal invariant failure rather than bad input.
type DanglingReferenceError struct {
	Table  string // table holding the dangling reference
	Column string // referencing column
	Value  string // the id that failed to resolve
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("dangling reference: %s.%s = %q has no matching row", e.Table, e.Column, e.Value)
}

// SequenceError reports a trip whose stop visits are not strictly increasing
// by sequence number.
type SequenceError struct {
	TripID   string
	Sequence int
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("trip %q: stop_sequence %d is not strictly increasing", e.TripID, e.Sequence)
}

// Validate checks the schedule's referential invariants: every stop visit
// resolves to a trip and a stop, every trip resolves to a route, and each
// trip's visit sequence is strictly increasing. It returns the first
// violation found.
func (s *Schedule) Validate() error {
	idx := s.index()

	for i := range s.Trips {
		if _, ok := idx.routeByID[s.Trips[i].RouteID]; !ok {
			return &DanglingReferenceError{Table: "trips", Column: "route_id", Value: s.Trips[i].RouteID}
		}
	}

	for _, v := range s.StopVisits {
		if _, ok := idx.tripByID[v.TripID]; !ok {
			return &DanglingReferenceError{Table: "stop_times", Column: "trip_id", Value: v.TripID}
		}
		if _, ok := idx.stopByID[v.StopID]; !ok {
			return &DanglingReferenceError{Table: "stop_times", Column: "stop_id", Value: v.StopID}
		}
	}

	for tripID, visits := range idx.visitsByTrip {
		for i := 1; i < len(visits); i++ {
			if visits[i].Sequence <= visits[i-1].Sequence {
				return &SequenceError{TripID: tripID, Sequence: visits[i].Sequence}
			}
		}
	}

	return nil
}
