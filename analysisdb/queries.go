package analysisdb

import (
	"context"
	"fmt"
)

// StopTripCount ranks a stop by the number of distinct trips visiting it.
type StopTripCount struct {
	StopID    string
	StopName  string
	TripCount int64
}

// StopRouteCount ranks a stop by the number of distinct routes serving it.
type StopRouteCount struct {
	StopID     string
	StopName   string
	RouteCount int64
}

// RouteTripCount ranks a route by its trip count.
type RouteTripCount struct {
	RouteID   string
	ShortName string
	LongName  string
	TripCount int64
}

// StopsByTripCount returns every visited stop ordered by descending trip
// count, ties broken by stop id.
func (c *Client) StopsByTripCount(ctx context.Context) ([]StopTripCount, error) {
	rows, err := c.DB.QueryContext(ctx, `
		SELECT st.stop_id, s.stop_name, COUNT(DISTINCT st.trip_id) AS trip_count
		FROM stop_times st
		JOIN stops s ON s.stop_id = st.stop_id
		GROUP BY st.stop_id, s.stop_name
		ORDER BY trip_count DESC, st.stop_id ASC;
	`)
	if err != nil {
		return nil, fmt.Errorf("error querying stops by trip count: %w", err)
	}
	defer rows.Close() // nolint:errcheck

	var out []StopTripCount
	for rows.Next() {
		var r StopTripCount
		if err := rows.Scan(&r.StopID, &r.StopName, &r.TripCount); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// StopsByRouteCount returns every visited stop ordered by descending count
// of distinct routes, ties broken by stop id.
func (c *Client) StopsByRouteCount(ctx context.Context) ([]StopRouteCount, error) {
	rows, err := c.DB.QueryContext(ctx, `
		SELECT st.stop_id, s.stop_name, COUNT(DISTINCT t.route_id) AS route_count
		FROM stop_times st
		JOIN stops s ON s.stop_id = st.stop_id
		JOIN trips t ON t.trip_id = st.trip_id
		GROUP BY st.stop_id, s.stop_name
		ORDER BY route_count DESC, st.stop_id ASC;
	`)
	if err != nil {
		return nil, fmt.Errorf("error querying stops by route count: %w", err)
	}
	defer rows.Close() // nolint:errcheck

	var out []StopRouteCount
	for rows.Next() {
		var r StopRouteCount
		if err := rows.Scan(&r.StopID, &r.StopName, &r.RouteCount); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RoutesByTripCount returns every route that owns trips, ordered by
// descending trip count, ties broken by route id.
func (c *Client) RoutesByTripCount(ctx context.Context) ([]RouteTripCount, error) {
	rows, err := c.DB.QueryContext(ctx, `
		SELECT r.route_id, r.route_short_name, r.route_long_name, COUNT(t.trip_id) AS trip_count
		FROM routes r
		JOIN trips t ON t.route_id = r.route_id
		GROUP BY r.route_id, r.route_short_name, r.route_long_name
		ORDER BY trip_count DESC, r.route_id ASC;
	`)
	if err != nil {
		return nil, fmt.Errorf("error querying routes by trip count: %w", err)
	}
	defer rows.Close() // nolint:errcheck

	var out []RouteTripCount
	for rows.Next() {
		var r RouteTripCount
		if err := rows.Scan(&r.RouteID, &r.ShortName, &r.LongName, &r.TripCount); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
