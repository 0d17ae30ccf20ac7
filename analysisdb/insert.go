package analysisdb

import (
	"context"
	"fmt"

	"magga.pvnkmrksk.org/internal/model"
)

// ImportSchedule loads every schedule table into the database. Each table is
// written inside one transaction with a prepared statement.
func (c *Client) ImportSchedule(ctx context.Context, s *model.Schedule) error {
	if err := c.insertStops(ctx, s.Stops); err != nil {
		return err
	}
	if err := c.insertRoutes(ctx, s.Routes); err != nil {
		return err
	}
	if err := c.insertTrips(ctx, s.Trips); err != nil {
		return err
	}
	return c.insertStopTimes(ctx, s.StopVisits)
}

func (c *Client) insertStops(ctx context.Context, stops []model.Stop) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO stops (stop_id, stop_name, stop_lat, stop_lon)
		VALUES (?, ?, ?, ?);
	`)
	if err != nil {
		tx.Rollback() // nolint:errcheck
		return fmt.Errorf("error preparing statement: %w", err)
	}
	defer stmt.Close() // nolint:errcheck

	for _, stop := range stops {
		if _, err := stmt.ExecContext(ctx, stop.ID, stop.Name, stop.Lat, stop.Lon); err != nil {
			tx.Rollback() // nolint:errcheck
			return fmt.Errorf("error inserting stop: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

func (c *Client) insertRoutes(ctx context.Context, routes []model.Route) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO routes (route_id, route_short_name, route_long_name)
		VALUES (?, ?, ?);
	`)
	if err != nil {
		tx.Rollback() // nolint:errcheck
		return fmt.Errorf("error preparing statement: %w", err)
	}
	defer stmt.Close() // nolint:errcheck

	for _, route := range routes {
		if _, err := stmt.ExecContext(ctx, route.ID, route.ShortName, route.LongName); err != nil {
			tx.Rollback() // nolint:errcheck
			return fmt.Errorf("error inserting route: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

func (c *Client) insertTrips(ctx context.Context, trips []model.Trip) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO trips (trip_id, route_id, service_id, direction_id, shape_id)
		VALUES (?, ?, ?, ?, ?);
	`)
	if err != nil {
		tx.Rollback() // nolint:errcheck
		return fmt.Errorf("error preparing statement: %w", err)
	}
	defer stmt.Close() // nolint:errcheck

	for _, trip := range trips {
		if _, err := stmt.ExecContext(ctx, trip.ID, trip.RouteID, trip.ServiceID, trip.DirectionID, trip.ShapeID); err != nil {
			tx.Rollback() // nolint:errcheck
			return fmt.Errorf("error inserting trip: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

func (c *Client) insertStopTimes(ctx context.Context, visits []model.StopVisit) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO stop_times (trip_id, stop_id, stop_sequence)
		VALUES (?, ?, ?);
	`)
	if err != nil {
		tx.Rollback() // nolint:errcheck
		return fmt.Errorf("error preparing statement: %w", err)
	}
	defer stmt.Close() // nolint:errcheck

	for _, v := range visits {
		if _, err := stmt.ExecContext(ctx, v.TripID, v.StopID, v.Sequence); err != nil {
			tx.Rollback() // nolint:errcheck
			return fmt.Errorf("error inserting stop time: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}
