package bundle

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"magga.pvnkmrksk.org/internal/model"
)

// Write emits a schedule as a zip bundle with the same headers the reader
// expects. The archive is written to a temp file next to the target and
// renamed into place, so a partially written bundle never appears at the
// destination path.
func Write(p string, s *model.Schedule) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(p), filepath.Base(p)+".tmp-*")
	if err != nil {
		return fmt.Errorf("error creating temp bundle: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = writeArchive(tmp, s); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("error closing temp bundle: %w", err)
	}
	if err = os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("error replacing bundle: %w", err)
	}
	return nil
}

func writeArchive(f *os.File, s *model.Schedule) error {
	zw := zip.NewWriter(f)

	err := writeTable(zw, stopsTable,
		[]string{"stop_id", "stop_name", "stop_lat", "stop_lon"},
		len(s.Stops), func(i int) []string {
			st := s.Stops[i]
			return []string{st.ID, st.Name, formatFloat(st.Lat), formatFloat(st.Lon)}
		})
	if err != nil {
		return err
	}

	err = writeTable(zw, routesTable,
		[]string{"route_id", "route_short_name", "route_long_name"},
		len(s.Routes), func(i int) []string {
			r := s.Routes[i]
			return []string{r.ID, r.ShortName, r.LongName}
		})
	if err != nil {
		return err
	}

	err = writeTable(zw, tripsTable,
		[]string{"trip_id", "route_id", "service_id", "direction_id", "shape_id"},
		len(s.Trips), func(i int) []string {
			t := s.Trips[i]
			return []string{t.ID, t.RouteID, t.ServiceID, strconv.Itoa(t.DirectionID), t.ShapeID}
		})
	if err != nil {
		return err
	}

	err = writeTable(zw, stopTimesTable,
		[]string{"trip_id", "stop_id", "stop_sequence"},
		len(s.StopVisits), func(i int) []string {
			v := s.StopVisits[i]
			return []string{v.TripID, v.StopID, strconv.Itoa(v.Sequence)}
		})
	if err != nil {
		return err
	}

	if len(s.ShapePoints) > 0 {
		err = writeTable(zw, shapesTable,
			[]string{"shape_id", "shape_pt_lat", "shape_pt_lon", "shape_pt_sequence"},
			len(s.ShapePoints), func(i int) []string {
				sp := s.ShapePoints[i]
				return []string{sp.ShapeID, formatFloat(sp.Lat), formatFloat(sp.Lon), strconv.Itoa(sp.Sequence)}
			})
		if err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("error finalizing archive: %w", err)
	}
	return nil
}

func writeTable(zw *zip.Writer, name string, header []string, n int, row func(int) []string) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", name, err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("error writing %s header: %w", name, err)
	}
	for i := 0; i < n; i++ {
		if err := cw.Write(row(i)); err != nil {
			return fmt.Errorf("error writing %s row: %w", name, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("error flushing %s: %w", name, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
