// Package bundle reads and writes schedule bundles: zip archives of
// delimited tables (stops.txt, routes.txt, trips.txt, stop_times.txt and
// optionally shapes.txt). Feeds in the wild are not reliably UTF-8, so the
// reader walks a fallback list of encodings before giving up.
package bundle

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"magga.pvnkmrksk.org/internal/model"
)

const (
	stopsTable     = "stops.txt"
	routesTable    = "routes.txt"
	tripsTable     = "trips.txt"
	stopTimesTable = "stop_times.txt"
	shapesTable    = "shapes.txt"
)

var requiredTables = []string{stopsTable, routesTable, tripsTable, stopTimesTable}

// Read loads a schedule bundle from a zip archive on disk.
func Read(p string) (*model.Schedule, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, &MalformedBundleError{Path: p, Reason: "cannot read archive", Err: err}
	}
	return readBytes(b, p)
}

// ReadBytes loads a schedule bundle from in-memory zip data.
func ReadBytes(b []byte) (*model.Schedule, error) {
	return readBytes(b, "")
}

func readBytes(b []byte, srcPath string) (*model.Schedule, error) {
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, &MalformedBundleError{Path: srcPath, Reason: "not a zip archive", Err: err}
	}

	// Tables may sit under a subdirectory inside the archive; match on the
	// lowercased base name, first occurrence wins.
	files := make(map[string]*zip.File)
	for _, f := range zr.File {
		name := strings.ToLower(path.Base(f.Name))
		if _, ok := files[name]; !ok {
			files[name] = f
		}
	}

	for _, table := range requiredTables {
		if _, ok := files[table]; !ok {
			return nil, &MalformedBundleError{Path: srcPath, Table: table, Reason: "required table missing"}
		}
	}

	s := &model.Schedule{}

	if err := readStops(files[stopsTable], srcPath, s); err != nil {
		return nil, err
	}
	if err := readRoutes(files[routesTable], srcPath, s); err != nil {
		return nil, err
	}
	if err := readTrips(files[tripsTable], srcPath, s); err != nil {
		return nil, err
	}
	if err := readStopTimes(files[stopTimesTable], srcPath, s); err != nil {
		return nil, err
	}
	if f, ok := files[shapesTable]; ok {
		if err := readShapes(f, srcPath, s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// decodeTable extracts a table from the archive and parses it with the
// first encoding in the fallback chain that yields well-formed CSV.
func decodeTable(f *zip.File, table, srcPath string) ([][]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, &MalformedBundleError{Path: srcPath, Table: table, Reason: "cannot open table", Err: err}
	}
	raw, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return nil, &MalformedBundleError{Path: srcPath, Table: table, Reason: "cannot read table", Err: err}
	}

	attempts := []struct {
		name   string
		decode func([]byte) ([]byte, error)
	}{
		{"utf-8", func(b []byte) ([]byte, error) {
			if !utf8.Valid(b) {
				return nil, errors.New("invalid UTF-8 byte sequence")
			}
			return b, nil
		}},
		{"iso-8859-1", charmap.ISO8859_1.NewDecoder().Bytes},
		{"windows-1252", charmap.Windows1252.NewDecoder().Bytes},
	}

	tried := make([]string, 0, len(attempts))
	var lastErr error
	for _, a := range attempts {
		tried = append(tried, a.name)
		decoded, err := a.decode(raw)
		if err != nil {
			lastErr = err
			continue
		}
		records, err := parseCSV(decoded)
		if err != nil {
			lastErr = err
			continue
		}
		return records, nil
	}
	return nil, &EncodingError{Table: table, Encodings: tried, Err: lastErr}
}

func parseCSV(b []byte) ([][]string, error) {
	b = bytes.TrimPrefix(b, []byte{0xEF, 0xBB, 0xBF}) // UTF-8 BOM
	r := csv.NewReader(bytes.NewReader(b))
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("empty table")
	}
	return records, nil
}

// columnIndex maps header names to positions. Required columns that are
// absent produce an error; optional lookups return -1.
type columnIndex map[string]int

func indexHeader(records [][]string) columnIndex {
	idx := make(columnIndex, len(records[0]))
	for i, name := range records[0] {
		idx[strings.TrimSpace(name)] = i
	}
	return idx
}

func (c columnIndex) require(table, srcPath string, names ...string) error {
	for _, name := range names {
		if _, ok := c[name]; !ok {
			return &MalformedBundleError{Path: srcPath, Table: table, Reason: "missing column " + name}
		}
	}
	return nil
}

func (c columnIndex) get(row []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func readStops(f *zip.File, srcPath string, s *model.Schedule) error {
	records, err := decodeTable(f, stopsTable, srcPath)
	if err != nil {
		return err
	}
	cols := indexHeader(records)
	if err := cols.require(stopsTable, srcPath, "stop_id", "stop_name", "stop_lat", "stop_lon"); err != nil {
		return err
	}
	for _, row := range records[1:] {
		lat, err := parseFloat(cols.get(row, "stop_lat"))
		if err != nil {
			return &MalformedBundleError{Path: srcPath, Table: stopsTable, Reason: "bad stop_lat", Err: err}
		}
		lon, err := parseFloat(cols.get(row, "stop_lon"))
		if err != nil {
			return &MalformedBundleError{Path: srcPath, Table: stopsTable, Reason: "bad stop_lon", Err: err}
		}
		s.Stops = append(s.Stops, model.Stop{
			ID:   cols.get(row, "stop_id"),
			Name: cols.get(row, "stop_name"),
			Lat:  lat,
			Lon:  lon,
		})
	}
	return nil
}

func readRoutes(f *zip.File, srcPath string, s *model.Schedule) error {
	records, err := decodeTable(f, routesTable, srcPath)
	if err != nil {
		return err
	}
	cols := indexHeader(records)
	if err := cols.require(routesTable, srcPath, "route_id", "route_short_name", "route_long_name"); err != nil {
		return err
	}
	for _, row := range records[1:] {
		s.Routes = append(s.Routes, model.Route{
			ID:        cols.get(row, "route_id"),
			ShortName: cols.get(row, "route_short_name"),
			LongName:  cols.get(row, "route_long_name"),
		})
	}
	return nil
}

func readTrips(f *zip.File, srcPath string, s *model.Schedule) error {
	records, err := decodeTable(f, tripsTable, srcPath)
	if err != nil {
		return err
	}
	cols := indexHeader(records)
	if err := cols.require(tripsTable, srcPath, "trip_id", "route_id", "service_id"); err != nil {
		return err
	}
	for _, row := range records[1:] {
		direction := 0
		if v := cols.get(row, "direction_id"); v != "" {
			direction, err = strconv.Atoi(v)
			if err != nil {
				return &MalformedBundleError{Path: srcPath, Table: tripsTable, Reason: "bad direction_id", Err: err}
			}
		}
		s.Trips = append(s.Trips, model.Trip{
			ID:          cols.get(row, "trip_id"),
			RouteID:     cols.get(row, "route_id"),
			ServiceID:   cols.get(row, "service_id"),
			DirectionID: direction,
			ShapeID:     cols.get(row, "shape_id"),
		})
	}
	return nil
}

func readStopTimes(f *zip.File, srcPath string, s *model.Schedule) error {
	records, err := decodeTable(f, stopTimesTable, srcPath)
	if err != nil {
		return err
	}
	cols := indexHeader(records)
	if err := cols.require(stopTimesTable, srcPath, "trip_id", "stop_id", "stop_sequence"); err != nil {
		return err
	}
	for _, row := range records[1:] {
		seq, err := strconv.Atoi(cols.get(row, "stop_sequence"))
		if err != nil {
			return &MalformedBundleError{Path: srcPath, Table: stopTimesTable, Reason: "bad stop_sequence", Err: err}
		}
		s.StopVisits = append(s.StopVisits, model.StopVisit{
			TripID:   cols.get(row, "trip_id"),
			StopID:   cols.get(row, "stop_id"),
			Sequence: seq,
		})
	}
	return nil
}

func readShapes(f *zip.File, srcPath string, s *model.Schedule) error {
	records, err := decodeTable(f, shapesTable, srcPath)
	if err != nil {
		return err
	}
	cols := indexHeader(records)
	if err := cols.require(shapesTable, srcPath, "shape_id", "shape_pt_lat", "shape_pt_lon", "shape_pt_sequence"); err != nil {
		return err
	}
	for _, row := range records[1:] {
		lat, err := parseFloat(cols.get(row, "shape_pt_lat"))
		if err != nil {
			return &MalformedBundleError{Path: srcPath, Table: shapesTable, Reason: "bad shape_pt_lat", Err: err}
		}
		lon, err := parseFloat(cols.get(row, "shape_pt_lon"))
		if err != nil {
			return &MalformedBundleError{Path: srcPath, Table: shapesTable, Reason: "bad shape_pt_lon", Err: err}
		}
		seq, err := strconv.Atoi(cols.get(row, "shape_pt_sequence"))
		if err != nil {
			return &MalformedBundleError{Path: srcPath, Table: shapesTable, Reason: "bad shape_pt_sequence", Err: err}
		}
		s.ShapePoints = append(s.ShapePoints, model.ShapePoint{
			ShapeID:  cols.get(row, "shape_id"),
			Lat:      lat,
			Lon:      lon,
			Sequence: seq,
		})
	}
	return nil
}

func parseFloat(v string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.ParseFloat(v, 64)
}
