package bundle

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magga.pvnkmrksk.org/internal/model"
)

func zipBundle(t *testing.T, tables map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range tables {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func minimalTables() map[string][]byte {
	return map[string][]byte{
		"stops.txt":      []byte("stop_id,stop_name,stop_lat,stop_lon\nA,Alpha,12.97,77.59\nB,Beta,12.98,77.60\n"),
		"routes.txt":     []byte("route_id,route_short_name,route_long_name\nR1,138,Alpha - Beta\n"),
		"trips.txt":      []byte("trip_id,route_id,service_id,direction_id,shape_id\nT1,R1,WK,0,SH1\n"),
		"stop_times.txt": []byte("trip_id,stop_id,stop_sequence\nT1,A,1\nT1,B,2\n"),
	}
}

func TestReadBytes(t *testing.T) {
	t.Run("minimal bundle", func(t *testing.T) {
		s, err := ReadBytes(zipBundle(t, minimalTables()))
		require.NoError(t, err)

		require.Len(t, s.Stops, 2)
		assert.Equal(t, model.Stop{ID: "A", Name: "Alpha", Lat: 12.97, Lon: 77.59}, s.Stops[0])
		require.Len(t, s.Routes, 1)
		assert.Equal(t, "138", s.Routes[0].ShortName)
		require.Len(t, s.Trips, 1)
		assert.Equal(t, "SH1", s.Trips[0].ShapeID)
		require.Len(t, s.StopVisits, 2)
		assert.Equal(t, model.StopVisit{TripID: "T1", StopID: "B", Sequence: 2}, s.StopVisits[1])
		require.NoError(t, s.Validate())
	})

	t.Run("tables under a subdirectory", func(t *testing.T) {
		tables := map[string][]byte{}
		for name, content := range minimalTables() {
			tables["gtfs/"+name] = content
		}
		s, err := ReadBytes(zipBundle(t, tables))
		require.NoError(t, err)
		assert.Len(t, s.Stops, 2)
	})

	t.Run("extra columns are ignored", func(t *testing.T) {
		tables := minimalTables()
		tables["stops.txt"] = []byte("stop_id,stop_code,stop_name,stop_desc,stop_lat,stop_lon,zone_id\nA,77,Alpha,,12.97,77.59,Z1\n")
		s, err := ReadBytes(zipBundle(t, tables))
		require.NoError(t, err)
		require.Len(t, s.Stops, 1)
		assert.Equal(t, "Alpha", s.Stops[0].Name)
	})

	t.Run("optional shapes table", func(t *testing.T) {
		tables := minimalTables()
		tables["shapes.txt"] = []byte("shape_id,shape_pt_lat,shape_pt_lon,shape_pt_sequence\nSH1,12.97,77.59,1\nSH1,12.98,77.60,2\n")
		s, err := ReadBytes(zipBundle(t, tables))
		require.NoError(t, err)
		require.Len(t, s.ShapePoints, 2)
		assert.Equal(t, 2, s.ShapePoints[1].Sequence)
	})

	t.Run("missing required table", func(t *testing.T) {
		tables := minimalTables()
		delete(tables, "stop_times.txt")

		var malformed *MalformedBundleError
		_, err := ReadBytes(zipBundle(t, tables))
		require.ErrorAs(t, err, &malformed)
		assert.Equal(t, "stop_times.txt", malformed.Table)
	})

	t.Run("not a zip archive", func(t *testing.T) {
		var malformed *MalformedBundleError
		_, err := ReadBytes([]byte("definitely not a zip"))
		require.ErrorAs(t, err, &malformed)
	})

	t.Run("missing required column", func(t *testing.T) {
		tables := minimalTables()
		tables["routes.txt"] = []byte("route_id,route_long_name\nR1,Alpha - Beta\n")

		var malformed *MalformedBundleError
		_, err := ReadBytes(zipBundle(t, tables))
		require.ErrorAs(t, err, &malformed)
		assert.Contains(t, malformed.Reason, "route_short_name")
	})

	t.Run("unparsable coordinate", func(t *testing.T) {
		tables := minimalTables()
		tables["stops.txt"] = []byte("stop_id,stop_name,stop_lat,stop_lon\nA,Alpha,north,77.59\n")

		var malformed *MalformedBundleError
		_, err := ReadBytes(zipBundle(t, tables))
		require.ErrorAs(t, err, &malformed)
		assert.Equal(t, "stops.txt", malformed.Table)
	})
}

func TestEncodingFallback(t *testing.T) {
	t.Run("latin-1 stop names decode via fallback", func(t *testing.T) {
		tables := minimalTables()
		// "Caf\xe9" is valid ISO-8859-1 but not valid UTF-8.
		tables["stops.txt"] = []byte("stop_id,stop_name,stop_lat,stop_lon\nA,Caf\xe9,12.97,77.59\nB,Beta,12.98,77.60\n")

		s, err := ReadBytes(zipBundle(t, tables))
		require.NoError(t, err)
		assert.Equal(t, "Café", s.Stops[0].Name)
	})

	t.Run("utf-8 BOM is stripped", func(t *testing.T) {
		tables := minimalTables()
		tables["stops.txt"] = append([]byte{0xEF, 0xBB, 0xBF}, tables["stops.txt"]...)

		s, err := ReadBytes(zipBundle(t, tables))
		require.NoError(t, err)
		assert.Equal(t, "A", s.Stops[0].ID)
	})

	t.Run("structurally broken table exhausts the fallback chain", func(t *testing.T) {
		tables := minimalTables()
		// An unterminated quote fails CSV parsing under every encoding.
		tables["routes.txt"] = []byte("route_id,route_short_name,route_long_name\nR1,\"138,broken\n")

		var encErr *EncodingError
		_, err := ReadBytes(zipBundle(t, tables))
		require.ErrorAs(t, err, &encErr)
		assert.Equal(t, "routes.txt", encErr.Table)
		assert.Equal(t, []string{"utf-8", "iso-8859-1", "windows-1252"}, encErr.Encodings)
	})
}

func TestWriteRoundTrip(t *testing.T) {
	s, err := ReadBytes(zipBundle(t, minimalTables()))
	require.NoError(t, err)
	s.ShapePoints = []model.ShapePoint{
		{ShapeID: "SH1", Lat: 12.97, Lon: 77.59, Sequence: 1},
		{ShapeID: "SH1", Lat: 12.98, Lon: 77.6, Sequence: 2},
	}

	out := filepath.Join(t.TempDir(), "subset.zip")
	require.NoError(t, Write(out, s))

	got, err := Read(out)
	require.NoError(t, err)
	assert.Equal(t, s.Stops, got.Stops)
	assert.Equal(t, s.Routes, got.Routes)
	assert.Equal(t, s.Trips, got.Trips)
	assert.Equal(t, s.StopVisits, got.StopVisits)
	assert.Equal(t, s.ShapePoints, got.ShapePoints)
}

func TestWriteIsDeterministic(t *testing.T) {
	s, err := ReadBytes(zipBundle(t, minimalTables()))
	require.NoError(t, err)

	dir := t.TempDir()
	a := filepath.Join(dir, "a.zip")
	b := filepath.Join(dir, "b.zip")
	require.NoError(t, Write(a, s))
	require.NoError(t, Write(b, s))

	// Compare table contents rather than archive bytes; zip headers carry
	// timestamps.
	readTables := func(p string) map[string]string {
		zr, err := zip.OpenReader(p)
		require.NoError(t, err)
		defer zr.Close()
		out := map[string]string{}
		for _, f := range zr.File {
			rc, err := f.Open()
			require.NoError(t, err)
			var buf bytes.Buffer
			_, err = buf.ReadFrom(rc)
			require.NoError(t, err)
			require.NoError(t, rc.Close())
			out[f.Name] = buf.String()
		}
		return out
	}
	assert.Equal(t, readTables(a), readTables(b))
}

func TestWriteLeavesNoTempFileBehind(t *testing.T) {
	s, err := ReadBytes(zipBundle(t, minimalTables()))
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, Write(filepath.Join(dir, "out.zip"), s))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "out.zip", entries[0].Name())
}
