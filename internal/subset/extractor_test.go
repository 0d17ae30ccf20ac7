package subset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magga.pvnkmrksk.org/internal/model"
)

func TestExtract(t *testing.T) {
	s := testSchedule()

	t.Run("keeps exactly the qualifying rows", func(t *testing.T) {
		res, err := Resolve(s, Criteria{RoutePatterns: []string{"138*"}})
		require.NoError(t, err)

		sub, err := Extract(s, res.Trips)
		require.NoError(t, err)

		assert.Len(t, sub.Trips, 3)
		assert.Len(t, sub.Routes, 2) // X1, X2
		// Stops A, B, C, D are visited; E is not.
		ids := make([]string, 0, len(sub.Stops))
		for _, st := range sub.Stops {
			ids = append(ids, st.ID)
		}
		assert.Equal(t, []string{"A", "B", "C", "D"}, ids)
	})

	t.Run("subset is referentially closed", func(t *testing.T) {
		res, err := Resolve(s, Criteria{StopIDs: []string{"D"}})
		require.NoError(t, err)

		sub, err := Extract(s, res.Trips)
		require.NoError(t, err)
		require.NoError(t, sub.Validate())

		for _, v := range sub.StopVisits {
			_, ok := sub.TripByID(v.TripID)
			assert.True(t, ok, "visit references trip %s", v.TripID)
			_, ok = sub.StopByID(v.StopID)
			assert.True(t, ok, "visit references stop %s", v.StopID)
		}
		for _, trip := range sub.Trips {
			_, ok := sub.RouteByID(trip.RouteID)
			assert.True(t, ok, "trip references route %s", trip.RouteID)
		}
	})

	t.Run("preserves row order and sequence numbers", func(t *testing.T) {
		res, err := Resolve(s, Criteria{StopIDs: []string{"B"}})
		require.NoError(t, err)

		sub, err := Extract(s, res.Trips)
		require.NoError(t, err)

		var prevTrip string
		seen := map[string]bool{}
		for _, v := range sub.StopVisits {
			if v.TripID != prevTrip {
				assert.False(t, seen[v.TripID], "trip %s rows are not contiguous", v.TripID)
				seen[v.TripID] = true
				prevTrip = v.TripID
			}
		}
		assert.Equal(t, []string{"T1", "T2", "T3"}, []string{sub.Trips[0].ID, sub.Trips[1].ID, sub.Trips[2].ID})
		assert.Equal(t, 1, sub.StopVisits[0].Sequence)
	})

	t.Run("re-extraction is idempotent", func(t *testing.T) {
		criteria := Criteria{RoutePatterns: []string{"138*"}}

		res, err := Resolve(s, criteria)
		require.NoError(t, err)
		once, err := Extract(s, res.Trips)
		require.NoError(t, err)

		res2, err := Resolve(once, criteria)
		require.NoError(t, err)
		twice, err := Extract(once, res2.Trips)
		require.NoError(t, err)

		assert.Equal(t, once.Stops, twice.Stops)
		assert.Equal(t, once.Routes, twice.Routes)
		assert.Equal(t, once.Trips, twice.Trips)
		assert.Equal(t, once.StopVisits, twice.StopVisits)
	})

	t.Run("keeps shapes of kept trips only", func(t *testing.T) {
		shaped := testSchedule()
		shaped.Trips[0].ShapeID = "SH1"
		shaped.Trips[3].ShapeID = "SH2"
		shaped.ShapePoints = []model.ShapePoint{
			{ShapeID: "SH1", Sequence: 1}, {ShapeID: "SH1", Sequence: 2},
			{ShapeID: "SH2", Sequence: 1},
		}

		sub, err := Extract(shaped, TripSet{"T1": {}})
		require.NoError(t, err)
		require.Len(t, sub.ShapePoints, 2)
		assert.Equal(t, "SH1", sub.ShapePoints[0].ShapeID)
	})

	t.Run("empty trip set is rejected", func(t *testing.T) {
		_, err := Extract(s, TripSet{})
		require.Error(t, err)
	})

	t.Run("dangling trip set member surfaces as closure failure", func(t *testing.T) {
		broken := testSchedule()
		// A visit for a trip that is not in the trips table.
		broken.StopVisits = append(broken.StopVisits, model.StopVisit{TripID: "ghost", StopID: "A", Sequence: 1})

		_, err := Extract(broken, TripSet{"ghost": {}})
		var dangling *model.DanglingReferenceError
		require.ErrorAs(t, err, &dangling)
	})
}
