package topology

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRolePrecedence(t *testing.T) {
	c := &Classification{
		stopOrder: []string{"A", "B", "C"},
		junctions: map[string]bool{"B": true},
		terminals: map[string]bool{"A": true, "B": true},
	}

	// B is both; junction wins, but the terminal membership stays queryable.
	assert.Equal(t, RoleJunction, c.RoleOf("B"))
	assert.True(t, c.IsTerminal("B"))
	assert.Equal(t, RoleTerminal, c.RoleOf("A"))
	assert.Equal(t, RoleIntermediate, c.RoleOf("C"))
	assert.Equal(t, []string{"A", "B"}, c.Terminals())
	assert.Equal(t, []string{"C"}, c.Intermediates())
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "junction", RoleJunction.String())
	assert.Equal(t, "terminal", RoleTerminal.String())
	assert.Equal(t, "intermediate", RoleIntermediate.String())
}

func TestStopSets(t *testing.T) {
	c, err := Classify(sharedSegmentSchedule(), DefaultConfig())
	require.NoError(t, err)

	sets := c.StopSets([]string{"C", "B"})
	assert.Equal(t, []string{"B", "C"}, sets.Junction)
	assert.Equal(t, []string{"A", "D", "E", "F"}, sets.Terminal)
	assert.Equal(t, []string{"B", "C"}, sets.Target)
}

func TestStopSetsEmptyClassificationMarshalsToArrays(t *testing.T) {
	c, err := Classify(sharedSegmentSchedule(), Config{SimilarityThreshold: 0.8})
	require.NoError(t, err)

	sets := c.StopSets(nil)
	// Junction detection was off and no target given; the JSON must still
	// carry arrays, not nulls.
	b, err := json.Marshal(sets)
	require.NoError(t, err)
	assert.JSONEq(t, `{"junction":[],"terminal":["A","D","E","F"],"target":[]}`, string(b))
}

func TestWriteStopSets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stops.json")

	sets := StopSets{Junction: []string{"B"}, Terminal: []string{"A"}, Target: []string{"B"}}
	require.NoError(t, WriteStopSets(path, sets))

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	var got StopSets
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, sets, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}
