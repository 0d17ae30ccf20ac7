package topology

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// IsJunction reports junction membership, regardless of precedence.
func (c *Classification) IsJunction(stopID string) bool { return c.junctions[stopID] }

// IsTerminal reports terminal membership, regardless of precedence. A stop
// can be both a junction and a terminal; RoleOf applies the precedence.
func (c *Classification) IsTerminal(stopID string) bool { return c.terminals[stopID] }

// RoleOf returns the stop's final role: junction wins over terminal, which
// wins over intermediate.
func (c *Classification) RoleOf(stopID string) Role {
	switch {
	case c.junctions[stopID]:
		return RoleJunction
	case c.terminals[stopID]:
		return RoleTerminal
	default:
		return RoleIntermediate
	}
}

// Junctions returns the junction stop ids, sorted.
func (c *Classification) Junctions() []string {
	return sortedKeys(c.junctions)
}

// Terminals returns every terminal stop id, sorted. Stops that are also
// junctions are included; callers wanting disjoint sets use RoleOf.
func (c *Classification) Terminals() []string {
	return sortedKeys(c.terminals)
}

// Intermediates returns the stops that are neither junctions nor terminals,
// in schedule table order.
func (c *Classification) Intermediates() []string {
	var out []string
	for _, id := range c.stopOrder {
		if !c.junctions[id] && !c.terminals[id] {
			out = append(out, id)
		}
	}
	return out
}

// StopSets is the stable structure handed to visualization collaborators.
type StopSets struct {
	Junction []string `json:"junction"`
	Terminal []string `json:"terminal"`
	Target   []string `json:"target"`
}

// StopSets assembles the collaborator structure. Target carries the
// caller's focus stops (for example, the stops a subset was built around)
// and is passed through verbatim apart from sorting.
func (c *Classification) StopSets(target []string) StopSets {
	sets := StopSets{
		Junction: c.Junctions(),
		Terminal: c.Terminals(),
		Target:   append([]string(nil), target...),
	}
	sort.Strings(sets.Target)
	if sets.Junction == nil {
		sets.Junction = []string{}
	}
	if sets.Terminal == nil {
		sets.Terminal = []string{}
	}
	if sets.Target == nil {
		sets.Target = []string{}
	}
	return sets
}

// WriteStopSets writes the collaborator structure as JSON, atomically:
// the file appears at path only after a complete write.
func WriteStopSets(path string, sets StopSets) (err error) {
	b, err := json.MarshalIndent(sets, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding stop sets: %w", err)
	}
	b = append(b, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("error creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(b); err != nil {
		return fmt.Errorf("error writing stop sets: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("error closing stop sets file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("error replacing stop sets file: %w", err)
	}
	return nil
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
