// Package topology classifies a schedule's stops into junction, terminal and
// intermediate roles. The classification is derived purely from the ordered
// stop visits of each trip and the set of routes serving each stop; the
// schedule itself is never mutated.
//
// Stops are first grouped into segments: maximal linear chains of adjacent
// stops whose route coverage stays nearly identical (Jaccard similarity at or
// above a threshold). A segment whose boundary touches more than one other
// segment contributes its two extreme stops as junctions. Terminals are the
// first and last stops of any trip, independent of segmentation.
package topology

import (
	"fmt"

	"magga.pvnkmrksk.org/internal/model"
)

// DefaultSimilarityThreshold is the route-overlap level at which two
// adjacent stops are still considered part of the same segment.
const DefaultSimilarityThreshold = 0.8

// Config controls a classification run. Junction detection is an explicit
// switch here rather than an ambient flag; callers pass the Config into
// every Classify call.
type Config struct {
	// SimilarityThreshold is the minimum Jaccard similarity between the
	// route sets of adjacent stops for segment growth to continue. Must be
	// in [0, 1].
	SimilarityThreshold float64
	// DetectJunctions enables junction promotion. When false the
	// classification still computes segments and terminals.
	DetectJunctions bool
	// Workers bounds the goroutines used for adjacency construction.
	// Values below 2 build the adjacency sequentially.
	Workers int
}

// DefaultConfig returns the standard classifier settings.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: DefaultSimilarityThreshold,
		DetectJunctions:     true,
		Workers:             1,
	}
}

// Role is a stop's final classification. Precedence is
// junction > terminal > intermediate.
type Role int

const (
	RoleIntermediate Role = iota
	RoleTerminal
	RoleJunction
)

func (r Role) String() string {
	switch r {
	case RoleJunction:
		return "junction"
	case RoleTerminal:
		return "terminal"
	default:
		return "intermediate"
	}
}

// Classification is the read-only result of a classifier run. Junction and
// terminal membership stay independently queryable even though the exported
// sets are disjoint by precedence.
type Classification struct {
	// Segments holds each segment's stops in growth order. Every stop of
	// the schedule belongs to exactly one segment.
	Segments [][]string

	stopOrder []string
	junctions map[string]bool
	terminals map[string]bool
}

// Classify labels every stop of the schedule. It never fails on a
// well-formed schedule; a feed with zero trips produces an empty
// classification.
func Classify(s *model.Schedule, cfg Config) (*Classification, error) {
	if cfg.SimilarityThreshold < 0 || cfg.SimilarityThreshold > 1 {
		return nil, fmt.Errorf("similarity threshold %v out of range [0,1]", cfg.SimilarityThreshold)
	}

	routeSets := make(map[string]map[string]struct{}, len(s.Stops))
	for i := range s.Stops {
		routes := s.RoutesThroughStop(s.Stops[i].ID)
		set := make(map[string]struct{}, len(routes))
		for _, r := range routes {
			set[r] = struct{}{}
		}
		routeSets[s.Stops[i].ID] = set
	}

	adj := buildAdjacency(s, cfg.Workers)

	c := &Classification{
		stopOrder: make([]string, len(s.Stops)),
		junctions: make(map[string]bool),
		terminals: make(map[string]bool),
	}
	for i := range s.Stops {
		c.stopOrder[i] = s.Stops[i].ID
	}

	c.Segments = growSegments(c.stopOrder, adj, routeSets, cfg.SimilarityThreshold)

	if cfg.DetectJunctions {
		markJunctions(c, adj)
	}

	for i := range s.Trips {
		seq := s.VisitSequence(s.Trips[i].ID)
		if len(seq) == 0 {
			continue
		}
		c.terminals[seq[0]] = true
		c.terminals[seq[len(seq)-1]] = true
	}

	return c, nil
}

// growSegments partitions the stops into maximal linear chains. Stops are
// taken in table order; a chain extends forward only while the current stop
// has exactly one unvisited successor and the route overlap with it stays at
// or above the threshold. Successor sets are walked in lexicographic order,
// so the partition is deterministic for a fixed table order.
func growSegments(stops []string, adj adjacency, routeSets map[string]map[string]struct{}, threshold float64) [][]string {
	visited := make(map[string]bool, len(stops))
	var segments [][]string

	for _, start := range stops {
		if visited[start] {
			continue
		}
		segment := []string{start}
		visited[start] = true

		current := start
		for {
			var unvisited []string
			for _, succ := range adj.successors(current) {
				if !visited[succ] {
					unvisited = append(unvisited, succ)
				}
			}
			if len(unvisited) != 1 {
				break
			}
			next := unvisited[0]
			if jaccard(routeSets[current], routeSets[next]) < threshold {
				break
			}
			segment = append(segment, next)
			visited[next] = true
			current = next
		}

		segments = append(segments, segment)
	}
	return segments
}

// markJunctions promotes the extreme stops of segments bordering more than
// one other segment. A single pass builds a stop -> segment index, then maps
// each segment's outgoing edges through it, so the neighbor check costs
// O(stops + edges) rather than a pairwise segment comparison.
func markJunctions(c *Classification, adj adjacency) {
	segmentOf := make(map[string]int)
	for i, segment := range c.Segments {
		for _, stop := range segment {
			segmentOf[stop] = i
		}
	}

	for i, segment := range c.Segments {
		neighbors := make(map[int]struct{})
		for _, stop := range segment {
			for succ := range adj[stop] {
				if j, ok := segmentOf[succ]; ok && j != i {
					neighbors[j] = struct{}{}
				}
			}
		}
		if len(neighbors) > 1 {
			c.junctions[segment[0]] = true
			c.junctions[segment[len(segment)-1]] = true
		}
	}
}

// jaccard is |a ∩ b| / |a ∪ b|; two empty sets count as fully similar.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	shared := 0
	for k := range small {
		if _, ok := large[k]; ok {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	return float64(shared) / float64(union)
}
