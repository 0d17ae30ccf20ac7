package topology

import (
	"sort"
	"sync"

	"magga.pvnkmrksk.org/internal/model"
)

// adjacency maps a stop to the set of immediate successor stops observed
// across all trips. Edges are directed; duplicates collapse.
type adjacency map[string]map[string]struct{}

func (a adjacency) add(from, to string) {
	set, ok := a[from]
	if !ok {
		set = make(map[string]struct{})
		a[from] = set
	}
	set[to] = struct{}{}
}

func (a adjacency) merge(other adjacency) {
	for from, set := range other {
		for to := range set {
			a.add(from, to)
		}
	}
}

// successors returns a stop's successor set sorted by stop id, so every
// downstream traversal sees edges in a fixed order.
func (a adjacency) successors(stop string) []string {
	set := a[stop]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// buildAdjacency derives the successor sets from every trip's visit
// sequence. Each trip contributes independent edges, so trips are
// partitioned across workers and the partial maps merged; set union is
// commutative, making the result independent of scheduling.
func buildAdjacency(s *model.Schedule, workers int) adjacency {
	if workers <= 1 || len(s.Trips) < 2*workers {
		adj := make(adjacency)
		for i := range s.Trips {
			addTripEdges(adj, s, s.Trips[i].ID)
		}
		return adj
	}

	chunk := (len(s.Trips) + workers - 1) / workers
	partials := make([]adjacency, 0, workers)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for start := 0; start < len(s.Trips); start += chunk {
		end := start + chunk
		if end > len(s.Trips) {
			end = len(s.Trips)
		}
		wg.Add(1)
		go func(trips []model.Trip) {
			defer wg.Done()
			part := make(adjacency)
			for i := range trips {
				addTripEdges(part, s, trips[i].ID)
			}
			mu.Lock()
			partials = append(partials, part)
			mu.Unlock()
		}(s.Trips[start:end])
	}
	wg.Wait()

	adj := make(adjacency)
	for _, part := range partials {
		adj.merge(part)
	}
	return adj
}

func addTripEdges(adj adjacency, s *model.Schedule, tripID string) {
	seq := s.VisitSequence(tripID)
	for i := 0; i+1 < len(seq); i++ {
		adj.add(seq[i], seq[i+1])
	}
}
