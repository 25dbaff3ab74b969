// In-memory mirror of the service-side follow graph. Edges are directed
// (follower -> followee) and idempotent; removing an actor removes every
// edge it appears in, in either direction.
//
// The graph is mutated only from follow-action results and from the
// PopulationManager's sequential day-boundary phases, so per-edge locking
// is not needed; a single mutex guards the idempotent add path used by
// concurrently executing follow intents.

package sim

import "sync"

// FollowGraph is a directed edge set over actor ids.
type FollowGraph struct {
	mu  sync.Mutex
	out map[int64]map[int64]struct{} // follower -> followees
	in  map[int64]map[int64]struct{} // followee -> followers
}

// NewFollowGraph creates an empty graph.
func NewFollowGraph() *FollowGraph {
	return &FollowGraph{
		out: make(map[int64]map[int64]struct{}),
		in:  make(map[int64]map[int64]struct{}),
	}
}

// AddEdge records follower -> followee. Adding an existing edge is a no-op;
// the return value reports whether the edge was new.
func (g *FollowGraph) AddEdge(follower, followee int64) bool {
	if follower == followee {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.out[follower][followee]; ok {
		return false
	}
	if g.out[follower] == nil {
		g.out[follower] = make(map[int64]struct{})
	}
	if g.in[followee] == nil {
		g.in[followee] = make(map[int64]struct{})
	}
	g.out[follower][followee] = struct{}{}
	g.in[followee][follower] = struct{}{}
	return true
}

// RemoveEdge deletes follower -> followee if present.
func (g *FollowGraph) RemoveEdge(follower, followee int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.out[follower], followee)
	delete(g.in[followee], follower)
}

// HasEdge reports whether follower -> followee exists.
func (g *FollowGraph) HasEdge(follower, followee int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.out[follower][followee]
	return ok
}

// RemoveActor deletes every edge where id is follower or followee.
// Called when an actor churns.
func (g *FollowGraph) RemoveActor(id int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for followee := range g.out[id] {
		delete(g.in[followee], id)
	}
	delete(g.out, id)
	for follower := range g.in[id] {
		delete(g.out[follower], id)
	}
	delete(g.in, id)
}

// OutDegree returns how many actors id follows.
func (g *FollowGraph) OutDegree(id int64) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.out[id])
}

// InDegree returns how many actors follow id.
func (g *FollowGraph) InDegree(id int64) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.in[id])
}

// Edges returns every directed edge as a [follower, followee] pair.
// Order is unspecified.
func (g *FollowGraph) Edges() [][2]int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	var edges [][2]int64
	for follower, followees := range g.out {
		for followee := range followees {
			edges = append(edges, [2]int64{follower, followee})
		}
	}
	return edges
}

// EdgeCount returns the total number of directed edges.
func (g *FollowGraph) EdgeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, m := range g.out {
		n += len(m)
	}
	return n
}
