// Package sensorgraph builds the unit disk graph of a sensor network and the
// per-window induced subgraphs derived from it.
//
// Nodes are identified by stable int64 ids. Adjacency is held in a gonum
// simple.UndirectedGraph, positions in a map keyed by the same ids, so the
// structure has no pointer cycles and a subgraph copy is cheap.
package sensorgraph

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/tphakala/birdnet-census/internal/errors"
	"github.com/tphakala/birdnet-census/internal/geometry"
)

const componentName = "sensorgraph"

// Node is a sensor with a planar position.
type Node struct {
	ID       int64
	Position geometry.Point
}

// Edge is an undirected edge with U < V.
type Edge struct {
	U, V int64
}

// NewEdge returns the edge between a and b in canonical order.
func NewEdge(a, b int64) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{U: a, V: b}
}

// Less orders edges lexicographically on (U, V).
func (e Edge) Less(o Edge) bool {
	if e.U != o.U {
		return e.U < o.U
	}
	return e.V < o.V
}

// Triangle is a 3-clique with A < B < C.
type Triangle struct {
	A, B, C int64
}

// Nodes returns the triangle's vertices in ascending order.
func (t Triangle) Nodes() [3]int64 {
	return [3]int64{t.A, t.B, t.C}
}

// Edges returns the triangle's edges in lexicographic order.
func (t Triangle) Edges() [3]Edge {
	return [3]Edge{{t.A, t.B}, {t.A, t.C}, {t.B, t.C}}
}

// view holds the read-only operations shared by Graph and Subgraph.
type view struct {
	g         *simple.UndirectedGraph
	positions map[int64]geometry.Point
	radius    float64
}

// Radius returns the hearing radius the graph was built with.
func (v *view) Radius() float64 { return v.radius }

// Len returns the number of vertices.
func (v *view) Len() int { return v.g.Nodes().Len() }

// EdgeCount returns the number of edges.
func (v *view) EdgeCount() int { return v.g.Edges().Len() }

// Has reports whether id is a vertex.
func (v *view) Has(id int64) bool { return v.g.Node(id) != nil }

// Position returns the planar position of a vertex.
func (v *view) Position(id int64) (geometry.Point, bool) {
	if !v.Has(id) {
		return geometry.Point{}, false
	}
	p, ok := v.positions[id]
	return p, ok
}

// Nodes returns the vertex ids in ascending order.
func (v *view) Nodes() []int64 {
	nodes := v.g.Nodes()
	ids := make([]int64, 0, nodes.Len())
	for nodes.Next() {
		ids = append(ids, nodes.Node().ID())
	}
	slices.Sort(ids)
	return ids
}

// HasEdge reports whether u and v are adjacent.
func (v *view) HasEdge(a, b int64) bool {
	return a != b && v.g.HasEdgeBetween(a, b)
}

// Neighbors returns the ids adjacent to id in ascending order.
func (v *view) Neighbors(id int64) []int64 {
	if !v.Has(id) {
		return nil
	}
	it := v.g.From(id)
	ids := make([]int64, 0, it.Len())
	for it.Next() {
		ids = append(ids, it.Node().ID())
	}
	slices.Sort(ids)
	return ids
}

// Degree returns the number of neighbors of id.
func (v *view) Degree(id int64) int {
	if !v.Has(id) {
		return 0
	}
	return v.g.From(id).Len()
}

// Edges returns every edge in lexicographic order.
func (v *view) Edges() []Edge {
	it := v.g.Edges()
	edges := make([]Edge, 0, it.Len())
	for it.Next() {
		e := it.Edge()
		edges = append(edges, NewEdge(e.From().ID(), e.To().ID()))
	}
	slices.SortFunc(edges, func(a, b Edge) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})
	return edges
}

// Distance returns the Euclidean distance between two vertices, or NaN if
// either is unknown.
func (v *view) Distance(a, b int64) float64 {
	pa, okA := v.Position(a)
	pb, okB := v.Position(b)
	if !okA || !okB {
		return math.NaN()
	}
	return geometry.Distance(pa, pb)
}

// Triangles returns every 3-clique in lexicographic order of (A, B, C).
func (v *view) Triangles() []Triangle {
	var out []Triangle
	for _, a := range v.Nodes() {
		higher := v.higherNeighbors(a)
		for i, b := range higher {
			for _, c := range higher[i+1:] {
				if v.g.HasEdgeBetween(b, c) {
					out = append(out, Triangle{A: a, B: b, C: c})
				}
			}
		}
	}
	return out
}

// higherNeighbors returns the neighbors of id greater than id, ascending.
func (v *view) higherNeighbors(id int64) []int64 {
	ns := v.Neighbors(id)
	i, _ := slices.BinarySearch(ns, id)
	return ns[i:]
}

// TrianglePoints returns the positions of a triangle's vertices.
func (v *view) TrianglePoints(t Triangle) []geometry.Point {
	return []geometry.Point{v.positions[t.A], v.positions[t.B], v.positions[t.C]}
}

// FailingTriangles returns the triangles whose disks have no common point,
// in lexicographic order.
func (v *view) FailingTriangles() []Triangle {
	var out []Triangle
	for _, t := range v.Triangles() {
		if !geometry.MutuallyIntersect(v.TrianglePoints(t), v.radius) {
			out = append(out, t)
		}
	}
	return out
}

// Undirected exposes the adjacency for gonum graph algorithms. Callers must
// not mutate it.
func (v *view) Undirected() graph.Undirected { return v.g }

// copyInto adds the given vertices and every edge among them to dst.
func (v *view) copyInto(dst *simple.UndirectedGraph, ids []int64) {
	for _, id := range ids {
		dst.AddNode(simple.Node(id))
	}
	for i, a := range ids {
		for _, b := range ids[i+1:] {
			if v.g.HasEdgeBetween(a, b) {
				dst.SetEdge(dst.NewEdge(simple.Node(a), simple.Node(b)))
			}
		}
	}
}

// Graph is the unit disk graph over all sensor nodes. It is immutable after
// Build and safe for concurrent readers.
type Graph struct {
	view
}

// Build connects every pair of nodes whose hearing disks intersect, that is
// whose distance is at most 2*radius.
func Build(nodes []Node, radius float64) (*Graph, error) {
	if !(radius > 0) || math.IsInf(radius, 0) {
		return nil, errors.InvalidInput(componentName, "hearing radius must be positive and finite, got %v", radius).
			Context("radius", radius).
			Build()
	}
	if len(nodes) == 0 {
		return nil, errors.InvalidInput(componentName, "sensor graph needs at least one node").Build()
	}

	g := simple.NewUndirectedGraph()
	positions := make(map[int64]geometry.Point, len(nodes))
	for _, n := range nodes {
		if _, dup := positions[n.ID]; dup {
			return nil, errors.InvalidInput(componentName, "duplicate node id %d", n.ID).
				Context("node", n.ID).
				Build()
		}
		if !finite(n.Position) {
			return nil, errors.InvalidInput(componentName, "node %d has a non-finite position", n.ID).
				Context("node", n.ID).
				Build()
		}
		positions[n.ID] = n.Position
		g.AddNode(simple.Node(n.ID))
	}

	for i, a := range nodes {
		for _, b := range nodes[i+1:] {
			if geometry.DisksIntersect(a.Position, b.Position, radius) {
				g.SetEdge(g.NewEdge(simple.Node(a.ID), simple.Node(b.ID)))
			}
		}
	}

	return &Graph{view{g: g, positions: positions, radius: radius}}, nil
}

func finite(p geometry.Point) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Induce returns a mutable copy of the subgraph induced by ids. Duplicate ids
// are ignored; an unknown id is an InvalidInputError.
func (g *Graph) Induce(ids []int64) (*Subgraph, error) {
	uniq := slices.Clone(ids)
	slices.Sort(uniq)
	uniq = slices.Compact(uniq)

	for _, id := range uniq {
		if !g.Has(id) {
			return nil, errors.InvalidInput(componentName, "node %d is not part of the sensor graph", id).
				Context("node", id).
				Build()
		}
	}

	sub := simple.NewUndirectedGraph()
	g.copyInto(sub, uniq)
	return &Subgraph{view{g: sub, positions: g.positions, radius: g.radius}}, nil
}

// Full returns a mutable copy of the whole graph.
func (g *Graph) Full() *Subgraph {
	sub := simple.NewUndirectedGraph()
	g.copyInto(sub, g.Nodes())
	return &Subgraph{view{g: sub, positions: g.positions, radius: g.radius}}
}

// RequiresAlternation reports whether any triangle of the full graph fails
// mutual intersection. When it does not, no induced subgraph can either.
func (g *Graph) RequiresAlternation() bool {
	for _, a := range g.Nodes() {
		higher := g.higherNeighbors(a)
		for i, b := range higher {
			for _, c := range higher[i+1:] {
				if !g.g.HasEdgeBetween(b, c) {
					continue
				}
				t := Triangle{A: a, B: b, C: c}
				if !geometry.MutuallyIntersect(g.TrianglePoints(t), g.radius) {
					return true
				}
			}
		}
	}
	return false
}

// Subgraph is an induced subgraph owned by a single window. Edges and vertices
// may be removed; nothing is ever added.
type Subgraph struct {
	view
}

// RemoveEdge deletes the edge between a and b if present.
func (s *Subgraph) RemoveEdge(a, b int64) {
	s.g.RemoveEdge(a, b)
}

// RemoveNode deletes a vertex and its incident edges.
func (s *Subgraph) RemoveNode(id int64) {
	s.g.RemoveNode(id)
}

// Clone returns an independent copy.
func (s *Subgraph) Clone() *Subgraph {
	sub := simple.NewUndirectedGraph()
	s.copyInto(sub, s.Nodes())
	return &Subgraph{view{g: sub, positions: s.positions, radius: s.radius}}
}
