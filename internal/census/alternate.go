package census

import (
	"github.com/tphakala/birdnet-census/internal/errors"
	"github.com/tphakala/birdnet-census/internal/geometry"
	"github.com/tphakala/birdnet-census/internal/sensorgraph"
)

// Alternate returns a copy of sub in which no triangle joins three disks
// without a common point, together with the edges that were removed in
// removal order. sub itself is not modified.
//
// Triangles are visited in lexicographic order; a triangle whose edges are
// no longer all present is skipped. A failing triangle loses its longest
// edge. Passes repeat until one removes nothing, then the result is checked;
// a surviving failing triangle is an InconsistentStateError.
func Alternate(sub *sensorgraph.Subgraph) (*sensorgraph.Subgraph, []sensorgraph.Edge, error) {
	out := sub.Clone()
	radius := out.Radius()

	var removed []sensorgraph.Edge
	for {
		pass := 0
		for _, t := range out.Triangles() {
			if !out.HasEdge(t.A, t.B) || !out.HasEdge(t.A, t.C) || !out.HasEdge(t.B, t.C) {
				continue
			}
			if geometry.MutuallyIntersect(out.TrianglePoints(t), radius) {
				continue
			}
			e := LongestEdge(out, t)
			out.RemoveEdge(e.U, e.V)
			removed = append(removed, e)
			pass++
		}
		if pass == 0 {
			break
		}
	}

	if failing := out.FailingTriangles(); len(failing) > 0 {
		t := failing[0]
		return nil, nil, errors.InconsistentState(componentName, "alternation left triangle {%d,%d,%d} without a common intersection", t.A, t.B, t.C).
			Context("triangle", t.Nodes()).
			Context("failing_triangles", len(failing)).
			Build()
	}

	return out, removed, nil
}

// LongestEdge returns the longest edge of t. Edges whose lengths agree within
// geometry.Epsilon are tied; the lexicographically smallest tied edge wins.
func LongestEdge(g *sensorgraph.Subgraph, t sensorgraph.Triangle) sensorgraph.Edge {
	edges := t.Edges()
	best := edges[0]
	bestLen := g.Distance(best.U, best.V)
	for _, e := range edges[1:] {
		l := g.Distance(e.U, e.V)
		if l > bestLen+geometry.Epsilon*max(1, bestLen) {
			best, bestLen = e, l
		}
	}
	return best
}
