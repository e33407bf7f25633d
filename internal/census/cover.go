package census

import (
	"cmp"
	"slices"

	"github.com/tphakala/birdnet-census/internal/sensorgraph"
)

// Candidate is a vertex considered by the greedy clique search, with its
// degree in the graph remaining at that moment.
type Candidate struct {
	ID     int64
	Degree int
}

// CompareCandidates orders candidates by degree descending, then by id
// ascending. It decides both the seed of each clique and the order in which
// the seed's neighbours are tried, so counts are reproducible.
func CompareCandidates(a, b Candidate) int {
	if c := cmp.Compare(b.Degree, a.Degree); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// candidates returns ids with their current degrees, sorted by CompareCandidates.
func candidates(sub *sensorgraph.Subgraph, ids []int64) []Candidate {
	out := make([]Candidate, len(ids))
	for i, id := range ids {
		out[i] = Candidate{ID: id, Degree: sub.Degree(id)}
	}
	slices.SortFunc(out, CompareCandidates)
	return out
}

// MaximalClique grows a clique greedily from the first vertex under
// CompareCandidates: neighbours of the seed are tried in the same order and
// kept when adjacent to every member so far. The result is maximal and lists
// the seed first. An empty subgraph yields nil.
func MaximalClique(sub *sensorgraph.Subgraph) []int64 {
	nodes := sub.Nodes()
	if len(nodes) == 0 {
		return nil
	}

	seed := candidates(sub, nodes)[0].ID
	clique := []int64{seed}
	for _, c := range candidates(sub, sub.Neighbors(seed)) {
		if adjacentToAll(sub, c.ID, clique) {
			clique = append(clique, c.ID)
		}
	}
	return clique
}

func adjacentToAll(sub *sensorgraph.Subgraph, id int64, members []int64) bool {
	for _, m := range members {
		if !sub.HasEdge(id, m) {
			return false
		}
	}
	return true
}

// CoverCliques consumes sub by repeatedly removing a maximal clique until no
// vertex is left. The cliques are returned in removal order; their number is
// the bird count.
func CoverCliques(sub *sensorgraph.Subgraph) [][]int64 {
	var cliques [][]int64
	for sub.Len() > 0 {
		clique := MaximalClique(sub)
		for _, id := range clique {
			sub.RemoveNode(id)
		}
		cliques = append(cliques, clique)
	}
	return cliques
}
