package scenario

import (
	"time"

	"github.com/tphakala/birdnet-census/internal/geometry"
	"github.com/tphakala/birdnet-census/internal/sensorgraph"
)

// BestCase returns a seven node network in which three chaffinches sing at
// once. The first bird is heard by nodes 0, 1 and 2, the second by node 4
// and the third by nodes 5 and 6. The full window of six nodes contains the
// failing triangle {1,2,5}, so the count is only right after alternation.
func BestCase() *Scenario {
	const radius = 100.0

	nodes := []sensorgraph.Node{
		{ID: 0, Position: geometry.Point{X: 0, Y: 0}},
		{ID: 1, Position: geometry.Point{X: 180, Y: 0}},
		{ID: 2, Position: geometry.Point{X: 80, Y: 125}},
		{ID: 3, Position: geometry.Point{X: 300, Y: 0}},
		{ID: 4, Position: geometry.Point{X: 20, Y: 290}},
		{ID: 5, Position: geometry.Point{X: 250, Y: 185}},
		{ID: 6, Position: geometry.Point{X: 300, Y: 300}},
	}

	begin := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	songs := []Song{
		{Species: "comcha", Bird: 0, Position: geometry.Point{X: 90, Y: 40}},
		{Species: "comcha", Bird: 1, Position: geometry.Point{X: 30, Y: 360}},
		{Species: "comcha", Bird: 2, Position: geometry.Point{X: 300, Y: 250}},
	}

	s := New("best-case", radius, nodes, nil, nil, map[string]int{"comcha": 3})
	s.Description = "three birds singing at the same time, counted correctly once alternation removes edge 1-5"
	for i := range songs {
		songs[i].Begin = begin
		songs[i].End = begin.Add(ClassificationInterval)
		for _, d := range Hear(nodes, radius, songs[i]) {
			s.Detections = append(s.Detections, DetectionSpec{Node: d.Node, Species: d.SpeciesCode, Begin: d.BeginTime, End: d.EndTime})
		}
	}
	s.Songs = songs
	return s
}
