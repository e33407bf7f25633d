// Package scenario builds synthetic sensor network layouts and bird songs for
// evaluating the census against a known ground truth, and stores them as
// YAML scenario files.
package scenario

import (
	"math"
	"math/rand/v2"

	"github.com/tphakala/birdnet-census/internal/errors"
	"github.com/tphakala/birdnet-census/internal/geometry"
	"github.com/tphakala/birdnet-census/internal/sensorgraph"
)

const componentName = "scenario"

// newRand returns a deterministic source for seed.
func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// DiamondConfig places nodes on alternating rows of XRows and XRows-1
// nodes, each displaced by a random offset of up to Offset meters.
type DiamondConfig struct {
	XRows     int     `yaml:"x_rows"`
	YRows     int     `yaml:"y_rows"`
	DistanceX float64 `yaml:"distance_x"`
	DistanceY float64 `yaml:"distance_y"`
	Offset    float64 `yaml:"offset"`
	Seed      uint64  `yaml:"seed"`
}

// DefaultDiamondConfig returns a 4x4 pattern with 200 m spacing and 25 m jitter.
func DefaultDiamondConfig() DiamondConfig {
	return DiamondConfig{XRows: 4, YRows: 4, DistanceX: 200, DistanceY: 200, Offset: 25}
}

// DiamondLayout generates 2*YRows-1 rows; odd rows are shifted by half the
// horizontal distance and hold one node less. Ids are assigned row by row
// from 0.
func DiamondLayout(cfg DiamondConfig) ([]sensorgraph.Node, error) {
	if cfg.XRows < 1 || cfg.YRows < 1 {
		return nil, errors.InvalidInput(componentName, "diamond layout needs at least one row in each direction, got %dx%d", cfg.XRows, cfg.YRows).
			Build()
	}
	if cfg.DistanceX < 0 || cfg.DistanceY < 0 || cfg.Offset < 0 {
		return nil, errors.InvalidInput(componentName, "diamond layout distances must not be negative").
			Context("distance_x", cfg.DistanceX).
			Context("distance_y", cfg.DistanceY).
			Context("offset", cfg.Offset).
			Build()
	}

	rng := newRand(cfg.Seed)
	var nodes []sensorgraph.Node
	for i := range cfg.YRows*2 - 1 {
		shift := i % 2
		for j := range cfg.XRows - shift {
			x := float64(j)*cfg.DistanceX + float64(shift)*cfg.DistanceX/2
			y := float64(i) * cfg.DistanceY / 2

			angle := rng.Float64() * 2 * math.Pi
			dx := rng.Float64() * cfg.Offset
			dy := rng.Float64() * cfg.Offset
			x += math.Cos(angle) * dx
			y += math.Sin(angle) * dy

			nodes = append(nodes, sensorgraph.Node{
				ID:       int64(len(nodes)),
				Position: geometry.Point{X: x, Y: y},
			})
		}
	}
	return nodes, nil
}

// RandomConfig places N nodes uniformly at random while limiting how much a
// new node's disk overlaps the disks already placed.
type RandomConfig struct {
	N             int     `yaml:"n"`
	HearingRadius float64 `yaml:"hearing_radius"`
	// AreaOverlap is the overlap budget of a new node as a fraction of one
	// disk's area. Raise it when placement fails.
	AreaOverlap float64 `yaml:"area_overlap"`
	Seed        uint64  `yaml:"seed"`
	// MaxAttempts bounds rejected placements; 0 means 1000 per node.
	MaxAttempts int `yaml:"max_attempts"`
}

// DefaultRandomConfig returns 25 nodes of 100 m radius with a 0.33 overlap budget.
func DefaultRandomConfig() RandomConfig {
	return RandomConfig{N: 25, HearingRadius: 100, AreaOverlap: 0.33}
}

// RandomConditionalLayout samples positions in a square whose side is
// sqrt(N*pi*r^2) - 2r and accepts a candidate when its summed overlap with
// the placed nodes stays below the budget.
func RandomConditionalLayout(cfg RandomConfig) ([]sensorgraph.Node, error) {
	r := cfg.HearingRadius
	if cfg.N < 1 || !(r > 0) || math.IsInf(r, 0) || cfg.AreaOverlap < 0 {
		return nil, errors.InvalidInput(componentName, "random layout needs n >= 1, a positive radius and a non-negative overlap budget").
			Context("n", cfg.N).
			Context("radius", r).
			Context("area_overlap", cfg.AreaOverlap).
			Build()
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 1000 * cfg.N
	}

	rng := newRand(cfg.Seed)
	diskArea := math.Pi * r * r
	side := max(math.Sqrt(diskArea*float64(cfg.N))-2*r, 0)
	budget := cfg.AreaOverlap * diskArea

	nodes := make([]sensorgraph.Node, 0, cfg.N)
	for attempts := 0; len(nodes) < cfg.N; attempts++ {
		if attempts >= maxAttempts {
			return nil, errors.InvalidInput(componentName, "placed %d of %d nodes after %d attempts, raise the overlap budget", len(nodes), cfg.N, attempts).
				Context("area_overlap", cfg.AreaOverlap).
				Build()
		}

		p := geometry.Point{X: rng.Float64() * side, Y: rng.Float64() * side}
		overlap := 0.0
		for _, n := range nodes {
			overlap += segmentOverlap(p, n.Position, r)
		}
		if overlap < budget {
			nodes = append(nodes, sensorgraph.Node{ID: int64(len(nodes)), Position: p})
		}
	}
	return nodes, nil
}

// segmentOverlap returns the area of one circular segment cut from a disk of
// radius r by the disk of the same radius around the other center, which is
// half their lens. Coincident centers give the full disk.
func segmentOverlap(a, b geometry.Point, r float64) float64 {
	d := geometry.Distance(a, b)
	if d == 0 {
		return math.Pi * r * r
	}
	c := d / (2 * r)
	if c >= 1 {
		return 0
	}
	theta := 2 * math.Acos(c)
	return 0.5 * r * r * (theta - math.Sin(theta))
}

// Box is an axis-aligned rectangle.
type Box struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// Width returns MaxX - MinX.
func (b Box) Width() float64 { return b.MaxX - b.MinX }

// Height returns MaxY - MinY.
func (b Box) Height() float64 { return b.MaxY - b.MinY }

// Contains reports whether p lies inside or on the box.
func (b Box) Contains(p geometry.Point) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// BoundingBox returns the smallest box holding every node's hearing disk.
// An empty node list gives the zero box.
func BoundingBox(nodes []sensorgraph.Node, radius float64) Box {
	if len(nodes) == 0 {
		return Box{}
	}
	b := Box{
		MinX: math.Inf(1), MaxX: math.Inf(-1),
		MinY: math.Inf(1), MaxY: math.Inf(-1),
	}
	for _, n := range nodes {
		b.MinX = min(b.MinX, n.Position.X)
		b.MaxX = max(b.MaxX, n.Position.X)
		b.MinY = min(b.MinY, n.Position.Y)
		b.MaxY = max(b.MaxY, n.Position.Y)
	}
	b.MinX -= radius
	b.MaxX += radius
	b.MinY -= radius
	b.MaxY += radius
	return b
}
