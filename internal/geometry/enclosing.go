package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// SmallestEnclosingCircle returns the minimum-radius circle containing every
// point. One to three points are solved in closed form; larger sets use an
// incremental construction whose result does not depend on input order.
func SmallestEnclosingCircle(points []Point) Circle {
	switch len(points) {
	case 0:
		return Circle{}
	case 1:
		return Circle{Center: points[0]}
	case 2:
		return diameterCircle(points[0], points[1])
	case 3:
		return threePointCircle(points[0], points[1], points[2])
	}
	return incrementalCircle(points)
}

// diameterCircle returns the circle that has segment ab as its diameter.
func diameterCircle(a, b Point) Circle {
	return Circle{
		Center: r2.Scale(0.5, r2.Add(a, b)),
		Radius: Distance(a, b) / 2,
	}
}

// threePointCircle is the minimal circle of a triangle. For right, obtuse and
// degenerate triangles the longest side is the diameter; acute triangles get
// their circumcircle.
func threePointCircle(a, b, c Point) Circle {
	pts := [3]Point{a, b, c}

	longest, opposite := 0, 2
	best := Distance(pts[0], pts[1])
	if d := Distance(pts[0], pts[2]); d > best {
		best, longest, opposite = d, 1, 1
	}
	if d := Distance(pts[1], pts[2]); d > best {
		longest, opposite = 2, 0
	}

	var candidate Circle
	switch longest {
	case 0:
		candidate = diameterCircle(pts[0], pts[1])
	case 1:
		candidate = diameterCircle(pts[0], pts[2])
	default:
		candidate = diameterCircle(pts[1], pts[2])
	}
	if candidate.Contains(pts[opposite]) {
		return candidate
	}

	if circ, ok := circumcircle(a, b, c); ok {
		return circ
	}
	return candidate
}

// circumcircle returns the circle through a, b and c. ok is false when the
// points are collinear within tolerance.
func circumcircle(a, b, c Point) (Circle, bool) {
	ab := r2.Sub(b, a)
	ac := r2.Sub(c, a)

	d := 2 * r2.Cross(ab, ac)
	scale := math.Max(r2.Norm(ab), r2.Norm(ac))
	if math.Abs(d) <= tolerance(scale*scale) {
		return Circle{}, false
	}

	abSq := r2.Dot(ab, ab)
	acSq := r2.Dot(ac, ac)
	offset := Point{
		X: (ac.Y*abSq - ab.Y*acSq) / d,
		Y: (ab.X*acSq - ac.X*abSq) / d,
	}
	return Circle{Center: r2.Add(a, offset), Radius: r2.Norm(offset)}, true
}

// incrementalCircle is the iterative form of Welzl's algorithm. Points are
// processed in the order given, so the same input always yields the same
// circle.
func incrementalCircle(points []Point) Circle {
	c := Circle{Center: points[0]}
	for i := 1; i < len(points); i++ {
		if c.Contains(points[i]) {
			continue
		}
		c = Circle{Center: points[i]}
		for j := 0; j < i; j++ {
			if c.Contains(points[j]) {
				continue
			}
			c = diameterCircle(points[i], points[j])
			for k := 0; k < j; k++ {
				if c.Contains(points[k]) {
					continue
				}
				if circ, ok := circumcircle(points[i], points[j], points[k]); ok {
					c = circ
				} else {
					c = threePointCircle(points[i], points[j], points[k])
				}
			}
		}
	}
	return c
}
