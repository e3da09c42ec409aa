package services

import (
	"math"
	"sort"

	"ukodus-galaxy/domain/galaxy"
)

// hullPadding is how far hull vertices are pushed outward from the
// cluster centroid, in layout units.
const hullPadding = 20.0

// Point is a 2D layout coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ClusterHull is the padded convex boundary of one family's visible
// cluster. Derived on demand, never persisted. Hidden hulls belong to
// families currently filtered out; they are computed anyway so a filter
// toggle does not force a geometry pass.
type ClusterHull struct {
	FamilyKey string  `json:"family_key"`
	Color     string  `json:"color"`
	Boundary  []Point `json:"boundary"`
	Hidden    bool    `json:"hidden"`
}

// ComputeHulls buckets nodes by primary family and returns a padded
// convex hull for every family with at least three positioned members.
// Families with fewer points produce no hull; that is the expected
// sparse-cluster case, not an error.
func ComputeHulls(nodes []*galaxy.Node, isVisible func(*galaxy.Node) bool) []ClusterHull {
	buckets := make(map[string][]Point)
	for _, n := range nodes {
		if !n.HasPosition() {
			continue
		}
		key := galaxy.PrimaryFamily(n)
		buckets[key] = append(buckets[key], Point{X: n.X, Y: n.Y})
	}

	hulls := make([]ClusterHull, 0, len(buckets))
	for _, fam := range galaxy.Families() {
		points := buckets[fam.Key]
		if len(points) < 3 {
			continue
		}

		boundary := convexHull(points)
		if len(boundary) < 3 {
			// Collinear cluster, no enclosing polygon.
			continue
		}

		hulls = append(hulls, ClusterHull{
			FamilyKey: fam.Key,
			Color:     fam.Color,
			Boundary:  padBoundary(boundary),
			Hidden:    familyHidden(fam.Key, nodes, isVisible),
		})
	}
	return hulls
}

// familyHidden reports whether every node of the family is filtered out.
func familyHidden(key string, nodes []*galaxy.Node, isVisible func(*galaxy.Node) bool) bool {
	for _, n := range nodes {
		if galaxy.PrimaryFamily(n) == key {
			return !isVisible(n)
		}
	}
	return true
}

// padBoundary pushes each vertex outward from the centroid by
// hullPadding. A vertex coinciding with the centroid passes through
// unpadded rather than dividing by zero.
func padBoundary(hull []Point) []Point {
	var cx, cy float64
	for _, p := range hull {
		cx += p.X
		cy += p.Y
	}
	cx /= float64(len(hull))
	cy /= float64(len(hull))

	padded := make([]Point, len(hull))
	for i, p := range hull {
		dx, dy := p.X-cx, p.Y-cy
		dist := math.Hypot(dx, dy)
		if dist == 0 {
			padded[i] = p
			continue
		}
		padded[i] = Point{
			X: p.X + dx/dist*hullPadding,
			Y: p.Y + dy/dist*hullPadding,
		}
	}
	return padded
}

// convexHull computes the convex hull with Andrew's monotone chain,
// returned counter-clockwise without the repeated first point.
func convexHull(points []Point) []Point {
	if len(points) < 3 {
		return points
	}

	pts := make([]Point, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})

	var lower []Point
	for _, p := range pts {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}

	var upper []Point
	for i := len(pts) - 1; i >= 0; i-- {
		p := pts[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	return append(lower[:len(lower)-1], upper[:len(upper)-1]...)
}

func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}
