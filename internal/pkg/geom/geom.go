// Package geom provides the planar geometry used by the safety monitor:
// points, pairwise distance, and workspace bounds checks.
package geom

import "math"

// Point is a position on the workspace plane.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Bounds describes the rectangular workspace with its origin at (0, 0).
type Bounds struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NearEdge reports whether p lies strictly within margin of any workspace
// edge. A point exactly margin away from every edge is not near.
func (b Bounds) NearEdge(p Point, margin float64) bool {
	return p.X < margin || p.X > b.Width-margin ||
		p.Y < margin || p.Y > b.Height-margin
}

// Contains reports whether p lies inside the workspace, edges included.
func (b Bounds) Contains(p Point) bool {
	return p.X >= 0 && p.X <= b.Width && p.Y >= 0 && p.Y <= b.Height
}
