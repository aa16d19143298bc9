package layout

import (
	"fmt"
	"math"
)

// Point is an absolute position on the canvas.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Midpoint returns the point halfway between p and q.
func Midpoint(p, q Point) Point {
	return Point{X: (p.X + q.X) / 2, Y: (p.Y + q.Y) / 2}
}

// String formats the point as "(x, y)".
func (p Point) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}

// DefaultGridSize is the spacing of the alignment grid.
const DefaultGridSize = 50

// Snap rounds each coordinate of p to the nearest multiple of grid.
//
// Ties round toward positive infinity, so Snap(Point{25, -25}, 50) is
// (50, 0). A non-positive grid returns p unchanged.
func Snap(p Point, grid float64) Point {
	if grid <= 0 || math.IsNaN(grid) || math.IsInf(grid, 0) {
		return p
	}
	return Point{X: snapAxis(p.X, grid), Y: snapAxis(p.Y, grid)}
}

func snapAxis(v, grid float64) float64 {
	s := math.Floor(v/grid+0.5) * grid
	if s == 0 {
		// Normalize -0 so callers never print "-0".
		return 0
	}
	return s
}
