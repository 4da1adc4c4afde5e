// Package geometry maps rendered vector pages back to document blocks.
//
// Every block is preceded in the rendered page by an invisible marker
// element with a fixed fill. Compute walks the rendered tree once and
// unions the boxes of the leaf elements following each marker into one
// rectangle per block; HitTest maps a pointer position to a block index.
package geometry

import "math"

// Rect is an axis-aligned box in screen coordinates.
type Rect struct {
	L float64 `json:"l"`
	T float64 `json:"t"`
	R float64 `json:"r"`
	B float64 `json:"b"`
}

func (r Rect) Width() float64  { return r.R - r.L }
func (r Rect) Height() float64 { return r.B - r.T }

// Valid reports whether all edges are finite and ordered.
func (r Rect) Valid() bool {
	for _, v := range []float64{r.L, r.T, r.R, r.B} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return r.R >= r.L && r.B >= r.T
}

// Contains reports whether (x, y) lies inside r, edges included.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.L && x <= r.R && y >= r.T && y <= r.B
}

// Inside reports whether (x, y) lies strictly inside r.
func (r Rect) Inside(x, y float64) bool {
	return x > r.L && x < r.R && y > r.T && y < r.B
}

// Union returns the smallest rectangle containing r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		L: math.Min(r.L, o.L),
		T: math.Min(r.T, o.T),
		R: math.Max(r.R, o.R),
		B: math.Max(r.B, o.B),
	}
}

// Translate moves r by (dx, dy).
func (r Rect) Translate(dx, dy float64) Rect {
	return Rect{L: r.L + dx, T: r.T + dy, R: r.R + dx, B: r.B + dy}
}

// Distance returns the Euclidean distance from (x, y) to the nearest point
// of r; zero inside.
func (r Rect) Distance(x, y float64) float64 {
	dx := math.Max(math.Max(r.L-x, 0), x-r.R)
	dy := math.Max(math.Max(r.T-y, 0), y-r.B)
	return math.Hypot(dx, dy)
}
