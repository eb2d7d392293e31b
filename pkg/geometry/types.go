// Package geometry provides basic geometric types used throughout the application.
package geometry

import (
	"image"
)

// RectInt represents a rectangle with integer coordinates.
type RectInt struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FromImageRect converts a stdlib rectangle.
func FromImageRect(r image.Rectangle) RectInt {
	return RectInt{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// ImageRect converts to a stdlib rectangle.
func (r RectInt) ImageRect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Empty reports whether the rectangle has no area.
func (r RectInt) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Right returns the exclusive right edge.
func (r RectInt) Right() int { return r.X + r.Width }

// Bottom returns the exclusive bottom edge.
func (r RectInt) Bottom() int { return r.Y + r.Height }

// Union returns the smallest rectangle containing both rectangles.
// An empty operand is ignored.
func (r RectInt) Union(o RectInt) RectInt {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	x0 := min(r.X, o.X)
	y0 := min(r.Y, o.Y)
	x1 := max(r.Right(), o.Right())
	y1 := max(r.Bottom(), o.Bottom())
	return RectInt{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// UnionAll merges every rectangle: min of the left/top corners, max of the
// right/bottom corners.
func UnionAll(rects []RectInt) RectInt {
	var out RectInt
	for _, r := range rects {
		out = out.Union(r)
	}
	return out
}

// CenterIn returns the placement of a w x h box centred in a side x side square.
func CenterIn(side, w, h int) RectInt {
	return RectInt{X: (side - w) / 2, Y: (side - h) / 2, Width: w, Height: h}
}
