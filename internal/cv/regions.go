package cv

import "image"

// Region is an inclusive-exclusive screen rectangle (X2/Y2 exclusive)
type Region struct {
	X1, Y1, X2, Y2 int
}

// NewRegion creates a new region
func NewRegion(x1, y1, x2, y2 int) Region {
	return Region{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// RegionFromBox builds a region from an origin and a size
func RegionFromBox(x, y, w, h int) Region {
	return Region{X1: x, Y1: y, X2: x + w, Y2: y + h}
}

// Contains checks if a point is within the region
func (r Region) Contains(p image.Point) bool {
	return p.X >= r.X1 && p.X < r.X2 && p.Y >= r.Y1 && p.Y < r.Y2
}

// Width returns the width of the region
func (r Region) Width() int {
	return r.X2 - r.X1
}

// Height returns the height of the region
func (r Region) Height() int {
	return r.Y2 - r.Y1
}

// Empty reports whether the region covers no pixels
func (r Region) Empty() bool {
	return r.Width() <= 0 || r.Height() <= 0
}

// ToImageRectangle converts Region to *image.Rectangle for use with CV operations
func (r Region) ToImageRectangle() *image.Rectangle {
	return &image.Rectangle{
		Min: image.Point{X: r.X1, Y: r.Y1},
		Max: image.Point{X: r.X2, Y: r.Y2},
	}
}
