package overlay

import (
	"fmt"
	"image"
)

const (
	// BorderWidth is the red chrome border around the capture area.
	BorderWidth = 2
	// ResizeMargin is the edge/corner hit-test band in pixels.
	ResizeMargin = 8
	// MinSize is the smallest legal width/height of the capture region.
	MinSize = 35
)

// Edge identifies which part of the overlay chrome a pointer position hits.
type Edge int

const (
	EdgeNone Edge = iota
	EdgeTop
	EdgeBottom
	EdgeLeft
	EdgeRight
	EdgeTopLeft
	EdgeTopRight
	EdgeBottomLeft
	EdgeBottomRight
)

func (e Edge) String() string {
	switch e {
	case EdgeTop:
		return "top"
	case EdgeBottom:
		return "bottom"
	case EdgeLeft:
		return "left"
	case EdgeRight:
		return "right"
	case EdgeTopLeft:
		return "top-left"
	case EdgeTopRight:
		return "top-right"
	case EdgeBottomLeft:
		return "bottom-left"
	case EdgeBottomRight:
		return "bottom-right"
	}
	return "none"
}

// Rect is the overlay's bounds in virtual-screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// EdgeAt hit-tests a window-relative position against the resize band.
// Corners take priority over edges.
func (r Rect) EdgeAt(x, y int) Edge {
	m := ResizeMargin
	w, h := r.Width, r.Height

	switch {
	case x < m && y < m:
		return EdgeTopLeft
	case x > w-m && y < m:
		return EdgeTopRight
	case x < m && y > h-m:
		return EdgeBottomLeft
	case x > w-m && y > h-m:
		return EdgeBottomRight
	case x < m:
		return EdgeLeft
	case x > w-m:
		return EdgeRight
	case y < m:
		return EdgeTop
	case y > h-m:
		return EdgeBottom
	}
	return EdgeNone
}

// Clamp enforces the minimum size without moving the origin.
func (r Rect) Clamp() Rect {
	if r.Width < MinSize {
		r.Width = MinSize
	}
	if r.Height < MinSize {
		r.Height = MinSize
	}
	return r
}

// GeometryString renders "WxH+X+Y" for settings persistence.
func (r Rect) GeometryString() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// ParseGeometry parses the "WxH+X+Y" form produced by GeometryString.
func ParseGeometry(s string) (Rect, error) {
	var r Rect
	if _, err := fmt.Sscanf(s, "%dx%d+%d+%d", &r.Width, &r.Height, &r.X, &r.Y); err != nil {
		return Rect{}, fmt.Errorf("invalid geometry string %q: %w", s, err)
	}
	return r.Clamp(), nil
}

// Intersects reports whether the rect is at least partly visible on any of
// the given display bounds.
func (r Rect) Intersects(displays []image.Rectangle) bool {
	rect := image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
	for _, d := range displays {
		if rect.Overlaps(d) {
			return true
		}
	}
	return false
}

// resize applies one incremental resize step. dx/dy are the pointer position
// relative to the rect origin. East/south edges track the pointer directly;
// west/north edges move the origin and shrink, clamped to MinSize without
// moving the anchored edge.
func resize(r Rect, edge Edge, dx, dy int) Rect {
	x, y, w, h := r.X, r.Y, r.Width, r.Height

	switch edge {
	case EdgeRight, EdgeTopRight, EdgeBottomRight:
		w = max(MinSize, dx)
	}
	switch edge {
	case EdgeBottom, EdgeBottomLeft, EdgeBottomRight:
		h = max(MinSize, dy)
	}
	switch edge {
	case EdgeLeft, EdgeTopLeft, EdgeBottomLeft:
		if nw := w - dx; nw >= MinSize {
			w = nw
			x += dx
		} else {
			w = MinSize
		}
	}
	switch edge {
	case EdgeTop, EdgeTopLeft, EdgeTopRight:
		if nh := h - dy; nh >= MinSize {
			h = nh
			y += dy
		} else {
			h = MinSize
		}
	}

	return Rect{X: x, Y: y, Width: w, Height: h}
}
