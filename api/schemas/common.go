// File: api/schemas/common.go
package schemas

import "fmt"

// Viewport describes the pixel dimensions of the remote browser surface.
// It is fixed for the lifetime of a session.
type Viewport struct {
	Width  int `json:"width" mapstructure:"width"`
	Height int `json:"height" mapstructure:"height"`
}

// Point is a pixel coordinate on the actual (unscaled) viewport.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// Center returns the midpoint of the viewport. It is the fallback pointer
// position when no coordinate has been established yet.
func (v Viewport) Center() Point {
	return Point{X: v.Width / 2, Y: v.Height / 2}
}

// AspectRatio returns width/height, or 0 for a degenerate viewport.
func (v Viewport) AspectRatio() float64 {
	if v.Height == 0 {
		return 0
	}
	return float64(v.Width) / float64(v.Height)
}
