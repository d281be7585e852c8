package yolo

import (
	"github.com/chewxy/math32"

	"github.com/nvr-ai/go-yolo/images"
)

// Candidate is one decoded (cell, anchor) prediction before filtering.
//
// X and Y are the box center; all geometry is in model-pixel coordinates.
type Candidate struct {
	// Index is the enumeration position: cells row-major, then anchor.
	Index  int
	Row    int
	Col    int
	Anchor int

	X      float32
	Y      float32
	Width  float32
	Height float32

	Objectness         float32
	ClassProbabilities []float32
}

// BestClass returns the index and probability of the most likely class.
// The first maximal entry wins; NaN entries never win. When no entry is a
// number the result is (0, NaN).
func (c Candidate) BestClass() (int, float32) {
	best, bestP := 0, math32.NaN()
	for i, p := range c.ClassProbabilities {
		if math32.IsNaN(p) {
			continue
		}
		if math32.IsNaN(bestP) || p > bestP {
			best, bestP = i, p
		}
	}
	return best, bestP
}

// Confidence is objectness multiplied by the best class probability.
func (c Candidate) Confidence() float32 {
	_, p := c.BestClass()
	return c.Objectness * p
}

// Rect converts the center/size geometry into a top-left rectangle.
func (c Candidate) Rect() images.Rect {
	return images.Rect{
		X:      c.X - c.Width/2,
		Y:      c.Y - c.Height/2,
		Width:  c.Width,
		Height: c.Height,
	}
}
