// Package images - Image processing utilities
package images

import (
	"image"

	"github.com/chewxy/math32"
)

// Rect is a lightweight axis-aligned box in model-pixel space.
//
// The origin is the top-left corner; Width and Height extend right and down.
type Rect struct {
	X      float32 `json:"x" yaml:"x"`
	Y      float32 `json:"y" yaml:"y"`
	Width  float32 `json:"width" yaml:"width"`
	Height float32 `json:"height" yaml:"height"`
}

// X2 returns the exclusive right edge of the rectangle.
func (r Rect) X2() float32 {
	return r.X + r.Width
}

// Y2 returns the exclusive bottom edge of the rectangle.
func (r Rect) Y2() float32 {
	return r.Y + r.Height
}

// Area returns the area of the rectangle. Degenerate (negative) extents count as zero.
func (r Rect) Area() float32 {
	return max(r.Width, 0) * max(r.Height, 0)
}

// Scale returns a copy of the rectangle with the x axis multiplied by sx and
// the y axis multiplied by sy.
func (r Rect) Scale(sx, sy float32) Rect {
	return Rect{X: r.X * sx, Y: r.Y * sy, Width: r.Width * sx, Height: r.Height * sy}
}

// ToImageRect converts the rectangle to an image.Rectangle, truncating fractional pixels.
func (r Rect) ToImageRect() image.Rectangle {
	return image.Rect(int(r.X), int(r.Y), int(r.X2()), int(r.Y2())).Canon()
}

// CalculateIoU measures the overlap between two rectangles as
// Intersection over Union:
//
//	IoU = Area of Intersection / Area of Union
//
//	- A value of 1.0 means the rectangles are identical.
//	- A value of 0.0 means the rectangles don't overlap at all.
//
// The intersection is the box spanned by the maximum of the two top-left
// corners and the minimum of the two bottom-right corners. When its width or
// height is zero or negative there is no overlap and 0 is returned.
//
// The union uses inclusion-exclusion:
//
//	Area(Union) = Area(A) + Area(B) - Area(Intersection)
//
// A union that is zero, negative, or not finite (NaN/Inf coordinates) yields 0.
//
// Arguments:
//   - r: The first rectangle.
//   - o: The other rectangle to compare against.
//
// Returns:
//   - float32: A value between 0.0 and 1.0 representing the IoU score.
//
// Example Usage:
// ```go
//
//	rect1 := Rect{X: 0, Y: 0, Width: 10, Height: 10}
//	rect2 := Rect{X: 5, Y: 5, Width: 10, Height: 10}
//
//	iouScore := CalculateIoU(rect1, rect2) // 25 / (100 + 100 - 25) = 0.142857
//
// ```
func CalculateIoU(r, o Rect) float32 {
	ix1 := max(r.X, o.X)
	iy1 := max(r.Y, o.Y)
	ix2 := min(r.X2(), o.X2())
	iy2 := min(r.Y2(), o.Y2())

	interW := ix2 - ix1
	interH := iy2 - iy1
	if !(interW > 0) || !(interH > 0) {
		return 0.0
	}
	interArea := interW * interH

	unionArea := r.Area() + o.Area() - interArea
	if !(unionArea > 0) || math32.IsInf(unionArea, 0) {
		return 0.0
	}

	iou := interArea / unionArea
	// Rounding can push a near-identical pair a hair above one.
	return min(iou, 1)
}
