// Package common - Detection output types shared by the decoder and its consumers.
package common

import (
	"fmt"
	"image"
	"image/color"

	"github.com/nvr-ai/go-yolo/images"
)

// BoundingBox represents a final detection: its label, confidence, and
// top-left rectangle in model-pixel coordinates.
type BoundingBox struct {
	Label      string      `json:"label"`
	ClassIndex int         `json:"class"`
	Confidence float32     `json:"confidence"`
	Rect       images.Rect `json:"rect"`
	// Color is ClassColor(ClassIndex); only the rendering sink uses it.
	Color color.RGBA `json:"-"`
}

// NewBoundingBox builds a box for the given class, resolving its display color.
//
// Arguments:
//   - label: The class name.
//   - classIndex: The class index the label was resolved from.
//   - confidence: The detection confidence.
//   - rect: The rectangle in model-pixel coordinates.
//
// Returns:
//   - BoundingBox: The box.
func NewBoundingBox(label string, classIndex int, confidence float32, rect images.Rect) BoundingBox {
	return BoundingBox{
		Label:      label,
		ClassIndex: classIndex,
		Confidence: confidence,
		Rect:       rect,
		Color:      ClassColor(classIndex),
	}
}

// String formats the bounding box information for display.
//
// Returns:
//   - A formatted string containing object class, confidence, and corner coordinates.
//
// @example
// box := NewBoundingBox("person", 14, 0.95, images.Rect{X: 100, Y: 100, Width: 100, Height: 200})
// fmt.Println(box.String()) // Object person (confidence 0.950000): (100.00, 100.00), (200.00, 300.00)
func (b BoundingBox) String() string {
	return fmt.Sprintf("Object %s (confidence %f): (%.2f, %.2f), (%.2f, %.2f)",
		b.Label, b.Confidence, b.Rect.X, b.Rect.Y, b.Rect.X2(), b.Rect.Y2())
}

// ToRect converts the bounding box to an image.Rectangle.
//
// This loses fractional pixels around the edges.
func (b BoundingBox) ToRect() image.Rectangle {
	return b.Rect.ToImageRect()
}

// IoU calculates the Intersection over Union between two bounding boxes.
func (b BoundingBox) IoU(other BoundingBox) float32 {
	return images.CalculateIoU(b.Rect, other.Rect)
}

// Scale returns a copy of the box with its rectangle mapped from a
// fromW x fromH image onto a toW x toH image.
func (b BoundingBox) Scale(fromW, fromH, toW, toH int) BoundingBox {
	sx := float32(toW) / float32(fromW)
	sy := float32(toH) / float32(fromH)
	b.Rect = b.Rect.Scale(sx, sy)
	return b
}
