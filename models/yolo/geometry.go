package yolo

import "fmt"

// Channel offsets inside one anchor's field group.
const (
	FieldX          = 0
	FieldY          = 1
	FieldW          = 2
	FieldH          = 3
	FieldObjectness = 4
	// FieldClass is the offset of the first class score; class c lives at FieldClass+c.
	FieldClass = 5
)

// Geometry describes the memory layout of a single-head grid detector output.
//
// Cells are enumerated row-major. Every cell holds Anchors contiguous field
// groups, and every field group holds Stride() channels:
//
//	[tx, ty, tw, th, objectness, class_0 .. class_{Classes-1}]
type Geometry struct {
	Rows    int
	Cols    int
	Anchors int
	Classes int
}

// Stride is the number of channels in one anchor's field group.
func (g Geometry) Stride() int {
	return FieldClass + g.Classes
}

// Cells is the number of grid cells.
func (g Geometry) Cells() int {
	return g.Rows * g.Cols
}

// Boxes is the number of (cell, anchor) pairs, which is also the number of
// candidates a decode produces.
func (g Geometry) Boxes() int {
	return g.Cells() * g.Anchors
}

// Len is the exact number of values a raw output must contain.
func (g Geometry) Len() int {
	return g.Boxes() * g.Stride()
}

// Index maps (row, col, anchor, field) to a flat index into the raw output.
// Arguments outside the configured bounds are a programming error and panic.
func (g Geometry) Index(row, col, anchor, field int) int {
	if row < 0 || row >= g.Rows || col < 0 || col >= g.Cols ||
		anchor < 0 || anchor >= g.Anchors || field < 0 || field >= g.Stride() {
		panic(fmt.Sprintf("yolo: grid index (%d, %d, %d, %d) out of range for %dx%d grid, %d anchors, %d fields",
			row, col, anchor, field, g.Rows, g.Cols, g.Anchors, g.Stride()))
	}
	return g.base(row, col, anchor) + field
}

// base is the unchecked offset of a field group.
func (g Geometry) base(row, col, anchor int) int {
	return ((row*g.Cols+col)*g.Anchors + anchor) * g.Stride()
}
