package yolo

import (
	"sync"

	"github.com/chewxy/math32"
)

// Decoder turns a cell-major raw output into one Candidate per (cell, anchor).
//
// A Decoder holds only immutable configuration and is safe for concurrent use.
type Decoder struct {
	geom    Geometry
	anchors []Anchor
	cellW   float32
	cellH   float32
	workers int
}

// NewDecoder validates cfg and builds a decoder for its geometry.
//
// Arguments:
//   - cfg: The model configuration.
//
// Returns:
//   - *Decoder: The decoder.
//   - error: An error wrapping ErrConfiguration if cfg is inconsistent.
func NewDecoder(cfg Config) (*Decoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Decoder{
		geom:    cfg.Geometry(),
		anchors: append([]Anchor(nil), cfg.Anchors...),
		cellW:   float32(cfg.ImageWidth) / float32(cfg.GridCols),
		cellH:   float32(cfg.ImageHeight) / float32(cfg.GridRows),
		workers: cfg.workers(),
	}, nil
}

// Geometry returns the layout the decoder expects.
func (d *Decoder) Geometry() Geometry {
	return d.geom
}

// Decode reconstructs every candidate box in raw.
//
// For the cell at (row, col) and anchor a:
//
//	x = (col + sigmoid(tx)) * cellWidth      w = exp(tw) * a.Width * cellWidth
//	y = (row + sigmoid(ty)) * cellHeight     h = exp(th) * a.Height * cellHeight
//	objectness = sigmoid(to)                 classes = softmax(class channels)
//
// Candidates are returned in enumeration order (cells row-major, then
// anchor), and Candidate.Index is the position in that order. Grid rows are
// decoded in parallel; each worker fills its own range of the result.
//
// Arguments:
//   - raw: Exactly Geometry().Len() values in cell-major order. Not modified.
//
// Returns:
//   - []Candidate: Geometry().Boxes() candidates.
//   - error: An error wrapping ErrInputShape if the length is wrong.
func (d *Decoder) Decode(raw []float32) ([]Candidate, error) {
	if len(raw) != d.geom.Len() {
		return nil, shapeErrorf("got %d values, %dx%d grid with %d anchors and %d classes needs %d",
			len(raw), d.geom.Rows, d.geom.Cols, d.geom.Anchors, d.geom.Classes, d.geom.Len())
	}

	out := make([]Candidate, d.geom.Boxes())
	workers := min(d.workers, d.geom.Rows)
	if workers <= 1 {
		for row := 0; row < d.geom.Rows; row++ {
			d.decodeRow(raw, row, out)
		}
		return out, nil
	}

	rows := make(chan int, d.geom.Rows)
	for row := 0; row < d.geom.Rows; row++ {
		rows <- row
	}
	close(rows)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for row := range rows {
				d.decodeRow(raw, row, out)
			}
		}()
	}
	wg.Wait()
	return out, nil
}

// decodeRow writes the candidates of one grid row into out.
func (d *Decoder) decodeRow(raw []float32, row int, out []Candidate) {
	g := d.geom
	for col := 0; col < g.Cols; col++ {
		for a := 0; a < g.Anchors; a++ {
			base := g.Index(row, col, a, FieldX)
			group := raw[base : base+g.Stride()]
			anchor := d.anchors[a]
			idx := (row*g.Cols+col)*g.Anchors + a

			out[idx] = Candidate{
				Index:              idx,
				Row:                row,
				Col:                col,
				Anchor:             a,
				X:                  (float32(col) + Sigmoid(group[FieldX])) * d.cellW,
				Y:                  (float32(row) + Sigmoid(group[FieldY])) * d.cellH,
				Width:              math32.Exp(group[FieldW]) * anchor.Width * d.cellW,
				Height:             math32.Exp(group[FieldH]) * anchor.Height * d.cellH,
				Objectness:         Sigmoid(group[FieldObjectness]),
				ClassProbabilities: Softmax(group[FieldClass:]),
			}
		}
	}
}
