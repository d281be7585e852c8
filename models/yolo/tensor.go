package yolo

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// materializer is implemented by tensor views whose backing array is not in
// logical order (slices, thunked transposes).
type materializer interface {
	IsMaterializable() bool
	Materialize() tensor.Tensor
}

// TensorData extracts the float32 values of t in logical order and checks
// that the element count matches geom. The shape of t is not interpreted.
//
// Arguments:
//   - t: A float32 tensor, for example the output node value of a gorgonia graph.
//   - geom: The expected layout.
//
// Returns:
//   - []float32: The values; may share memory with t.
//   - error: An error wrapping ErrInputShape on a dtype or size mismatch.
func TensorData(t tensor.Tensor, geom Geometry) ([]float32, error) {
	if t == nil {
		return nil, shapeErrorf("nil tensor")
	}
	if t.Dtype() != tensor.Float32 {
		return nil, shapeErrorf("tensor dtype is %v, want float32", t.Dtype())
	}
	if m, ok := t.(materializer); ok && m.IsMaterializable() {
		t = m.Materialize()
	}
	data, ok := t.Data().([]float32)
	if !ok {
		return nil, shapeErrorf("tensor with shape %v has no float32 backing", t.Shape())
	}
	if len(data) != geom.Len() {
		return nil, shapeErrorf("tensor with shape %v holds %d values, want %d", t.Shape(), len(data), geom.Len())
	}
	return data, nil
}

// DecodeTensor decodes a cell-major tensor. See Decode.
func (d *Decoder) DecodeTensor(t tensor.Tensor) ([]Candidate, error) {
	data, err := TensorData(t, d.geom)
	if err != nil {
		return nil, err
	}
	return d.Decode(data)
}

// ChannelsLast reorders a channel-major (NCHW, batch of one) output
//
//	[anchor][field][row][col]
//
// into the cell-major order the decoder reads
//
//	[row][col][anchor][field]
//
// The input is not modified.
//
// Arguments:
//   - raw: Exactly geom.Len() values in channel-major order.
//   - geom: The grid layout.
//
// Returns:
//   - []float32: A new slice in cell-major order.
//   - error: An error wrapping ErrInputShape if the length is wrong.
func ChannelsLast(raw []float32, geom Geometry) ([]float32, error) {
	if len(raw) != geom.Len() {
		return nil, shapeErrorf("got %d channel-major values, want %d", len(raw), geom.Len())
	}
	backing := make([]float32, len(raw))
	copy(backing, raw)

	t := tensor.New(
		tensor.WithShape(geom.Anchors, geom.Stride(), geom.Rows, geom.Cols),
		tensor.WithBacking(backing),
	)
	if err := t.T(2, 3, 0, 1); err != nil && !isNoOp(err) {
		return nil, errors.Wrap(err, "transposing channel-major output")
	}
	if err := t.Transpose(); err != nil && !isNoOp(err) {
		return nil, errors.Wrap(err, "transposing channel-major output")
	}
	return t.Data().([]float32), nil
}

// isNoOp reports the tensor package's "nothing to do" error.
func isNoOp(err error) bool {
	n, ok := errors.Cause(err).(interface{ NoOp() bool })
	return ok && n.NoOp()
}
