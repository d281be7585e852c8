package yolo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigmoid(t *testing.T) {
	assert.Equal(t, float32(0.5), Sigmoid(0))
	assert.InDelta(t, 0.9999546, Sigmoid(10), 1e-6)
	assert.InDelta(t, 0.0000454, Sigmoid(-10), 1e-6)
	assert.InDelta(t, 0.7310586, Sigmoid(1), 1e-6)
}

func TestSigmoid_StrictlyInsideUnitInterval(t *testing.T) {
	inputs := []float32{
		0, 1e-30, -1e-30, 17, -17, 88, -88, 104, -104, 1e30, -1e30,
		math.MaxFloat32, -math.MaxFloat32,
		float32(math.Inf(1)), float32(math.Inf(-1)),
	}
	for _, v := range inputs {
		s := Sigmoid(v)
		assert.Greater(t, s, float32(0), "sigmoid(%g)", v)
		assert.Less(t, s, float32(1), "sigmoid(%g)", v)
	}
}

func TestSigmoid_Monotonic(t *testing.T) {
	prev := Sigmoid(-200)
	for v := float32(-200); v <= 200; v += 0.25 {
		s := Sigmoid(v)
		assert.GreaterOrEqual(t, s, prev, "sigmoid must not decrease at %g", v)
		prev = s
	}
	// Strictly increasing where float32 can resolve it.
	for v := float32(-10); v < 10; v += 0.5 {
		assert.Less(t, Sigmoid(v), Sigmoid(v+0.5))
	}
}

func TestSigmoid_NaN(t *testing.T) {
	assert.True(t, math.IsNaN(float64(Sigmoid(float32(math.NaN())))))
}

func sum(values []float32) float64 {
	var s float64
	for _, v := range values {
		s += float64(v)
	}
	return s
}

func TestSoftmax(t *testing.T) {
	tests := []struct {
		name  string
		input []float32
		want  []float32
	}{
		{"single element", []float32{-3.5}, []float32{1}},
		{"all equal", []float32{2, 2, 2, 2}, []float32{0.25, 0.25, 0.25, 0.25}},
		{"two classes", []float32{5, -5}, []float32{0.9999546, 0.0000454}},
		{"highly skewed", []float32{1000, 0, -1000}, []float32{1, 0, 0}},
		{"large equal values", []float32{1e30, 1e30}, []float32{0.5, 0.5}},
		{"negative infinity entry", []float32{float32(math.Inf(-1)), 0}, []float32{0, 1}},
		{"positive infinity entries", []float32{float32(math.Inf(1)), 0, float32(math.Inf(1))}, []float32{0.5, 0, 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Softmax(tt.input)
			require.Len(t, got, len(tt.want))
			for i := range got {
				assert.InDelta(t, tt.want[i], got[i], 1e-5)
				assert.GreaterOrEqual(t, got[i], float32(0))
				assert.LessOrEqual(t, got[i], float32(1))
			}
			assert.InDelta(t, 1.0, sum(got), 1e-5)
		})
	}
}

func TestSoftmax_DoesNotModifyInput(t *testing.T) {
	in := []float32{1, 2, 3}
	Softmax(in)
	assert.Equal(t, []float32{1, 2, 3}, in)
}

func TestSoftmax_Degenerate(t *testing.T) {
	assert.Empty(t, Softmax(nil))
	assert.Equal(t, []float32{0, 0}, Softmax([]float32{float32(math.NaN()), 1}))
	ninf := float32(math.Inf(-1))
	assert.Equal(t, []float32{0, 0}, Softmax([]float32{ninf, ninf}))
}

func TestSoftmax_SumsToOneForFiniteInputs(t *testing.T) {
	inputs := [][]float32{
		{0.1, 0.2, 0.3, 0.4, 0.5},
		{-50, 50, 0, 25, -25},
		{88, 89, 90},
		{-1e20, 1e20},
		{3},
	}
	for _, in := range inputs {
		assert.InDelta(t, 1.0, sum(Softmax(in)), 1e-5, "%v", in)
	}
}
