package yolo

import (
	"math"

	"github.com/chewxy/math32"
)

var (
	sigmoidMin = float32(math.SmallestNonzeroFloat32)
	sigmoidMax = math.Nextafter32(1, 0)
)

// Sigmoid is the logistic function 1 / (1 + e^-v).
//
// The two branches keep the exponent non-positive so that e^x never
// overflows, and the result is pinned inside the open interval (0, 1) where
// float32 rounding would otherwise produce exactly 0 or 1. NaN is returned
// unchanged.
func Sigmoid(v float32) float32 {
	var s float32
	if v >= 0 {
		s = 1 / (1 + math32.Exp(-v))
	} else {
		e := math32.Exp(v)
		s = e / (1 + e)
	}
	switch {
	case s < sigmoidMin:
		return sigmoidMin
	case s > sigmoidMax:
		return sigmoidMax
	}
	return s
}

// Softmax returns a new slice holding exp(v_i - max) / sum_j exp(v_j - max).
//
// Degenerate inputs never produce NaN:
//   - an empty input returns an empty slice
//   - any NaN, or every entry being -Inf, returns all zeros
//   - +Inf entries share the whole mass equally
func Softmax(values []float32) []float32 {
	out := make([]float32, len(values))
	if len(values) == 0 {
		return out
	}

	maxV := math32.Inf(-1)
	for _, v := range values {
		if math32.IsNaN(v) {
			return out
		}
		maxV = max(maxV, v)
	}

	switch {
	case math32.IsInf(maxV, -1):
		return out
	case math32.IsInf(maxV, 1):
		n := 0
		for _, v := range values {
			if math32.IsInf(v, 1) {
				n++
			}
		}
		for i, v := range values {
			if math32.IsInf(v, 1) {
				out[i] = 1 / float32(n)
			}
		}
		return out
	}

	var sum float32
	for i, v := range values {
		out[i] = math32.Exp(v - maxV)
		sum += out[i]
	}
	// sum >= 1 because the maximum contributes exp(0).
	for i := range out {
		out[i] /= sum
	}
	return out
}
