package images

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestIoU_Correctness validates the IoU implementation against known test cases
func TestIoU_Correctness(t *testing.T) {
	tests := []struct {
		name     string
		r1       Rect
		r2       Rect
		expected float32
		epsilon  float32
	}{
		{
			name:     "Identical rectangles",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{0, 0, 100, 100},
			expected: 1.0,
			epsilon:  0.001,
		},
		{
			name:     "No overlap",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{200, 200, 100, 100},
			expected: 0.0,
			epsilon:  0.001,
		},
		{
			name:     "Touching edges",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{100, 0, 100, 100},
			expected: 0.0,
			epsilon:  0.001,
		},
		{
			name:     "Half overlap",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{50, 50, 100, 100},
			expected: 0.142857, // intersection=2500, union=10000+10000-2500=17500
			epsilon:  0.001,
		},
		{
			name:     "Small overlap",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{90, 90, 100, 100},
			expected: 0.005025, // intersection=100, union=19900
			epsilon:  0.001,
		},
		{
			name:     "One inside other",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{25, 25, 50, 50},
			expected: 0.25,
			epsilon:  0.001,
		},
		{
			name:     "Fractional boxes",
			r1:       Rect{10.5, 10.5, 20, 20},
			r2:       Rect{20.5, 10.5, 20, 20},
			expected: 0.333333, // intersection=200, union=600
			epsilon:  0.001,
		},
		{
			name:     "Zero area boxes",
			r1:       Rect{10, 10, 0, 0},
			r2:       Rect{10, 10, 0, 0},
			expected: 0.0,
			epsilon:  0.001,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateIoU(tt.r1, tt.r2)
			assert.InDelta(t, tt.expected, result, float64(tt.epsilon))

			// IoU(A, B) should equal IoU(B, A)
			reverse := CalculateIoU(tt.r2, tt.r1)
			assert.InDelta(t, result, reverse, float64(tt.epsilon), "IoU not symmetric")
		})
	}
}

// TestIoU_vs_ImageRectangle compares our implementation against image.Rectangle
func TestIoU_vs_ImageRectangle(t *testing.T) {
	testCases := []struct {
		name string
		r1   Rect
		r2   Rect
	}{
		{"No overlap", Rect{0, 0, 100, 100}, Rect{200, 200, 100, 100}},
		{"Partial overlap", Rect{0, 0, 100, 100}, Rect{50, 50, 100, 100}},
		{"Full overlap", Rect{50, 50, 100, 100}, Rect{50, 50, 100, 100}},
		{"One inside other", Rect{0, 0, 100, 100}, Rect{25, 25, 50, 50}},
		{"Large boxes", Rect{0, 0, 1920, 1080}, Rect{960, 540, 960, 540}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			customResult := CalculateIoU(tc.r1, tc.r2)
			imageResult := imageRectangleIoU(tc.r1.ToImageRect(), tc.r2.ToImageRect())
			assert.InDelta(t, imageResult, customResult, 0.0001)
		})
	}
}

// TestIoU_Range checks the score stays in [0, 1] for awkward inputs.
func TestIoU_Range(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	cases := [][2]Rect{
		{{0, 0, 1e-6, 1e-6}, {0, 0, 1e-6, 1e-6}},
		{{-50, -50, 100, 100}, {0, 0, 10, 10}},
		{{0, 0, -10, 10}, {0, 0, 10, 10}},
		{{nan, 0, 10, 10}, {0, 0, 10, 10}},
		{{0, 0, inf, inf}, {0, 0, 10, 10}},
		{{1e30, 1e30, 1e30, 1e30}, {1e30, 1e30, 1e30, 1e30}},
	}
	for _, c := range cases {
		iou := CalculateIoU(c[0], c[1])
		assert.GreaterOrEqual(t, iou, float32(0), "%v vs %v", c[0], c[1])
		assert.LessOrEqual(t, iou, float32(1), "%v vs %v", c[0], c[1])
	}
}

func TestRectScale(t *testing.T) {
	r := Rect{X: 10, Y: 20, Width: 30, Height: 40}
	scaled := r.Scale(2, 0.5)
	assert.Equal(t, Rect{X: 20, Y: 10, Width: 60, Height: 20}, scaled)
	assert.Equal(t, float32(40), r.X2())
	assert.Equal(t, float32(60), r.Y2())
	assert.Equal(t, image.Rect(10, 20, 40, 60), r.ToImageRect())
}

// imageRectangleIoU implements IoU using Go's standard library image.Rectangle
func imageRectangleIoU(r1, r2 image.Rectangle) float32 {
	intersect := r1.Intersect(r2)
	if intersect.Empty() {
		return 0.0
	}

	intersectArea := intersect.Dx() * intersect.Dy()
	r1Area := r1.Dx() * r1.Dy()
	r2Area := r2.Dx() * r2.Dy()
	union := r1Area + r2Area - intersectArea
	return float32(intersectArea) / float32(union)
}
