package detector

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-yolo/inference"
	"github.com/nvr-ai/go-yolo/models/yolo"
	"github.com/nvr-ai/go-yolo/profiler"
)

// mockEngine returns a canned output and records what it was given.
type mockEngine struct {
	inputLen int
	output   []float32
	err      error
	calls    atomic.Int32
	lastMax  atomic.Uint32
}

var _ inference.Engine = (*mockEngine)(nil)

func (m *mockEngine) Run(ctx context.Context, input []float32) ([]float32, error) {
	m.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}
	if len(input) != m.inputLen {
		return nil, errors.Wrapf(inference.ErrInputSize, "got %d", len(input))
	}
	var peak float32
	for _, v := range input {
		if v > peak {
			peak = v
		}
	}
	m.lastMax.Store(uint32(peak))
	return append([]float32(nil), m.output...), nil
}

func (m *mockEngine) Close() error { return nil }

// oneObject is a 2x2 grid, 1 anchor, 2 classes cell-major output with a
// single class 0 object in cell (1, 1).
func oneObject() (yolo.Config, []float32) {
	cfg := yolo.Config{
		Name:                "test",
		GridRows:            2,
		GridCols:            2,
		AnchorCount:         1,
		ClassCount:          2,
		Anchors:             []yolo.Anchor{{Width: 1, Height: 1}},
		Classes:             []string{"cat", "dog"},
		ImageWidth:          64,
		ImageHeight:         64,
		ConfidenceThreshold: 0.5,
		MaxResults:          5,
		IoUThreshold:        0.5,
		Workers:             1,
	}
	g := cfg.Geometry()
	raw := make([]float32, g.Len())
	for i := range raw {
		raw[i] = -10
	}
	copy(raw[g.Index(1, 1, 0, yolo.FieldX):], []float32{0, 0, 0, 0, 10, 5, -5})
	return cfg, raw
}

func newTestDetector(t *testing.T, engine *mockEngine, cfg yolo.Config, opts Options) *Detector {
	t.Helper()
	model, err := yolo.New(cfg)
	require.NoError(t, err)
	return New(engine, model, logs.NewTestingLog(t), opts)
}

func grayImage(w, h int, v uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func TestDetect(t *testing.T) {
	cfg, raw := oneObject()
	engine := &mockEngine{inputLen: 3 * 64 * 64, output: raw}
	prof := profiler.New(0)
	d := newTestDetector(t, engine, cfg, Options{Profiler: prof})

	boxes, err := d.Detect(context.Background(), grayImage(64, 64, 200))
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, "cat", boxes[0].Label)
	assert.InDelta(t, 48, boxes[0].Rect.X+boxes[0].Rect.Width/2, 1e-4)
	assert.Equal(t, uint32(200), engine.lastMax.Load(), "default scale keeps 0-255 values")

	stages := map[string]int64{}
	for _, s := range prof.Stats() {
		stages[s.Name] = s.Count
	}
	assert.Equal(t, map[string]int64{
		profiler.StagePreprocess: 1,
		profiler.StageInference:  1,
		profiler.StageDecode:     1,
	}, stages)
}

func TestDetect_ChannelMajorEngine(t *testing.T) {
	cfg, raw := oneObject()
	g := cfg.Geometry()
	cm := make([]float32, len(raw))
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			for f := 0; f < g.Stride(); f++ {
				cm[(f*g.Rows+r)*g.Cols+c] = raw[g.Index(r, c, 0, f)]
			}
		}
	}
	cfg.Layout = yolo.LayoutChannelMajor
	d := newTestDetector(t, &mockEngine{inputLen: 3 * 64 * 64, output: cm}, cfg, Options{})

	boxes, err := d.Detect(context.Background(), grayImage(64, 64, 10))
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, 0, boxes[0].ClassIndex)
}

func TestDetect_Errors(t *testing.T) {
	cfg, raw := oneObject()

	boom := errors.New("boom")
	d := newTestDetector(t, &mockEngine{inputLen: 3 * 64 * 64, err: boom}, cfg, Options{})
	_, err := d.Detect(context.Background(), grayImage(8, 8, 0))
	assert.True(t, errors.Is(err, boom))

	d = newTestDetector(t, &mockEngine{inputLen: 3 * 64 * 64, output: raw[:5]}, cfg, Options{})
	_, err = d.Detect(context.Background(), grayImage(8, 8, 0))
	assert.True(t, errors.Is(err, yolo.ErrInputShape))

	d = newTestDetector(t, &mockEngine{inputLen: 3 * 64 * 64, output: raw}, cfg, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.Detect(ctx, grayImage(8, 8, 0))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDetectBatch(t *testing.T) {
	cfg, raw := oneObject()
	engine := &mockEngine{inputLen: 3 * 64 * 64, output: raw}
	d := newTestDetector(t, engine, cfg, Options{PixelScale: 1.0 / 255})

	imgs := make([]image.Image, 6)
	for i := range imgs {
		imgs[i] = grayImage(32+i, 32, uint8(i*10))
	}
	results, err := d.DetectBatch(context.Background(), imgs)
	require.NoError(t, err)
	require.Len(t, results, len(imgs))
	for _, boxes := range results {
		require.Len(t, boxes, 1)
		assert.Equal(t, "cat", boxes[0].Label)
	}
	assert.Equal(t, int32(len(imgs)), engine.calls.Load())

	empty, err := d.DetectBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDetectBatch_FirstError(t *testing.T) {
	cfg, raw := oneObject()
	d := newTestDetector(t, &mockEngine{inputLen: 3 * 64 * 64, output: raw}, cfg, Options{})

	imgs := []image.Image{grayImage(8, 8, 0), image.NewRGBA(image.Rect(0, 0, 0, 0)), grayImage(8, 8, 0)}
	_, err := d.DetectBatch(context.Background(), imgs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image 1")
}

func TestDetectEncoded(t *testing.T) {
	cfg, raw := oneObject()
	d := newTestDetector(t, &mockEngine{inputLen: 3 * 64 * 64, output: raw}, cfg, Options{})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, grayImage(20, 10, 90)))
	boxes, err := d.DetectEncoded(context.Background(), buf.Bytes())
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, "cat", boxes[0].Label)

	_, err = d.DetectEncoded(context.Background(), []byte("not an image"))
	assert.Error(t, err)
}
