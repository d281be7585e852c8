package inference

import (
	"context"
	"os"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Engine = (*Session)(nil)

func tinyYOLOv2Args() NewSessionArgs {
	return NewSessionArgs{
		LibraryPath: os.Getenv("ONNXRUNTIME_LIB"),
		ModelPath:   os.Getenv("YOLO_MODEL"),
		InputName:   "image",
		OutputName:  "grid",
		InputShape:  []int64{1, 3, 416, 416},
		OutputShape: []int64{1, 125, 13, 13},
	}
}

func TestNewSessionArgs_Validate(t *testing.T) {
	valid := tinyYOLOv2Args()
	valid.ModelPath = "model.onnx"
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*NewSessionArgs)
	}{
		{"no model", func(a *NewSessionArgs) { a.ModelPath = "" }},
		{"no input name", func(a *NewSessionArgs) { a.InputName = "" }},
		{"no output name", func(a *NewSessionArgs) { a.OutputName = "" }},
		{"empty input shape", func(a *NewSessionArgs) { a.InputShape = nil }},
		{"zero output dimension", func(a *NewSessionArgs) { a.OutputShape = []int64{1, 0, 13, 13} }},
		{"unknown provider", func(a *NewSessionArgs) { a.Provider = "tpu" }},
		{"negative threads", func(a *NewSessionArgs) { a.Threads = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := valid
			tt.mutate(&args)
			assert.Error(t, args.Validate())

			// Invalid arguments never reach the runtime.
			_, err := NewSession(logs.NewTestingLog(t), args)
			assert.Error(t, err)
		})
	}

	for _, p := range Providers {
		args := valid
		args.Provider = p
		assert.NoError(t, args.Validate(), "provider %s", p)
	}
}

func TestSession_Run(t *testing.T) {
	args := tinyYOLOv2Args()
	if args.LibraryPath == "" || args.ModelPath == "" {
		t.Skip("ONNXRUNTIME_LIB and YOLO_MODEL must be set")
	}

	s, err := NewSession(logs.NewTestingLog(t), args)
	require.NoError(t, err)
	defer s.Close()

	out, err := s.Run(context.Background(), make([]float32, 3*416*416))
	require.NoError(t, err)
	assert.Len(t, out, 125*13*13)

	_, err = s.Run(context.Background(), make([]float32, 10))
	assert.True(t, errors.Is(err, ErrInputSize))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Run(ctx, make([]float32, 3*416*416))
	assert.ErrorIs(t, err, context.Canceled)

	require.NoError(t, s.Close())
	_, err = s.Run(context.Background(), make([]float32, 3*416*416))
	assert.Error(t, err)
}
