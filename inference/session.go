package inference

import (
	"context"
	"os"
	"sync"

	"github.com/cyclopcam/logs"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// ErrInputSize is returned by Run when the input does not fill the model's input tensor.
var ErrInputSize = errors.New("inference: input size mismatch")

// NewSessionArgs represents the arguments for creating a new ONNX Runtime session.
type NewSessionArgs struct {
	// LibraryPath is the onnxruntime shared library. Empty uses the loader's default search.
	LibraryPath string `json:"library_path" yaml:"library_path"`
	// ModelPath is the ONNX model file.
	ModelPath string `json:"model_path" yaml:"model_path"`
	// InputName and OutputName are the graph node names bound to the tensors.
	InputName  string `json:"input_name" yaml:"input_name"`
	OutputName string `json:"output_name" yaml:"output_name"`
	// InputShape is usually [1, 3, height, width].
	InputShape []int64 `json:"input_shape" yaml:"input_shape"`
	// OutputShape is the raw head shape, [1, anchors*(5+classes), rows, cols] for Tiny-YOLOv2.
	OutputShape []int64 `json:"output_shape" yaml:"output_shape"`
	// Provider selects the execution provider. Empty means ProviderCPU.
	Provider Provider `json:"provider" yaml:"provider"`
	// Threads bounds intra-op parallelism. Zero lets the runtime decide.
	Threads int `json:"threads" yaml:"threads"`
}

// Validate checks the arguments without touching the runtime.
func (a NewSessionArgs) Validate() error {
	if a.ModelPath == "" {
		return errors.New("model path is required")
	}
	if a.InputName == "" || a.OutputName == "" {
		return errors.New("input and output names are required")
	}
	if err := validShape(a.InputShape); err != nil {
		return errors.Wrap(err, "input shape")
	}
	if err := validShape(a.OutputShape); err != nil {
		return errors.Wrap(err, "output shape")
	}
	switch a.Provider {
	case "", ProviderCPU, ProviderCUDA, ProviderCoreML, ProviderOpenVINO:
	default:
		return errors.Errorf("unsupported provider: %s", a.Provider)
	}
	if a.Threads < 0 {
		return errors.Errorf("threads must not be negative, got %d", a.Threads)
	}
	return nil
}

func validShape(shape []int64) error {
	if len(shape) == 0 {
		return errors.New("empty shape")
	}
	for _, d := range shape {
		if d <= 0 {
			return errors.Errorf("dimension %d in %v is not positive", d, shape)
		}
	}
	return nil
}

// Session is an Engine backed by an ONNX Runtime session with preallocated
// input and output tensors. Runs are serialized, so a Session may be shared.
type Session struct {
	mu      sync.Mutex
	log     logs.Log
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

var initMu sync.Mutex

// initEnvironment loads the shared library once per process.
func initEnvironment(libraryPath string) error {
	initMu.Lock()
	defer initMu.Unlock()
	if ort.IsInitialized() {
		return nil
	}
	if libraryPath != "" {
		if _, err := os.Stat(libraryPath); err != nil {
			return errors.Wrapf(err, "ONNX Runtime library not found at %s", libraryPath)
		}
		ort.SetSharedLibraryPath(libraryPath)
	}
	return errors.Wrap(ort.InitializeEnvironment(), "initializing ORT environment")
}

// NewSession creates a new ONNX Runtime session.
//
// Order of operations:
//  1. Environment setup, once per process.
//  2. Tensor allocation for the fixed input and output shapes.
//  3. Session options and the execution provider.
//  4. Session creation, binding the tensors.
//
// Arguments:
//   - log: Receives session lifecycle messages.
//   - args: The arguments for the session.
//
// Returns:
//   - *Session: The session. Close must be called to release native resources.
//   - error: An error if the arguments are invalid or the runtime rejects them.
func NewSession(log logs.Log, args NewSessionArgs) (*Session, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	if err := initEnvironment(args.LibraryPath); err != nil {
		return nil, err
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(args.InputShape...))
	if err != nil {
		return nil, errors.Wrap(err, "creating input tensor")
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(args.OutputShape...))
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "creating output tensor")
	}

	s := &Session{log: log, input: input, output: output}
	if err := s.open(args); err != nil {
		s.Close()
		return nil, err
	}
	log.Infof("Loaded %v on %v, input %v, output %v", args.ModelPath, providerName(args.Provider), args.InputShape, args.OutputShape)
	return s, nil
}

func (s *Session) open(args NewSessionArgs) error {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return errors.Wrap(err, "creating ORT session options")
	}
	defer options.Destroy()

	if err := options.SetIntraOpNumThreads(args.Threads); err != nil {
		return errors.Wrap(err, "setting intra-op threads")
	}
	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended); err != nil {
		return errors.Wrap(err, "setting graph optimization level")
	}
	if err := appendProvider(options, args.Provider); err != nil {
		return err
	}

	s.session, err = ort.NewAdvancedSession(
		args.ModelPath,
		[]string{args.InputName},
		[]string{args.OutputName},
		[]ort.Value{s.input},
		[]ort.Value{s.output},
		options,
	)
	return errors.Wrap(err, "creating ORT session")
}

func appendProvider(options *ort.SessionOptions, provider Provider) error {
	switch provider {
	case ProviderCUDA:
		cuda, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return errors.Wrap(err, "creating CUDA options")
		}
		defer cuda.Destroy()
		if err := cuda.Update(map[string]string{"device_id": "0"}); err != nil {
			return errors.Wrap(err, "configuring CUDA")
		}
		return errors.Wrap(options.AppendExecutionProviderCUDA(cuda), "enabling CUDA")
	case ProviderCoreML:
		return errors.Wrap(options.AppendExecutionProviderCoreML(0), "enabling CoreML")
	case ProviderOpenVINO:
		return errors.Wrap(options.AppendExecutionProviderOpenVINO(map[string]string{"device_type": "CPU"}), "enabling OpenVINO")
	}
	return nil
}

func providerName(p Provider) Provider {
	if p == "" {
		return ProviderCPU
	}
	return p
}

// Run copies input into the session's input tensor, runs the model and
// returns a copy of the output tensor.
func (s *Session) Run(ctx context.Context, input []float32) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, errors.New("inference: session is closed")
	}

	dst := s.input.GetData()
	if len(input) != len(dst) {
		return nil, errors.Wrapf(ErrInputSize, "got %d values, model takes %d", len(input), len(dst))
	}
	copy(dst, input)

	if err := s.session.Run(); err != nil {
		return nil, errors.Wrap(err, "running ORT session")
	}
	return append([]float32(nil), s.output.GetData()...), nil
}

// Close releases the resources associated with the Session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.session != nil {
		err = errors.Wrap(s.session.Destroy(), "destroying ORT session")
		s.session = nil
	}
	if s.input != nil {
		s.input.Destroy()
		s.input = nil
	}
	if s.output != nil {
		s.output.Destroy()
		s.output = nil
	}
	return err
}
