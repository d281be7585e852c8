// Package inference - Inference engine interface and the ONNX Runtime implementation.
package inference

import "context"

// Engine runs a model on one preprocessed input and returns its raw output.
//
// Implementations are not required to be safe for concurrent use unless they
// say so; Session is.
type Engine interface {
	// Run executes the model.
	//
	// Arguments:
	//   - ctx: Checked before the model runs.
	//   - input: The planar float32 input tensor, batch of one.
	//
	// Returns:
	//   - []float32: A copy of the raw output tensor.
	//   - error: An error if the input size is wrong or the run fails.
	Run(ctx context.Context, input []float32) ([]float32, error)

	// Close releases the engine's resources.
	Close() error
}

// Provider names the ONNX Runtime execution provider a Session runs on.
type Provider string

const (
	// ProviderCPU uses the default CPU execution provider.
	ProviderCPU Provider = "cpu"
	// ProviderCUDA uses NVIDIA CUDA for GPU acceleration.
	ProviderCUDA Provider = "cuda"
	// ProviderCoreML uses Apple CoreML for macOS acceleration.
	ProviderCoreML Provider = "coreml"
	// ProviderOpenVINO uses Intel OpenVINO.
	ProviderOpenVINO Provider = "openvino"
)

// Providers is a list of all supported execution providers.
var Providers = []Provider{ProviderCPU, ProviderCUDA, ProviderCoreML, ProviderOpenVINO}
