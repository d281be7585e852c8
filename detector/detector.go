// Package detector - runs images through an inference engine and decodes the
// raw output into labeled boxes.
package detector

import (
	"context"
	"image"
	"sync"

	"github.com/cyclopcam/logs"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-yolo/common"
	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/inference"
	"github.com/nvr-ai/go-yolo/models/yolo"
	"github.com/nvr-ai/go-yolo/profiler"
)

// Options tune a Detector.
type Options struct {
	// PixelScale multiplies 0-255 channel values. Tiny-YOLOv2 takes images.PixelScale255.
	PixelScale float32
	// Profiler receives per-stage timings. May be nil.
	Profiler *profiler.Profiler
}

// Detector encapsulates an engine and the model whose output it decodes.
type Detector struct {
	engine inference.Engine
	model  *yolo.Model
	log    logs.Log
	opts   Options
}

// New creates a detector.
//
// Arguments:
//   - engine: Runs the network. It must produce the model's configured layout.
//   - model: Decodes the engine output.
//   - log: Receives per-image diagnostics.
//   - opts: Optional settings. A zero PixelScale means images.PixelScale255.
//
// Returns:
//   - *Detector: The detector.
func New(engine inference.Engine, model *yolo.Model, log logs.Log, opts Options) *Detector {
	if opts.PixelScale == 0 {
		opts.PixelScale = images.PixelScale255
	}
	return &Detector{engine: engine, model: model, log: log, opts: opts}
}

// Model returns the model used to decode engine output.
func (d *Detector) Model() *yolo.Model {
	return d.model
}

// Detect runs one image through the pipeline.
//
// Arguments:
//   - ctx: Cancels the run before inference.
//   - img: Any size; it is resized to the model input.
//
// Returns:
//   - []common.BoundingBox: Boxes in model input coordinates.
//   - error: A preprocessing, inference or decoding error.
func (d *Detector) Detect(ctx context.Context, img image.Image) ([]common.BoundingBox, error) {
	cfg := d.model.Config()

	done := d.opts.Profiler.StartOperation(profiler.StagePreprocess)
	input, err := images.ToCHW(img, cfg.ImageWidth, cfg.ImageHeight, d.opts.PixelScale)
	done()
	if err != nil {
		return nil, errors.Wrap(err, "preprocessing")
	}

	done = d.opts.Profiler.StartOperation(profiler.StageInference)
	raw, err := d.engine.Run(ctx, input)
	done()
	if err != nil {
		return nil, errors.Wrap(err, "inference")
	}

	done = d.opts.Profiler.StartOperation(profiler.StageDecode)
	boxes, err := d.model.DetectOutput(raw)
	done()
	if err != nil {
		return nil, errors.Wrap(err, "decoding")
	}
	d.log.Debugf("%v: %d boxes", cfg.Name, len(boxes))
	return boxes, nil
}

// DetectEncoded decodes a JPEG or PNG image and runs Detect on it.
func (d *Detector) DetectEncoded(ctx context.Context, data []byte) ([]common.BoundingBox, error) {
	img, _, err := images.Decode(data)
	if err != nil {
		return nil, err
	}
	return d.Detect(ctx, img)
}

// DetectBatch runs Detect on every image concurrently.
//
// Arguments:
//   - ctx: Cancels outstanding runs.
//   - imgs: The images.
//
// Returns:
//   - [][]common.BoundingBox: One entry per image, in input order.
//   - error: The first error by image index, annotated with that index.
func (d *Detector) DetectBatch(ctx context.Context, imgs []image.Image) ([][]common.BoundingBox, error) {
	results := make([][]common.BoundingBox, len(imgs))
	errs := make([]error, len(imgs))

	var wg sync.WaitGroup
	for i, img := range imgs {
		wg.Add(1)
		go func(i int, img image.Image) {
			defer wg.Done()
			results[i], errs[i] = d.Detect(ctx, img)
		}(i, img)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, errors.Wrapf(err, "image %d", i)
		}
	}
	return results, nil
}
