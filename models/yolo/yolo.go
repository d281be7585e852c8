// Package yolo - decodes the raw output of a single-head grid/anchor detector
// (Tiny-YOLOv2 style) into labeled, deduplicated bounding boxes.
//
// The pipeline is pure and stateless:
//
//	raw output -> Decode -> []Candidate -> Filter -> NMS per label -> []common.BoundingBox
//
// A Model may be shared by any number of goroutines.
package yolo

import (
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-yolo/common"
	"github.com/nvr-ai/go-yolo/models/postprocess"
)

// Model is a validated configuration plus the decoder built from it.
type Model struct {
	cfg     Config
	decoder *Decoder
	nms     postprocess.NMSConfig
}

// New validates cfg and builds a model.
//
// Arguments:
//   - cfg: The model configuration.
//
// Returns:
//   - *Model: The model.
//   - error: An error wrapping ErrConfiguration if cfg is inconsistent.
func New(cfg Config) (*Model, error) {
	decoder, err := NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	cfg.Anchors = append([]Anchor(nil), cfg.Anchors...)
	cfg.Classes = append([]string(nil), cfg.Classes...)
	return &Model{
		cfg:     cfg,
		decoder: decoder,
		nms: postprocess.NMSConfig{
			IoUThreshold: cfg.IoUThreshold,
			ClassAware:   true,
			NumWorkers:   cfg.workers(),
		},
	}, nil
}

// Config returns a copy of the model configuration.
func (m *Model) Config() Config {
	cfg := m.cfg
	cfg.Anchors = append([]Anchor(nil), m.cfg.Anchors...)
	cfg.Classes = append([]string(nil), m.cfg.Classes...)
	return cfg
}

// Decoder returns the decoder used by the model.
func (m *Model) Decoder() *Decoder {
	return m.decoder
}

// Detect decodes a cell-major raw output, keeps the MaxResults most
// confident candidates at or above ConfidenceThreshold, and suppresses
// same-label overlaps above IoUThreshold.
//
// Arguments:
//   - raw: Exactly Config().Geometry().Len() values in cell-major order.
//
// Returns:
//   - []common.BoundingBox: Confidence descending within each label, labels in class index order.
//   - error: An error wrapping ErrInputShape if raw has the wrong length.
func (m *Model) Detect(raw []float32) ([]common.BoundingBox, error) {
	candidates, err := m.decoder.Decode(raw)
	if err != nil {
		return nil, err
	}
	return m.suppress(Filter(candidates, m.cfg.ConfidenceThreshold, m.cfg.MaxResults)), nil
}

// DetectOutput is Detect for a raw output in the configured Layout, which is
// how inference engines hand it over.
func (m *Model) DetectOutput(raw []float32) ([]common.BoundingBox, error) {
	if m.cfg.Layout == LayoutChannelMajor {
		var err error
		if raw, err = ChannelsLast(raw, m.decoder.Geometry()); err != nil {
			return nil, err
		}
	}
	return m.Detect(raw)
}

// DetectTensor is DetectOutput for a float32 tensor.
func (m *Model) DetectTensor(t tensor.Tensor) ([]common.BoundingBox, error) {
	raw, err := TensorData(t, m.decoder.Geometry())
	if err != nil {
		return nil, err
	}
	return m.DetectOutput(raw)
}

// suppress promotes filtered candidates to results, runs per-label NMS and
// resolves labels and colors.
func (m *Model) suppress(filtered []Candidate) []common.BoundingBox {
	results := make([]postprocess.Result, len(filtered))
	for i, c := range filtered {
		class, p := c.BestClass()
		results[i] = postprocess.Result{
			Box:   c.Rect(),
			Score: c.Objectness * p,
			Class: class,
		}
	}

	kept := postprocess.ApplyClassNMS(results, &m.nms)
	boxes := make([]common.BoundingBox, len(kept))
	for i, r := range kept {
		boxes[i] = common.NewBoundingBox(m.cfg.Classes[r.Class], r.Class, r.Score, r.Box)
	}
	return boxes
}
