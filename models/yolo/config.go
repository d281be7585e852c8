package yolo

import (
	"os"
	"runtime"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-yolo/models"
)

// Anchor is a reference box size measured in grid cells.
type Anchor struct {
	Width  float32 `json:"width" yaml:"width"`
	Height float32 `json:"height" yaml:"height"`
}

// Layout names the order of the raw output delivered by the inference engine.
type Layout string

const (
	// LayoutCellMajor is [rows][cols][anchors][fields], the decoder's native order.
	LayoutCellMajor Layout = "cell-major"
	// LayoutChannelMajor is NCHW [anchors*fields][rows][cols], as ONNX exports it.
	LayoutChannelMajor Layout = "channel-major"
)

// Config is the static description of one model: its grid, anchors, class
// vocabulary, input size and the thresholds applied after decoding.
type Config struct {
	// Name identifies the preset the configuration came from.
	Name string `json:"name" yaml:"name"`

	GridRows    int `json:"grid_rows" yaml:"grid_rows"`
	GridCols    int `json:"grid_cols" yaml:"grid_cols"`
	AnchorCount int `json:"anchor_count" yaml:"anchor_count"`
	ClassCount  int `json:"class_count" yaml:"class_count"`

	Anchors []Anchor `json:"anchors" yaml:"anchors"`
	Classes []string `json:"classes" yaml:"classes"`

	// ImageWidth and ImageHeight are the model input size in pixels. Decoded
	// boxes live in this coordinate space.
	ImageWidth  int `json:"image_width" yaml:"image_width"`
	ImageHeight int `json:"image_height" yaml:"image_height"`

	// ConfidenceThreshold drops candidates whose objectness*class probability is lower.
	ConfidenceThreshold float32 `json:"confidence_threshold" yaml:"confidence_threshold"`
	// MaxResults caps the candidates kept after confidence filtering.
	MaxResults int `json:"max_results" yaml:"max_results"`
	// IoUThreshold suppresses same-label boxes overlapping a better one by more than this.
	IoUThreshold float32 `json:"iou_threshold" yaml:"iou_threshold"`

	// Layout of the raw output. Empty means LayoutCellMajor.
	Layout Layout `json:"layout" yaml:"layout"`
	// Workers bounds decode and NMS goroutines. Zero means runtime.NumCPU().
	Workers int `json:"workers" yaml:"workers"`
}

// Geometry returns the raw output layout described by the configuration.
func (c Config) Geometry() Geometry {
	return Geometry{Rows: c.GridRows, Cols: c.GridCols, Anchors: c.AnchorCount, Classes: c.ClassCount}
}

// workers resolves the Workers default.
func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// Validate checks the configuration for internal consistency.
//
// Returns:
//   - error: nil, or an error wrapping ErrConfiguration that names the first problem.
func (c Config) Validate() error {
	if c.GridRows <= 0 || c.GridCols <= 0 {
		return configErrorf("grid must be at least 1x1, got %dx%d", c.GridRows, c.GridCols)
	}
	if c.AnchorCount <= 0 {
		return configErrorf("anchor count must be positive, got %d", c.AnchorCount)
	}
	if len(c.Anchors) != c.AnchorCount {
		return configErrorf("anchor count is %d but %d anchors were supplied", c.AnchorCount, len(c.Anchors))
	}
	for i, a := range c.Anchors {
		if !positiveFinite(a.Width) || !positiveFinite(a.Height) {
			return configErrorf("anchor %d must have positive finite size, got %gx%g", i, a.Width, a.Height)
		}
	}
	if c.ClassCount <= 0 {
		return configErrorf("class count must be positive, got %d", c.ClassCount)
	}
	if len(c.Classes) != c.ClassCount {
		return configErrorf("class count is %d but %d class names were supplied", c.ClassCount, len(c.Classes))
	}
	if c.ImageWidth <= 0 || c.ImageHeight <= 0 {
		return configErrorf("image size must be positive, got %dx%d", c.ImageWidth, c.ImageHeight)
	}
	if !(c.ConfidenceThreshold > 0 && c.ConfidenceThreshold <= 1) {
		return configErrorf("confidence threshold must be in (0, 1], got %g", c.ConfidenceThreshold)
	}
	if c.MaxResults < 0 {
		return configErrorf("max results must not be negative, got %d", c.MaxResults)
	}
	if !(c.IoUThreshold > 0 && c.IoUThreshold < 1) {
		return configErrorf("IoU threshold must be in (0, 1), got %g", c.IoUThreshold)
	}
	switch c.Layout {
	case "", LayoutCellMajor, LayoutChannelMajor:
	default:
		return configErrorf("unknown layout %q", c.Layout)
	}
	if c.Workers < 0 {
		return configErrorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}

func positiveFinite(v float32) bool {
	return v > 0 && !math32.IsInf(v, 1)
}

// TinyYOLOv2VOC returns the configuration of the Tiny-YOLOv2 Pascal VOC model:
// a 416x416 input, 13x13 grid, 5 anchors and 20 classes.
func TinyYOLOv2VOC() Config {
	return Config{
		Name:        PresetTinyYOLOv2VOC,
		GridRows:    13,
		GridCols:    13,
		AnchorCount: 5,
		ClassCount:  models.VOCClasses.Len(),
		Anchors: []Anchor{
			{1.08, 1.19},
			{3.42, 4.41},
			{6.63, 11.38},
			{9.42, 5.11},
			{16.62, 10.52},
		},
		Classes:             models.VOCClasses.Names(),
		ImageWidth:          416,
		ImageHeight:         416,
		ConfidenceThreshold: 0.3,
		MaxResults:          5,
		IoUThreshold:        0.5,
		Layout:              LayoutChannelMajor,
	}
}

// TinyYOLOv2COCO returns the configuration of the Tiny-YOLOv2 COCO model.
func TinyYOLOv2COCO() Config {
	return Config{
		Name:        PresetTinyYOLOv2COCO,
		GridRows:    13,
		GridCols:    13,
		AnchorCount: 5,
		ClassCount:  models.COCOClasses.Len(),
		Anchors: []Anchor{
			{0.57273, 0.677385},
			{1.87446, 2.06253},
			{3.33843, 5.47434},
			{7.88282, 3.52778},
			{9.77052, 9.16828},
		},
		Classes:             models.COCOClasses.Names(),
		ImageWidth:          416,
		ImageHeight:         416,
		ConfidenceThreshold: 0.3,
		MaxResults:          20,
		IoUThreshold:        0.45,
		Layout:              LayoutChannelMajor,
	}
}

// Preset names.
const (
	PresetTinyYOLOv2VOC  = "tiny-yolov2-voc"
	PresetTinyYOLOv2COCO = "tiny-yolov2-coco"
)

// Preset returns the named built-in configuration.
func Preset(name string) (Config, error) {
	switch name {
	case PresetTinyYOLOv2VOC:
		return TinyYOLOv2VOC(), nil
	case PresetTinyYOLOv2COCO:
		return TinyYOLOv2COCO(), nil
	default:
		return Config{}, configErrorf("unsupported preset: %s", name)
	}
}

// LoadConfig reads a YAML configuration file.
//
// When the file sets `name` to a known preset, the preset is loaded first and
// the file's remaining keys override it; otherwise the file must be complete.
//
// Arguments:
//   - path: The YAML file.
//
// Returns:
//   - Config: The validated configuration.
//   - error: A read, parse or validation error.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading config %s", path)
	}
	return ParseConfig(data)
}

// ParseConfig is LoadConfig over an in-memory YAML document.
func ParseConfig(data []byte) (Config, error) {
	var head struct {
		Name string `yaml:"name"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return Config{}, errors.Wrap(err, "parsing config")
	}

	var cfg Config
	if head.Name != "" {
		if preset, err := Preset(head.Name); err == nil {
			cfg = preset
		}
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "parsing config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
