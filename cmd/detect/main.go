package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-yolo/common"
	"github.com/nvr-ai/go-yolo/detector"
	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/inference"
	"github.com/nvr-ai/go-yolo/models/yolo"
	"github.com/nvr-ai/go-yolo/profiler"
	"github.com/nvr-ai/go-yolo/render"
	"github.com/nvr-ai/go-yolo/util"
)

// Tiny-YOLOv2 node names in the ONNX model zoo export.
const (
	defaultInputName  = "image"
	defaultOutputName = "grid"
)

var supportedImageExtensions = []string{".jpg", ".jpeg", ".png"}

func main() {
	logger, err := logs.NewLog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	parser := argparse.NewParser("detect", "Detect objects in images with a Tiny-YOLOv2 ONNX model")
	modelPath := parser.String("m", "model", &argparse.Options{Help: "ONNX model file", Required: true})
	configPath := parser.String("c", "config", &argparse.Options{Help: "YAML model configuration (overrides --preset)"})
	preset := parser.String("p", "preset", &argparse.Options{Help: "Built-in model configuration", Default: yolo.PresetTinyYOLOv2VOC})
	ortLib := parser.String("", "ortlib", &argparse.Options{Help: "Path to the onnxruntime shared library", Default: os.Getenv("ONNXRUNTIME_LIB")})
	provider := parser.Selector("", "provider", []string{
		string(inference.ProviderCPU),
		string(inference.ProviderCUDA),
		string(inference.ProviderCoreML),
		string(inference.ProviderOpenVINO),
	}, &argparse.Options{Help: "Execution provider", Default: string(inference.ProviderCPU)})
	inputName := parser.String("", "input-name", &argparse.Options{Help: "Model input node", Default: defaultInputName})
	outputName := parser.String("", "output-name", &argparse.Options{Help: "Model output node", Default: defaultOutputName})
	imagePath := parser.String("i", "image", &argparse.Options{Help: "Single image to process"})
	dirPath := parser.String("d", "dir", &argparse.Options{Help: "Directory of images to process"})
	outDir := parser.String("o", "out", &argparse.Options{Help: "Directory for annotated images", Default: "detections"})
	profile := parser.Flag("", "profile", &argparse.Options{Help: "Log per-stage timings at exit"})
	if err := parser.Parse(os.Args); err != nil {
		logger.Errorf("%v", parser.Usage(err))
		os.Exit(1)
	}

	files, err := inputFiles(*imagePath, *dirPath)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath, *preset)
	if err != nil {
		logger.Errorf("Invalid configuration: %v", err)
		os.Exit(1)
	}
	model, err := yolo.New(cfg)
	if err != nil {
		logger.Errorf("Invalid configuration: %v", err)
		os.Exit(1)
	}

	g := cfg.Geometry()
	session, err := inference.NewSession(logger, inference.NewSessionArgs{
		LibraryPath: *ortLib,
		ModelPath:   *modelPath,
		InputName:   *inputName,
		OutputName:  *outputName,
		InputShape:  []int64{1, 3, int64(cfg.ImageHeight), int64(cfg.ImageWidth)},
		OutputShape: []int64{1, int64(g.Anchors * g.Stride()), int64(g.Rows), int64(g.Cols)},
		Provider:    inference.Provider(*provider),
	})
	if err != nil {
		logger.Errorf("Failed to load model '%v': %v", *modelPath, err)
		os.Exit(1)
	}
	defer session.Close()

	var prof *profiler.Profiler
	if *profile {
		prof = profiler.New(0)
	}
	det := detector.New(session, model, logger, detector.Options{Profiler: prof})

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		logger.Errorf("Failed to create output directory: %v", err)
		os.Exit(1)
	}

	failed := 0
	for _, file := range files {
		if err := processImage(context.Background(), logger, det, file, *outDir); err != nil {
			logger.Errorf("%v: %v", file.Path, err)
			failed++
		}
	}
	if prof != nil {
		prof.Report(logger)
	}
	logger.Infof("Processed %d images, %d failed", len(files), failed)
	if failed > 0 {
		os.Exit(1)
	}
}

// loadConfig reads the YAML file when one is given, and the named preset otherwise.
func loadConfig(configPath, preset string) (yolo.Config, error) {
	if configPath != "" {
		return yolo.LoadConfig(configPath)
	}
	return yolo.Preset(preset)
}

// inputFiles resolves exactly one of --image and --dir into the files to process.
func inputFiles(imagePath, dirPath string) ([]util.ImageFile, error) {
	switch {
	case imagePath != "" && dirPath != "":
		return nil, errors.New("cannot specify both --image and --dir")
	case imagePath != "":
		if err := validateFile(imagePath, supportedImageExtensions); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(imagePath)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", imagePath)
		}
		return []util.ImageFile{{Path: imagePath, Data: data, Frame: -1}}, nil
	case dirPath != "":
		files, err := util.LoadDirectoryImageFiles(dirPath)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, errors.Errorf("no images in %s", dirPath)
		}
		return files, nil
	}
	return nil, errors.New("one of --image or --dir is required")
}

// validateFile checks that the file exists and has a supported extension.
func validateFile(filePath string, supportedExtensions []string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		return errors.Wrapf(err, "file %s", filePath)
	}
	if info.IsDir() {
		return errors.Errorf("%s is a directory", filePath)
	}
	ext := strings.ToLower(filepath.Ext(filePath))
	if !slices.Contains(supportedExtensions, ext) {
		return errors.Errorf("unsupported file extension %s (supported: %s)", ext, strings.Join(supportedExtensions, ", "))
	}
	return nil
}

// processImage detects objects in one file and writes the annotated copy to outDir.
func processImage(ctx context.Context, logger logs.Log, det *detector.Detector, file util.ImageFile, outDir string) error {
	meta, err := images.NewImage(file.Data)
	if err != nil {
		return err
	}
	boxes, err := det.DetectEncoded(ctx, file.Data)
	if err != nil {
		return err
	}
	logDetections(logger, file.Path, meta, boxes)

	mat, err := render.Decode(file.Data)
	if err != nil {
		return err
	}
	defer mat.Close()

	cfg := det.Model().Config()
	out := filepath.Join(outDir, filepath.Base(file.Path))
	return render.Save(out, &mat, boxes, cfg.ImageWidth, cfg.ImageHeight)
}

func logDetections(logger logs.Log, path string, meta images.Image, boxes []common.BoundingBox) {
	logger.Infof("%v (%v %vx%v): %d objects", path, meta.Format, meta.Width, meta.Height, len(boxes))
	for _, b := range boxes {
		logger.Infof("  %v", b)
	}
}
