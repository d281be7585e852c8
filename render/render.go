// Package render - draws decoded boxes and their labels onto images.
package render

import (
	"fmt"
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-yolo/common"
)

const (
	thickness = 2
	fontFace  = gocv.FontHersheyPlain
	fontScale = 1.2
)

// Label formats the caption drawn above a box, e.g. "dog (87%)".
func Label(b common.BoundingBox) string {
	return fmt.Sprintf("%s (%.0f%%)", b.Label, b.Confidence*100)
}

// Draw draws every box onto mat in its class color, with its label above it.
//
// Arguments:
//   - mat: The working image, any size.
//   - boxes: Boxes in model input coordinates.
//   - modelW: The model input width the boxes refer to.
//   - modelH: The model input height the boxes refer to.
func Draw(mat *gocv.Mat, boxes []common.BoundingBox, modelW, modelH int) {
	for _, b := range boxes {
		b = b.Scale(modelW, modelH, mat.Cols(), mat.Rows())
		r := b.ToRect().Intersect(image.Rect(0, 0, mat.Cols(), mat.Rows()))
		if r.Empty() {
			continue
		}
		gocv.Rectangle(mat, r, b.Color, thickness)

		text := Label(b)
		size := gocv.GetTextSize(text, fontFace, fontScale, thickness)
		// The caption sits above the box unless that would leave the image.
		origin := image.Pt(r.Min.X, r.Min.Y-thickness)
		if origin.Y-size.Y < 0 {
			origin.Y = r.Min.Y + size.Y + thickness
		}
		gocv.PutText(mat, text, origin, fontFace, fontScale, b.Color, thickness)
	}
}

// Load reads an image file for both detection and drawing.
//
// Arguments:
//   - path: A JPEG or PNG file.
//
// Returns:
//   - gocv.Mat: The BGR matrix to draw on. The caller must Close it.
//   - image.Image: The same pixels for the detector.
//   - error: An error if the file cannot be read.
func Load(path string) (gocv.Mat, image.Image, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		mat.Close()
		return gocv.Mat{}, nil, errors.Errorf("error reading image: %s", path)
	}
	img, err := mat.ToImage()
	if err != nil {
		mat.Close()
		return gocv.Mat{}, nil, errors.Wrapf(err, "converting %s", path)
	}
	return mat, img, nil
}

// Decode decodes an encoded JPEG or PNG image into a BGR matrix to draw on.
// The caller must Close it.
func Decode(data []byte) (gocv.Mat, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.Mat{}, errors.Wrap(err, "decoding image")
	}
	if mat.Empty() {
		mat.Close()
		return gocv.Mat{}, errors.New("decoded image is empty")
	}
	return mat, nil
}

// Annotate draws boxes onto the image at inPath and writes the result to outPath.
func Annotate(inPath, outPath string, boxes []common.BoundingBox, modelW, modelH int) error {
	mat, _, err := Load(inPath)
	if err != nil {
		return err
	}
	defer mat.Close()
	return Save(outPath, &mat, boxes, modelW, modelH)
}

// Save draws boxes onto mat and writes it to path; the format follows the extension.
func Save(path string, mat *gocv.Mat, boxes []common.BoundingBox, modelW, modelH int) error {
	Draw(mat, boxes, modelW, modelH)
	if !gocv.IMWrite(path, *mat) {
		return errors.Errorf("failed to write %s", path)
	}
	return nil
}
