// Package images - Image to tensor preprocessing.
package images

import (
	"bytes"
	"image"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// PixelScale255 leaves pixel values in the 0..255 range, which is what the
// ONNX model zoo Tiny-YOLOv2 export expects.
const PixelScale255 float32 = 1.0

// PixelScaleUnit maps pixel values into 0..1.
const PixelScaleUnit float32 = 1.0 / 255.0

// Decode decodes an encoded JPEG or PNG image.
//
// Arguments:
//   - data: The encoded image bytes.
//
// Returns:
//   - image.Image: The decoded image.
//   - ImageFormat: The detected format.
//   - error: An error if the bytes are not a supported image.
func Decode(data []byte) (image.Image, ImageFormat, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", errors.Wrap(err, "image decoding failed")
	}
	return img, ImageFormat(format), nil
}

// PrepareInput resizes img to width x height and writes it into dst in planar
// CHW (red plane, green plane, blue plane) order, multiplying each 8-bit
// channel value by scale.
//
// Arguments:
//   - img: The image to prepare.
//   - dst: The destination buffer; must hold at least 3*width*height floats.
//   - width: The model input width.
//   - height: The model input height.
//   - scale: The per-channel multiplier (PixelScale255 or PixelScaleUnit).
//
// Returns:
//   - error: An error if the sizes are invalid, the source is empty or the destination buffer is too small.
func PrepareInput(img image.Image, dst []float32, width, height int, scale float32) error {
	if width <= 0 || height <= 0 {
		return errors.Errorf("invalid input size %dx%d", width, height)
	}
	channelSize := width * height
	if len(dst) < channelSize*3 {
		return errors.Errorf("destination tensor only holds %d floats, needs %d", len(dst), channelSize*3)
	}
	red := dst[0:channelSize]
	green := dst[channelSize : channelSize*2]
	blue := dst[channelSize*2 : channelSize*3]

	b := img.Bounds()
	if b.Empty() {
		return errors.Errorf("source image %v is empty", b)
	}
	if b.Dx() != width || b.Dy() != height {
		img = resize.Resize(uint(width), uint(height), img, resize.Bilinear)
		b = img.Bounds()
	}

	i := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			red[i] = float32(r>>8) * scale
			green[i] = float32(g>>8) * scale
			blue[i] = float32(bl>>8) * scale
			i++
		}
	}
	return nil
}

// ToCHW is PrepareInput into a freshly allocated buffer.
func ToCHW(img image.Image, width, height int, scale float32) ([]float32, error) {
	dst := make([]float32, 3*width*height)
	if err := PrepareInput(img, dst, width, height, scale); err != nil {
		return nil, err
	}
	return dst, nil
}
