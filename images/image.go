// Package images - Image definition for processing utilities.
package images

import (
	"bytes"
	"image"

	"github.com/pkg/errors"
)

// Image represents an encoded image with a format and its pixel dimensions.
type Image struct {
	// The format of the image.
	Format ImageFormat `json:"format" yaml:"format"`
	// The data of the image.
	Data []byte `json:"data" yaml:"data"`
	// The width of the image.
	Width int `json:"width" yaml:"width"`
	// The height of the image.
	Height int `json:"height" yaml:"height"`
}

// ImageFormat represents supported image formats
type ImageFormat string

// ImageFormat constants
const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
)

// NewImage reads just enough of data to fill in the format and dimensions.
//
// Arguments:
//   - data: The encoded image bytes.
//
// Returns:
//   - Image: The image with its metadata.
//   - error: An error if the bytes are not a supported image.
func NewImage(data []byte) (Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, errors.Wrap(err, "image header decoding failed")
	}
	return Image{
		Format: ImageFormat(format),
		Data:   data,
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}
