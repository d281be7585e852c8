package yolo

import "github.com/pkg/errors"

var (
	// ErrConfiguration reports geometry or threshold parameters that are
	// inconsistent with each other. A decoder is never built from them.
	ErrConfiguration = errors.New("yolo: invalid configuration")

	// ErrInputShape reports a raw output whose length or element type does
	// not match the configured geometry. Nothing is decoded from it.
	ErrInputShape = errors.New("yolo: raw output shape mismatch")
)

func configErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrConfiguration, format, args...)
}

func shapeErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInputShape, format, args...)
}
