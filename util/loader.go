package util

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ImageFile represents an image file.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Data is the raw bytes of the image file.
	Data []byte
	// Frame is the number in a "frame-N" file name, or -1.
	Frame int
}

// IsImageFile reports whether name has an extension the loader accepts.
func IsImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

// frameNumber extracts N from "frame-N.ext".
func frameNumber(name string) int {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if !strings.HasPrefix(stem, "frame-") {
		return -1
	}
	n, err := strconv.Atoi(strings.TrimPrefix(stem, "frame-"))
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// LoadDirectoryImageFiles reads all image files from a directory.
//
// Frames exported as "frame-N" come first in frame order; other images follow
// in name order. Subdirectories and other files are skipped.
//
// Arguments:
// - dir: Directory path containing image files.
//
// Returns:
// - []ImageFile: Slice of ImageFile, each containing the raw bytes of an image file.
// - error: Error if loading fails.
func LoadDirectoryImageFiles(dir string) ([]ImageFile, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", dir)
	}

	var images []ImageFile
	for _, file := range files {
		if file.IsDir() || !IsImageFile(file.Name()) {
			continue
		}
		imgPath := filepath.Join(dir, file.Name())
		data, err := os.ReadFile(imgPath)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", imgPath)
		}
		images = append(images, ImageFile{
			Path:  imgPath,
			Data:  data,
			Frame: frameNumber(file.Name()),
		})
	}

	sort.SliceStable(images, func(i, j int) bool {
		a, b := images[i], images[j]
		if (a.Frame < 0) != (b.Frame < 0) {
			return a.Frame >= 0
		}
		if a.Frame != b.Frame {
			return a.Frame < b.Frame
		}
		return a.Path < b.Path
	})

	return images, nil
}
