package common

import "image/color"

// palette holds one color per Pascal VOC class; larger vocabularies wrap around.
var palette = [...]color.RGBA{
	{R: 255, G: 215, B: 0, A: 255},   // khaki
	{R: 255, G: 140, B: 0, A: 255},   // dark orange
	{R: 255, G: 99, B: 71, A: 255},   // tomato
	{R: 255, G: 0, B: 255, A: 255},   // magenta
	{R: 255, G: 192, B: 203, A: 255}, // pink
	{R: 0, G: 0, B: 255, A: 255},     // blue
	{R: 0, G: 255, B: 0, A: 255},     // lime
	{R: 0, G: 255, B: 255, A: 255},   // cyan
	{R: 255, G: 0, B: 0, A: 255},     // red
	{R: 0, G: 128, B: 128, A: 255},   // teal
	{R: 128, G: 0, B: 128, A: 255},   // purple
	{R: 255, G: 255, B: 0, A: 255},   // yellow
	{R: 128, G: 128, B: 0, A: 255},   // olive
	{R: 0, G: 0, B: 128, A: 255},     // navy
	{R: 165, G: 42, B: 42, A: 255},   // brown
	{R: 128, G: 0, B: 0, A: 255},     // maroon
	{R: 240, G: 128, B: 128, A: 255}, // light coral
	{R: 50, G: 205, B: 50, A: 255},   // lime green
	{R: 0, G: 191, B: 255, A: 255},   // deep sky blue
	{R: 154, G: 205, B: 50, A: 255},  // yellow green
}

// ClassColor returns the display color for a class index. The same index
// always maps to the same color.
func ClassColor(classIndex int) color.RGBA {
	i := classIndex % len(palette)
	if i < 0 {
		i += len(palette)
	}
	return palette[i]
}
