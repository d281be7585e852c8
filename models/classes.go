// Package models - Class vocabularies for the supported detection models.
package models

import "fmt"

// ModelFamily identifies the dataset a class vocabulary comes from.
type ModelFamily string

const (
	// ModelFamilyVOC is the Pascal VOC model family (20 classes, no background).
	ModelFamilyVOC ModelFamily = "voc"
	// ModelFamilyCOCO is the COCO model family (80 classes, no background).
	ModelFamilyCOCO ModelFamily = "coco"
)

// OutputClass represents one detection label.
type OutputClass struct {
	// The integer index returned by the model.
	Index int
	// The human-readable label.
	Name string
}

// OutputClassSet ties a family to its full, ordered list of labels.
type OutputClassSet struct {
	// Class set identifier.
	Family ModelFamily
	// Classes in model output order.
	Classes []OutputClass
	// nameToIdx for fast lookup by name
	nameToIdx map[string]int
}

// NewOutputClassSet builds a class set from names given in model output order.
func NewOutputClassSet(family ModelFamily, names []string) *OutputClassSet {
	s := &OutputClassSet{Family: family, Classes: make([]OutputClass, len(names))}
	for i, n := range names {
		s.Classes[i] = OutputClass{Index: i, Name: n}
	}
	s.BuildNameIndexMap()
	return s
}

// BuildNameIndexMap builds or rebuilds the name->index map.
func (s *OutputClassSet) BuildNameIndexMap() {
	s.nameToIdx = make(map[string]int, len(s.Classes))
	for _, c := range s.Classes {
		s.nameToIdx[c.Name] = c.Index
	}
}

// Len returns the number of classes in the set.
func (s *OutputClassSet) Len() int {
	return len(s.Classes)
}

// Names returns a fresh slice of class names in index order.
func (s *OutputClassSet) Names() []string {
	names := make([]string, len(s.Classes))
	for i, c := range s.Classes {
		names[i] = c.Name
	}
	return names
}

// Name returns the class name for the given index.
func (s *OutputClassSet) Name(idx int) (string, error) {
	if idx < 0 || idx >= len(s.Classes) {
		return "", fmt.Errorf("index %d out of range for family %q", idx, s.Family)
	}
	return s.Classes[idx].Name, nil
}

// Index returns the class index for the given name.
func (s *OutputClassSet) Index(name string) (int, error) {
	if s.nameToIdx == nil {
		s.BuildNameIndexMap()
	}
	idx, ok := s.nameToIdx[name]
	if !ok {
		return -1, fmt.Errorf("name %q not found in family %q", name, s.Family)
	}
	return idx, nil
}

// VOCClasses is the 20 class Pascal VOC vocabulary in Tiny-YOLOv2 output order.
var VOCClasses = NewOutputClassSet(ModelFamilyVOC, []string{
	"aeroplane", "bicycle", "bird", "boat", "bottle",
	"bus", "car", "cat", "chair", "cow",
	"diningtable", "dog", "horse", "motorbike", "person",
	"pottedplant", "sheep", "sofa", "train", "tvmonitor",
})

// COCOClasses is the 80 class COCO vocabulary in YOLO output order.
var COCOClasses = NewOutputClassSet(ModelFamilyCOCO, []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat", "dog", "horse",
	"sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack", "umbrella", "handbag", "tie",
	"suitcase", "frisbee", "skis", "snowboard", "sports ball", "kite", "baseball bat", "baseball glove",
	"skateboard", "surfboard", "tennis racket", "bottle", "wine glass", "cup", "fork", "knife", "spoon",
	"bowl", "banana", "apple", "sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut",
	"cake", "chair", "couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator", "book",
	"clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
})
