// Package postprocess - provides Non-Maximum Suppression for detection results.
package postprocess

import (
	"sort"
	"sync"

	"github.com/nvr-ai/go-yolo/images"
)

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	IoUThreshold float32 `json:"iou_threshold" yaml:"iou_threshold"` // Overlap threshold for suppression.
	ClassAware   bool    `json:"class_aware" yaml:"class_aware"`     // If true, suppress only within same class.
	NumWorkers   int     `json:"num_workers" yaml:"num_workers"`     // Goroutines for per-class suppression. <= 0 means one per class.
}

// ApplyNMS filters overlapping detections, per class when config.ClassAware
// is set and across all classes otherwise.
//
// Arguments:
//   - detections: Sorted slice of detections (highest score first).
//   - config: NMS configuration.
//
// Returns:
//   - Filtered slice of detections. If no detections are provided, returns an empty slice.
func ApplyNMS(detections []Result, config *NMSConfig) []Result {
	if config.ClassAware {
		return ApplyClassNMS(detections, config)
	}
	return ApplyGreedyNMS(detections, config)
}

// ApplyGreedyNMS performs standard greedy Non-Maximum Suppression, ignoring classes.
//
// Arguments:
//   - detections: Slice of detections sorted by descending confidence.
//   - config: config.IoUThreshold is the IoU above which overlapping boxes are suppressed.
//
// Returns:
//   - Filtered slice of detections, in input order.
func ApplyGreedyNMS(detections []Result, config *NMSConfig) []Result {
	n := len(detections)
	filtered := make([]Result, 0, n)
	used := make([]bool, n)

	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}

		anchor := detections[i]
		filtered = append(filtered, anchor)
		used[i] = true

		for j := i + 1; j < n; j++ {
			if used[j] {
				continue
			}
			if images.CalculateIoU(anchor.Box, detections[j].Box) > config.IoUThreshold {
				used[j] = true
			}
		}
	}

	return filtered
}

// ApplyClassNMS runs greedy suppression independently inside each class, so
// boxes of different classes never suppress each other.
//
// The input is partitioned by class with the input order kept inside every
// partition; callers pass detections already sorted best first and no
// re-sort happens here. Partitions are suppressed concurrently by up to
// config.NumWorkers goroutines. The survivors are concatenated in ascending
// class order, so the output is independent of scheduling: score descending
// within a class, classes one after another.
//
// Arguments:
//   - detections: Slice of detections sorted by descending confidence.
//   - config: NMS configuration.
//
// Returns:
//   - The detections that survive suppression.
func ApplyClassNMS(detections []Result, config *NMSConfig) []Result {
	classes, parts := partitionByClass(detections)
	kept := make([][]Result, len(classes))

	workers := config.NumWorkers
	if workers <= 0 || workers > len(classes) {
		workers = len(classes)
	}

	jobs := make(chan int, len(classes))
	for i := range classes {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				kept[i] = ApplyGreedyNMS(parts[classes[i]], config)
			}
		}()
	}
	wg.Wait()

	out := make([]Result, 0, len(detections))
	for _, k := range kept {
		out = append(out, k...)
	}
	return out
}

// partitionByClass groups detections by class, keeping input order within
// each group. The class list is returned in ascending order.
func partitionByClass(detections []Result) ([]int, map[int][]Result) {
	parts := make(map[int][]Result)
	for _, d := range detections {
		parts[d.Class] = append(parts[d.Class], d)
	}
	classes := make([]int, 0, len(parts))
	for c := range parts {
		classes = append(classes, c)
	}
	sort.Ints(classes)
	return classes, parts
}
