// Package detect provides the per-frame color detection stages: HSV
// thresholding, connected-region extraction and the reference line test.
package detect

import (
	"color-counter/pkg/geometry"
)

// Region is one connected foreground component reduced to its bounding box.
// Regions are recomputed every frame and carry no identity.
type Region struct {
	Box      geometry.RectInt `json:"box"`
	Centroid geometry.PointInt `json:"centroid"`
}

// NewRegion builds a region from a bounding box, deriving the centroid.
func NewRegion(box geometry.RectInt) Region {
	return Region{Box: box, Centroid: box.Center()}
}

// Crossing is the line test outcome for one color in one frame.
type Crossing struct {
	Qualifying []Region // Regions whose centroid lies below the line
	Crossed    bool     // True iff Qualifying is non-empty
}
