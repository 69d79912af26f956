package detect

import (
	"color-counter/pkg/geometry"

	"gocv.io/x/gocv"
)

// ExtractRegions finds the external contours of a binary mask and reduces
// each to its bounding box. Order follows contour extraction and is only
// meaningful for display. Components touching the border are kept;
// zero-area boxes are dropped.
func ExtractRegions(mask gocv.Mat) []Region {
	if mask.Empty() {
		return nil
	}

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var regions []Region
	for i := 0; i < contours.Size(); i++ {
		box := geometry.RectFromImage(gocv.BoundingRect(contours.At(i)))
		if box.Empty() {
			continue
		}
		regions = append(regions, NewRegion(box))
	}
	return regions
}
