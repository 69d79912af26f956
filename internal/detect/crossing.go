package detect

// LineRow converts a normalized line fraction to the pixel row used for
// drawing the reference line.
func LineRow(fraction float64, frameHeight int) int {
	return int(fraction * float64(frameHeight))
}

// EvaluateCrossing classifies regions against the reference line. A region
// qualifies when its centroid row is strictly greater than
// fraction*frameHeight, i.e. below the line with row 0 at the top.
//
// This is a presence test: there is no memory of earlier frames, so an object
// that stays below the line crosses again on every frame it is seen.
func EvaluateCrossing(regions []Region, fraction float64, frameHeight int) Crossing {
	limit := fraction * float64(frameHeight)

	var out Crossing
	for _, r := range regions {
		if float64(r.Centroid.Y) > limit {
			out.Qualifying = append(out.Qualifying, r)
		}
	}
	out.Crossed = len(out.Qualifying) > 0
	return out
}
