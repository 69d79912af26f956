package detect

import (
	"color-counter/internal/signature"
	"color-counter/pkg/colorutil"

	"gocv.io/x/gocv"
)

// Segment thresholds a BGR frame against one signature. The frame is first
// converted to HSV (OpenCV scale: H 0-180, S and V 0-255); a pixel is
// foreground (255) iff all three channels are within [Lower, Upper] inclusive.
//
// The caller owns the returned mask. An empty frame yields an empty mask.
func Segment(frame gocv.Mat, sig signature.Signature) gocv.Mat {
	if frame.Empty() || frame.Rows() == 0 || frame.Cols() == 0 {
		return gocv.NewMat()
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(frame, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(float64(sig.Lower[0]), float64(sig.Lower[1]), float64(sig.Lower[2]), 0),
		gocv.NewScalar(float64(sig.Upper[0]), float64(sig.Upper[1]), float64(sig.Upper[2]), 0),
		&mask)

	return mask
}

// ProbePixel converts a single BGR pixel of frame to HSV and reports whether
// sig matches it. It mirrors Segment for one pixel without allocating a mask.
func ProbePixel(frame gocv.Mat, x, y int, sig signature.Signature) (hsv [3]uint8, match bool) {
	if x < 0 || y < 0 || x >= frame.Cols() || y >= frame.Rows() {
		return hsv, false
	}
	b := frame.GetUCharAt(y, x*3+0)
	g := frame.GetUCharAt(y, x*3+1)
	r := frame.GetUCharAt(y, x*3+2)
	hsv = colorutil.BGRToHSV(b, g, r)
	return hsv, sig.Contains(hsv)
}

// Coverage returns the fraction of foreground pixels in a mask.
func Coverage(mask gocv.Mat) float64 {
	if mask.Empty() {
		return 0
	}
	total := mask.Rows() * mask.Cols()
	if total == 0 {
		return 0
	}
	return float64(gocv.CountNonZero(mask)) / float64(total)
}
