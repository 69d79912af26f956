// Package annotate draws detection overlays onto frames for display.
package annotate

import (
	"fmt"
	"image"
	"image/color"

	"color-counter/internal/detect"
	"color-counter/pkg/colorutil"

	"gocv.io/x/gocv"
)

// ColorLayer is what the annotator needs to know about one color this frame.
type ColorLayer struct {
	Name       string
	Qualifying []detect.Region
	Crossed    bool
}

// Options configures overlay colors and sizes.
type Options struct {
	LineColor      color.RGBA
	LineThickness  int
	BoxColor       color.RGBA
	BoxThickness   int
	MarkerColor    color.RGBA
	MarkerRadius   int
	LabelColor     color.RGBA
	LabelScale     float64
	LabelThickness int
	LabelOffset    int // Horizontal gap between centroid and label

	BannerColor     color.RGBA
	BannerScale     float64
	BannerThickness int
	BannerOrigin    image.Point // Baseline of the first banner
	BannerSpacing   int         // Vertical distance between stacked banners

	// SwatchLabels colors each label by its signature name instead of LabelColor.
	SwatchLabels bool
}

// DefaultOptions returns the stock overlay style: red line, green boxes,
// red centroid dots and white banners.
func DefaultOptions() Options {
	return Options{
		LineColor:      colorutil.Red,
		LineThickness:  2,
		BoxColor:       colorutil.Green,
		BoxThickness:   2,
		MarkerColor:    colorutil.Red,
		MarkerRadius:   5,
		LabelColor:     colorutil.Red,
		LabelScale:     0.5,
		LabelThickness: 2,
		LabelOffset:    10,

		BannerColor:     colorutil.White,
		BannerScale:     1.0,
		BannerThickness: 2,
		BannerOrigin:    image.Pt(10, 30),
		BannerSpacing:   35,
	}
}

// Label returns the text drawn next to a qualifying region.
func Label(name string) string {
	return fmt.Sprintf("%s car", name)
}

// Banner returns the message drawn when a color crosses this frame.
func Banner(name string) string {
	return fmt.Sprintf("%s car crossed the line", name)
}

// Annotate returns a copy of frame with the reference line, every
// qualifying region and a banner per crossed color drawn on it. The input
// frame is not modified and the caller owns the result.
func Annotate(frame gocv.Mat, lineRow int, layers []ColorLayer, opts Options) gocv.Mat {
	if frame.Empty() {
		return gocv.NewMat()
	}

	out := frame.Clone()

	for _, layer := range layers {
		labelColor := opts.LabelColor
		if opts.SwatchLabels {
			labelColor = colorutil.Swatch(layer.Name)
		}
		for _, r := range layer.Qualifying {
			gocv.Rectangle(&out, r.Box.ImageRect(), opts.BoxColor, opts.BoxThickness)
			center := r.Centroid.ImagePoint()
			gocv.Circle(&out, center, opts.MarkerRadius, opts.MarkerColor, -1)
			gocv.PutText(&out, Label(layer.Name), image.Pt(center.X+opts.LabelOffset, center.Y),
				gocv.FontHersheySimplex, opts.LabelScale, labelColor, opts.LabelThickness)
		}
	}

	gocv.Line(&out, image.Pt(0, lineRow), image.Pt(out.Cols(), lineRow), opts.LineColor, opts.LineThickness)

	banner := 0
	for _, layer := range layers {
		if !layer.Crossed {
			continue
		}
		org := image.Pt(opts.BannerOrigin.X, opts.BannerOrigin.Y+banner*opts.BannerSpacing)
		gocv.PutText(&out, Banner(layer.Name), org,
			gocv.FontHersheySimplex, opts.BannerScale, opts.BannerColor, opts.BannerThickness)
		banner++
	}

	return out
}
