// Package pipeline runs color detection and counting over one frame at a time.
package pipeline

import (
	"color-counter/internal/annotate"
	"color-counter/internal/counter"
	"color-counter/internal/detect"
	"color-counter/internal/signature"

	"gocv.io/x/gocv"
)

// Settings is the per-frame configuration. It is passed by value on every
// Process call so callers can change it between frames.
type Settings struct {
	Signatures   []signature.Signature
	LineFraction float64
}

// Validate checks the signature set and line fraction.
func (s Settings) Validate() error {
	if err := signature.ValidateSet(s.Signatures); err != nil {
		return err
	}
	return signature.ValidateLine(s.LineFraction)
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	s.Signatures = append([]signature.Signature(nil), s.Signatures...)
	return s
}

// Options configures the pipeline.
type Options struct {
	Annotate annotate.Options
	// KeepMasks retains per-color masks on the result for diagnostics.
	KeepMasks bool
}

// DefaultOptions returns the default annotation style with masks kept.
func DefaultOptions() Options {
	return Options{
		Annotate:  annotate.DefaultOptions(),
		KeepMasks: true,
	}
}

// CrossingEvent records that a color had at least one qualifying region
// in a frame.
type CrossingEvent struct {
	Color   string `json:"color"`
	Regions int    `json:"regions"`
	Frame   uint64 `json:"frame"`
}

// ColorDetection is the per-color outcome for one frame.
type ColorDetection struct {
	Name       string          `json:"name"`
	Regions    []detect.Region `json:"regions"`
	Qualifying []detect.Region `json:"qualifying"`
	Crossed    bool            `json:"crossed"`
	Coverage   float64         `json:"coverage"`
}

// ColorMask pairs a color name with its binary mask.
type ColorMask struct {
	Name string
	Mask gocv.Mat
}

// Result is everything one Process call produces. Close releases the Mats.
type Result struct {
	Frame      uint64
	Annotated  gocv.Mat
	Counts     counter.Snapshot
	Masks      []ColorMask
	Detections []ColorDetection
	Events     []CrossingEvent
	LineRow    int
	Width      int
	Height     int
	Degenerate bool // Zero-area input; all outputs are empty
}

// Crossed reports whether name crossed in this frame.
func (r *Result) Crossed(name string) bool {
	for _, d := range r.Detections {
		if d.Name == name {
			return d.Crossed
		}
	}
	return false
}

// Detection returns the detection for name.
func (r *Result) Detection(name string) (ColorDetection, bool) {
	for _, d := range r.Detections {
		if d.Name == name {
			return d, true
		}
	}
	return ColorDetection{}, false
}

// Mask returns the mask for name, if masks were kept.
func (r *Result) Mask(name string) (gocv.Mat, bool) {
	for _, m := range r.Masks {
		if m.Name == name {
			return m.Mask, true
		}
	}
	return gocv.Mat{}, false
}

// Close releases the annotated frame and masks.
func (r *Result) Close() {
	if r == nil {
		return
	}
	r.Annotated.Close()
	for _, m := range r.Masks {
		m.Mask.Close()
	}
	r.Masks = nil
}
