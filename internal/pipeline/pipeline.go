package pipeline

import (
	"color-counter/internal/annotate"
	"color-counter/internal/counter"
	"color-counter/internal/detect"
	"color-counter/internal/monitoring"
	"color-counter/internal/signature"

	"gocv.io/x/gocv"
)

// Pipeline sequences segmentation, region extraction, the line test,
// counting and annotation for each frame. It is not safe for concurrent
// Process calls; the driver guarantees one frame at a time.
type Pipeline struct {
	counter *counter.Counter
	opts    Options
	frames  uint64
}

// New creates a pipeline that increments c.
func New(c *counter.Counter, opts Options) *Pipeline {
	return &Pipeline{counter: c, opts: opts}
}

// Counter returns the tally this pipeline increments.
func (p *Pipeline) Counter() *counter.Counter {
	return p.counter
}

// Frames returns how many frames have been processed.
func (p *Pipeline) Frames() uint64 {
	return p.frames
}

// Process runs every configured color over frame. Settings are read only.
// Invalid settings or a color the counter does not track fail with a
// *signature.ConfigurationError before anything is counted. A zero-area
// frame returns a Degenerate result with unchanged counts.
func (p *Pipeline) Process(frame gocv.Mat, s Settings) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	for _, sig := range s.Signatures {
		if !p.counter.Known(sig.Name) {
			return nil, signature.UnknownColor(sig.Name)
		}
	}

	p.frames++
	res := &Result{Frame: p.frames}

	if frame.Empty() || frame.Rows() == 0 || frame.Cols() == 0 {
		res.Degenerate = true
		res.Annotated = gocv.NewMat()
		res.Counts = p.counter.Counts()
		return res, nil
	}

	res.Width, res.Height = frame.Cols(), frame.Rows()
	res.LineRow = detect.LineRow(s.LineFraction, res.Height)

	layers := make([]annotate.ColorLayer, 0, len(s.Signatures))
	var crossed []string

	for _, sig := range s.Signatures {
		mask := detect.Segment(frame, sig)
		regions := detect.ExtractRegions(mask)
		crossing := detect.EvaluateCrossing(regions, s.LineFraction, res.Height)

		res.Detections = append(res.Detections, ColorDetection{
			Name:       sig.Name,
			Regions:    regions,
			Qualifying: crossing.Qualifying,
			Crossed:    crossing.Crossed,
			Coverage:   detect.Coverage(mask),
		})
		layers = append(layers, annotate.ColorLayer{
			Name:       sig.Name,
			Qualifying: crossing.Qualifying,
			Crossed:    crossing.Crossed,
		})

		if crossing.Crossed {
			crossed = append(crossed, sig.Name)
			res.Events = append(res.Events, CrossingEvent{
				Color:   sig.Name,
				Regions: len(crossing.Qualifying),
				Frame:   res.Frame,
			})
		}

		if p.opts.KeepMasks {
			res.Masks = append(res.Masks, ColorMask{Name: sig.Name, Mask: mask})
		} else {
			mask.Close()
		}
	}

	if err := p.counter.Increment(crossed...); err != nil {
		for _, m := range res.Masks {
			m.Mask.Close()
		}
		return nil, err
	}
	for _, ev := range res.Events {
		monitoring.Logf("%s car crossed the line", ev.Color)
	}

	res.Annotated = annotate.Annotate(frame, res.LineRow, layers, p.opts.Annotate)
	res.Counts = p.counter.Counts()
	return res, nil
}
