// Package stats summarizes a counting session.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"color-counter/internal/pipeline"
	"color-counter/internal/timeutil"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultWindow is how many recent frames the per-frame series keep.
const DefaultWindow = 10000

// series is a bounded window of samples.
type series struct {
	vals []float64
	max  int
}

func (s *series) add(v float64) {
	if len(s.vals) == s.max {
		copy(s.vals, s.vals[1:])
		s.vals = s.vals[:len(s.vals)-1]
	}
	s.vals = append(s.vals, v)
}

type colorSeries struct {
	regions  series
	coverage series
	crossed  int
}

// Collector is an app.Sink that accumulates per-frame measurements.
type Collector struct {
	mu         sync.Mutex
	clock      timeutil.Clock
	window     int
	frames     int
	degenerate int
	last       time.Time
	intervals  series
	order      []string
	colors     map[string]*colorSeries
}

// NewCollector creates a collector keeping the last window frames of each
// series. window <= 0 uses DefaultWindow.
func NewCollector(clock timeutil.Clock, window int) *Collector {
	if window <= 0 {
		window = DefaultWindow
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Collector{
		clock:     clock,
		window:    window,
		intervals: series{max: window},
		colors:    make(map[string]*colorSeries),
	}
}

// Publish records one processed frame.
func (c *Collector) Publish(res *pipeline.Result) {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if res.Degenerate {
		c.degenerate++
		return
	}
	c.frames++
	if !c.last.IsZero() {
		c.intervals.add(now.Sub(c.last).Seconds())
	}
	c.last = now

	for _, d := range res.Detections {
		cs, ok := c.colors[d.Name]
		if !ok {
			cs = &colorSeries{
				regions:  series{max: c.window},
				coverage: series{max: c.window},
			}
			c.colors[d.Name] = cs
			c.order = append(c.order, d.Name)
		}
		cs.regions.add(float64(len(d.Regions)))
		cs.coverage.add(d.Coverage)
		if d.Crossed {
			cs.crossed++
		}
	}
}

// ColorSummary describes one color over the session.
type ColorSummary struct {
	Name          string  `json:"name"`
	CrossedFrames int     `json:"crossed_frames"`
	MeanRegions   float64 `json:"mean_regions"`
	StdRegions    float64 `json:"std_regions"`
	MaxRegions    float64 `json:"max_regions"`
	MeanCoverage  float64 `json:"mean_coverage"`
	P95Coverage   float64 `json:"p95_coverage"`
}

// Summary describes the session.
type Summary struct {
	Frames     int            `json:"frames"`
	Degenerate int            `json:"degenerate"`
	MeanFPS    float64        `json:"mean_fps"`
	Colors     []ColorSummary `json:"colors"`
}

// Summary computes statistics over the recorded window.
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Summary{Frames: c.frames, Degenerate: c.degenerate}
	if len(c.intervals.vals) > 0 {
		if mean := stat.Mean(c.intervals.vals, nil); mean > 0 {
			s.MeanFPS = 1 / mean
		}
	}

	for _, name := range c.order {
		cs := c.colors[name]
		cols := ColorSummary{Name: name, CrossedFrames: cs.crossed}
		if n := len(cs.regions.vals); n > 0 {
			cols.MeanRegions, cols.StdRegions = stat.MeanStdDev(cs.regions.vals, nil)
			if n == 1 {
				cols.StdRegions = 0
			}
			cols.MaxRegions = floats.Max(cs.regions.vals)
		}
		if len(cs.coverage.vals) > 0 {
			cols.MeanCoverage = stat.Mean(cs.coverage.vals, nil)
			sorted := append([]float64(nil), cs.coverage.vals...)
			sort.Float64s(sorted)
			cols.P95Coverage = stat.Quantile(0.95, stat.Empirical, sorted, nil)
		}
		s.Colors = append(s.Colors, cols)
	}
	return s
}

// String renders the summary as a small table.
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Frames: %d (degenerate %d), %.1f fps\n", s.Frames, s.Degenerate, s.MeanFPS)
	fmt.Fprintf(&b, "%-10s %8s %8s %8s %6s %9s %9s\n", "color", "crossed", "regions", "stddev", "max", "coverage", "p95")
	for _, c := range s.Colors {
		fmt.Fprintf(&b, "%-10s %8d %8.2f %8.2f %6.0f %8.2f%% %8.2f%%\n",
			c.Name, c.CrossedFrames, c.MeanRegions, c.StdRegions, c.MaxRegions,
			c.MeanCoverage*100, c.P95Coverage*100)
	}
	return b.String()
}
