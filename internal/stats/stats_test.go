package stats

import (
	"strings"
	"testing"
	"time"

	"color-counter/internal/detect"
	"color-counter/internal/pipeline"
	"color-counter/internal/timeutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(regions int, coverage float64, crossed bool) *pipeline.Result {
	return &pipeline.Result{
		Detections: []pipeline.ColorDetection{{
			Name:     "red",
			Regions:  make([]detect.Region, regions),
			Crossed:  crossed,
			Coverage: coverage,
		}},
	}
}

func TestCollector_Summary(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	c := NewCollector(clock, 0)

	c.Publish(result(1, 0.1, true))
	clock.Advance(100 * time.Millisecond)
	c.Publish(result(3, 0.3, false))
	clock.Advance(100 * time.Millisecond)
	c.Publish(&pipeline.Result{Degenerate: true})

	s := c.Summary()
	assert.Equal(t, 2, s.Frames)
	assert.Equal(t, 1, s.Degenerate)
	assert.InDelta(t, 10.0, s.MeanFPS, 1e-9)

	require.Len(t, s.Colors, 1)
	red := s.Colors[0]
	assert.Equal(t, "red", red.Name)
	assert.Equal(t, 1, red.CrossedFrames)
	assert.InDelta(t, 2.0, red.MeanRegions, 1e-9)
	assert.InDelta(t, 1.4142135, red.StdRegions, 1e-6)
	assert.Equal(t, 3.0, red.MaxRegions)
	assert.InDelta(t, 0.2, red.MeanCoverage, 1e-9)
	assert.InDelta(t, 0.3, red.P95Coverage, 1e-9)

	out := s.String()
	assert.True(t, strings.HasPrefix(out, "Frames: 2 (degenerate 1), 10.0 fps"), out)
	assert.Contains(t, out, "red")
}

func TestCollector_Empty(t *testing.T) {
	s := NewCollector(nil, 0).Summary()
	assert.Equal(t, 0, s.Frames)
	assert.Zero(t, s.MeanFPS)
	assert.Empty(t, s.Colors)
}

func TestCollector_WindowBound(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	c := NewCollector(clock, 2)
	c.Publish(result(10, 0, false))
	c.Publish(result(1, 0, false))
	c.Publish(result(1, 0, false))

	s := c.Summary()
	assert.Equal(t, 3, s.Frames)
	assert.Equal(t, 1.0, s.Colors[0].MaxRegions, "oldest sample dropped")
}
