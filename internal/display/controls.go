package display

import (
	"math"

	"color-counter/internal/app"
	"color-counter/internal/monitoring"
	"color-counter/internal/signature"

	"gocv.io/x/gocv"
)

// ControlsWindow is the name of the trackbar window.
const ControlsWindow = "controls"

// lineSteps is the trackbar resolution for the line position.
const lineSteps = 100

// LineToPos converts a line fraction to a trackbar position.
func LineToPos(fraction float64) int {
	return int(math.Round(fraction * lineSteps))
}

// PosToLine converts a trackbar position to a line fraction.
func PosToLine(pos int) float64 {
	return float64(pos) / lineSteps
}

var channelNames = [signature.Channels]string{"H", "S", "V"}

// rangeBars holds the six trackbars of one color.
type rangeBars struct {
	lower [signature.Channels]*gocv.Trackbar
	upper [signature.Channels]*gocv.Trackbar
}

// Controls mirrors the live settings onto trackbars and pushes changes back.
type Controls struct {
	win      *gocv.Window
	settings *app.Settings
	line     *gocv.Trackbar
	bars     map[string]*rangeBars
	names    []string

	lastLine   int
	lastRanges map[string][2]signature.Bounds
}

// NewControls creates the trackbar window for settings.
func NewControls(settings *app.Settings) *Controls {
	c := &Controls{
		win:        gocv.NewWindow(ControlsWindow),
		settings:   settings,
		bars:       make(map[string]*rangeBars),
		lastRanges: make(map[string][2]signature.Bounds),
	}

	snap := settings.Snapshot()
	c.line = c.win.CreateTrackbar("line %", lineSteps)
	c.lastLine = LineToPos(snap.LineFraction)
	c.line.SetPos(c.lastLine)

	for _, sig := range snap.Signatures {
		rb := &rangeBars{}
		for i := 0; i < signature.Channels; i++ {
			rb.lower[i] = c.win.CreateTrackbar(sig.Name+" "+channelNames[i]+" min", 255)
			rb.lower[i].SetPos(sig.Lower[i])
			rb.upper[i] = c.win.CreateTrackbar(sig.Name+" "+channelNames[i]+" max", 255)
			rb.upper[i].SetPos(sig.Upper[i])
		}
		c.bars[sig.Name] = rb
		c.names = append(c.names, sig.Name)
		c.lastRanges[sig.Name] = [2]signature.Bounds{sig.Lower, sig.Upper}
	}
	return c
}

// Poll applies trackbar movements to the settings.
func (c *Controls) Poll() {
	if pos := c.line.GetPos(); pos != c.lastLine {
		c.lastLine = pos
		if err := c.settings.SetLine(PosToLine(pos)); err != nil {
			monitoring.Logf("Line: %v", err)
		}
	}
	for _, name := range c.names {
		rb := c.bars[name]
		var lower, upper signature.Bounds
		for i := 0; i < signature.Channels; i++ {
			lower[i] = rb.lower[i].GetPos()
			upper[i] = rb.upper[i].GetPos()
		}
		next := [2]signature.Bounds{lower, upper}
		if next == c.lastRanges[name] {
			continue
		}
		c.lastRanges[name] = next
		if err := c.settings.SetColorRange(name, lower, upper); err != nil {
			monitoring.Logf("Range %s: %v", name, err)
		}
	}
}

// Close destroys the trackbar window.
func (c *Controls) Close() error {
	return c.win.Close()
}
