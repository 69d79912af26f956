// Package display shows annotated frames and per-color masks in OpenCV
// windows, with trackbars for the line and color ranges.
package display

import (
	"context"
	"sync"
	"time"

	"color-counter/internal/app"
	"color-counter/internal/monitoring"
	"color-counter/internal/pipeline"

	"gocv.io/x/gocv"
)

// FrameWindow is the name of the annotated frame window.
const FrameWindow = "frame"

// MaskWindow names the mask window for a color.
func MaskWindow(name string) string {
	return name + " mask"
}

// Windows is an app.Sink that buffers the latest frame and masks. OpenCV
// windows must be driven from one thread, so Publish only copies and Run
// does the drawing.
type Windows struct {
	mu        sync.Mutex
	frame     gocv.Mat
	masks     map[string]gocv.Mat
	order     []string
	seq       uint64
	showMasks bool
}

// NewWindows creates the sink. showMasks adds one window per color.
func NewWindows(showMasks bool) *Windows {
	return &Windows{
		frame:     gocv.NewMat(),
		masks:     make(map[string]gocv.Mat),
		showMasks: showMasks,
	}
}

// Publish copies the annotated frame and masks.
func (w *Windows) Publish(res *pipeline.Result) {
	if res.Degenerate {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	res.Annotated.CopyTo(&w.frame)
	if w.showMasks {
		for _, m := range res.Masks {
			dst, ok := w.masks[m.Name]
			if !ok {
				dst = gocv.NewMat()
				w.order = append(w.order, m.Name)
			}
			m.Mask.CopyTo(&dst)
			w.masks[m.Name] = dst
		}
	}
	w.seq = res.Frame
}

// Run owns the windows until ctx is done or the quit key is pressed. Call it
// from the main goroutine with the OS thread locked.
func (w *Windows) Run(ctx context.Context, runner *app.Runner, controls bool, poll time.Duration) {
	frameWin := gocv.NewWindow(FrameWindow)
	defer frameWin.Close()

	maskWins := make(map[string]*gocv.Window)
	defer func() {
		for _, mw := range maskWins {
			mw.Close()
		}
	}()

	var ctl *Controls
	if controls {
		ctl = NewControls(runner.Settings())
		defer ctl.Close()
	}

	delay := int(poll / time.Millisecond)
	if delay < 1 {
		delay = 1
	}

	var shown uint64
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w.mu.Lock()
		if w.seq != shown && !w.frame.Empty() {
			shown = w.seq
			frameWin.IMShow(w.frame)
			for _, name := range w.order {
				mw, ok := maskWins[name]
				if !ok {
					mw = gocv.NewWindow(MaskWindow(name))
					maskWins[name] = mw
				}
				mw.IMShow(w.masks[name])
			}
		}
		w.mu.Unlock()

		key := frameWin.WaitKey(delay)
		if KeyAction(key) == ActionQuit {
			monitoring.Logf("Quit requested from display")
			return
		}
		Apply(KeyAction(key), runner)
		if ctl != nil {
			ctl.Poll()
		}
	}
}

// Close releases buffered Mats.
func (w *Windows) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, m := range w.masks {
		m.Close()
	}
	w.masks = nil
	return w.frame.Close()
}

// Action is a keyboard command in the frame window.
type Action int

const (
	ActionNone Action = iota
	ActionStart
	ActionStop
	ActionReset
	ActionQuit
)

// KeyAction maps a WaitKey result to an action: s starts, p stops, r resets,
// q or Esc quits.
func KeyAction(key int) Action {
	switch key {
	case 's', 'S':
		return ActionStart
	case 'p', 'P':
		return ActionStop
	case 'r', 'R':
		return ActionReset
	case 'q', 'Q', 27:
		return ActionQuit
	default:
		return ActionNone
	}
}

// Apply performs a start, stop or reset action on runner.
func Apply(a Action, runner *app.Runner) {
	switch a {
	case ActionStart:
		if err := runner.Start(); err != nil {
			monitoring.Logf("Start: %v", err)
		}
	case ActionStop:
		runner.Stop()
	case ActionReset:
		runner.Reset()
	}
}
