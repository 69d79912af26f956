package app

import (
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"color-counter/internal/capture"
	"color-counter/internal/counter"
	"color-counter/internal/monitoring"
	"color-counter/internal/pipeline"
	"color-counter/internal/signature"
	"color-counter/internal/timeutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func init() {
	monitoring.SetLogger(nil)
}

// step is one scripted Read result.
type step struct {
	cy    int // centroid row of a red square
	miss  bool
	empty bool
	err   error
}

type fakeSource struct {
	mu     sync.Mutex
	steps  []step
	next   int
	closed bool
}

func (f *fakeSource) Read(dst *gocv.Mat) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.next >= len(f.steps) {
		return false, capture.ErrEndOfStream
	}
	s := f.steps[f.next]
	f.next++
	switch {
	case s.err != nil:
		return false, s.err
	case s.miss:
		return false, nil
	case s.empty:
		empty := gocv.NewMat()
		defer empty.Close()
		empty.CopyTo(dst)
		return true, nil
	}
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 100, 200, gocv.MatTypeCV8UC3)
	defer m.Close()
	gocv.Rectangle(&m, image.Rect(90, s.cy-10, 110, s.cy+10), color.RGBA{R: 255, A: 255}, -1)
	m.CopyTo(dst)
	return true, nil
}

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSource) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type harness struct {
	runner  *Runner
	clock   *timeutil.MockClock
	sources []*fakeSource
	opens   int
}

// newHarness builds a runner whose every Start opens a fresh fakeSource
// replaying steps.
func newHarness(t *testing.T, steps ...step) *harness {
	t.Helper()
	settings, err := NewSettings(pipeline.Settings{
		Signatures:   []signature.Signature{signature.Defaults()[0]},
		LineFraction: 0.5,
	})
	require.NoError(t, err)

	h := &harness{clock: timeutil.NewMockClock(time.Unix(0, 0))}
	open := func() (capture.Source, error) {
		h.opens++
		src := &fakeSource{steps: steps}
		h.sources = append(h.sources, src)
		return src, nil
	}
	pipe := pipeline.New(counter.New("red"), pipeline.DefaultOptions())
	opts := DefaultRunnerOptions().WithClock(h.clock).WithSource("fake")
	h.runner = NewRunner(settings, pipe, open, opts)
	t.Cleanup(h.runner.Stop)
	return h
}

func redCount(r *Runner) int {
	n, _ := r.Counter().Counts().Get("red")
	return n
}

func TestRunner_TickProcessesAndSkips(t *testing.T) {
	h := newHarness(t, step{cy: 60}, step{miss: true}, step{cy: 40})
	r := h.runner

	var published []counter.Snapshot
	r.AddSink(SinkFunc(func(res *pipeline.Result) {
		published = append(published, res.Counts)
	}))

	require.NoError(t, r.Start())

	out, err := r.Tick()
	require.NoError(t, err)
	assert.Equal(t, TickProcessed, out)
	assert.Equal(t, 1, redCount(r))

	out, err = r.Tick()
	require.NoError(t, err)
	assert.Equal(t, TickSkipped, out)

	out, err = r.Tick()
	require.NoError(t, err)
	assert.Equal(t, TickProcessed, out)
	assert.Equal(t, 1, redCount(r), "square above the line is not counted")

	st := r.Status()
	assert.True(t, st.Running)
	assert.NotEmpty(t, st.SessionID)
	assert.Equal(t, "fake", st.Source)
	assert.Equal(t, uint64(2), st.Frames)
	assert.Equal(t, uint64(1), st.Skipped)
	assert.Equal(t, "30ms", st.Interval)
	assert.Len(t, published, 2)
}

func TestRunner_StartStopLifecycle(t *testing.T) {
	h := newHarness(t, step{cy: 60}, step{cy: 60})
	r := h.runner

	assert.False(t, r.Running())
	r.Stop() // no-op while stopped

	require.NoError(t, r.Start())
	assert.ErrorIs(t, r.Start(), ErrAlreadyRunning)
	assert.Equal(t, 1, h.opens)
	first := r.Status().SessionID

	_, err := r.Tick()
	require.NoError(t, err)

	r.Stop()
	assert.False(t, r.Running())
	assert.True(t, h.sources[0].isClosed(), "source released on stop")

	_, err = r.Tick()
	assert.ErrorIs(t, err, ErrNotRunning)

	require.NoError(t, r.Start())
	assert.Equal(t, 2, h.opens)
	assert.NotEqual(t, first, r.Status().SessionID)

	_, err = r.Tick()
	require.NoError(t, err)
	assert.Equal(t, 2, redCount(r), "counts survive stop and start")
}

func TestRunner_ResetWhileStopped(t *testing.T) {
	h := newHarness(t, step{cy: 60})
	r := h.runner

	require.NoError(t, r.Start())
	_, err := r.Tick()
	require.NoError(t, err)
	r.Stop()
	require.Equal(t, 1, redCount(r))

	var resets int
	r.On(EventReset, func(interface{}) { resets++ })
	r.Reset()
	assert.Equal(t, 0, redCount(r))
	assert.Equal(t, 1, resets)
}

func TestRunner_EndOfStreamStops(t *testing.T) {
	h := newHarness(t, step{cy: 60})
	r := h.runner

	require.NoError(t, r.Start())
	_, err := r.Tick()
	require.NoError(t, err)

	out, err := r.Tick()
	assert.Equal(t, TickEnded, out)
	assert.True(t, errors.Is(err, capture.ErrEndOfStream))

	r.Wait()
	assert.False(t, r.Running())
	assert.True(t, h.sources[0].isClosed())
}

func TestRunner_SourceErrorStops(t *testing.T) {
	boom := errors.New("device unplugged")
	h := newHarness(t, step{err: boom})
	r := h.runner

	require.NoError(t, r.Start())
	out, err := r.Tick()
	assert.Equal(t, TickFailed, out)
	assert.ErrorIs(t, err, boom)

	r.Wait()
	assert.False(t, r.Running())
	assert.Equal(t, "device unplugged", r.Status().LastError)
}

func TestRunner_DegenerateFrame(t *testing.T) {
	h := newHarness(t, step{empty: true})
	r := h.runner

	require.NoError(t, r.Start())
	out, err := r.Tick()
	require.NoError(t, err)
	assert.Equal(t, TickDegenerate, out)
	assert.Equal(t, 0, redCount(r))
	assert.Equal(t, uint64(1), r.Status().Degenerate)
}

func TestRunner_LiveLineChange(t *testing.T) {
	h := newHarness(t, step{cy: 60}, step{cy: 60})
	r := h.runner

	require.NoError(t, r.Start())
	require.NoError(t, r.Settings().SetLine(0.7))
	_, err := r.Tick()
	require.NoError(t, err)
	assert.Equal(t, 0, redCount(r))

	require.NoError(t, r.Settings().SetLine(0.5))
	_, err = r.Tick()
	require.NoError(t, err)
	assert.Equal(t, 1, redCount(r))
}

func TestRunner_LoopDrivenByClock(t *testing.T) {
	h := newHarness(t, step{cy: 60}, step{cy: 60}, step{cy: 60})
	r := h.runner

	frames := make(chan uint64, 8)
	r.AddSink(SinkFunc(func(res *pipeline.Result) { frames <- res.Frame }))

	require.NoError(t, r.Start())
	require.Equal(t, 1, h.clock.Tickers())

	h.clock.Advance(DefaultInterval)
	select {
	case f := <-frames:
		assert.Equal(t, uint64(1), f)
	case <-time.After(5 * time.Second):
		t.Fatal("no frame processed after tick")
	}

	h.clock.Advance(DefaultInterval)
	select {
	case f := <-frames:
		assert.Equal(t, uint64(2), f)
	case <-time.After(5 * time.Second):
		t.Fatal("no frame processed after second tick")
	}

	r.Stop()
	assert.Equal(t, 2, redCount(r))
}
