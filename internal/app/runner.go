package app

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"color-counter/internal/capture"
	"color-counter/internal/counter"
	"color-counter/internal/monitoring"
	"color-counter/internal/pipeline"
	"color-counter/internal/timeutil"

	"github.com/google/uuid"
	"gocv.io/x/gocv"
)

// DefaultInterval is the frame cadence.
const DefaultInterval = 30 * time.Millisecond

var (
	// ErrAlreadyRunning is returned by Start while the loop is active.
	ErrAlreadyRunning = errors.New("already running")
	// ErrNotRunning is returned by Tick while stopped.
	ErrNotRunning = errors.New("not running")
)

// TickOutcome describes what one tick did.
type TickOutcome int

const (
	TickProcessed TickOutcome = iota
	TickSkipped
	TickDegenerate
	TickFailed
	TickEnded
)

// String returns the outcome name.
func (o TickOutcome) String() string {
	switch o {
	case TickProcessed:
		return "processed"
	case TickSkipped:
		return "skipped"
	case TickDegenerate:
		return "degenerate"
	case TickFailed:
		return "failed"
	case TickEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Sink receives every processed frame. The result and its Mats are closed
// after Publish returns, so a sink must copy anything it keeps. Publish runs
// on the loop goroutine and must not call Stop.
type Sink interface {
	Publish(res *pipeline.Result)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(res *pipeline.Result)

// Publish calls f(res).
func (f SinkFunc) Publish(res *pipeline.Result) { f(res) }

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Interval time.Duration
	Clock    timeutil.Clock
	// Source is a description of the source used in status and logs.
	Source string
}

// DefaultRunnerOptions returns a 30 ms cadence on the real clock.
func DefaultRunnerOptions() RunnerOptions {
	return RunnerOptions{Interval: DefaultInterval, Clock: timeutil.RealClock{}}
}

// WithInterval returns a copy with the given cadence.
func (o RunnerOptions) WithInterval(d time.Duration) RunnerOptions {
	o.Interval = d
	return o
}

// WithClock returns a copy using c for ticks and timestamps.
func (o RunnerOptions) WithClock(c timeutil.Clock) RunnerOptions {
	o.Clock = c
	return o
}

// WithSource returns a copy with the source description set.
func (o RunnerOptions) WithSource(s string) RunnerOptions {
	o.Source = s
	return o
}

// Status is a point-in-time view of the runner.
type Status struct {
	SessionID  string                   `json:"session_id,omitempty"`
	Running    bool                     `json:"running"`
	Source     string                   `json:"source,omitempty"`
	Interval   string                   `json:"interval"`
	StartedAt  time.Time                `json:"started_at,omitempty"`
	LastFrame  time.Time                `json:"last_frame,omitempty"`
	Frames     uint64                   `json:"frames"`
	Skipped    uint64                   `json:"skipped"`
	Degenerate uint64                   `json:"degenerate"`
	LastEvents []pipeline.CrossingEvent `json:"last_events,omitempty"`
	LastError  string                   `json:"last_error,omitempty"`
	Line       float64                  `json:"line"`
	Counts     counter.Snapshot         `json:"counts"`
}

// Runner drives the pipeline from a frame source at a fixed cadence. It is
// Stopped until Start opens the source, and Stop releases it again. Frames
// are processed one at a time; ticks that arrive while busy are dropped.
type Runner struct {
	Events

	settings *Settings
	pipe     *pipeline.Pipeline
	open     capture.Opener
	opts     RunnerOptions

	sinksMu sync.RWMutex
	sinks   []Sink

	// tickMu serializes frame processing and source teardown.
	tickMu sync.Mutex

	mu       sync.Mutex
	running  bool
	stopping bool
	src      capture.Source
	frame    gocv.Mat
	stopCh   chan struct{}
	done     chan struct{}
	status   Status
}

// NewRunner creates a stopped runner.
func NewRunner(settings *Settings, pipe *pipeline.Pipeline, open capture.Opener, opts RunnerOptions) *Runner {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	return &Runner{
		settings: settings,
		pipe:     pipe,
		open:     open,
		opts:     opts,
		done:     closedChan(),
	}
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// AddSink registers a sink for processed frames.
func (r *Runner) AddSink(s Sink) {
	r.sinksMu.Lock()
	defer r.sinksMu.Unlock()
	r.sinks = append(r.sinks, s)
}

// Settings returns the live settings store.
func (r *Runner) Settings() *Settings {
	return r.settings
}

// Counter returns the counter the pipeline increments.
func (r *Runner) Counter() *counter.Counter {
	return r.pipe.Counter()
}

// Start opens the source and begins ticking.
func (r *Runner) Start() error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	src, err := r.open()
	if err != nil {
		r.mu.Unlock()
		return fmt.Errorf("failed to open source: %w", err)
	}

	r.src = src
	r.frame = gocv.NewMat()
	r.running = true
	r.stopping = false
	r.stopCh = make(chan struct{})
	r.done = make(chan struct{})
	r.status = Status{
		SessionID: uuid.NewString(),
		Source:    r.opts.Source,
		StartedAt: r.opts.Clock.Now(),
	}
	sessionID := r.status.SessionID

	// The ticker exists before Start returns so a mock clock can drive it.
	ticker := r.opts.Clock.NewTicker(r.opts.Interval)
	go r.loop(ticker, r.stopCh, r.done)
	r.mu.Unlock()

	monitoring.Logf("Session %s started (%s, every %v)", sessionID, r.opts.Source, r.opts.Interval)
	r.Emit(EventStarted, sessionID)
	return nil
}

// Stop finishes the in-flight frame, closes the source and waits for the
// loop to exit. Stopping a stopped runner does nothing.
func (r *Runner) Stop() {
	r.requestStop()
	r.Wait()
}

// Wait blocks until the loop has exited.
func (r *Runner) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	<-done
}

func (r *Runner) requestStop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running && !r.stopping {
		r.stopping = true
		close(r.stopCh)
	}
}

// Running reports whether the loop is active.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Reset zeroes every count. It is valid whether or not the loop runs.
func (r *Runner) Reset() {
	r.pipe.Counter().Reset()
	monitoring.Logf("Counts reset")
	r.Emit(EventReset, nil)
}

// Status returns a copy of the current status.
func (r *Runner) Status() Status {
	r.mu.Lock()
	st := r.status
	st.Running = r.running
	st.LastEvents = append([]pipeline.CrossingEvent(nil), st.LastEvents...)
	r.mu.Unlock()

	st.Interval = r.opts.Interval.String()
	st.Line = r.settings.Line()
	st.Counts = r.pipe.Counter().Counts()
	return st
}

func (r *Runner) loop(ticker timeutil.Ticker, stopCh, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()
	defer r.teardown()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C():
			r.Tick()
		}
	}
}

// teardown releases the source once the loop has exited.
func (r *Runner) teardown() {
	r.tickMu.Lock()
	defer r.tickMu.Unlock()

	r.mu.Lock()
	src := r.src
	r.src = nil
	r.running = false
	r.stopping = false
	sessionID := r.status.SessionID
	frames := r.status.Frames
	r.frame.Close()
	r.mu.Unlock()

	if src != nil {
		if err := src.Close(); err != nil {
			monitoring.Logf("Warning: failed to close source: %v", err)
		}
	}
	monitoring.Logf("Session %s stopped after %d frames", sessionID, frames)
	r.Emit(EventStopped, sessionID)
}

// Tick acquires and processes one frame. The loop calls it on every tick;
// tests may call it directly while the runner is started.
func (r *Runner) Tick() (TickOutcome, error) {
	r.tickMu.Lock()
	defer r.tickMu.Unlock()

	r.mu.Lock()
	src := r.src
	active := r.running && !r.stopping
	r.mu.Unlock()
	if src == nil || !active {
		return TickSkipped, ErrNotRunning
	}

	ok, err := src.Read(&r.frame)
	if err != nil {
		if errors.Is(err, capture.ErrEndOfStream) {
			monitoring.Logf("Source finished")
			r.requestStop()
			return TickEnded, err
		}
		monitoring.Logf("Error: frame acquisition failed: %v", err)
		r.recordError(err)
		r.requestStop()
		return TickFailed, err
	}
	if !ok {
		r.mu.Lock()
		r.status.Skipped++
		r.mu.Unlock()
		return TickSkipped, nil
	}

	res, err := r.pipe.Process(r.frame, r.settings.Snapshot())
	if err != nil {
		monitoring.Logf("Error: %v", err)
		r.recordError(err)
		return TickFailed, err
	}
	defer res.Close()

	now := r.opts.Clock.Now()
	r.mu.Lock()
	r.status.LastFrame = now
	r.status.LastError = ""
	if res.Degenerate {
		r.status.Degenerate++
	} else {
		r.status.Frames++
		r.status.LastEvents = res.Events
	}
	r.mu.Unlock()

	r.sinksMu.RLock()
	sinks := r.sinks
	r.sinksMu.RUnlock()
	for _, s := range sinks {
		s.Publish(res)
	}

	if res.Degenerate {
		return TickDegenerate, nil
	}
	return TickProcessed, nil
}

func (r *Runner) recordError(err error) {
	r.mu.Lock()
	r.status.LastError = err.Error()
	r.mu.Unlock()
}
