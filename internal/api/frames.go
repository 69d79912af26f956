package api

import (
	"fmt"
	"sync"

	"color-counter/internal/pipeline"

	"gocv.io/x/gocv"
)

// LatestFrame keeps a copy of the most recent annotated frame. It is an
// app.Sink; encoding happens only when a client asks.
type LatestFrame struct {
	mu    sync.Mutex
	frame gocv.Mat
	seq   uint64
}

// NewLatestFrame creates an empty store.
func NewLatestFrame() *LatestFrame {
	return &LatestFrame{frame: gocv.NewMat()}
}

// Publish copies the annotated frame of res.
func (l *LatestFrame) Publish(res *pipeline.Result) {
	if res.Degenerate || res.Annotated.Empty() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	res.Annotated.CopyTo(&l.frame)
	l.seq = res.Frame
}

// JPEG encodes the stored frame. ok is false before the first frame.
func (l *LatestFrame) JPEG() (data []byte, seq uint64, ok bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.frame.Empty() {
		return nil, 0, false, nil
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, l.frame)
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()
	// GetBytes aliases native memory that Close frees.
	data = append([]byte(nil), buf.GetBytes()...)
	return data, l.seq, true, nil
}

// Close releases the stored frame.
func (l *LatestFrame) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frame.Close()
}
