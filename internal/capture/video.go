package capture

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// VideoSource reads frames from a camera or video file through OpenCV.
type VideoSource struct {
	cap   *gocv.VideoCapture
	file  bool
	loop  bool
	width int
}

// OpenDevice opens the camera at index id.
func OpenDevice(id, width int) (*VideoSource, error) {
	vc, err := gocv.VideoCaptureDevice(id)
	if err != nil {
		return nil, fmt.Errorf("failed to open device %d: %w", id, err)
	}
	return &VideoSource{cap: vc, width: width}, nil
}

// OpenFile opens a video file.
func OpenFile(path string, loop bool, width int) (*VideoSource, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open video %s: %w", path, err)
	}
	return &VideoSource{cap: vc, file: true, loop: loop, width: width}, nil
}

// Read grabs the next frame. A camera that fails to deliver is a miss; a
// file that fails to deliver has ended.
func (v *VideoSource) Read(dst *gocv.Mat) (bool, error) {
	if v.cap.Read(dst) && !dst.Empty() {
		resizeTo(dst, v.width)
		return true, nil
	}
	if !v.file {
		return false, nil
	}
	if !v.loop {
		return false, ErrEndOfStream
	}
	v.cap.Set(gocv.VideoCapturePosFrames, 0)
	if v.cap.Read(dst) && !dst.Empty() {
		resizeTo(dst, v.width)
		return true, nil
	}
	return false, ErrEndOfStream
}

// FrameCount reports the container's frame count, or 0 for cameras.
func (v *VideoSource) FrameCount() int {
	if !v.file {
		return 0
	}
	return int(v.cap.Get(gocv.VideoCaptureFrameCount))
}

// Close releases the capture device.
func (v *VideoSource) Close() error {
	return v.cap.Close()
}

// resizeTo scales m in place to width columns, keeping the aspect ratio.
func resizeTo(m *gocv.Mat, width int) {
	if width <= 0 || m.Empty() || m.Cols() == width {
		return
	}
	h := scaledHeight(m.Cols(), m.Rows(), width)
	gocv.Resize(*m, m, image.Pt(width, h), 0, 0, gocv.InterpolationLinear)
}

// scaledHeight keeps the aspect ratio and rounds to an even row count, which
// raw video encoders require.
func scaledHeight(w, h, width int) int {
	if w <= 0 {
		return 0
	}
	sh := (h*width + w/2) / w
	if sh%2 == 1 {
		sh++
	}
	if sh < 2 {
		sh = 2
	}
	return sh
}
