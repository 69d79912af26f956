package capture

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"gocv.io/x/gocv"
)

// videoProbe holds the ffprobe fields needed to size raw frames.
type videoProbe struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// parseProbe returns the dimensions of the first video stream.
func parseProbe(probe string) (int, int, error) {
	var p videoProbe
	if err := json.Unmarshal([]byte(probe), &p); err != nil {
		return 0, 0, fmt.Errorf("json unmarshal error: %w", err)
	}
	for _, s := range p.Streams {
		if s.CodecType == "video" && s.Width > 0 && s.Height > 0 {
			return s.Width, s.Height, nil
		}
	}
	return 0, 0, errors.New("no video stream found")
}

// FFmpegSource decodes any input ffmpeg understands (files, RTSP, HTTP) into
// raw BGR frames over a pipe.
type FFmpegSource struct {
	cmd    *exec.Cmd
	r      *io.PipeReader
	buf    []byte
	width  int
	height int
}

// OpenFFmpeg probes input for its frame size and starts the decoder.
func OpenFFmpeg(input string, loop bool, width int) (*FFmpegSource, error) {
	probe, err := ffmpeg.Probe(input)
	if err != nil {
		return nil, fmt.Errorf("ffprobe error: %w", err)
	}
	w, h, err := parseProbe(probe)
	if err != nil {
		return nil, err
	}
	if width > 0 && width != w {
		h = scaledHeight(w, h, width)
		w = width
	}

	inArgs := ffmpeg.KwArgs{}
	if loop {
		inArgs["stream_loop"] = "-1"
	}

	r, pw := io.Pipe()
	cmd := ffmpeg.Input(input, inArgs).
		Output("pipe:1", ffmpeg.KwArgs{
			"format":  "rawvideo",
			"pix_fmt": "bgr24",
			"vf":      "scale=" + strconv.Itoa(w) + ":" + strconv.Itoa(h),
		}).
		WithOutput(pw).
		WithErrorOutput(os.Stderr).
		Compile()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	go func() {
		err := cmd.Wait()
		if err == nil {
			err = io.EOF
		}
		pw.CloseWithError(err)
	}()

	return &FFmpegSource{
		cmd:    cmd,
		r:      r,
		buf:    make([]byte, w*h*3),
		width:  w,
		height: h,
	}, nil
}

// Read blocks until a whole frame has been decoded.
func (f *FFmpegSource) Read(dst *gocv.Mat) (bool, error) {
	if _, err := io.ReadFull(f.r, f.buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, ErrEndOfStream
		}
		return false, fmt.Errorf("ffmpeg read: %w", err)
	}
	m, err := gocv.NewMatFromBytes(f.height, f.width, gocv.MatTypeCV8UC3, f.buf)
	if err != nil {
		return false, fmt.Errorf("ffmpeg frame: %w", err)
	}
	defer m.Close()
	m.CopyTo(dst)
	return true, nil
}

// Size returns the decoded frame dimensions.
func (f *FFmpegSource) Size() (int, int) {
	return f.width, f.height
}

// Close stops the decoder.
func (f *FFmpegSource) Close() error {
	if f.cmd.Process != nil {
		// The process may already have exited at end of stream.
		_ = f.cmd.Process.Kill()
	}
	return f.r.Close()
}
