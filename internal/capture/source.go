// Package capture provides frame sources for the counting loop.
package capture

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// ErrEndOfStream is returned by finite sources once every frame has been read.
var ErrEndOfStream = errors.New("end of stream")

// Source yields BGR frames. Read fills dst and returns false when no frame
// was available this time (a transient miss). Read may block.
type Source interface {
	Read(dst *gocv.Mat) (bool, error)
	Close() error
}

// Opener opens a fresh Source. The runner calls it on every Start.
type Opener func() (Source, error)

// Kind names the type of source a Config selects.
type Kind string

const (
	KindDevice Kind = "device"
	KindFile   Kind = "file"
	KindDir    Kind = "dir"
	KindFFmpeg Kind = "ffmpeg"
)

// Config selects and configures a frame source. Exactly one of File, Dir or
// FFmpeg may be set; when none is, the camera at Device is used.
type Config struct {
	Device int    `json:"device" yaml:"device" toml:"device"`
	File   string `json:"file,omitempty" yaml:"file,omitempty" toml:"file,omitempty"`
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty" toml:"dir,omitempty"`
	FFmpeg string `json:"ffmpeg,omitempty" yaml:"ffmpeg,omitempty" toml:"ffmpeg,omitempty"`

	// Loop restarts finite sources instead of reporting ErrEndOfStream.
	Loop bool `json:"loop,omitempty" yaml:"loop,omitempty" toml:"loop,omitempty"`
	// Width scales frames to this many columns when > 0.
	Width int `json:"width,omitempty" yaml:"width,omitempty" toml:"width,omitempty"`
}

// Kind reports which source the config selects.
func (c Config) Kind() Kind {
	switch {
	case c.File != "":
		return KindFile
	case c.Dir != "":
		return KindDir
	case c.FFmpeg != "":
		return KindFFmpeg
	default:
		return KindDevice
	}
}

// Validate rejects ambiguous or out-of-range settings.
func (c Config) Validate() error {
	n := 0
	for _, s := range []string{c.File, c.Dir, c.FFmpeg} {
		if s != "" {
			n++
		}
	}
	if n > 1 {
		return errors.New("only one of file, dir or ffmpeg may be set")
	}
	if c.Device < 0 {
		return fmt.Errorf("invalid device index %d", c.Device)
	}
	if c.Width < 0 {
		return fmt.Errorf("invalid width %d", c.Width)
	}
	return nil
}

// String describes the source for logs.
func (c Config) String() string {
	switch c.Kind() {
	case KindFile:
		return "file " + c.File
	case KindDir:
		return "dir " + c.Dir
	case KindFFmpeg:
		return "ffmpeg " + c.FFmpeg
	default:
		return fmt.Sprintf("device %d", c.Device)
	}
}

// Open opens the source described by cfg.
func Open(cfg Config) (Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Kind() {
	case KindFile:
		return OpenFile(cfg.File, cfg.Loop, cfg.Width)
	case KindDir:
		return OpenDir(cfg.Dir, cfg.Loop, cfg.Width)
	case KindFFmpeg:
		return OpenFFmpeg(cfg.FFmpeg, cfg.Loop, cfg.Width)
	default:
		return OpenDevice(cfg.Device, cfg.Width)
	}
}

// Opener returns an Opener bound to cfg.
func (c Config) Opener() Opener {
	return func() (Source, error) { return Open(c) }
}
