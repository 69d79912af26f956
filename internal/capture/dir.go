package capture

import (
	"fmt"

	"color-counter/internal/image"

	"gocv.io/x/gocv"
)

// DirSource replays the still images in a directory in name order.
type DirSource struct {
	paths []string
	next  int
	loop  bool
	width int
}

// OpenDir lists the images in dir. A directory with no images is an error.
func OpenDir(dir string, loop bool, width int) (*DirSource, error) {
	paths, err := image.ListDir(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no images in %s", dir)
	}
	return &DirSource{paths: paths, loop: loop, width: width}, nil
}

// Read loads the next image into dst.
func (d *DirSource) Read(dst *gocv.Mat) (bool, error) {
	if d.next >= len(d.paths) {
		if !d.loop {
			return false, ErrEndOfStream
		}
		d.next = 0
	}
	path := d.paths[d.next]
	d.next++

	m, err := image.LoadMat(path, d.width)
	if err != nil {
		return false, fmt.Errorf("frame %s: %w", path, err)
	}
	defer m.Close()
	m.CopyTo(dst)
	return true, nil
}

// Len returns the number of frames in the sequence.
func (d *DirSource) Len() int {
	return len(d.paths)
}

// Close is a no-op; images are loaded one at a time.
func (d *DirSource) Close() error {
	return nil
}
