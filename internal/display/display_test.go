package display

import (
	"testing"

	"color-counter/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"
)

func TestKeyAction(t *testing.T) {
	tests := []struct {
		key  int
		want Action
	}{
		{'s', ActionStart},
		{'P', ActionStop},
		{'r', ActionReset},
		{'q', ActionQuit},
		{27, ActionQuit},
		{-1, ActionNone},
		{'x', ActionNone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KeyAction(tt.key), "key %d", tt.key)
	}
}

func TestLinePositions(t *testing.T) {
	assert.Equal(t, 50, LineToPos(0.5))
	assert.Equal(t, 33, LineToPos(0.333))
	assert.Equal(t, 0.7, PosToLine(70))
	assert.Equal(t, 1.0, PosToLine(LineToPos(1)))
}

func TestWindows_PublishBuffers(t *testing.T) {
	w := NewWindows(true)
	defer w.Close()

	annotated := gocv.NewMatWithSize(4, 6, gocv.MatTypeCV8UC3)
	defer annotated.Close()
	mask := gocv.NewMatWithSize(4, 6, gocv.MatTypeCV8U)
	defer mask.Close()

	w.Publish(&pipeline.Result{
		Frame:     7,
		Annotated: annotated,
		Masks:     []pipeline.ColorMask{{Name: "red", Mask: mask}},
	})
	w.Publish(&pipeline.Result{Frame: 8, Degenerate: true})

	assert.Equal(t, uint64(7), w.seq)
	assert.Equal(t, 6, w.frame.Cols())
	assert.Equal(t, []string{"red"}, w.order)
	assert.Equal(t, 4, w.masks["red"].Rows())
	assert.Equal(t, "red mask", MaskWindow("red"))
}
