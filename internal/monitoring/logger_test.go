package monitoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLogger(t *testing.T) {
	orig := Logf
	defer func() { Logf = orig }()

	var got []string
	SetLogger(func(format string, v ...interface{}) {
		got = append(got, fmt.Sprintf(format, v...))
	})
	Logf("red car crossed the line (%d)", 2)
	assert.Equal(t, []string{"red car crossed the line (2)"}, got)

	SetLogger(nil)
	Logf("dropped")
	assert.Len(t, got, 1)
}
