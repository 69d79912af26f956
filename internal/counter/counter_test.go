package counter

import (
	"encoding/json"
	"sync"
	"testing"

	"color-counter/internal/signature"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounter_StartsAtZero(t *testing.T) {
	c := New("red", "green")
	snap := c.Counts()
	assert.Equal(t, []string{"red", "green"}, snap.Names())
	assert.Equal(t, 0, snap.Total())
}

func TestCounter_IncrementByExactlyOne(t *testing.T) {
	c := New("red", "green")

	require.NoError(t, c.Increment("red"))
	require.NoError(t, c.Increment("red"))
	require.NoError(t, c.Increment("green"))

	want := map[string]int{"red": 2, "green": 1}
	if diff := cmp.Diff(want, c.Counts().Map()); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}
}

func TestCounter_ResetZeroesEverything(t *testing.T) {
	c := New("red", "green", "blue")
	for i := 0; i < 7; i++ {
		require.NoError(t, c.Increment("red", "blue"))
	}

	c.Reset()
	for _, n := range []string{"red", "green", "blue"} {
		v, ok := c.Counts().Get(n)
		assert.True(t, ok)
		assert.Zero(t, v, n)
	}

	require.NoError(t, c.Increment("green"))
	v, _ := c.Counts().Get("green")
	assert.Equal(t, 1, v)
}

func TestCounter_UnknownColor(t *testing.T) {
	c := New("red")
	require.NoError(t, c.Increment("red"))
	before := c.Counts()

	err := c.Increment("purple")
	require.Error(t, err)
	assert.True(t, signature.IsConfigurationError(err))
	assert.Equal(t, before.Map(), c.Counts().Map())

	// Mixed known and unknown: all-or-nothing.
	err = c.Increment("red", "purple")
	assert.True(t, signature.IsConfigurationError(err))
	assert.Equal(t, before.Map(), c.Counts().Map())
}

func TestCounter_SnapshotIsImmutable(t *testing.T) {
	c := New("red")
	snap := c.Counts()
	m := snap.Map()
	m["red"] = 99

	require.NoError(t, c.Increment("red"))
	v, _ := snap.Get("red")
	assert.Zero(t, v)
	assert.False(t, c.Known("purple"))
}

func TestCounter_Subscribe(t *testing.T) {
	c := New("red", "green")

	var got []string
	c.Subscribe(func(s Snapshot) { got = append(got, s.String()) })

	require.NoError(t, c.Increment("red"))
	c.Reset()
	_ = c.Increment("nope")

	assert.Equal(t, []string{"red=1 green=0", "red=0 green=0"}, got)
}

func TestCounter_ConcurrentIncrements(t *testing.T) {
	c := New("red")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Increment("red")
		}()
	}
	wg.Wait()

	v, _ := c.Counts().Get("red")
	assert.Equal(t, 50, v)
}

func TestSnapshot_MarshalJSON(t *testing.T) {
	c := New("red", "green")
	require.NoError(t, c.Increment("green"))

	data, err := json.Marshal(c.Counts())
	require.NoError(t, err)
	assert.JSONEq(t, `[{"color":"red","count":0},{"color":"green","count":1}]`, string(data))
}
