package api

import (
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"color-counter/internal/app"
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

// squareSource always yields a red square below the middle of the frame.
type squareSource struct{}

func (squareSource) Read(dst *gocv.Mat) (bool, error) {
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 100, 200, gocv.MatTypeCV8UC3)
	defer m.Close()
	gocv.Rectangle(&m, image.Rect(90, 50, 110, 70), color.RGBA{R: 255, A: 255}, -1)
	m.CopyTo(dst)
	return true, nil
}

func (squareSource) Close() error { return nil }

func newTestServer(t *testing.T) (*Server, *app.Runner, *LatestFrame) {
	t.Helper()
	settings, err := app.NewSettings(pipeline.Settings{Signatures: signature.Defaults(), LineFraction: 0.5})
	require.NoError(t, err)

	pipe := pipeline.New(counter.New(signature.Names(signature.Defaults())...), pipeline.DefaultOptions())
	open := func() (capture.Source, error) { return squareSource{}, nil }
	opts := app.DefaultRunnerOptions().WithClock(timeutil.NewMockClock(time.Unix(0, 0)))
	runner := app.NewRunner(settings, pipe, open, opts)

	frames := NewLatestFrame()
	runner.AddSink(frames)
	t.Cleanup(func() {
		runner.Stop()
		frames.Close()
	})
	return NewServer(runner, frames), runner, frames
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestServer_StartStop(t *testing.T) {
	s, runner, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/start", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var st struct {
		Running   bool   `json:"running"`
		SessionID string `json:"session_id"`
	}
	decode(t, rec, &st)
	assert.True(t, st.Running)
	assert.NotEmpty(t, st.SessionID)

	rec = do(t, s, http.MethodPost, "/api/start", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/stop", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, runner.Running())

	rec = do(t, s, http.MethodGet, "/api/start", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_CountsAndReset(t *testing.T) {
	s, runner, _ := newTestServer(t)
	require.NoError(t, runner.Start())
	_, err := runner.Tick()
	require.NoError(t, err)

	rec := do(t, s, http.MethodGet, "/api/counts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var counts []struct {
		Color string `json:"color"`
		Count int    `json:"count"`
	}
	decode(t, rec, &counts)
	require.Len(t, counts, 4)
	assert.Equal(t, "red", counts[0].Color)
	assert.Equal(t, 1, counts[0].Count)

	rec = do(t, s, http.MethodPost, "/api/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	n, _ := runner.Counter().Counts().Get("red")
	assert.Equal(t, 0, n)
}

func TestServer_Line(t *testing.T) {
	s, runner, _ := newTestServer(t)

	rec := do(t, s, http.MethodPut, "/api/line", `{"line": 0.75}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 0.75, runner.Settings().Line())

	for _, body := range []string{`{"line": 1.5}`, `{"line": -1}`, `{}`, `{"lin": 0.2}`, `nope`} {
		rec = do(t, s, http.MethodPut, "/api/line", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Equal(t, 0.75, runner.Settings().Line())

	rec = do(t, s, http.MethodGet, "/api/line", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"line": 0.75}`, rec.Body.String())
}

func TestServer_ColorRange(t *testing.T) {
	s, runner, _ := newTestServer(t)

	rec := do(t, s, http.MethodPut, "/api/colors/blue", `{"lower":[90,80,70],"upper":[140,255,255]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sig, _ := runner.Settings().Signature("blue")
	assert.Equal(t, signature.Bounds{90, 80, 70}, sig.Lower)

	tests := []struct {
		name string
		path string
		body string
		code int
	}{
		{"short bounds", "/api/colors/blue", `{"lower":[1,2],"upper":[3,4,5]}`, http.StatusBadRequest},
		{"out of range", "/api/colors/blue", `{"lower":[1,2,3],"upper":[3,4,256]}`, http.StatusBadRequest},
		{"unknown color", "/api/colors/purple", `{"lower":[1,2,3],"upper":[3,4,5]}`, http.StatusNotFound},
		{"bad json", "/api/colors/blue", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPut, tt.path, tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
	sig, _ = runner.Settings().Signature("blue")
	assert.Equal(t, signature.Bounds{90, 80, 70}, sig.Lower, "failed updates leave range unchanged")

	rec = do(t, s, http.MethodGet, "/api/colors", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sigs []signature.Signature
	decode(t, rec, &sigs)
	assert.Len(t, sigs, 4)
}

func TestServer_Frame(t *testing.T) {
	s, runner, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/frame.jpg", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, runner.Start())
	_, err := runner.Tick()
	require.NoError(t, err)

	rec = do(t, s, http.MethodGet, "/api/frame.jpg", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "1", rec.Header().Get("X-Frame-Seq"))

	img, err := gocv.IMDecode(rec.Body.Bytes(), gocv.IMReadColor)
	require.NoError(t, err)
	defer img.Close()
	assert.Equal(t, 200, img.Cols())
	assert.Equal(t, 100, img.Rows())
}

func TestServer_Status(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st map[string]interface{}
	decode(t, rec, &st)
	assert.Equal(t, false, st["running"])
	assert.Equal(t, 0.5, st["line"])
}
