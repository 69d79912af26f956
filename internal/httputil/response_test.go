package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	BadRequest(rec, "bad line")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "bad line", body["error"])
}

func TestStatusHelpers(t *testing.T) {
	tests := []struct {
		write func(http.ResponseWriter)
		code  int
	}{
		{MethodNotAllowed, http.StatusMethodNotAllowed},
		{func(w http.ResponseWriter) { NotFound(w, "x") }, http.StatusNotFound},
		{func(w http.ResponseWriter) { Conflict(w, "x") }, http.StatusConflict},
		{func(w http.ResponseWriter) { InternalServerError(w, "x") }, http.StatusInternalServerError},
		{func(w http.ResponseWriter) { WriteJSONOK(w, map[string]int{"a": 1}) }, http.StatusOK},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		tt.write(rec)
		assert.Equal(t, tt.code, rec.Code)
	}
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Line float64 `json:"line"`
	}
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"line":0.4}`))
	require.NoError(t, DecodeJSON(req, &v))
	assert.Equal(t, 0.4, v.Line)

	req = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"lane":0.4}`))
	assert.Error(t, DecodeJSON(req, &v))

	req = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{`))
	assert.Error(t, DecodeJSON(req, &v))
}
