package httputil

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWriteJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSONError(rec, 418, "teapot")

	assert.Equal(t, 418, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "teapot", decodeBody(t, rec)["error"])
}

func TestWriteJSONOK(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSONOK(rec, map[string]string{"state": "open"})

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "open", decodeBody(t, rec)["state"])
}

func TestStatusHelpers(t *testing.T) {
	tests := []struct {
		name string
		fn   func(rec *httptest.ResponseRecorder)
		code int
	}{
		{"method not allowed", func(rec *httptest.ResponseRecorder) { MethodNotAllowed(rec) }, 405},
		{"bad request", func(rec *httptest.ResponseRecorder) { BadRequest(rec, "nope") }, 400},
		{"internal error", func(rec *httptest.ResponseRecorder) { InternalServerError(rec, "boom") }, 500},
		{"not found", func(rec *httptest.ResponseRecorder) { NotFound(rec, "missing") }, 404},
		{"service unavailable", func(rec *httptest.ResponseRecorder) { ServiceUnavailable(rec, "bus down") }, 503},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.fn(rec)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}
