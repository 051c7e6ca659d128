package testutil

import (
	"errors"
	"io"
	"net/http"
	"testing"
)

func TestNewTestRequest(t *testing.T) {
	req := NewTestRequest(http.MethodGet, "/api/lockers/status")
	if req.Method != http.MethodGet {
		t.Errorf("method = %q", req.Method)
	}
	if req.URL.Path != "/api/lockers/status" {
		t.Errorf("path = %q", req.URL.Path)
	}
}

func TestNewJSONRequest(t *testing.T) {
	req := NewJSONRequest(http.MethodPost, "/api/serial/configs", `{"baud_rate":9600}`)
	if ct := req.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	body, err := io.ReadAll(req.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	if string(body) != `{"baud_rate":9600}` {
		t.Errorf("body = %q", body)
	}
}

func TestAssertHelpers(t *testing.T) {
	// The helpers must pass through on the happy path.
	AssertNoError(t, nil)
	AssertError(t, errors.New("boom"))
	AssertStatusCode(t, 200, 200)

	rec := NewTestRecorder()
	if rec.Code != http.StatusOK {
		t.Errorf("fresh recorder code = %d", rec.Code)
	}
}
