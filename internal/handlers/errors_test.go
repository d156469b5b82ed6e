package handlers

import (
	"bytes"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	original := log.Default().Writer()
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(original) })
	return &buf
}

func TestRespondWithError(t *testing.T) {
	tests := []struct {
		name    string
		userMsg string
		logMsg  string
		err     error
		wantLog string
	}{
		{name: "no error logs nothing", userMsg: "Nope", err: nil},
		{name: "log detail preferred", userMsg: "Nope", logMsg: "SetLevel failed", err: errors.New("boom"), wantLog: "SetLevel failed: boom"},
		{name: "falls back to user message", userMsg: "Nope", err: errors.New("boom"), wantLog: "Nope: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLog(t)
			rec := httptest.NewRecorder()

			respondWithError(rec, http.StatusBadRequest, tt.userMsg, tt.logMsg, tt.err)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("Status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			if body := strings.TrimSpace(rec.Body.String()); body != tt.userMsg {
				t.Errorf("Body = %q, want %q", body, tt.userMsg)
			}
			if tt.wantLog == "" {
				if buf.Len() != 0 {
					t.Errorf("Unexpected log output: %q", buf.String())
				}
			} else if !strings.Contains(buf.String(), tt.wantLog) {
				t.Errorf("Log = %q, want it to contain %q", buf.String(), tt.wantLog)
			}
		})
	}
}

func TestRespondUpstreamError(t *testing.T) {
	buf := captureLog(t)
	rec := httptest.NewRecorder()

	respondUpstreamError(rec, "The tutor is unavailable right now.", errors.New("connection refused"))

	if rec.Code != http.StatusBadGateway {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusBadGateway)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "The tutor is unavailable right now." {
		t.Errorf("Body = %q", body)
	}
	if !strings.Contains(buf.String(), "connection refused") {
		t.Errorf("Log = %q, want the underlying error recorded", buf.String())
	}
}
