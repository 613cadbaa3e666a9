package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusTeapot)
	w.Write([]byte("ok"))
})

func TestServiceKey(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		header string
		want   int
	}{
		{"disabled", "", "", http.StatusTeapot},
		{"valid", "secret", "Bearer secret", http.StatusTeapot},
		{"missing", "secret", "", http.StatusUnauthorized},
		{"wrong", "secret", "Bearer nope", http.StatusUnauthorized},
		{"wrong scheme", "secret", "Basic secret", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/sync-ical-all", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			ServiceKey(tt.key)(okHandler).ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestErrorRecovery(t *testing.T) {
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	rec := httptest.NewRecorder()

	ErrorRecovery(panicking).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Error != ErrInternalError {
		t.Errorf("error = %q, want %q", resp.Error, ErrInternalError)
	}
}

func TestWriteFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteFailure(rec, http.StatusInternalServerError, "Failed to generate cleaning tasks", errors.New("no Clean task type"))

	var resp map[string]any
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp["error"] != "Failed to generate cleaning tasks" || resp["detail"] != "no Clean task type" {
		t.Errorf("response = %v", resp)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
}

func TestLogging_CapturesStatus(t *testing.T) {
	var captured *responseWriter
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = w.(*responseWriter)
		okHandler.ServeHTTP(w, r)
	})
	rec := httptest.NewRecorder()

	Logging(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if captured.status != http.StatusTeapot || captured.size != 2 {
		t.Errorf("captured status/size = %d/%d, want 418/2", captured.status, captured.size)
	}
}

func TestLogging_RequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
	}{
		{name: "generated"},
		{name: "propagated", incoming: "req-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/cleaning-tasks?platform_user_id=owner-1", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()

			Logging(okHandler).ServeHTTP(rec, req)

			got := rec.Header().Get(RequestIDHeader)
			switch {
			case tt.incoming != "" && got != tt.incoming:
				t.Errorf("%s = %q, want %q", RequestIDHeader, got, tt.incoming)
			case got == "":
				t.Errorf("%s not set", RequestIDHeader)
			}
		})
	}
}
