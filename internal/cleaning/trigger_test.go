package cleaning

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPTrigger_Success(t *testing.T) {
	var gotAuth, gotProperty string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate-cleaning-tasks" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		var req Request
		json.NewDecoder(r.Body).Decode(&req)
		gotProperty = req.PropertyID
		json.NewEncoder(w).Encode(Result{Message: MessageGenerated, TasksCreated: 2})
	}))
	defer server.Close()

	trigger := NewHTTPTrigger(server.URL, "secret", 5*time.Second)
	result, err := trigger.Trigger(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}

	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q, want Bearer secret", gotAuth)
	}
	if gotProperty != "p1" {
		t.Errorf("property_id = %q, want p1", gotProperty)
	}
	if result.TasksCreated != 2 {
		t.Errorf("TasksCreated = %d, want 2", result.TasksCreated)
	}
}

func TestHTTPTrigger_ErrorResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Failed to generate cleaning tasks","detail":"no Clean task type"}`))
	}))
	defer server.Close()

	_, err := NewHTTPTrigger(server.URL, "", 5*time.Second).Trigger(context.Background(), "p1")
	if err == nil {
		t.Fatal("Trigger() expected error")
	}
	if !strings.Contains(err.Error(), "no Clean task type") {
		t.Errorf("error = %v, want detail included", err)
	}
}
