package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestParseCheckpointID(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name       string
		pathValue  string
		wantOK     bool
		wantID     int64
		wantStatus int
	}{
		{name: "valid", pathValue: "42", wantOK: true, wantID: 42},
		{name: "not a number", pathValue: "abc", wantStatus: http.StatusBadRequest},
		{name: "zero", pathValue: "0", wantStatus: http.StatusBadRequest},
		{name: "negative", pathValue: "-3", wantStatus: http.StatusBadRequest},
		{name: "empty", pathValue: "", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/checkpoints/"+tt.pathValue, nil)
			req.SetPathValue("id", tt.pathValue)
			w := httptest.NewRecorder()

			id, ok := ParseCheckpointID(w, req, logger)

			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if id != tt.wantID {
				t.Errorf("id = %d, want %d", id, tt.wantID)
			}
			if tt.wantOK {
				return
			}
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body map[string]string
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body["error"] != "invalid_checkpoint_id" {
				t.Errorf("error = %q, want invalid_checkpoint_id", body["error"])
			}
		})
	}
}

func TestParseDatasourceID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/datasources/x/check", nil)
	req.SetPathValue("id", "x")
	w := httptest.NewRecorder()

	if _, ok := ParseDatasourceID(w, req, zap.NewNop()); ok {
		t.Fatal("expected failure for non-numeric ID")
	}
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
