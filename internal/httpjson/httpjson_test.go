package httpjson

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteFailureShape(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteFailure(rec, http.StatusUnauthorized, "Authentication required", "NO_TOKEN")

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["success"] != false || body["error"] != "Authentication required" || body["code"] != "NO_TOKEN" {
		t.Fatalf("unexpected body %v", body)
	}
}
