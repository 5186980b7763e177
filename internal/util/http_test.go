package util

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestWriteErrorShape(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, 423, "account temporarily locked", "rid-1")
	if rec.Code != 423 || rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "account temporarily locked" || body["request_id"] != "rid-1" || len(body) != 2 {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestWriteErrorOmitsEmptyRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, 400, "missing fields", "")
	var body map[string]string
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if _, ok := body["request_id"]; ok {
		t.Fatalf("expected request_id to be omitted: %v", body)
	}
}
