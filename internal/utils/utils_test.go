package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNormalizeTopic(t *testing.T) {
	if got := NormalizeTopic("  dynamic \n\t programming "); got != "dynamic programming" {
		t.Fatalf("NormalizeTopic: expected collapsed topic, got %q", got)
	}
}

func TestStripFences(t *testing.T) {
	input := "```python\nprint('hi')\n```\n"
	want := "print('hi')"

	if got := StripFences(input); got != want {
		t.Fatalf("StripFences: expected %q, got %q", want, got)
	}

	raw := "  print('hi')  "
	if got := StripFences(raw); got != "print('hi')" {
		t.Fatalf("StripFences (no fences): expected trimmed string, got %q", got)
	}
}

func TestStripFencesJSON(t *testing.T) {
	input := "```json\n{\"a\": 1}\n```"
	if got := StripFences(input); got != `{"a": 1}` {
		t.Fatalf("StripFences json: got %q", got)
	}

	if got := StripFences("```{\"a\": 1}```"); got != `{"a": 1}` {
		t.Fatalf("StripFences single line: got %q", got)
	}
}

func TestGetLoggerInitializes(t *testing.T) {
	Logger = nil
	if GetLogger() == nil {
		t.Fatal("expected logger to be initialized")
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","extra":1}`))
	if err := DecodeJSON(req, &dst); err == nil {
		t.Fatal("expected unknown field to be rejected")
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}`))
	if err := DecodeJSON(req, &dst); err != nil || dst.Name != "a" {
		t.Fatalf("DecodeJSON: err=%v name=%q", err, dst.Name)
	}
}

func TestJSONHelpers(t *testing.T) {
	rec := httptest.NewRecorder()
	payload := map[string]string{"hello": "world"}

	JSON(rec, http.StatusCreated, payload)

	if rec.Code != http.StatusCreated {
		t.Fatalf("JSON: expected status %d, got %d", http.StatusCreated, rec.Code)
	}
	if contentType := rec.Header().Get("Content-Type"); contentType != "application/json" {
		t.Fatalf("JSON: expected content-type application/json, got %s", contentType)
	}

	var got map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("JSON decode failed: %v", err)
	}
	if got["hello"] != "world" {
		t.Fatalf("JSON body mismatch: %+v", got)
	}

	rec2 := httptest.NewRecorder()
	WriteJSON(rec2, http.StatusAccepted, payload)

	if rec2.Code != http.StatusAccepted {
		t.Fatalf("WriteJSON: expected status %d, got %d", http.StatusAccepted, rec2.Code)
	}

	if !strings.Contains(rec2.Body.String(), `"hello":"world"`) {
		t.Fatalf("WriteJSON: expected body to contain payload, got %s", rec2.Body.String())
	}
}
