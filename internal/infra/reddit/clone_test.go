package reddit

import (
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestCloneRequestWithoutBody(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "https://oauth.example/r/golang/new?show=all", nil)
	req.Header.Set("X-Custom", "value")

	clone, err := cloneRequest(req)
	if err != nil {
		t.Fatalf("cloneRequest() error = %v", err)
	}

	if clone == req {
		t.Fatal("cloneRequest() returned the same request")
	}
	if clone.URL.String() != req.URL.String() {
		t.Errorf("clone URL = %q, want %q", clone.URL, req.URL)
	}
	if clone.Header.Get("X-Custom") != "value" {
		t.Error("clone lost a header")
	}

	clone.Header.Set("X-Custom", "changed")
	if req.Header.Get("X-Custom") != "value" {
		t.Error("mutating the clone's headers leaked into the original")
	}
}

func TestCloneRequestUsesGetBody(t *testing.T) {
	// http.NewRequest installs GetBody for string readers.
	req, _ := http.NewRequest(http.MethodPost, "https://oauth.example/submit", strings.NewReader("payload"))
	if req.GetBody == nil {
		t.Fatal("precondition: GetBody not set")
	}

	// Consume the original body, as a transport would.
	if _, err := io.Copy(io.Discard, req.Body); err != nil {
		t.Fatalf("drain original body: %v", err)
	}

	clone, err := cloneRequest(req)
	if err != nil {
		t.Fatalf("cloneRequest() error = %v", err)
	}

	body, err := io.ReadAll(clone.Body)
	if err != nil {
		t.Fatalf("read clone body: %v", err)
	}
	if string(body) != "payload" {
		t.Errorf("clone body = %q, want %q", body, "payload")
	}
}

func TestCloneRequestBuffersOpaqueBody(t *testing.T) {
	req, _ := http.NewRequest(http.MethodPost, "https://oauth.example/submit", nil)
	req.Body = io.NopCloser(strings.NewReader("opaque payload"))
	req.GetBody = nil

	clone, err := cloneRequest(req)
	if err != nil {
		t.Fatalf("cloneRequest() error = %v", err)
	}

	cloneBody, err := io.ReadAll(clone.Body)
	if err != nil {
		t.Fatalf("read clone body: %v", err)
	}
	origBody, err := io.ReadAll(req.Body)
	if err != nil {
		t.Fatalf("read original body: %v", err)
	}

	if string(cloneBody) != "opaque payload" || string(origBody) != "opaque payload" {
		t.Errorf("bodies = %q / %q, want both %q", cloneBody, origBody, "opaque payload")
	}
	if clone.ContentLength != int64(len("opaque payload")) {
		t.Errorf("clone ContentLength = %d, want %d", clone.ContentLength, len("opaque payload"))
	}
}
