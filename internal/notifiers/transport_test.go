package notifiers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestHTTPTransport_PostJSON(t *testing.T) {
	var capturedMethod, capturedContentType, capturedUA string
	var capturedBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedMethod = r.Method
		capturedContentType = r.Header.Get("Content-Type")
		capturedUA = r.Header.Get("User-Agent")
		capturedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	tr := &HTTPTransport{client: srv.Client()}
	resp, err := tr.PostJSON(srv.URL, map[string]string{"device": "WebHookMsg"})
	if err != nil {
		t.Fatalf("PostJSON() error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want 201", resp.StatusCode)
	}
	if capturedMethod != "POST" {
		t.Errorf("method = %q, want POST", capturedMethod)
	}
	if capturedContentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", capturedContentType)
	}
	if capturedUA != "noticehook/0.1" {
		t.Errorf("User-Agent = %q, want noticehook/0.1", capturedUA)
	}
	var payload map[string]string
	if err := json.Unmarshal(capturedBody, &payload); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if payload["device"] != "WebHookMsg" {
		t.Errorf("device = %q", payload["device"])
	}
}

func TestHTTPTransport_PostJSON_Unencodable(t *testing.T) {
	tr := NewHTTPTransport()
	_, err := tr.PostJSON("http://127.0.0.1:1", map[string]any{"ch": make(chan int)})
	if err == nil {
		t.Fatal("expected encoding error")
	}
}

func TestHTTPTransport_Get(t *testing.T) {
	var capturedMethod string
	var capturedQuery url.Values

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedMethod = r.Method
		capturedQuery = r.URL.Query()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tr := &HTTPTransport{client: srv.Client()}
	resp, err := tr.Get(srv.URL+"/hook", url.Values{"title": {"a b"}, "desp": {"x&y"}})
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	resp.Body.Close()

	if capturedMethod != "GET" {
		t.Errorf("method = %q, want GET", capturedMethod)
	}
	if capturedQuery.Get("title") != "a b" || capturedQuery.Get("desp") != "x&y" {
		t.Errorf("query = %v", capturedQuery)
	}
}

func TestHTTPTransport_Get_KeepsExistingQuery(t *testing.T) {
	var capturedQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedQuery = r.URL.Query()
	}))
	defer srv.Close()

	tr := &HTTPTransport{client: srv.Client()}
	resp, err := tr.Get(srv.URL+"/hook?key=secret", url.Values{"title": {"T"}})
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	resp.Body.Close()

	if capturedQuery.Get("key") != "secret" {
		t.Errorf("existing query lost: %v", capturedQuery)
	}
	if capturedQuery.Get("title") != "T" {
		t.Errorf("title = %q", capturedQuery.Get("title"))
	}
}

func TestHTTPTransport_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	tr := NewHTTPTransport()
	if _, err := tr.Get(addr, nil); err == nil {
		t.Error("expected error for closed server")
	}
}

func TestHTTPTransport_BadURL(t *testing.T) {
	tr := NewHTTPTransport()
	if _, err := tr.Get("://missing-scheme", nil); err == nil {
		t.Error("expected error for malformed url")
	}
}

var _ Transport = (*HTTPTransport)(nil)
