package classifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPClientClassify(t *testing.T) {
	var gotAuth, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		var req classifyRequest
		_ = json.Unmarshal(body, &req)
		gotText = req.Text
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"label":"joy","score":0.9}]`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/", "secret", time.Second, nil)
	raw, err := c.Classify(context.Background(), "hello there")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != `[{"label":"joy","score":0.9}]` {
		t.Fatalf("expected raw body passthrough, got %s", raw)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("expected bearer auth, got %q", gotAuth)
	}
	if gotText != "hello there" {
		t.Fatalf("expected text forwarded, got %q", gotText)
	}
}

func TestHTTPClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", time.Second, nil)
	if _, err := c.Classify(context.Background(), "hi"); err == nil {
		t.Fatalf("expected error on 503")
	}
}

func TestHTTPClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", 20*time.Millisecond, nil)
	if _, err := c.Classify(context.Background(), "hi"); err == nil {
		t.Fatalf("expected timeout error")
	}
}
