package manifestsrv

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"open-launcher/internal/manifest"
)

func TestHandler_ServesVerifiableManifestAndNews(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	tok, err := manifest.Sign(manifest.Document{Version: "5.0.1", Files: map[string]int64{"client.bin": 42}}, priv, time.Now())
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	h, err := Handler(func() (Content, error) {
		return Content{Token: tok, News: News{Title: "Patch day", Version: "5.0.1", Message: "New dungeon."}}, nil
	})
	if err != nil {
		t.Fatalf("Handler: %v", err)
	}
	ts := httptest.NewServer(h)
	defer ts.Close()

	m, err := manifest.NewFetcher(2*time.Second).Fetch(context.Background(), ts.URL+ManifestPath, pub)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if m.Version() != "5.0.1" {
		t.Fatalf("version=%q", m.Version())
	}

	resp, err := http.Get(ts.URL + NewsPath)
	if err != nil {
		t.Fatalf("GET news: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.HasPrefix(string(body), "Patch day\nCurrent version: 5.0.1") || !strings.Contains(string(body), "New dungeon.") {
		t.Fatalf("news body=%q", body)
	}
}

func TestHandler_MethodAndUnavailable(t *testing.T) {
	h, err := Handler(func() (Content, error) { return Content{}, errors.New("not signed yet") })
	if err != nil {
		t.Fatalf("Handler: %v", err)
	}
	ts := httptest.NewServer(h)
	defer ts.Close()

	resp, err := http.Post(ts.URL+ManifestPath, "text/plain", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + ManifestPath)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", resp.StatusCode)
	}
}

func TestStart_ShutsDownWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s, err := Start(ctx, "127.0.0.1:0", func() (Content, error) { return Content{Token: "x"}, nil })
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	resp, err := http.Get("http://" + s.Addr() + ManifestPath)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	cancel()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		c, err := http.Get("http://" + s.Addr() + ManifestPath)
		if err != nil {
			return
		}
		c.Body.Close()
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("server still serving after cancel")
}
