// Package manifestsrv publishes a signed version manifest and a plain-text
// news page over HTTP.
package manifestsrv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const (
	ManifestPath = "/manifest"
	NewsPath     = "/news"
)

type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Handler serves the content returned by provider on every request.
func Handler(provider func() (Content, error)) (http.Handler, error) {
	tmpl, err := loadTemplate()
	if err != nil {
		return nil, err
	}

	allowRead := func(w http.ResponseWriter, r *http.Request) bool {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return false
		}
		return true
	}

	mux := http.NewServeMux()
	mux.HandleFunc(ManifestPath, func(w http.ResponseWriter, r *http.Request) {
		if !allowRead(w, r) {
			return
		}
		c, err := provider()
		if err != nil || c.Token == "" {
			slog.Warn("manifest unavailable", "err", err)
			http.Error(w, "Manifest Unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/jwt")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write([]byte(c.Token))
	})
	mux.HandleFunc(NewsPath, func(w http.ResponseWriter, r *http.Request) {
		if !allowRead(w, r) {
			return
		}
		c, err := provider()
		if err != nil {
			http.Error(w, "News Unavailable", http.StatusServiceUnavailable)
			return
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, c.News); err != nil {
			http.Error(w, "News Template Error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
	})
	return mux, nil
}

// Start listens on addr and serves until ctx is done.
func Start(ctx context.Context, addr string, provider func() (Content, error)) (*Server, error) {
	if addr == "" {
		return nil, fmt.Errorf("manifest addr is empty")
	}
	h, err := Handler(provider)
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	s := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	ms := &Server{srv: s, ln: ln}
	go func() {
		<-ctx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	}()
	go func() {
		if err := s.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("manifest server stopped", "err", err)
		}
	}()
	return ms, nil
}

// Addr is the bound listen address.
func (s *Server) Addr() string { return s.ln.Addr().String() }
