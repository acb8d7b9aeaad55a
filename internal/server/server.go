// Package server serves a local page set over loopback HTTP so file based
// page sets load through the network stack and the HTTP cache.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/daryltucker/page-cycler/internal/output"
)

// Server is a static file server bound to 127.0.0.1.
type Server struct {
	srv      *http.Server
	listener net.Listener
	base     *url.URL
}

// Start serves dir on an ephemeral loopback port.
func Start(dir string) (*Server, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("serve dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("serve dir %s is not a directory", dir)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	s := &Server{
		srv:      &http.Server{Handler: NewRouter(dir), ReadHeaderTimeout: 10 * time.Second},
		listener: ln,
		base:     &url.URL{Scheme: "http", Host: ln.Addr().String(), Path: "/"},
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			output.Logger.Error("Page set server stopped", "error", err)
		}
	}()
	output.Logger.Info("Serving page set", "dir", dir, "url", s.base.String())
	return s, nil
}

// NewRouter returns the handler used to serve dir.
func NewRouter(dir string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/*", http.FileServer(http.Dir(dir)))
	return r
}

// URL returns the base URL of the server.
func (s *Server) URL() string {
	return s.base.String()
}

// Resolve turns a page reference into an absolute URL. Absolute URLs and
// about:/data: URLs pass through.
func (s *Server) Resolve(ref string) (string, error) {
	return Resolve(s.base, ref)
}

// Resolve resolves ref against base; a nil base only accepts absolute refs.
func Resolve(base *url.URL, ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid page url %q: %w", ref, err)
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	if base == nil {
		return "", fmt.Errorf("relative page url %q needs serve_dir", ref)
	}
	return base.ResolveReference(&url.URL{Path: strings.TrimPrefix(u.Path, "/"), RawQuery: u.RawQuery, Fragment: u.Fragment}).String(), nil
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
