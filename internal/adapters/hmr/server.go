package hmr

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.trai.ch/sling/internal/core/domain"
	"go.trai.ch/sling/internal/core/ports"
	"go.trai.ch/zerr"
)

const shutdownGrace = 2 * time.Second

// Server serves the output root, the static root and the HMR channel.
type Server struct {
	cfg    domain.DevServerConfig
	output string
	hub    *Hub
	logger ports.Logger
}

// NewServer creates a Server for the given output root.
func NewServer(cfg domain.DevServerConfig, outputDir string, hub *Hub, logger ports.Logger) *Server {
	return &Server{cfg: cfg, output: outputDir, hub: hub, logger: logger}
}

// Handler returns the HTTP handler of the dev server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(domain.HMRPath, s.hub)
	mux.HandleFunc("/", s.serveFile)
	return mux
}

// ListenAndServe serves on the configured port until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+strconv.Itoa(s.cfg.Port))
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrServerFailed, err.Error()), "port", s.cfg.Port)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("dev server listening on http://localhost:" + strconv.Itoa(ln.Addr().(*net.TCPAddr).Port))

	select {
	case err := <-errCh:
		return zerr.Wrap(domain.ErrServerFailed, err.Error())
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return zerr.Wrap(domain.ErrServerFailed, err.Error())
	}
	return nil
}

// serveFile looks the path up in the output root, then in the static root.
// Unknown extension-less GET routes fall back to index.html when enabled.
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	clean := path.Clean("/" + r.URL.Path)
	if clean == "/" {
		clean = "/" + domain.HTMLFileName
	}

	for _, dir := range s.roots() {
		if file, ok := lookup(dir, clean); ok {
			if strings.HasSuffix(clean, ".html") || clean == "/"+domain.ManifestFileName {
				w.Header().Set("Cache-Control", "no-cache")
			}
			serveContent(w, r, file)
			return
		}
	}

	if s.cfg.HistoryAPIFallback && r.Method == http.MethodGet && path.Ext(clean) == "" {
		for _, dir := range s.roots() {
			if file, ok := lookup(dir, "/"+domain.HTMLFileName); ok {
				w.Header().Set("Cache-Control", "no-cache")
				serveContent(w, r, file)
				return
			}
		}
	}
	http.NotFound(w, r)
}

func (s *Server) roots() []string {
	roots := []string{s.output}
	if s.cfg.Static != "" {
		roots = append(roots, s.cfg.Static)
	}
	return roots
}

// lookup maps a cleaned URL path below dir to an existing regular file.
func lookup(dir, urlPath string) (string, bool) {
	file := filepath.Join(dir, filepath.FromSlash(urlPath))
	info, err := os.Stat(file)
	if err != nil || info.IsDir() {
		return "", false
	}
	return file, true
}

// serveContent writes file without http.ServeFile's index.html redirects.
func serveContent(w http.ResponseWriter, r *http.Request, file string) {
	f, err := os.Open(file) //nolint:gosec // file is below a served root
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer func() {
		_ = f.Close()
	}()
	info, err := f.Stat()
	if err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
