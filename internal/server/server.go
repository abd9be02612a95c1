package server

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BuildInfo identifies the running binary in /health responses.
type BuildInfo struct {
	Version string
	Commit  string
}

// Config carries every dependency the HTTP layer needs, constructed once
// at process start. Handlers read it explicitly; nothing is ambient.
type Config struct {
	Addr             string // e.g. ":8080"
	Build            BuildInfo
	Auth             AuthConfig
	DB               *sql.DB
	Files            *FilesStore
	Users            *UsersStore
	Blobs            *BlobStore
	FileLifetimeDays int
}

// Server wraps the configured http.Server.
type Server struct {
	httpServer *http.Server
}

// New wires the full request pipeline. Middleware order is deliberate:
// request id → metrics → request logging → JSON content-type default →
// panic recovery, then the open endpoints (/login, /health, /metrics),
// then the authenticated group where the session gate and the
// anti-forgery gate run before any handler logic.
func New(cfg Config) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsMiddleware)
	r.Use(logRequests)
	r.Use(jsonContentType)
	r.Use(middleware.Recoverer)

	// Login goes first: requiring a session to reach /login would be a
	// chicken-and-egg problem.
	r.Post("/login", cfg.Auth.loginHandler())

	// Operational endpoints sit outside the authenticated API surface.
	r.Get("/health", cfg.healthHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(cfg.Auth.requireAuth)
		r.Use(cfg.Auth.requireAntiForgery)

		r.Get("/isLoggedIn", isLoggedInHandler())
		r.Get("/files", cfg.filesHandler())
		r.Post("/upload", cfg.uploadHandler())
		r.Delete("/delete/{id}", cfg.deleteHandler())
		r.Delete("/deleteexpired", cfg.deleteExpiredHandler())
		r.Get("/download/{id}", cfg.downloadHandler())
	})

	s := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Server{httpServer: s}
}

// Handler exposes the router for httptest-style tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
