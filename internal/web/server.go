// Package web provides the HTTP server and handlers for the allocation portal.
package web

import (
	"context"
	"embed"
	"io/fs"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smartalloc/portal/internal/allocator"
	"github.com/smartalloc/portal/internal/config"
	"github.com/smartalloc/portal/internal/session"
	portalmw "github.com/smartalloc/portal/internal/web/middleware"
)

//go:embed static
var staticFiles embed.FS

// Server is the HTTP server for the allocation portal. It owns the single
// view state machine and the allocation service client.
type Server struct {
	cfg     *config.Config
	machine *session.Machine
	client  *allocator.Client
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a new Server instance.
func NewServer(cfg *config.Config, machine *session.Machine, client *allocator.Client) *Server {
	s := &Server{
		cfg:     cfg,
		machine: machine,
		client:  client,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(portalmw.TrustedRealIP(s.cfg.Server.TrustedProxies))
	s.router.Use(portalmw.Logger)
	s.router.Use(portalmw.Metrics)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	// Security hardening
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Static files
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatal(err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// The portal page; what it shows depends on the view state machine
	s.router.Get("/", s.handleIndex)

	// State machine triggers
	s.router.Post("/allocate", s.handleAllocate)
	s.router.Post("/view/analytics", s.handleViewAnalytics)
	s.router.Post("/view/results", s.handleViewResults)
	s.router.Post("/reset", s.handleReset)

	// Fragments and data
	s.router.Get("/results/table", s.handleResultsTable)
	s.router.Get("/api/analytics", s.handleAnalyticsJSON)
	s.router.Get("/export/allocations.csv", s.handleExportAllocations)

	// Operational endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", promhttp.Handler())
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	log.Printf("Starting server on %s", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		// Restrict resource loading; htmx is served from unpkg
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com; style-src 'self' 'unsafe-inline'; img-src 'self' data:; font-src 'self'")

		// Control referrer information
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}
