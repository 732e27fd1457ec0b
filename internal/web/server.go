// Package web provides the HTTP server for the kiosk ordering API and the
// operator sync endpoints.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/combokiosk/internal/catalog"
	"github.com/JonMunkholm/combokiosk/internal/combo"
	"github.com/JonMunkholm/combokiosk/internal/config"
	"github.com/JonMunkholm/combokiosk/internal/core"
	mw "github.com/JonMunkholm/combokiosk/internal/web/middleware"
)

// Catalog is the read side the ordering handlers need.
type Catalog interface {
	Combo(ctx context.Context, productKey string, opt catalog.Options) (*combo.Combo, error)
	ComboOrEmpty(ctx context.Context, productKey string, opt catalog.Options) *combo.Combo
	List(ctx context.Context, branchID int) ([]catalog.Summary, error)
}

// Syncer runs catalog syncs and reports their history.
type Syncer interface {
	Run(ctx context.Context, req core.SyncRequest) (core.SyncResult, error)
	RecentRuns(ctx context.Context, f core.RunFilter) ([]core.SyncResult, error)
}

// Deps are the collaborators of a Server. Syncer and ConfiguredSync may be
// nil; the sync endpoints then answer 503 or require an upload.
type Deps struct {
	Catalog  Catalog
	Syncer   Syncer
	Sessions *SessionStore

	// ConfiguredSync builds the request for a sync triggered without an
	// upload. Nil when no source is configured.
	ConfiguredSync func() core.SyncRequest
}

// Server is the HTTP server for the kiosk API.
type Server struct {
	cfg      *config.Config
	catalog  Catalog
	syncer   Syncer
	sessions *SessionStore
	syncReq  func() core.SyncRequest
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a new Server instance.
func NewServer(cfg *config.Config, deps Deps) *Server {
	sessions := deps.Sessions
	if sessions == nil {
		sessions = NewSessionStore(cfg.Session.IdleTimeout, cfg.Session.MaxSessions)
	}
	s := &Server{
		cfg:      cfg,
		catalog:  deps.Catalog,
		syncer:   deps.Syncer,
		sessions: sessions,
		syncReq:  deps.ConfiguredSync,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	// Security hardening
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	// Operator pages
	s.router.Get("/sync", s.handleSyncReport)

	s.router.Route("/api", func(r chi.Router) {
		// Kiosk traffic is short; uploads are bounded by the sync timeout.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.requestTimeout()))

			// Catalog
			r.Get("/combos", s.handleListCombos)
			r.Get("/combos/{productKey}", s.handleGetCombo)

			// Selection sessions
			r.Post("/sessions", s.handleCreateSession)
			r.Post("/sessions/resume", s.handleResumeSession)
			r.Route("/sessions/{sessionID}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Put("/groups/{groupKey}/items/{productKey}", s.handleSetQuantity)
				r.Post("/goto", s.handleGoTo)
				r.Post("/review", s.handleReview)
				r.Post("/defaults", s.handleApplyDefaults)
				r.Get("/validate", s.handleValidate)
				r.Post("/commit", s.handleCommit)
			})

			// Sync history
			r.Get("/sync/runs", s.handleSyncRuns)
		})

		// Sync trigger
		r.Post("/sync", s.handleSync)
	})
}

func (s *Server) requestTimeout() time.Duration {
	if s.cfg.Server.RequestTimeout > 0 {
		return s.cfg.Server.RequestTimeout
	}
	return 10 * time.Second
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
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

// Sessions returns the session store so the caller can run its sweeper.
func (s *Server) Sessions() *SessionStore {
	return s.sessions
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Prevent MIME type sniffing
			w.Header().Set("X-Content-Type-Options", "nosniff")

			// Prevent clickjacking
			w.Header().Set("X-Frame-Options", "DENY")

			if enableCSP {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
			}

			// Control referrer information
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			next.ServeHTTP(w, r)
		})
	}
}

// writeError writes a JSON error response for request errors that need no
// operator mapping (bad input, unknown session).
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeJSON encodes v as JSON with the given status.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
