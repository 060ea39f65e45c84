package receipt

import (
	"log/slog"
	"net/http"
)

// Server handles HTTP requests for receipts
type Server struct {
	service  *Service
	sessions *Sessions
	auth     *Auth
	renderer *Renderer
	mux      *http.ServeMux
}

// NewServer creates a new Server with default mux
func NewServer(service *Service, sessions *Sessions, auth *Auth) *Server {
	return NewServerWithMux(service, sessions, auth, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *Service, sessions *Sessions, auth *Auth, mux *http.ServeMux) *Server {
	renderer, err := NewRenderer()
	if err != nil {
		panic(err)
	}
	s := &Server{
		service:  service,
		sessions: sessions,
		auth:     auth,
		renderer: renderer,
		mux:      mux,
	}
	s.registerRoutes()
	return s
}

// corsMiddleware adds CORS headers to responses
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		// Handle preflight OPTIONS requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requireAuth rejects API requests without a signed-in user
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.auth.Authenticate(r)
		if !ok {
			setCORSHeaders(w)
			w.Header().Set("WWW-Authenticate", `Basic realm="Receipt Insights"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r.WithContext(withUser(r.Context(), user)))
	}
}

// requirePage shows the sign-in screen instead of the page when nobody is signed in
func (s *Server) requirePage(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.auth.Authenticate(r)
		if !ok {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			if err := s.renderer.RenderSignIn(w, false); err != nil {
				slog.Error("Error rendering sign-in page", "error", err)
			}
			return
		}
		next(w, r.WithContext(withUser(r.Context(), user)))
	}
}

// session returns the session of the request's user
func (s *Server) session(r *http.Request) *Session {
	return s.sessions.Get(UserFromContext(r.Context()))
}

// registerRoutes registers all routes on the server's mux
func (s *Server) registerRoutes() {
	// Static files
	s.mux.HandleFunc("GET /static/app.css", s.handleStaticCSS)
	s.mux.HandleFunc("GET /static/app.js", s.handleStaticJS)

	// Uploaded images are public so the AI provider can fetch them by URL
	s.mux.HandleFunc("GET /files/{path...}", s.handleGetFile)

	// Auth
	s.mux.HandleFunc("GET /api/session", s.handleSession)
	s.mux.HandleFunc("POST /api/login", s.handleLogin)
	s.mux.HandleFunc("POST /api/logout", s.handleLogout)

	// Extraction and chat
	s.mux.HandleFunc("POST /api/receipts/analyze", s.requireAuth(s.handleAnalyzeReceipt))
	s.mux.HandleFunc("GET /api/receipts/current", s.requireAuth(s.handleCurrentReceipt))
	s.mux.HandleFunc("GET /api/receipts/export", s.requireAuth(s.handleExportReceipts))
	s.mux.HandleFunc("GET /api/receipts", s.requireAuth(s.handleListReceipts))
	s.mux.HandleFunc("POST /api/intake/clear", s.requireAuth(s.handleClearSelection))
	s.mux.HandleFunc("POST /api/chat", s.requireAuth(s.handleChat))
	s.mux.HandleFunc("GET /api/notifications", s.requireAuth(s.handleNotifications))

	// HTML
	s.mux.HandleFunc("GET /fragments/result", s.requireAuth(s.handleResultFragment))
	s.mux.HandleFunc("GET /{$}", s.requirePage(s.handleIndex))
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// Handler returns the mux wrapped in the CORS middleware
func (s *Server) Handler() http.Handler {
	return s.corsMiddleware(s.mux)
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
