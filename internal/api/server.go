package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/devclub-edu/leaderboard/internal/config"
	"github.com/devclub-edu/leaderboard/internal/leaderboard"
	"github.com/devclub-edu/leaderboard/internal/metrics"
	"github.com/devclub-edu/leaderboard/internal/models"
	"github.com/devclub-edu/leaderboard/internal/services"
	"github.com/devclub-edu/leaderboard/internal/templates"
	"github.com/devclub-edu/leaderboard/internal/tracker"
)

// MirrorStatus reports whether the spreadsheet mirror is usable
type MirrorStatus interface {
	Initialized() bool
}

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	tracker        tracker.Manager
	templateLoader *templates.Loader
	registry       *services.Registry
	mirror         MirrorStatus
	hub            *leaderboard.Hub
	authMiddleware *AuthMiddleware
}

// NewServer creates a new API server. registry, mirror and hub may be nil.
func NewServer(
	cfg config.ServerConfig,
	manager tracker.Manager,
	loader *templates.Loader,
	registry *services.Registry,
	mirror MirrorStatus,
	hub *leaderboard.Hub,
) *Server {
	if registry == nil {
		registry = services.NewRegistry()
	}
	if registry.Get("database") == nil {
		registry.Register("database", services.NewCheckFunc("store", manager.Ping))
	}
	s := &Server{
		config:         cfg,
		tracker:        manager,
		templateLoader: loader,
		registry:       registry,
		mirror:         mirror,
		hub:            hub,
		authMiddleware: NewAuthMiddleware(manager),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	origins := s.config.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	// Websocket connections outlive the request timeout
	r.Get("/leaderboard/{domain}/live", s.handleLiveLeaderboard)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Route("/auth", func(r chi.Router) {
			limit := RateLimitByIP(s.config.AuthRateLimit, s.config.AuthRateBurst)
			r.With(limit).Post("/signup", s.handleSignup)
			r.With(limit).Post("/login", s.handleLogin)
			r.With(s.authMiddleware.Authenticate).Get("/me", s.handleMe)
		})

		r.Get("/domains", s.handleListDomains)
		r.Get("/domains/{domain}", s.handleGetDomain)

		r.Route("/leaderboard/{domain}", func(r chi.Router) {
			r.Get("/", s.handleLeaderboard)
			r.With(
				s.authMiddleware.Authenticate,
				s.authMiddleware.RequireRole(models.RoleAdmin),
			).Get("/tasks", s.handleDomainTasks)
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware.Authenticate)

			r.Get("/tasks", s.handleListTasks)
			r.Put("/tasks/{taskId}", s.handleUpdateTask)

			r.Route("/student", func(r chi.Router) {
				r.Use(s.authMiddleware.RequireRole(models.RoleStudent, models.RoleAdmin))
				r.Get("/leaderboard", s.handleStudentLeaderboard)
				r.Post("/request", s.handleSubmitRequest)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(s.authMiddleware.RequireRole(models.RoleAdmin))
				r.Get("/requests", s.handleListRequests)
				r.Post("/requests/{id}", s.handleDecideRequest)
				r.Post("/assign-points", s.handleAssignPoints)
			})
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog and counts them
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			metrics.HTTPRequests.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()

			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
