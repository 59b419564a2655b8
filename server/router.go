// Package server wires the HTTP router for the gatherd API.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gatherd/gatherd/auth"
	"github.com/gatherd/gatherd/config"
	"github.com/gatherd/gatherd/metrics"
	"github.com/gatherd/gatherd/server/handlers"
	"github.com/gatherd/gatherd/server/middleware"
	"github.com/gatherd/gatherd/store"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	st store.Store,
	authService *auth.Service,
	codec *auth.TokenCodec,
	cfg *config.AppConfig,
	logger *zap.Logger,
) chi.Router {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(cfg.Server.RequestTimeout))
	r.Use(middleware.SecurityHeaders())

	// Logging and metrics middleware
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)

			metrics.HTTPRequestsTotal.WithLabelValues(
				r.Method,
				r.URL.Path,
				http.StatusText(ww.Status()),
			).Inc()

			metrics.HTTPRequestDuration.WithLabelValues(
				r.Method,
				r.URL.Path,
			).Observe(duration.Seconds())

			logger.Info("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", duration),
				zap.String("remote_addr", r.RemoteAddr))
		})
	})

	// Health check endpoint (no auth required)
	r.Get(auth.PathHealth, handlers.Health())

	// Metrics endpoint (no auth required)
	r.Handle("/metrics", promhttp.Handler())

	// API routes behind the global authentication gate
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Gate(authService, logger))

		r.Route("/users", func(r chi.Router) {
			loginLimiter := rate.NewLimiter(rate.Limit(cfg.RateLimit.LoginRPS), cfg.RateLimit.LoginBurst)

			r.Post("/register", handlers.Register(st, cfg.Auth.BcryptCost, logger))
			r.With(middleware.RateLimit(loginLimiter, logger)).
				Post("/login", handlers.Login(st, codec, logger))

			r.With(middleware.RequireIdentity(authService, logger)).
				Get("/protected", handlers.Protected(logger))
			r.With(middleware.RequireIdentity(authService, logger)).
				Post("/logout", handlers.Logout(authService, logger))
			r.With(middleware.RequireIdentity(authService, logger), middleware.RequireAdmin(logger)).
				Post("/admin/create", handlers.AdminCreateUser(st, cfg.Auth.BcryptCost, logger))
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", handlers.ListEvents(st, logger))
			r.With(middleware.OptionalIdentity(authService)).
				Get("/{eventID}", handlers.GetEvent(st, logger))

			r.With(middleware.RequireIdentity(authService, logger)).
				Post("/", handlers.CreateEvent(st, logger))
			r.With(middleware.RequireIdentity(authService, logger)).
				Put("/{eventID}", handlers.UpdateEvent(st, logger))
			r.With(middleware.RequireIdentity(authService, logger)).
				Delete("/{eventID}", handlers.DeleteEvent(st, logger))
			r.With(middleware.RequireIdentity(authService, logger)).
				Post("/{eventID}/signup", handlers.SignupEvent(st, logger))
			r.With(middleware.RequireIdentity(authService, logger)).
				Delete("/{eventID}/signup", handlers.UnsignEvent(st, logger))
		})
	})

	logger.Info("HTTP router configured successfully")

	return r
}
