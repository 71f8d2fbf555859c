package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/madcrow/auth-service/internal/application"
	"github.com/madcrow/auth-service/internal/obs"
)

// ReadyCheck probes backing dependencies for the readiness endpoint.
type ReadyCheck func(ctx context.Context) error

// Handler is the HTTP adapter entrypoint for auth use-cases.
type Handler struct {
	service *application.Service
	ready   ReadyCheck
}

// NewHandler constructs an HTTP handler bound to the application service.
func NewHandler(service *application.Service, ready ReadyCheck) *Handler {
	return &Handler{service: service, ready: ready}
}

// NewRouter registers the auth routes and middleware stack.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(obs.Instrument)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)
	r.Method(http.MethodGet, "/metrics", obs.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", handler.register)
		r.Post("/login", handler.login)
		r.Post("/refresh-token", handler.refreshToken)

		r.Group(func(r chi.Router) {
			r.Use(handler.authMiddleware)
			r.Get("/me", handler.me)
			r.Get("/session/validate", handler.validateSession)
			r.Post("/logout", handler.logout)
			r.Post("/logout-all", handler.logoutAll)
			r.Get("/login-history", handler.loginHistory)
		})
	})

	return r
}
