package httpserver

import (
	"net/http"

	"tanbroker/internal/auth"
	"tanbroker/internal/health"
	"tanbroker/internal/orders"

	"github.com/go-chi/chi/v5"
)

type RouterDeps struct {
	AuthHandler    *auth.Handler
	HealthHandler  *health.Handler
	OrderHandler   *orders.Handler
	AuthService    *auth.Service
	WSHandler      http.Handler
	MetricsHandler http.Handler
	Limiter        *RateLimiter
	Origin         string
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && allowOrigin(r, d.Origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Set("Vary", "Origin")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Use(SecurityHeaders)
	if d.Limiter != nil {
		r.Use(d.Limiter.Middleware)
	}

	if d.HealthHandler != nil {
		r.Get("/health", d.HealthHandler.Live)
		r.Get("/health/ready", d.HealthHandler.Ready)
	} else {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	}
	if d.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", d.MetricsHandler)
	}
	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/login", d.AuthHandler.Login)
		if d.WSHandler != nil {
			r.Method(http.MethodGet, "/ws", d.WSHandler)
		}
		r.Group(func(r chi.Router) {
			r.Use(WithAuth(d.AuthService))
			r.Route("/orders", func(r chi.Router) {
				r.Post("/validation", d.OrderHandler.ValidateOrder)
				r.Post("/validation/batch", d.OrderHandler.ValidateBatch)
				r.Post("/{orderID}/validation", d.OrderHandler.ValidateAmendment)
			})
			r.Route("/quotes", func(r chi.Router) {
				r.Post("/", d.OrderHandler.RequestQuote)
				r.Post("/tickets", d.OrderHandler.ValidateQuote)
			})
			r.Route("/actions/{actionID}", func(r chi.Router) {
				r.Get("/", d.OrderHandler.Get)
				r.Delete("/", d.OrderHandler.Discard)
				r.Post("/commit", d.OrderHandler.Commit)
				r.Post("/activate", d.OrderHandler.Activate)
			})
		})
	})
	return r
}
