package http

import (
	"net/http"

	"github.com/egovauthenticator/api/internal/config"
	"github.com/egovauthenticator/api/internal/domain"
	"github.com/egovauthenticator/api/internal/transport/http/handler"
	appmiddleware "github.com/egovauthenticator/api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// NewRouter builds the application router. The returned func stops the rate
// limiters' cleanup goroutines and must be called once the server has shut down.
func NewRouter(cfg *config.Config, deps *Deps) (http.Handler, func()) {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(appmiddleware.RequestLogger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 on sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)
	// Each OCR call fans out to several model requests.
	ocrRL := appmiddleware.NewRateLimiter(rate.Limit(1), 5)
	closeLimiters := func() {
		sensitiveRL.Close()
		ocrRL.Close()
	}

	healthH := handler.NewHealthHandler(deps.ReadinessChecks)
	sessionH := handler.NewSessionHandler(deps.UserService)
	userH := handler.NewUserHandler(deps.UserService)
	verificationH := handler.NewVerificationHandler(deps.VerificationService, cfg.UploadMaxBytes, log)

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)
		r.With(sensitiveRL.Limit).Post("/users", userH.Register)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/users/{id}", userH.Get)
			r.Put("/users/{id}", userH.Update)

			r.With(ocrRL.Limit).Post("/verifications/ocr", verificationH.OCR)
			r.Post("/verifications/psa", verificationH.PSA)
			r.Post("/verifications/voters", verificationH.Voters)
			r.Post("/verifications/philsys", verificationH.PhilSys)
			r.Get("/verifications", verificationH.List)
			r.Get("/verifications/{id}", verificationH.Get)
			r.Delete("/verifications/{id}", verificationH.Delete)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Get("/users/{id}/verifications", verificationH.ListForUser)
			})
		})
	})

	return r, closeLimiters
}
