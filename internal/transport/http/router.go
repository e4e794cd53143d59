package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/claimdesk/claims-api/internal/application/claim"
	"github.com/claimdesk/claims-api/internal/application/limits"
	"github.com/claimdesk/claims-api/internal/application/notify"
	"github.com/claimdesk/claims-api/internal/application/prooffile"
	"github.com/claimdesk/claims-api/internal/application/verification"
	"github.com/claimdesk/claims-api/internal/config"
	"github.com/claimdesk/claims-api/internal/domain"
	"github.com/claimdesk/claims-api/internal/transport/http/handler"
	appmiddleware "github.com/claimdesk/claims-api/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
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

	// 5 requests/second, burst of 10: a per-IP backstop on the endpoints
	// that carry their own per-user attempt budgets.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	guard := limits.NewGuard(deps.ProfileRepo, deps.ClaimRepo, deps.AssignmentRepo, cfg.TierLimits)
	uploader := prooffile.NewService(deps.S3Store)
	notifySvc := notify.NewService(deps.NotificationRepo, deps.ProfileRepo, deps.Publisher)
	verificationSvc := verification.NewService(verification.ServiceDeps{
		CodeRepo:  deps.CodeRepo,
		ClaimRepo: deps.ClaimRepo,
		Mailer:    deps.Mailer,
		Limiter:   deps.Limiter,
		Policies:  cfg.RateLimits,
		SiteName:  cfg.SiteName,
	})
	claimSvc := claim.NewService(claim.ServiceDeps{
		ClaimRepo:      deps.ClaimRepo,
		BusinessRepo:   deps.BusinessRepo,
		ProfileRepo:    deps.ProfileRepo,
		AssignmentRepo: deps.AssignmentRepo,
		Guard:          guard,
		Uploader:       uploader,
		CodeIssuer:     verificationSvc,
		Notifier:       notifySvc,
		Limiter:        deps.Limiter,
		Policies:       cfg.RateLimits,
	})

	healthH := handler.NewHealthHandler()
	claimH := handler.NewClaimHandler(claimSvc, verificationSvc)
	notifH := handler.NewNotificationHandler(notifySvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check", healthH.Ping)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.With(sensitiveRL.Limit).Post("/claims", claimH.Submit)
			r.Get("/claims", claimH.ListMine)
			r.Get("/claims/{id}", claimH.Get)
			r.With(sensitiveRL.Limit).Post("/claims/{id}/verify-code", claimH.VerifyCode)
			r.With(sensitiveRL.Limit).Post("/claims/{id}/resend-code", claimH.ResendCode)

			r.Get("/businesses/{id}/claim-status", claimH.BusinessStatus)

			r.Get("/notifications", notifH.ListUnread)
			r.Put("/notifications/{id}", notifH.MarkAsRead)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Post("/claims/{id}/approve", claimH.Approve)
				r.Post("/claims/{id}/reject", claimH.Reject)
			})
		})
	})

	return r
}
