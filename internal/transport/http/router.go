package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/go-review-ledger/internal/application/account"
	"github.com/go-review-ledger/internal/application/review"
	"github.com/go-review-ledger/internal/application/session"
	"github.com/go-review-ledger/internal/config"
	"github.com/go-review-ledger/internal/transport/http/handler"
	appmiddleware "github.com/go-review-ledger/internal/transport/http/middleware"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	Registry   RegistryStore
	Moderation ModerationGate
	Ledger     LedgerGateway
	Logger     *zap.Logger
}

// NewRouter builds and returns the application router. ctx bounds background
// work started for the router, such as rate-limiter cleanup.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	if cfg.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	sensitiveRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)

	accountSvc := account.NewService(account.ServiceDeps{Registry: deps.Registry})
	sessionSvc := session.NewService(session.ServiceDeps{Users: deps.Registry})
	reviewSvc := review.NewService(review.ServiceDeps{
		Gate:   deps.Moderation,
		Ledger: deps.Ledger,
		Logger: deps.Logger,
	})

	authMw := appmiddleware.Auth(sessionSvc)

	healthH := handler.NewHealthHandler(deps.Ledger, accountSvc)
	authH := handler.NewAuthHandler(accountSvc, sessionSvc)
	reviewH := handler.NewReviewHandler(reviewSvc)

	r.Get("/health", healthH.Check)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.With(sensitiveRL.Limit).Post("/auth/register", authH.Register)
		r.With(sensitiveRL.Limit).Post("/auth/login", authH.Login)
		r.Get("/reviews", reviewH.List)
		r.Get("/reviews/count", reviewH.Count)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/auth/me", authH.Me)
			r.With(sensitiveRL.Limit).Post("/reviews", reviewH.Submit)
		})
	})

	return r
}
