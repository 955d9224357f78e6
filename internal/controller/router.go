package controller

import (
	"time"

	"github.com/corvael/provision-api/internal/config"
	customMW "github.com/corvael/provision-api/internal/middleware"
	"github.com/corvael/provision-api/internal/observability"
	"github.com/corvael/provision-api/internal/ratelimit"
	"github.com/corvael/provision-api/internal/service"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type RouterDeps struct {
	Pool             *pgxpool.Pool
	RedisClient      *redis.Client
	ProvisionService *service.ProvisionService
	Limiter          ratelimit.Limiter
	Metrics          *observability.Metrics
	Logger           zerolog.Logger
	CORSConfig       config.CORSConfig
	EnableTracing    bool
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	if deps.EnableTracing {
		r.Use(customMW.Tracing())
	}
	r.Use(chimw.RealIP)
	r.Use(customMW.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSConfig.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: deps.CORSConfig.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))

	healthH := NewHealthController(deps.Pool, deps.RedisClient)
	provisionH := NewProvisionController(deps.ProvisionService)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		rateLimitMW := customMW.RateLimit(deps.Limiter, deps.Metrics)

		r.With(rateLimitMW).Post("/provision", provisionH.Provision)
	})

	return r
}
