// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/oxum-market/go-boost-backend/internal/config"
	"github.com/oxum-market/go-boost-backend/internal/domain"
	"github.com/oxum-market/go-boost-backend/internal/http/handlers"
	"github.com/oxum-market/go-boost-backend/internal/http/middleware"
	"github.com/oxum-market/go-boost-backend/internal/ledger"
	"github.com/oxum-market/go-boost-backend/internal/ranking"
	"github.com/oxum-market/go-boost-backend/internal/repo"
	"github.com/oxum-market/go-boost-backend/internal/services"
)

// boostRepoShim adapts the repository free functions to the services.BoostRepo
// interface expected by the BoostService. This keeps services decoupled from
// the concrete repo package while reusing existing functions.
type boostRepoShim struct{}

// CreateBoost proxies repo.CreateBoost.
func (boostRepoShim) CreateBoost(ctx context.Context, db *gorm.DB, listingID, actorID string, amount domain.Money, intensity int, duration time.Duration, state domain.BoostState) (*domain.BoostRecord, error) {
	return repo.CreateBoost(ctx, db, listingID, actorID, amount, intensity, duration, state)
}

// GetBoost proxies repo.GetBoost.
func (boostRepoShim) GetBoost(ctx context.Context, db *gorm.DB, id string) (*domain.BoostRecord, error) {
	return repo.GetBoost(ctx, db, id)
}

// GetOccupyingBoost proxies repo.GetOccupyingBoost.
func (boostRepoShim) GetOccupyingBoost(ctx context.Context, db *gorm.DB, listingID string) (*domain.BoostRecord, error) {
	return repo.GetOccupyingBoost(ctx, db, listingID)
}

// TransitionBoost proxies repo.TransitionBoost (optimistic locking).
func (boostRepoShim) TransitionBoost(ctx context.Context, db *gorm.DB, id string, from, to domain.BoostState, version int64) error {
	return repo.TransitionBoost(ctx, db, id, from, to, version)
}

// DiscardBoost proxies repo.DiscardBoost.
func (boostRepoShim) DiscardBoost(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DiscardBoost(ctx, db, id)
}

// CountBoosts proxies repo.CountBoosts (pagination support).
func (boostRepoShim) CountBoosts(ctx context.Context, db *gorm.DB, actorID string) (int64, error) {
	return repo.CountBoosts(ctx, db, actorID)
}

// ListBoostsPage proxies repo.ListBoostsPage (pagination support).
func (boostRepoShim) ListBoostsPage(ctx context.Context, db *gorm.DB, actorID string, offset, limit int) ([]domain.BoostRecord, error) {
	return repo.ListBoostsPage(ctx, db, actorID, offset, limit)
}

// auditRepoShim adapts the repository free functions to the services.AuditRepo
// interface expected by the ValidatorService.
type auditRepoShim struct{}

// RecordValidation proxies repo.RecordValidation.
func (auditRepoShim) RecordValidation(ctx context.Context, db *gorm.DB, req domain.TransactionRequest, res domain.ValidationResult) (*domain.ValidationRecord, error) {
	return repo.RecordValidation(ctx, db, req, res)
}

// rankLookupShim adapts the repository free functions to the
// services.BoostLookup interface expected by the RankService.
type rankLookupShim struct{}

// ListBoostsForListings proxies repo.ListBoostsForListings.
func (rankLookupShim) ListBoostsForListings(ctx context.Context, db *gorm.DB, listingIDs []string) (map[string]domain.BoostRecord, error) {
	return repo.ListBoostsForListings(ctx, db, listingIDs)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip compression
//  7. Metrics
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per actor/IP, bypass on replay)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, oracleSrc services.PriceSource, ledgerGW ledger.Gateway, loadSrc services.LoadProvider, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-API-Key", // project-specific sensitive header example
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Gzip compression for responses
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, actorID, listingID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, actorID, listingID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 9) Token-bucket rate limiter per actor/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByActorOrIP())
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Accept-Language", "Authorization", "X-Actor-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Accept-Language", "Authorization", "X-Actor-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Swagger UI (dev/docs only)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/oracle/ledger/load
	validatorSvc := &services.ValidatorService{
		DB:     db,
		Oracle: oracleSrc,
		Audit:  auditRepoShim{},
	}
	boostSvc := &services.BoostService{
		DB:          db,
		Repo:        boostRepoShim{},
		Validator:   validatorSvc,
		Ledger:      ledgerGW,
		MinDuration: cfg.Engine.MinDuration,
		MaxDuration: cfg.Engine.MaxDuration,
	}
	rankSvc := &services.RankService{
		DB:         db,
		Repo:       rankLookupShim{},
		Ranker:     ranking.New(ranking.WithLoadSensitivity(cfg.Engine.LoadSensitivity), ranking.WithDefaultWindow(cfg.Engine.RankWindowSize)),
		Load:       loadSrc,
		WindowSize: cfg.Engine.RankWindowSize,
	}
	h := handlers.New(validatorSvc, boostSvc, rankSvc)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Transactions
		api.POST("/transactions/validate", h.ValidateTransaction)

		// Boosts
		api.POST("/boosts", h.CreateBoost)
		api.GET("/boosts", h.ListBoosts)
		api.GET("/boosts/:id", h.GetBoost)
		api.DELETE("/boosts/:id", h.CancelBoost)

		// Rankings
		api.POST("/rankings", h.RankListings)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
