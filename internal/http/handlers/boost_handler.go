// Boost HTTP handlers.
//
// This file exposes REST endpoints for boost resources:
//   - POST   /boosts          (purchase, idempotent via Idempotency-Key)
//   - GET    /boosts          (list, paginated, ETag support)
//   - GET    /boosts/{id}     (fetch one)
//   - DELETE /boosts/{id}     (cancel)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oxum-market/go-boost-backend/internal/domain"
	"github.com/oxum-market/go-boost-backend/internal/http/middleware"
	"github.com/oxum-market/go-boost-backend/internal/ranking"
	"github.com/oxum-market/go-boost-backend/internal/repo"
	"github.com/oxum-market/go-boost-backend/internal/services"
	"github.com/oxum-market/go-boost-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// BoostService defines boost lifecycle operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type BoostService interface {
	// CreateBoost purchases and activates a boost for a listing.
	CreateBoost(ctx context.Context, actorID, listingID string, amount domain.Money, intensity int, duration time.Duration) (*domain.BoostRecord, error)
	// CancelBoost cancels an active or expiring boost owned by the actor.
	CancelBoost(ctx context.Context, actorID, boostID string) (*domain.BoostRecord, error)
	// Get returns one boost owned by the actor.
	Get(ctx context.Context, actorID, boostID string) (*domain.BoostRecord, error)
	// ListPage returns a page of the actor's boosts and the total count.
	ListPage(ctx context.Context, actorID string, page, pageSize int) ([]domain.BoostRecord, int64, error)
}

// RankService defines the ranking operation consumed by HTTP handlers.
type RankService interface {
	// Rank orders listing snapshots and reports the context used.
	Rank(ctx context.Context, candidates []ranking.Candidate, quota map[domain.ContentClass]float64, window int) ([]ranking.Candidate, ranking.Context, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for validation, boosts, and rankings.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	validatorSvc ValidatorService
	boostSvc     BoostService
	rankSvc      RankService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(validatorSvc ValidatorService, boostSvc BoostService, rankSvc RankService) *Handlers {
	return &Handlers{validatorSvc: validatorSvc, boostSvc: boostSvc, rankSvc: rankSvc}
}

// actorID extracts the authenticated actor id from Gin context (set by
// upstream middleware). If absent, it falls back to "X-Actor-ID" header
// (tests use it), and finally to "demo-actor". It never touches c.Request if
// it's nil.
func actorID(c *gin.Context) string {
	if v, ok := c.Get("actorID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-Actor-ID")); h != "" {
			return h
		}
	}
	return "demo-actor"
}

//
// DTOs
//

// CreateBoostRequest is the JSON payload for purchasing a boost.
type CreateBoostRequest struct {
	// ListingID identifies the listing receiving the boost.
	ListingID string `json:"listing_id" binding:"required" example:"listing-42"`
	// AmountCents is the purchase amount in minor units; it must match the
	// oracle price within tolerance.
	AmountCents int64 `json:"amount_cents" binding:"required" example:"505"`
	// Intensity is the boost strength (1-100).
	Intensity int `json:"intensity" binding:"required,min=1,max=100" example:"50"`
	// DurationSeconds is the boost lifetime (e.g. 86400 = 1 day).
	DurationSeconds int64 `json:"duration_seconds" binding:"required,min=1" example:"86400"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListBoostsResponse wraps a page of boosts and pagination information.
type ListBoostsResponse struct {
	Boosts     []domain.BoostRecord `json:"boosts"`
	Pagination Pagination           `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// failBusiness maps a service-level rejection onto (status, code) and answers
// with a message localized for the caller.
func failBusiness(c *gin.Context, status int, code string) {
	fail(c, status, code, localizedMessage(c, code, code))
}

//
// Handlers
//

// CreateBoost godoc
// @ID          createBoost
// @Summary     Purchase a visibility boost
// @Description Validates the price, debits the ledger, and activates a boost for the listing. Safe to retry with the same Idempotency-Key.
// @Tags        Boosts
// @Accept      json
// @Produce     json
//
// @Param       X-Actor-ID       header  string  false "Actor ID (demo header)"  example(actor123)
// @Param       Idempotency-Key  header  string  false "Replay-safe retry key"   example(9b2d...)
// @Param       Accept-Language  header  string  false "Preferred language for messages"  example(pt-BR)
// @Param       body             body    handlers.CreateBoostRequest  true  "Purchase payload"
//
// @Success     201  {object}  domain.BoostRecord
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     402  {object}  handlers.ErrorResponse  "Insufficient balance"
// @Failure     409  {object}  handlers.ErrorResponse  "Listing occupied"
// @Failure     422  {object}  handlers.ErrorResponse  "Price mismatch"
// @Failure     503  {object}  handlers.ErrorResponse  "Pricing unavailable"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /boosts [post]
func (h *Handlers) CreateBoost(c *gin.Context) {
	ctx := c.Request.Context()

	var req CreateBoostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	aid := actorID(c)
	listingID := strings.TrimSpace(req.ListingID)

	// Idempotency (replay path) – read validated key if present.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" {
		if svc, okSvc := h.boostSvc.(*services.BoostService); okSvc && svc.DB != nil {
			if rec, err := repo.GetIdempotency(ctx, svc.DB, aid, listingID, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := repo.GetBoost(ctx, svc.DB, rec.BoostID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusCreated, prev)
					return
				}
			}
		}
	}

	b, err := h.boostSvc.CreateBoost(
		ctx,
		aid,
		listingID,
		domain.Money(req.AmountCents),
		req.Intensity,
		time.Duration(req.DurationSeconds)*time.Second,
	)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidRequest),
			errors.Is(err, services.ErrInvalidAmount),
			errors.Is(err, services.ErrInvalidIntensity),
			errors.Is(err, services.ErrInvalidDuration):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrListingOccupied):
			failBusiness(c, http.StatusConflict, ErrCodeListingOccupied)
		case errors.Is(err, services.ErrPriceMismatch):
			failBusiness(c, http.StatusUnprocessableEntity, ErrCodePriceMismatch)
		case errors.Is(err, services.ErrFeeProhibited):
			failBusiness(c, http.StatusUnprocessableEntity, ErrCodeFeeProhibited)
		case errors.Is(err, services.ErrOracleUnavailable):
			failBusiness(c, http.StatusServiceUnavailable, ErrCodeOracleUnavailable)
		case errors.Is(err, services.ErrInsufficientBalance):
			failBusiness(c, http.StatusPaymentRequired, ErrCodeInsufficientBalance)
		case errors.Is(err, services.ErrLedgerUnavailable):
			fail(c, http.StatusBadGateway, ErrCodeInternal, "ledger unavailable")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		if svc, okSvc := h.boostSvc.(*services.BoostService); okSvc && svc.DB != nil {
			ttl := 24 * time.Hour
			_, _ = repo.CreateIdempotency(ctx, svc.DB, aid, listingID, idemKey, b.ID, http.StatusCreated, ttl)
		}
	}

	ok(c, http.StatusCreated, b)
}

// ListBoosts godoc
// @ID          listBoosts
// @Summary     List boosts (paginated)
// @Description Returns a page of the actor's boosts. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Boosts
// @Produce     json
//
// @Param       X-Actor-ID     header  string  false "Actor ID (demo header)"      example(actor123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListBoostsResponse
// @Header      200  {string} ETag           "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /boosts [get]
func (h *Handlers) ListBoosts(c *gin.Context) {
	ctx := c.Request.Context()
	aid := actorID(c)
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, isConcrete := h.boostSvc.(*services.BoostService); isConcrete {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.BoostsStats(ctx, db, aid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"boosts:%s:%d:%d"`, aid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	// Fetch page.
	items, total, err := h.boostSvc.ListPage(ctx, aid, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := utils.TotalPages(total, pageSize)
	resp := ListBoostsResponse{
		Boosts: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	}
	ok(c, http.StatusOK, resp)
}

// GetBoost godoc
// @ID          getBoost
// @Summary     Fetch one boost
// @Description Returns a boost owned by the current actor.
// @Tags        Boosts
// @Produce     json
//
// @Param       X-Actor-ID  header  string  false "Actor ID (demo header)"  example(actor123)
// @Param       id          path    string  true  "Boost ID (UUID)"         format(uuid)
//
// @Success     200  {object} domain.BoostRecord
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Boost not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /boosts/{id} [get]
func (h *Handlers) GetBoost(c *gin.Context) {
	boostID := c.Param("id")
	if _, err := uuid.Parse(boostID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "boost id must be a UUID")
		return
	}

	b, err := h.boostSvc.Get(c.Request.Context(), actorID(c), boostID)
	if err != nil {
		if errors.Is(err, services.ErrBoostNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "boost not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, b)
}

// CancelBoost godoc
// @ID          cancelBoost
// @Summary     Cancel a running boost
// @Description Cancels an active or expiring boost owned by the current actor. The record is kept as history; no refund is issued here.
// @Tags        Boosts
// @Produce     json
//
// @Param       X-Actor-ID       header  string  false "Actor ID (demo header)"  example(actor123)
// @Param       Accept-Language  header  string  false "Preferred language for messages"  example(pt-BR)
// @Param       id               path    string  true  "Boost ID (UUID)"         format(uuid)
//
// @Success     200  {object} domain.BoostRecord
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Not the owner"
// @Failure     404  {object} handlers.ErrorResponse "Boost not found"
// @Failure     409  {object} handlers.ErrorResponse "Invalid state"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /boosts/{id} [delete]
func (h *Handlers) CancelBoost(c *gin.Context) {
	boostID := c.Param("id")
	if _, err := uuid.Parse(boostID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "boost id must be a UUID")
		return
	}

	b, err := h.boostSvc.CancelBoost(c.Request.Context(), actorID(c), boostID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBoostNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "boost not found")
		case errors.Is(err, services.ErrForbiddenBoost):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "boost belongs to another actor")
		case errors.Is(err, services.ErrInvalidStateTransition):
			failBusiness(c, http.StatusConflict, ErrCodeInvalidState)
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, b)
}
