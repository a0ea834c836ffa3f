// Transaction validation HTTP handlers.
//
// This file exposes the pre-payment validation endpoint:
//   - POST /transactions/validate
//
// The endpoint is a pure decision: it never moves money. A rejected request
// still answers 200 with approved=false and a stable reason code; HTTP errors
// are reserved for malformed input and infrastructure failures.
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oxum-market/go-boost-backend/internal/domain"
	"github.com/oxum-market/go-boost-backend/internal/services"
)

// ValidatorService defines the validation operation consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ValidatorService interface {
	// Validate evaluates a monetized request and audits the decision.
	Validate(ctx context.Context, req domain.TransactionRequest) (*domain.ValidationResult, error)
}

// ValidateTransactionRequest is the JSON payload for a validation check.
type ValidateTransactionRequest struct {
	// RequestID correlates the decision with the caller's transaction. A
	// fresh UUID is assigned when omitted.
	RequestID string `json:"request_id" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	// AmountCents is the transaction amount in minor units (e.g. 505 = 5.05).
	AmountCents int64 `json:"amount_cents" binding:"required" example:"505"`
	// Category is one of boost_purchase, peer_transfer, other.
	Category string `json:"category" binding:"required" example:"boost_purchase"`
	// FeeCents is the platform fee in minor units.
	FeeCents int64 `json:"fee_cents" example:"0"`
}

// ValidateTransactionResponse reports the decision.
type ValidateTransactionResponse struct {
	RequestID   string    `json:"request_id"`
	Approved    bool      `json:"approved"`
	Reason      string    `json:"reason"`
	Message     string    `json:"message,omitempty"`
	OracleRate  int64     `json:"oracle_rate_cents"`
	OracleStale bool      `json:"oracle_stale"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// reasonToCode maps decision reasons onto the HTTP error code taxonomy used
// for localized user-facing messages.
var reasonToCode = map[domain.ReasonCode]string{
	domain.ReasonPriceMismatch: ErrCodePriceMismatch,
	domain.ReasonFeeProhibited: ErrCodeFeeProhibited,
	domain.ReasonOracleTimeout: ErrCodeOracleUnavailable,
}

// ValidateTransaction godoc
// @ID          validateTransaction
// @Summary     Validate a monetized transaction
// @Description Evaluates the request against the pricing invariants and returns the decision. No money moves.
// @Tags        Transactions
// @Accept      json
// @Produce     json
//
// @Param       X-Actor-ID       header  string  false "Actor ID (demo header)"  example(actor123)
// @Param       Accept-Language  header  string  false "Preferred language for messages"  example(pt-BR)
// @Param       body             body    handlers.ValidateTransactionRequest  true  "Transaction to validate"
//
// @Success     200  {object}  handlers.ValidateTransactionResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /transactions/validate [post]
func (h *Handlers) ValidateTransaction(c *gin.Context) {
	var req ValidateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	category := domain.TxCategory(strings.TrimSpace(req.Category))
	switch category {
	case domain.CategoryBoostPurchase, domain.CategoryPeerTransfer, domain.CategoryOther:
	default:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown category")
		return
	}

	requestID := strings.TrimSpace(req.RequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	res, err := h.validatorSvc.Validate(c.Request.Context(), domain.TransactionRequest{
		ID:        requestID,
		ActorID:   actorID(c),
		Amount:    domain.Money(req.AmountCents),
		Category:  category,
		Fee:       domain.Money(req.FeeCents),
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		switch err {
		case services.ErrInvalidAmount, services.ErrInvalidRequest:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeValidateFailed, err.Error())
		}
		return
	}

	resp := ValidateTransactionResponse{
		RequestID:   res.RequestID,
		Approved:    res.Approved,
		Reason:      string(res.Reason),
		OracleRate:  int64(res.OracleRate),
		OracleStale: res.OracleStale,
		EvaluatedAt: res.EvaluatedAt,
	}
	if !res.Approved {
		if code, okc := reasonToCode[res.Reason]; okc {
			resp.Message = localizedMessage(c, code, string(res.Reason))
		}
	}
	ok(c, http.StatusOK, resp)
}
