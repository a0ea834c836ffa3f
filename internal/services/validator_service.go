// Package services – ValidatorService
//
// This file implements ValidatorService, the component that decides whether a
// monetized request may proceed before any money moves. Boost purchases must
// match the oracle's global rate within the configured tolerance; peer
// transfers must carry zero fee. Every decision, approved or not, is appended
// to the validation audit log in the same call: a decision that was not
// recorded did not happen.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// the request identifiers and the decision outcome.
package services

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/oxum-market/go-boost-backend/internal/domain"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// validationDecisions counts validator outcomes by reason code.
var validationDecisions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "validation_decisions_total",
		Help: "Total validation decisions by reason code.",
	},
	[]string{"reason"},
)

func init() {
	prometheus.MustRegister(validationDecisions)
}

// PriceSource supplies the current price policy. The bool reports whether the
// policy came from a stale cache rather than a live oracle read.
type PriceSource interface {
	Policy(ctx context.Context) (domain.PricePolicy, bool, error)
}

// AuditRepo defines the persistence contract for validation decisions.
type AuditRepo interface {
	// RecordValidation appends one audit row for a decision.
	RecordValidation(ctx context.Context, db *gorm.DB, req domain.TransactionRequest, res domain.ValidationResult) (*domain.ValidationRecord, error)
}

// ValidatorService enforces the pricing invariants on monetized requests.
type ValidatorService struct {
	// DB is the GORM handle used for audit persistence.
	DB *gorm.DB
	// Oracle supplies the authoritative boost rate.
	Oracle PriceSource
	// Audit is the audit-log repository used by this service.
	Audit AuditRepo
}

// Validate evaluates one request and returns the decision. The request is
// never mutated and the decision is audited before it is returned; an audit
// write failure fails the whole call.
//
// Decision rules:
//   - Peer transfers: approved iff the fee is exactly zero. The fee rule is
//     checked before anything else, so a fee-carrying transfer is rejected
//     (and audited) no matter what the amount looks like.
//   - Boost purchases: approved iff |amount - rate| <= tolerance, where the
//     tolerance drops to zero when the oracle quote is in recovery mode.
//     With no quote at all the request is rejected (never approved blind).
//   - Other categories are not monetized by this engine and pass through.
func (s *ValidatorService) Validate(ctx context.Context, req domain.TransactionRequest) (*domain.ValidationResult, error) {
	tr := otel.Tracer("services/ValidatorService")
	ctx, span := tr.Start(ctx, "Validate",
		trace.WithAttributes(
			attribute.String("request.id", req.ID),
			attribute.String("request.category", string(req.Category)),
		),
	)
	defer span.End()

	if strings.TrimSpace(req.ID) == "" || strings.TrimSpace(req.ActorID) == "" {
		return nil, ErrInvalidRequest
	}

	res := domain.ValidationResult{
		RequestID:   req.ID,
		EvaluatedAt: time.Now().UTC(),
	}

	switch req.Category {
	case domain.CategoryPeerTransfer:
		// The zero-fee rule outranks everything else, including the sign of
		// the amount: a fee-carrying transfer is rejected and audited, never
		// bounced as malformed input.
		if req.Fee != 0 {
			res.Reason = domain.ReasonFeeProhibited
			break
		}
		if req.Amount <= 0 {
			return nil, ErrInvalidAmount
		}
		res.Approved = true
		res.Reason = domain.ReasonApproved

	case domain.CategoryBoostPurchase:
		if req.Amount <= 0 {
			return nil, ErrInvalidAmount
		}
		policy, stale, err := s.Oracle.Policy(ctx)
		if err != nil {
			// Fail closed: no price, no approval.
			res.Reason = domain.ReasonOracleTimeout
			res.OracleStale = true
			break
		}
		res.OracleRate = policy.GlobalRate
		res.OracleStale = stale
		if (req.Amount - policy.GlobalRate).Abs() <= policy.EffectiveTolerance() {
			res.Approved = true
			res.Reason = domain.ReasonApproved
		} else {
			res.Reason = domain.ReasonPriceMismatch
		}

	default:
		res.Approved = true
		res.Reason = domain.ReasonApproved
	}

	span.SetAttributes(
		attribute.Bool("decision.approved", res.Approved),
		attribute.String("decision.reason", string(res.Reason)),
	)
	validationDecisions.WithLabelValues(string(res.Reason)).Inc()

	if _, err := s.Audit.RecordValidation(ctx, s.DB, req, res); err != nil {
		return nil, err
	}
	return &res, nil
}
