// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the append-only
// validation audit log. Records are inserted once and never updated or
// deleted; reconstruction of any past decision only needs a read.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oxum-market/go-boost-backend/internal/domain"
)

// RecordValidation appends one audit row for a validation decision. CreatedAt
// and the row ID are assigned here; everything else comes from the request
// and its result.
func RecordValidation(ctx context.Context, db *gorm.DB, req domain.TransactionRequest, res domain.ValidationResult) (*domain.ValidationRecord, error) {
	rec := &domain.ValidationRecord{
		ID:          uuid.NewString(),
		RequestID:   req.ID,
		ActorID:     req.ActorID,
		Category:    req.Category,
		Amount:      req.Amount,
		Fee:         req.Fee,
		Approved:    res.Approved,
		Reason:      res.Reason,
		OracleRate:  res.OracleRate,
		OracleStale: res.OracleStale,
		EvaluatedAt: res.EvaluatedAt,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

// ListValidationsByRequest returns every audit row recorded for a request ID,
// oldest first. Retried requests legitimately produce multiple rows.
func ListValidationsByRequest(ctx context.Context, db *gorm.DB, requestID string) ([]domain.ValidationRecord, error) {
	var out []domain.ValidationRecord
	err := db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("evaluated_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// CountValidations returns the total number of audit rows for actorID.
func CountValidations(ctx context.Context, db *gorm.DB, actorID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ValidationRecord{}).
		Where("actor_id = ?", actorID).
		Count(&total).Error
	return total, err
}

// ListValidationsPage returns a paginated slice of audit rows for actorID,
// newest first. Use CountValidations for pagination metadata.
func ListValidationsPage(ctx context.Context, db *gorm.DB, actorID string, offset, limit int) ([]domain.ValidationRecord, error) {
	var out []domain.ValidationRecord
	err := db.WithContext(ctx).
		Where("actor_id = ?", actorID).
		Order("evaluated_at desc, id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
