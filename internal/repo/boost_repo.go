// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the BoostRecord
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a boost is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - State transitions are compare-and-swap on (id, state, version); a lost
//     race surfaces as ErrStale rather than silently overwriting.
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// This repository is designed to be wrapped by a higher-level service
// (see services.BoostService) which enforces the lifecycle rules, validation,
// and ledger coordination.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oxum-market/go-boost-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrStale is returned when a compare-and-swap state transition matched no
// row: the record was concurrently modified (or is not in the expected
// state).
var ErrStale = errors.New("stale record version")

// occupyingStates are the states that count against the one-boost-per-listing
// invariant.
var occupyingStates = []domain.BoostState{
	domain.BoostPending,
	domain.BoostActive,
	domain.BoostExpiring,
}

// CreateBoost inserts a new boost row for listingID owned by actorID. The
// boost ID is a randomly generated UUID (string), Version starts at 1, and
// StartedAt is set to UTC now.
//
// On success, it returns the persisted BoostRecord. On failure, it returns a
// DB error.
func CreateBoost(ctx context.Context, db *gorm.DB, listingID, actorID string, amount domain.Money, intensity int, duration time.Duration, state domain.BoostState) (*domain.BoostRecord, error) {
	b := &domain.BoostRecord{
		ID:              uuid.NewString(),
		ListingID:       listingID,
		ActorID:         actorID,
		Amount:          amount,
		Intensity:       intensity,
		StartedAt:       time.Now().UTC(),
		DurationSeconds: int64(duration / time.Second),
		State:           state,
		Version:         1,
	}
	if err := db.WithContext(ctx).Create(b).Error; err != nil {
		return nil, err
	}
	return b, nil
}

// GetBoost fetches a single boost by its ID. If the record does not exist,
// it returns ErrNotFound. On other DB errors, the raw error is returned.
func GetBoost(ctx context.Context, db *gorm.DB, id string) (*domain.BoostRecord, error) {
	var b domain.BoostRecord
	if err := db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// GetOccupyingBoost returns the boost currently occupying listingID (pending,
// active, or expiring), or ErrNotFound when the listing is free.
func GetOccupyingBoost(ctx context.Context, db *gorm.DB, listingID string) (*domain.BoostRecord, error) {
	var b domain.BoostRecord
	err := db.WithContext(ctx).
		Where("listing_id = ? AND state IN ?", listingID, occupyingStates).
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// TransitionBoost moves a boost from one state to another with optimistic
// concurrency: the update matches (id, from, version) and bumps the version.
// If no row matches, the record either does not exist (ErrNotFound) or lost
// a race (ErrStale).
func TransitionBoost(ctx context.Context, db *gorm.DB, id string, from, to domain.BoostState, version int64) error {
	res := db.WithContext(ctx).
		Model(&domain.BoostRecord{}).
		Where("id = ? AND state = ? AND version = ?", id, from, version).
		Updates(map[string]any{
			"state":      to,
			"version":    version + 1,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := db.WithContext(ctx).
			Model(&domain.BoostRecord{}).
			Where("id = ?", id).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrStale
	}
	return nil
}

// DiscardBoost soft-deletes a boost row. Only pending records that never
// reached the ledger are discarded; everything else is audit history and
// stays.
func DiscardBoost(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND state = ?", id, domain.BoostPending).
		Delete(&domain.BoostRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListBoostsInStates returns every boost in one of the given states, ordered
// by start time ascending. Used by the lifecycle sweeper; the result set is
// bounded by the number of concurrently running boosts.
func ListBoostsInStates(ctx context.Context, db *gorm.DB, states ...domain.BoostState) ([]domain.BoostRecord, error) {
	var out []domain.BoostRecord
	err := db.WithContext(ctx).
		Where("state IN ?", states).
		Order("started_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// ListBoostsForListings returns the occupying boosts for the given listing
// IDs, keyed by listing. A listing with no occupying boost is absent from
// the map.
func ListBoostsForListings(ctx context.Context, db *gorm.DB, listingIDs []string) (map[string]domain.BoostRecord, error) {
	if len(listingIDs) == 0 {
		return map[string]domain.BoostRecord{}, nil
	}
	var rows []domain.BoostRecord
	err := db.WithContext(ctx).
		Where("listing_id IN ? AND state IN ?", listingIDs, occupyingStates).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.BoostRecord, len(rows))
	for _, b := range rows {
		out[b.ListingID] = b
	}
	return out, nil
}

// CountBoosts returns the total number of boosts owned by actorID.
// On DB error, it returns the error.
func CountBoosts(ctx context.Context, db *gorm.DB, actorID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.BoostRecord{}).
		Where("actor_id = ?", actorID).
		Count(&total).Error
	return total, err
}

// ListBoostsPage returns a paginated slice of boosts for actorID, ordered by
// creation time descending. Use CountBoosts to obtain the total for
// pagination metadata. On DB error, it returns the error.
//
// The caller is responsible for computing offset and limit (e.g., (page-1)*pageSize).
func ListBoostsPage(ctx context.Context, db *gorm.DB, actorID string, offset, limit int) ([]domain.BoostRecord, error) {
	var out []domain.BoostRecord
	err := db.WithContext(ctx).
		Where("actor_id = ?", actorID).
		Order("created_at desc, id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
