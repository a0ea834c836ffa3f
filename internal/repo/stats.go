// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer. Each function is context-aware and safe to call from services or
// handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/oxum-market/go-boost-backend/internal/domain"
)

// BoostsStats returns aggregate metadata for an actor's boosts: the total
// number of rows and the maximum UpdatedAt timestamp among those rows.
//
// It executes two lightweight queries against the boost_records table scoped
// to the provided actorID. When the actor has no boosts, the returned count
// is 0 and maxUpdatedAt is nil.
//
// Return values:
//   - count:        total boosts for actorID
//   - maxUpdatedAt: pointer to the greatest UpdatedAt, or nil if no rows
//   - err:          database error, if any
func BoostsStats(ctx context.Context, db *gorm.DB, actorID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.BoostRecord{}).Where("actor_id = ?", actorID)

	// Count
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// StateCounts returns the number of boosts currently in each lifecycle state.
// Exposed for operational introspection; the sweeper and dashboards both use
// it.
func StateCounts(ctx context.Context, db *gorm.DB) (map[domain.BoostState]int64, error) {
	var rows []struct {
		State domain.BoostState
		N     int64
	}
	err := db.WithContext(ctx).
		Model(&domain.BoostRecord{}).
		Select("state, COUNT(*) as n").
		Group("state").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[domain.BoostState]int64, len(rows))
	for _, r := range rows {
		out[r.State] = r.N
	}
	return out, nil
}
