// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// Idempotency represents a recorded result of a previously processed boost
// purchase, keyed by (actor_id, listing_id, key). It enables safe retries of
// the purchase endpoint: replaying the same Idempotency-Key returns the
// originally created boost instead of debiting the ledger twice.
type Idempotency struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	ActorID   string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_actor_listing_key,priority:1"`
	ListingID string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_actor_listing_key,priority:2"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_actor_listing_key,priority:3"`
	BoostID   string    `gorm:"type:TEXT NOT NULL"`
	Status    int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
