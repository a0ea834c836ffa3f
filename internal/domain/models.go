// Package domain defines the persistence models and core value types of the
// boost governance engine. Monetary amounts, transaction categories, boost
// lifecycle states, and the audit records produced by validation all live
// here. Persisted types are mapped with GORM; value types (Money, PricePolicy,
// TransactionRequest) are plain structs shared across layers.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Money is a monetary amount in minor units (cents). Integer minor units keep
// the price-symmetry comparisons exact: the Oxum Rule demands equality within
// a tolerance, and floating point would turn that into a source of spurious
// mismatches.
type Money int64

// Abs returns the absolute value of m.
func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

// Float64 returns the amount in major units (e.g. 505 -> 5.05). Intended for
// logging and JSON presentation only; never use it for comparisons.
func (m Money) Float64() float64 { return float64(m) / 100 }

// TxCategory classifies a monetized request.
type TxCategory string

const (
	// CategoryBoostPurchase is a paid visibility boost. Subject to the
	// global-rate invariant.
	CategoryBoostPurchase TxCategory = "boost_purchase"
	// CategoryPeerTransfer is a user-to-user transfer. Must carry zero
	// platform fee.
	CategoryPeerTransfer TxCategory = "peer_transfer"
	// CategoryOther covers requests this engine does not monetize.
	CategoryOther TxCategory = "other"
)

// ReasonCode is the stable, machine-readable outcome of a validation.
type ReasonCode string

const (
	ReasonApproved      ReasonCode = "approved"
	ReasonPriceMismatch ReasonCode = "price_mismatch"
	ReasonFeeProhibited ReasonCode = "fee_prohibited"
	ReasonOracleTimeout ReasonCode = "oracle_timeout"
)

// TransactionRequest is a monetized request submitted for validation. It is
// immutable once submitted; the validator never mutates it.
type TransactionRequest struct {
	ID        string     `json:"id"`
	ActorID   string     `json:"actor_id"`
	Amount    Money      `json:"amount"`
	Category  TxCategory `json:"category"`
	Fee       Money      `json:"fee"`
	Timestamp time.Time  `json:"timestamp"`
}

// PricePolicy is the validator's snapshot of the authoritative boost price.
// It is refreshed from the price oracle and handed out copy-on-read: callers
// receive a value, never a shared pointer.
type PricePolicy struct {
	GlobalRate   Money     `json:"global_rate"`
	Tolerance    Money     `json:"tolerance"`
	RecoveryMode bool      `json:"recovery_mode"`
	AsOf         time.Time `json:"as_of"`
}

// EffectiveTolerance returns the tolerance to apply. Under recovery mode the
// tolerance is forced to zero: a stale oracle means only exact matches pass.
func (p PricePolicy) EffectiveTolerance() Money {
	if p.RecoveryMode {
		return 0
	}
	return p.Tolerance
}

// ValidationResult is the outcome of validating a single request. One is
// produced for every request, approved or not, and recorded for audit so the
// reason a request was approved remains reconstructable later.
type ValidationResult struct {
	RequestID   string     `json:"request_id"`
	Approved    bool       `json:"approved"`
	Reason      ReasonCode `json:"reason"`
	OracleRate  Money      `json:"oracle_rate"`
	OracleStale bool       `json:"oracle_stale"`
	EvaluatedAt time.Time  `json:"evaluated_at"`
}

// ValidationRecord is the persisted form of a ValidationResult. Rows are
// append-only: they are never updated or deleted.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - RequestID: identifier of the validated request; indexed for lookup.
//   - ActorID: who submitted the request.
//   - Category / Amount / Fee: the request as evaluated.
//   - Approved / Reason: the decision.
//   - OracleRate / OracleStale: the rate snapshot the decision was based on.
//   - EvaluatedAt: decision time (UTC).
type ValidationRecord struct {
	ID          string     `json:"id"           gorm:"type:char(36);primaryKey"`
	RequestID   string     `json:"request_id"   gorm:"type:varchar(64);not null;index:idx_validation_request"`
	ActorID     string     `json:"actor_id"     gorm:"type:varchar(64);not null;index"`
	Category    TxCategory `json:"category"     gorm:"type:varchar(32);not null"`
	Amount      Money      `json:"amount"       gorm:"not null"`
	Fee         Money      `json:"fee"          gorm:"not null"`
	Approved    bool       `json:"approved"     gorm:"not null"`
	Reason      ReasonCode `json:"reason"       gorm:"type:varchar(32);not null"`
	OracleRate  Money      `json:"oracle_rate"  gorm:"not null"`
	OracleStale bool       `json:"oracle_stale" gorm:"not null"`
	EvaluatedAt time.Time  `json:"evaluated_at" gorm:"not null;index"`
	CreatedAt   time.Time  `json:"created_at"`
}

// TableName returns the database table name for ValidationRecord.
func (ValidationRecord) TableName() string { return "validation_log" }

// BoostState is the lifecycle state of a boost record.
type BoostState string

const (
	// BoostPending exists only inside CreateBoost, between validation and
	// the ledger debit. It is never observable through the public API.
	BoostPending BoostState = "pending"
	// BoostActive is a paid, running boost contributing its full multiplier.
	BoostActive BoostState = "active"
	// BoostExpiring is the decay tail: past 90% of the duration the boost
	// still ranks but its multiplier decays toward baseline.
	BoostExpiring BoostState = "expiring"
	// BoostExpired is terminal: the duration elapsed.
	BoostExpired BoostState = "expired"
	// BoostCancelled is terminal: the owner cancelled an active boost.
	BoostCancelled BoostState = "cancelled"
)

// stateRank orders states along the one-directional lifecycle. Cancel is the
// only transition that skips ahead (Active/Expiring -> Cancelled); nothing
// ever moves to a lower rank.
var stateRank = map[BoostState]int{
	BoostPending:   0,
	BoostActive:    1,
	BoostExpiring:  2,
	BoostExpired:   3,
	BoostCancelled: 3,
}

// Terminal reports whether s is a final state.
func (s BoostState) Terminal() bool { return s == BoostExpired || s == BoostCancelled }

// Occupying reports whether a record in state s counts against the
// one-boost-per-listing invariant.
func (s BoostState) Occupying() bool {
	return s == BoostPending || s == BoostActive || s == BoostExpiring
}

// CanTransitionTo reports whether the lifecycle permits moving from s to next.
// Transitions are monotonic: pending -> active -> expiring -> expired, with
// cancel allowed from active or expiring only.
func (s BoostState) CanTransitionTo(next BoostState) bool {
	if s.Terminal() {
		return false
	}
	if next == BoostCancelled {
		return s == BoostActive || s == BoostExpiring
	}
	return stateRank[next] == stateRank[s]+1
}

// ContentClass groups listings for fairness quotas (e.g. automated vs
// human-operated).
type ContentClass string

const (
	ClassHuman     ContentClass = "human"
	ClassAutomated ContentClass = "automated"
)

// BoostRecord is a paid, time-bounded visibility boost applied to a listing.
// Records are never deleted; terminal states are kept as audit history. The
// Version column backs optimistic concurrency: every state transition is a
// compare-and-swap on (id, version).
type BoostRecord struct {
	ID              string         `json:"id"               gorm:"type:char(36);primaryKey"`
	ListingID       string         `json:"listing_id"       gorm:"type:varchar(64);not null;index:idx_listing_boosts"`
	ActorID         string         `json:"actor_id"         gorm:"type:varchar(64);not null;index"`
	Amount          Money          `json:"amount"           gorm:"not null"`
	Intensity       int            `json:"intensity"        gorm:"not null;check:intensity BETWEEN 0 AND 100"`
	StartedAt       time.Time      `json:"started_at"       gorm:"not null"`
	DurationSeconds int64          `json:"duration_seconds" gorm:"not null"`
	State           BoostState     `json:"state"            gorm:"type:varchar(16);not null;index"`
	Version         int64          `json:"-"                gorm:"not null;default:1"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-"                gorm:"index"`
}

// TableName returns the database table name for BoostRecord.
func (BoostRecord) TableName() string { return "boost_records" }

// Duration returns the boost duration as a time.Duration.
func (b BoostRecord) Duration() time.Duration {
	return time.Duration(b.DurationSeconds) * time.Second
}

// ExpiresAt returns the instant the boost fully expires.
func (b BoostRecord) ExpiresAt() time.Time { return b.StartedAt.Add(b.Duration()) }

// ExpiringAt returns the instant the boost enters its decay tail (90% of the
// duration elapsed).
func (b BoostRecord) ExpiringAt() time.Time {
	return b.StartedAt.Add(time.Duration(float64(b.Duration()) * 0.9))
}

// ElapsedFraction returns how much of the boost window has passed at now,
// clamped to [0, 1]. A non-positive duration counts as fully elapsed.
func (b BoostRecord) ElapsedFraction(now time.Time) float64 {
	if b.DurationSeconds <= 0 {
		return 1
	}
	f := now.Sub(b.StartedAt).Seconds() / float64(b.DurationSeconds)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
