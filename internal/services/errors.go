// Package services defines the business logic for transaction validation,
// boost lifecycle management, and listing ranking. This file centralizes
// common service-level error values so that they can be consistently returned
// by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import (
	"errors"
	"fmt"
)

// Validation errors.
var (
	// ErrPriceMismatch is returned when a boost purchase amount differs from
	// the oracle price by more than the configured tolerance.
	ErrPriceMismatch = errors.New("amount does not match the current boost price")

	// ErrFeeProhibited is returned when a peer-to-peer transfer carries a
	// non-zero fee. Peer transfers are always fee-free.
	ErrFeeProhibited = errors.New("peer transfers must carry no fee")

	// ErrOracleUnavailable is returned when no pricing data, fresh or cached,
	// can be obtained. Validation fails closed: no approval without a price.
	ErrOracleUnavailable = errors.New("pricing oracle unavailable")

	// ErrInvalidAmount is returned when a transaction amount is zero or
	// negative.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidRequest is returned when a request is missing its identifiers.
	ErrInvalidRequest = errors.New("request id and actor id are required")
)

// Boost lifecycle errors.
var (
	// ErrBoostNotFound indicates that the requested boost does not exist or is
	// not accessible to the current actor.
	ErrBoostNotFound = errors.New("boost not found")

	// ErrListingOccupied is returned when a listing already has a boost in a
	// slot-occupying state (pending, active, or expiring). It wraps
	// ErrInvalidStateTransition so callers can match either the specific
	// conflict or the broader state-machine failure.
	ErrListingOccupied = fmt.Errorf("%w: listing already has an occupying boost", ErrInvalidStateTransition)

	// ErrInvalidStateTransition is returned when a boost cannot move to the
	// requested state from its current one.
	ErrInvalidStateTransition = errors.New("invalid boost state transition")

	// ErrInvalidDuration is returned when a requested boost duration falls
	// outside the configured bounds.
	ErrInvalidDuration = errors.New("boost duration out of bounds")

	// ErrInvalidIntensity is returned when a requested boost intensity is not
	// in the 1..100 range.
	ErrInvalidIntensity = errors.New("boost intensity must be between 1 and 100")

	// ErrForbiddenBoost is returned when an actor attempts to cancel or
	// inspect a boost they do not own.
	ErrForbiddenBoost = errors.New("boost belongs to another actor")
)

// Ledger errors.
var (
	// ErrInsufficientBalance is returned when the ledger rejects a debit
	// because the actor's balance cannot cover the amount.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrLedgerUnavailable is returned when the ledger cannot be reached or
	// responds with an unexpected failure. The purchase is aborted and no
	// boost is activated.
	ErrLedgerUnavailable = errors.New("ledger unavailable")
)
