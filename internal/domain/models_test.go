package domain

import (
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:domain_models?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	if (BoostRecord{}).TableName() != "boost_records" {
		t.Fatalf("BoostRecord.TableName() = %q; want %q", (BoostRecord{}).TableName(), "boost_records")
	}
	if (ValidationRecord{}).TableName() != "validation_log" {
		t.Fatalf("ValidationRecord.TableName() = %q; want %q", (ValidationRecord{}).TableName(), "validation_log")
	}
}

func TestMigrations_Indexes(t *testing.T) {
	db := newDomainDB(t)

	if err := db.AutoMigrate(&BoostRecord{}, &ValidationRecord{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()

	for _, tbl := range []any{&BoostRecord{}, &ValidationRecord{}} {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}

	if !m.HasIndex(&BoostRecord{}, "idx_listing_boosts") {
		t.Fatalf("expected index idx_listing_boosts on boost_records")
	}
	if !m.HasIndex(&ValidationRecord{}, "idx_validation_request") {
		t.Fatalf("expected index idx_validation_request on validation_log")
	}
}

func TestMoney(t *testing.T) {
	if Money(-500).Abs() != 500 {
		t.Fatalf("Abs(-500) = %d; want 500", Money(-500).Abs())
	}
	if Money(505).Float64() != 5.05 {
		t.Fatalf("Float64(505) = %v; want 5.05", Money(505).Float64())
	}
}

func TestPricePolicy_EffectiveTolerance(t *testing.T) {
	p := PricePolicy{GlobalRate: 500, Tolerance: 10}
	if got := p.EffectiveTolerance(); got != 10 {
		t.Fatalf("normal mode tolerance = %d; want 10", got)
	}
	p.RecoveryMode = true
	if got := p.EffectiveTolerance(); got != 0 {
		t.Fatalf("recovery mode tolerance = %d; want 0", got)
	}
}

func TestBoostState_Transitions(t *testing.T) {
	cases := []struct {
		from, to BoostState
		want     bool
	}{
		{BoostPending, BoostActive, true},
		{BoostActive, BoostExpiring, true},
		{BoostExpiring, BoostExpired, true},
		{BoostActive, BoostCancelled, true},
		{BoostExpiring, BoostCancelled, true},
		// one-directional: no going back
		{BoostActive, BoostPending, false},
		{BoostExpiring, BoostActive, false},
		{BoostExpired, BoostActive, false},
		{BoostCancelled, BoostExpiring, false},
		// no skipping forward (other than cancel)
		{BoostPending, BoostExpiring, false},
		{BoostActive, BoostExpired, false},
		{BoostPending, BoostCancelled, false},
		// terminal states are final
		{BoostExpired, BoostCancelled, false},
		{BoostCancelled, BoostExpired, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("CanTransitionTo(%s -> %s) = %v; want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestBoostState_Occupying(t *testing.T) {
	for _, s := range []BoostState{BoostPending, BoostActive, BoostExpiring} {
		if !s.Occupying() {
			t.Errorf("%s should occupy the listing slot", s)
		}
	}
	for _, s := range []BoostState{BoostExpired, BoostCancelled} {
		if s.Occupying() {
			t.Errorf("%s should not occupy the listing slot", s)
		}
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}

func TestBoostRecord_Timing(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	b := BoostRecord{StartedAt: start, DurationSeconds: 86400}

	if got := b.ExpiresAt(); !got.Equal(start.Add(24 * time.Hour)) {
		t.Fatalf("ExpiresAt = %v", got)
	}
	// 90% of 24h = 21.6h = 77760s
	if got := b.ExpiringAt(); !got.Equal(start.Add(77760 * time.Second)) {
		t.Fatalf("ExpiringAt = %v", got)
	}

	if f := b.ElapsedFraction(start); f != 0 {
		t.Fatalf("fraction at t=0: %v", f)
	}
	if f := b.ElapsedFraction(start.Add(12 * time.Hour)); f != 0.5 {
		t.Fatalf("fraction at t=12h: %v", f)
	}
	if f := b.ElapsedFraction(start.Add(48 * time.Hour)); f != 1 {
		t.Fatalf("fraction past expiry should clamp to 1: %v", f)
	}
	if f := b.ElapsedFraction(start.Add(-time.Hour)); f != 0 {
		t.Fatalf("fraction before start should clamp to 0: %v", f)
	}

	// Defensive: non-positive durations count as already expired.
	neg := BoostRecord{StartedAt: start, DurationSeconds: -5}
	if f := neg.ElapsedFraction(start); f != 1 {
		t.Fatalf("negative duration fraction = %v; want 1", f)
	}
}
