package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oxum-market/go-boost-backend/internal/domain"
)

func newAuditRepoDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("audit_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(&domain.ValidationRecord{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestRecordValidation_PersistsDecision(t *testing.T) {
	db := newAuditRepoDB(t)
	ctx := context.Background()

	req := domain.TransactionRequest{
		ID:       "req-1",
		ActorID:  "a1",
		Amount:   505,
		Category: domain.CategoryBoostPurchase,
		Fee:      0,
	}
	res := domain.ValidationResult{
		RequestID:   "req-1",
		Approved:    false,
		Reason:      domain.ReasonPriceMismatch,
		OracleRate:  500,
		OracleStale: true,
		EvaluatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	rec, err := RecordValidation(ctx, db, req, res)
	if err != nil {
		t.Fatalf("RecordValidation: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("ID not assigned")
	}

	var got domain.ValidationRecord
	if err := db.First(&got, "id = ?", rec.ID).Error; err != nil {
		t.Fatalf("load record: %v", err)
	}
	if got.RequestID != "req-1" || got.Approved || got.Reason != domain.ReasonPriceMismatch {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
	if got.OracleRate != 500 || !got.OracleStale {
		t.Fatalf("oracle snapshot not persisted: %+v", got)
	}
}

func TestListValidationsByRequest_OrderedOldestFirst(t *testing.T) {
	db := newAuditRepoDB(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	req := domain.TransactionRequest{ID: "req-1", ActorID: "a1", Category: domain.CategoryBoostPurchase}
	for i, reason := range []domain.ReasonCode{domain.ReasonOracleTimeout, domain.ReasonApproved} {
		_, err := RecordValidation(ctx, db, req, domain.ValidationResult{
			RequestID:   "req-1",
			Approved:    reason == domain.ReasonApproved,
			Reason:      reason,
			EvaluatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	got, err := ListValidationsByRequest(ctx, db, "req-1")
	if err != nil {
		t.Fatalf("ListValidationsByRequest: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d; want 2", len(got))
	}
	if got[0].Reason != domain.ReasonOracleTimeout || got[1].Reason != domain.ReasonApproved {
		t.Fatalf("order wrong: %s then %s", got[0].Reason, got[1].Reason)
	}
}

func TestListValidationsPage_AndCount(t *testing.T) {
	db := newAuditRepoDB(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		req := domain.TransactionRequest{ID: fmt.Sprintf("req-%d", i), ActorID: "a1", Category: domain.CategoryPeerTransfer}
		_, err := RecordValidation(ctx, db, req, domain.ValidationResult{
			RequestID:   req.ID,
			Approved:    true,
			Reason:      domain.ReasonApproved,
			EvaluatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	total, err := CountValidations(ctx, db, "a1")
	if err != nil || total != 4 {
		t.Fatalf("CountValidations = %d, %v; want 4", total, err)
	}

	page, err := ListValidationsPage(ctx, db, "a1", 1, 2)
	if err != nil {
		t.Fatalf("ListValidationsPage: %v", err)
	}
	if len(page) != 2 || page[0].RequestID != "req-2" || page[1].RequestID != "req-1" {
		t.Fatalf("unexpected page: %+v", page)
	}
}
