package models

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func strPtr(s string) *string { return &s }

func TestClient_HasEmail(t *testing.T) {
	tests := []struct {
		name  string
		email *string
		want  bool
	}{
		{"nil", nil, false},
		{"empty", strPtr(""), false},
		{"blank", strPtr("   "), false},
		{"set", strPtr("a@example.com"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{Email: tt.email}
			if got := c.HasEmail(); got != tt.want {
				t.Errorf("HasEmail() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClient_TaxConsistent(t *testing.T) {
	c := &Client{
		Rate:                decimal.RequireFromString("10000.00"),
		CGST:                decimal.RequireFromString("900.00"),
		SGST:                decimal.RequireFromString("900.00"),
		TotalTax:            decimal.RequireFromString("1800.00"),
		TotalAmountAfterTax: decimal.RequireFromString("11800.00"),
	}
	if !c.TaxConsistent() {
		t.Fatalf("expected consistent totals, computed tax %s", c.ComputedTax())
	}
	c.TotalAmountAfterTax = decimal.RequireFromString("11000.00")
	if c.TaxConsistent() {
		t.Fatalf("expected inconsistent totals")
	}
}

func TestInvoiceStatus_Valid(t *testing.T) {
	for _, s := range []InvoiceStatus{InvoiceStatusPending, InvoiceStatusGenerated, InvoiceStatusSent, InvoiceStatusFailed} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if InvoiceStatus("draft").Valid() {
		t.Errorf("draft should not be valid")
	}
}

func TestCycleLabel(t *testing.T) {
	got := CycleLabel(time.Date(2025, time.July, 31, 23, 0, 0, 0, time.UTC))
	if got != "July 2025" {
		t.Fatalf("CycleLabel() = %q, want July 2025", got)
	}
}

func TestHooksAssignIDs(t *testing.T) {
	db := setupTestDB(t)
	c := Client{Name: "Acme", AtSite: "Pune", State: "MH", ServiceDescription: "Security", AmountInWords: "Ten"}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("create client: %v", err)
	}
	if len(c.ID) != 36 {
		t.Fatalf("expected uuid id, got %q", c.ID)
	}
	inv := Invoice{ClientID: c.ID, Number: "INV-2025-0001", Dated: time.Now(), MonthYear: "July 2025"}
	if err := db.Create(&inv).Error; err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	var stored Invoice
	if err := db.First(&stored, "id = ?", inv.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status != InvoiceStatusPending {
		t.Fatalf("default status = %q, want pending", stored.Status)
	}

	entry := LogEntry{Action: ActionGenerated, ClientID: &c.ID}
	if err := db.Create(&entry).Error; err != nil {
		t.Fatalf("create log: %v", err)
	}
	if entry.Status != LogStatusInfo || entry.Timestamp.IsZero() {
		t.Fatalf("expected defaults, got status=%q ts=%v", entry.Status, entry.Timestamp)
	}
}

func TestClientNameSiteUnique(t *testing.T) {
	db := setupTestDB(t)
	base := Client{Name: "Acme", AtSite: "Pune", State: "MH", ServiceDescription: "Security", AmountInWords: "Ten"}
	first := base
	if err := db.Create(&first).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := base
	if err := db.Create(&dup).Error; !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected duplicated key error, got %v", err)
	}
	other := base
	other.AtSite = "Mumbai"
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("same name at another site should be allowed: %v", err)
	}
}

func TestLogEntryImmutable(t *testing.T) {
	db := setupTestDB(t)
	entry := LogEntry{Action: ActionSent, Status: LogStatusSuccess}
	if err := db.Create(&entry).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	entry.Details = "changed"
	if err := db.Save(&entry).Error; !errors.Is(err, ErrLogEntryImmutable) {
		t.Fatalf("expected immutable error, got %v", err)
	}
}
