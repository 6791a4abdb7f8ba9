package stats

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/gst-invoices/internal/models"
	"github.com/diewo77/gst-invoices/internal/repository"
)

func TestMonthBounds(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		wantFirst string
		wantLast  string
	}{
		{"mid month", time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC), "2025-07-01 00:00:00", "2025-07-31 23:59:59"},
		{"leap february", time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC), "2024-02-01 00:00:00", "2024-02-29 23:59:59"},
		{"december", time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), "2025-12-01 00:00:00", "2025-12-31 23:59:59"},
	}
	const layout = "2006-01-02 15:04:05"
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last := MonthBounds(tt.now)
			if got := first.Format(layout); got != tt.wantFirst {
				t.Errorf("first = %s, want %s", got, tt.wantFirst)
			}
			if got := last.Format(layout); got != tt.wantLast {
				t.Errorf("last = %s, want %s", got, tt.wantLast)
			}
		})
	}
}

func setupStore(t *testing.T) *repository.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repository.New(db)
}

func TestCompute(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	for _, name := range []string{"Alpha", "Beta"} {
		c := &models.Client{
			Name: name, AtSite: "HQ", State: "Goa", ServiceDescription: "Housekeeping",
			Rate: decimal.NewFromInt(100), TotalAmountAfterTax: decimal.NewFromInt(118), AmountInWords: "x",
		}
		if err := store.CreateClient(ctx, c); err != nil {
			t.Fatalf("create client: %v", err)
		}
	}
	clients, err := store.ListClients(ctx)
	if err != nil {
		t.Fatalf("list clients: %v", err)
	}

	now := time.Date(2025, 7, 20, 10, 0, 0, 0, time.UTC)
	invoices := []struct {
		number string
		dated  time.Time
		status models.InvoiceStatus
	}{
		{"INV-2025-0001", time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), models.InvoiceStatusSent},
		{"INV-2025-0002", time.Date(2025, 7, 31, 23, 59, 59, 0, time.UTC), models.InvoiceStatusSent},
		{"INV-2025-0003", time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC), models.InvoiceStatusSent},
		{"INV-2025-0004", time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), models.InvoiceStatusSent},
		{"INV-2025-0005", time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC), models.InvoiceStatusPending},
		{"INV-2025-0006", time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC), models.InvoiceStatusFailed},
		{"INV-2025-0007", time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), models.InvoiceStatusFailed},
		{"INV-2025-0008", time.Date(2025, 7, 6, 0, 0, 0, 0, time.UTC), models.InvoiceStatusGenerated},
	}
	for i, in := range invoices {
		inv := &models.Invoice{
			ClientID: clients[i%2].ID, Number: in.number, Dated: in.dated,
			MonthYear: models.CycleLabel(in.dated), Status: in.status,
		}
		if err := store.CreateInvoice(ctx, inv); err != nil {
			t.Fatalf("create %s: %v", in.number, err)
		}
	}

	got, err := NewService(store).Compute(ctx, now)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	want := Statistics{TotalClients: 2, PendingInvoices: 1, SentThisMonth: 2, FailedDeliveries: 2}
	if got != want {
		t.Fatalf("Compute = %+v, want %+v", got, want)
	}
}

type failingCounter struct{}

func (failingCounter) CountClients(context.Context) (int64, error) { return 0, fmt.Errorf("db down") }
func (failingCounter) CountInvoices(context.Context, repository.InvoiceFilter) (int64, error) {
	return 0, nil
}

func TestComputeError(t *testing.T) {
	if _, err := NewService(failingCounter{}).Compute(context.Background(), time.Now()); err == nil {
		t.Fatalf("expected error")
	}
}
