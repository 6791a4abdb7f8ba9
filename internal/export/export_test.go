package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/diewo77/gst-invoices/internal/models"
)

func readRows(t *testing.T, buf *bytes.Buffer, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	return rows
}

func TestInvoices(t *testing.T) {
	sent := time.Date(2025, 7, 1, 9, 5, 0, 0, time.UTC)
	invoices := []models.Invoice{
		{
			Number: "INV-2025-0001", Dated: time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC), MonthYear: "July 2025",
			Status: models.InvoiceStatusSent, EmailSentAt: &sent,
			Client: &models.Client{
				Name: "Acme", AtSite: "Plant 2",
				Rate: decimal.NewFromInt(1000), TotalTax: decimal.NewFromInt(180), TotalAmountAfterTax: decimal.NewFromInt(1180),
			},
		},
		{Number: "INV-2025-0002", Dated: time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC), MonthYear: "July 2025", Status: models.InvoiceStatusPending},
	}
	var buf bytes.Buffer
	if err := Invoices(&buf, invoices); err != nil {
		t.Fatalf("export: %v", err)
	}
	rows := readRows(t, &buf, "Invoices")
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0][0] != "Invoice No." || rows[1][0] != "INV-2025-0001" || rows[2][0] != "INV-2025-0002" {
		t.Fatalf("unexpected first column: %v", rows)
	}
	if rows[1][1] != "Acme" || rows[1][5] != "sent" {
		t.Fatalf("unexpected row %v", rows[1])
	}
	if !strings.HasPrefix(rows[1][8], "1180") {
		t.Fatalf("total = %q, want 1180", rows[1][8])
	}
}

func TestLogs(t *testing.T) {
	inv := "inv-1"
	entries := []models.LogEntry{
		{Action: models.ActionSent, Status: models.LogStatusSuccess, InvoiceID: &inv, Details: "sent", Timestamp: time.Now()},
		{Action: models.ActionMonthlyGenerationCompleted, Status: models.LogStatusPartial, Details: "run", Timestamp: time.Now()},
	}
	var buf bytes.Buffer
	if err := Logs(&buf, entries); err != nil {
		t.Fatalf("export: %v", err)
	}
	rows := readRows(t, &buf, "Activity")
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[1][1] != "sent" || rows[1][3] != "inv-1" || rows[2][1] != "monthly_generation_completed" {
		t.Fatalf("unexpected rows %v", rows)
	}
}
