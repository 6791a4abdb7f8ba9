package render

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/diewo77/gst-invoices/internal/models"
	"github.com/diewo77/gst-invoices/internal/storage"
)

func validFields() BillingFields {
	return SampleFields(time.Date(2025, time.July, 1, 9, 0, 0, 0, time.UTC))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*BillingFields)
		field   string
		wantErr bool
	}{
		{"valid", func(*BillingFields) {}, "", false},
		{"missing number", func(f *BillingFields) { f.InvoiceNumber = "" }, "InvoiceNumber", true},
		{"missing date", func(f *BillingFields) { f.InvoiceDate = time.Time{} }, "InvoiceDate", true},
		{"missing words", func(f *BillingFields) { f.AmountInWords = "" }, "AmountInWords", true},
		{"zero rate", func(f *BillingFields) { f.Rate = decimal.Zero }, "Rate", true},
		{"negative tax", func(f *BillingFields) { f.CGST = decimal.NewFromInt(-1) }, "CGST", true},
		{"short gstin", func(f *BillingFields) { f.GSTIN = "27ABC" }, "GSTIN", true},
		{"no gstin", func(f *BillingFields) { f.GSTIN = "" }, "", false},
		{"missing service", func(f *BillingFields) { f.ServiceDescription = "" }, "ServiceDescription", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFields()
			tt.mutate(&f)
			err := f.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}
			var rerr *RenderError
			if !errors.As(err, &rerr) || rerr.Op != "validate" {
				t.Fatalf("expected validate RenderError, got %T %v", err, err)
			}
			var ferr *FieldError
			if !errors.As(err, &ferr) {
				t.Fatalf("expected FieldError, got %v", err)
			}
			if _, ok := ferr.Violations[tt.field]; !ok {
				t.Fatalf("expected violation on %s, got %v", tt.field, ferr.Violations)
			}
		})
	}
}

func TestFieldsFor(t *testing.T) {
	gstin := " 27aapfu0939f1zv "
	c := &models.Client{Name: " Acme ", AtSite: "Pune", State: "MH", GSTIN: &gstin, ServiceDescription: "Guarding",
		Rate: decimal.NewFromInt(100), TotalAmountAfterTax: decimal.NewFromInt(118), AmountInWords: "x"}
	inv := &models.Invoice{Number: "INV-2025-0001", Dated: time.Now(), MonthYear: "July 2025"}
	f := FieldsFor(c, inv)
	if f.ClientName != "Acme" || f.GSTIN != "27AAPFU0939F1ZV" || f.InvoiceNumber != "INV-2025-0001" {
		t.Fatalf("unexpected fields %+v", f)
	}
}

func TestFormatINR(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0.00"},
		{"999", "999.00"},
		{"1000", "1,000.00"},
		{"118000", "1,18,000.00"},
		{"12345678.9", "1,23,45,678.90"},
		{"-2500.5", "-2,500.50"},
	}
	for _, tt := range tests {
		if got := FormatINR(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Errorf("FormatINR(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPDFRenderer(t *testing.T) {
	r := NewPDFRenderer(Issuer{Name: "Guardian Services", GSTIN: "27AAPFU0939F1ZV"}, nil)
	doc, err := r.Render(context.Background(), nil, validFields())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(doc.Data, []byte("%PDF")) {
		t.Fatalf("expected PDF output")
	}
	if doc.Filename != "Invoice_INV-2025-0001.pdf" || doc.ContentType != "application/pdf" {
		t.Fatalf("unexpected document meta %+v", doc.Filename)
	}
}

func TestPDFRendererMissingTemplate(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewPDFRenderer(Issuer{}, store)
	tmpl := &models.Template{Name: "Monthly", FilePath: "templates/missing.docx", Version: "2.0"}
	_, err = r.Render(context.Background(), tmpl, validFields())
	var rerr *RenderError
	if !errors.As(err, &rerr) || rerr.Op != "template" {
		t.Fatalf("expected template RenderError, got %v", err)
	}

	if err := store.Put(context.Background(), tmpl.FilePath, []byte("docx"), ""); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Render(context.Background(), tmpl, validFields()); err != nil {
		t.Fatalf("render with existing template: %v", err)
	}
}

func TestPDFRendererRejectsInvalidFields(t *testing.T) {
	f := validFields()
	f.ClientName = ""
	_, err := NewPDFRenderer(Issuer{}, nil).Render(context.Background(), nil, f)
	var rerr *RenderError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RenderError, got %v", err)
	}
}

func TestHTMLRenderer(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewHTMLRenderer(store)

	doc, err := r.Render(ctx, nil, validFields())
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	body := string(doc.Data)
	if !strings.Contains(body, "INV-2025-0001") || !strings.Contains(body, "₹11,800.00") {
		t.Fatalf("default layout missing fields: %s", body)
	}

	tmpl := &models.Template{Name: "Custom", FilePath: "templates/custom.html"}
	if err := store.Put(ctx, tmpl.FilePath, []byte(`<p>{{.ClientName}} owes {{formatMoney .TotalAmountAfterTax}}</p>`), "text/html"); err != nil {
		t.Fatal(err)
	}
	doc, err = r.Render(ctx, tmpl, validFields())
	if err != nil {
		t.Fatalf("custom: %v", err)
	}
	if got := string(doc.Data); got != "<p>Sample Client Pvt Ltd owes ₹11,800.00</p>" {
		t.Fatalf("custom output = %q", got)
	}

	broken := &models.Template{Name: "Broken", FilePath: "templates/broken.html"}
	if err := store.Put(ctx, broken.FilePath, []byte(`{{.Missing`), "text/html"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Render(ctx, broken, validFields()); err == nil {
		t.Fatalf("expected parse error")
	}
}
