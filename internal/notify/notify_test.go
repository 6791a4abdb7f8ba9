package notify

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/diewo77/gst-invoices/internal/models"
	"github.com/diewo77/gst-invoices/internal/render"
)

func strPtr(s string) *string { return &s }

func fixtures() (*models.Client, *models.Invoice, models.EmailSettings) {
	c := &models.Client{
		Name:                "Acme <Pvt>",
		Email:               strPtr("accounts@acme.test"),
		TotalAmountAfterTax: decimal.NewFromInt(118000),
		AmountInWords:       "One Lakh Eighteen Thousand Rupees Only",
	}
	inv := &models.Invoice{Number: "INV-2025-0003", MonthYear: "July 2025"}
	settings := models.EmailSettings{
		SMTPHost: "smtp.example.com", SMTPPort: 587, SMTPUser: "u", SMTPPassword: "p",
		FromEmail: "billing@guardian.test", FromName: "Guardian Services", ReplyTo: "help@guardian.test",
	}
	return c, inv, settings
}

func TestComposeDefaults(t *testing.T) {
	c, inv, settings := fixtures()
	doc := &render.Document{ContentType: "application/pdf", Data: []byte("%PDF")}
	msg := Compose(c, inv, settings, doc)

	if msg.To != "accounts@acme.test" || msg.FromEmail != "billing@guardian.test" || msg.FromName != "Guardian Services" {
		t.Fatalf("unexpected addressing %+v", msg)
	}
	if msg.Subject != "GST Invoice INV-2025-0003 - Guardian Services" {
		t.Fatalf("subject = %q", msg.Subject)
	}
	if msg.ReplyTo != "help@guardian.test" {
		t.Fatalf("reply-to = %q", msg.ReplyTo)
	}
	if !strings.Contains(msg.HTMLBody, "GST Tax Invoice") || !strings.Contains(msg.HTMLBody, "1,18,000.00") {
		t.Fatalf("default body missing content: %s", msg.HTMLBody)
	}
	if !strings.Contains(msg.HTMLBody, "Acme &lt;Pvt&gt;") {
		t.Fatalf("client name should be escaped: %s", msg.HTMLBody)
	}
	if msg.Attachment == nil || msg.Attachment.Filename != "Invoice_INV-2025-0003.pdf" {
		t.Fatalf("unexpected attachment %+v", msg.Attachment)
	}
}

func TestComposeClientOverrides(t *testing.T) {
	c, inv, settings := fixtures()
	c.CustomSenderEmail = strPtr("site@acme-billing.test")
	c.CustomSenderName = strPtr("Acme Billing Desk")
	c.CustomEmailBody = strPtr("<p>Custom</p>")
	msg := Compose(c, inv, settings, nil)
	if msg.FromEmail != "site@acme-billing.test" || msg.FromName != "Acme Billing Desk" {
		t.Fatalf("overrides not applied: %+v", msg)
	}
	if msg.HTMLBody != "<p>Custom</p>" {
		t.Fatalf("body = %q", msg.HTMLBody)
	}
	if msg.Subject != "GST Invoice INV-2025-0003 - Acme Billing Desk" {
		t.Fatalf("subject = %q", msg.Subject)
	}
	if msg.Attachment != nil {
		t.Fatalf("expected no attachment without a document")
	}
}

func TestCheckSettings(t *testing.T) {
	_, _, settings := fixtures()
	if err := CheckSettings(settings); err != nil {
		t.Fatalf("valid settings: %v", err)
	}
	settings.SMTPPassword = ""
	settings.FromEmail = ""
	err := CheckSettings(settings)
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if !strings.Contains(err.Error(), "from_email") || !strings.Contains(err.Error(), "credentials") {
		t.Fatalf("error should list missing fields: %v", err)
	}
}

func TestResolve(t *testing.T) {
	_, _, settings := fixtures()
	defaults := models.EmailSettings{SMTPHost: "fallback"}
	if got := Resolve(nil, defaults); got.SMTPHost != "fallback" {
		t.Fatalf("expected defaults, got %+v", got)
	}
	if got := Resolve(&settings, defaults); got.SMTPHost != "smtp.example.com" {
		t.Fatalf("expected active settings, got %+v", got)
	}
}

func TestSMTPNotifierRejectsIncompleteSettings(t *testing.T) {
	c, inv, settings := fixtures()
	settings.SMTPHost = ""
	err := NewSMTPNotifier().Send(context.Background(), settings, Compose(c, inv, settings, nil))
	var derr *DeliveryError
	if !errors.As(err, &derr) {
		t.Fatalf("expected DeliveryError, got %v", err)
	}
	if derr.To != "accounts@acme.test" || !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("unexpected delivery error %v", err)
	}
}

func TestSMTPNotifierSkipsDialWhenCancelled(t *testing.T) {
	c, inv, settings := fixtures()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewSMTPNotifier().Send(ctx, settings, Compose(c, inv, settings, nil))
	var derr *DeliveryError
	if !errors.As(err, &derr) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled DeliveryError, got %v", err)
	}
}

func TestBuildMessage(t *testing.T) {
	c, inv, settings := fixtures()
	msg := Compose(c, inv, settings, &render.Document{ContentType: "application/pdf", Data: []byte("%PDF-1.3 test")})
	var buf bytes.Buffer
	if _, err := BuildMessage(msg).WriteTo(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	raw := buf.String()
	for _, want := range []string{
		"Subject: GST Invoice INV-2025-0003 - Guardian Services",
		"To: accounts@acme.test",
		"Reply-To: help@guardian.test",
		"Invoice_INV-2025-0003.pdf",
	} {
		if !strings.Contains(raw, want) {
			t.Errorf("message missing %q", want)
		}
	}
}
