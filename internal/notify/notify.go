// Package notify composes invoice emails and hands them to an SMTP transport.
package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/diewo77/gst-invoices/internal/models"
	"github.com/diewo77/gst-invoices/internal/render"
)

// ErrNotConfigured is wrapped in a DeliveryError when no usable SMTP settings exist.
var ErrNotConfigured = errors.New("email not configured")

// Attachment is a file sent with a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is one outgoing email.
type Message struct {
	To         string
	FromEmail  string
	FromName   string
	ReplyTo    string
	Subject    string
	HTMLBody   string
	Attachment *Attachment
}

// Notifier delivers messages. A nil error means the transport accepted the message,
// not that it reached the recipient.
type Notifier interface {
	Send(ctx context.Context, settings models.EmailSettings, msg Message) error
}

// DeliveryError covers unreachable transports, rejected credentials and rejected recipients.
type DeliveryError struct {
	To  string
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %s: %v", e.To, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Compose builds the invoice email for client c. Per-client sender overrides win
// over settings.
func Compose(c *models.Client, inv *models.Invoice, settings models.EmailSettings, doc *render.Document) Message {
	fromEmail := settings.FromEmail
	if v := trimmed(c.CustomSenderEmail); v != "" {
		fromEmail = v
	}
	fromName := settings.FromName
	if v := trimmed(c.CustomSenderName); v != "" {
		fromName = v
	}
	body := trimmed(c.CustomEmailBody)
	if body == "" {
		body = DefaultBody(c, inv, fromName)
	}
	msg := Message{
		To:        c.EmailAddress(),
		FromEmail: fromEmail,
		FromName:  fromName,
		ReplyTo:   settings.ReplyTo,
		Subject:   fmt.Sprintf("GST Invoice %s - %s", inv.Number, fromName),
		HTMLBody:  body,
	}
	if doc != nil {
		msg.Attachment = &Attachment{
			Filename:    render.AttachmentName(inv.Number),
			ContentType: doc.ContentType,
			Data:        doc.Data,
		}
	}
	return msg
}

// DefaultBody is the HTML body used when the client has no custom one.
func DefaultBody(c *models.Client, inv *models.Invoice, fromName string) string {
	var b strings.Builder
	b.WriteString("<h2>GST Tax Invoice</h2>")
	fmt.Fprintf(&b, "<p>Dear %s,</p>", html.EscapeString(c.Name))
	fmt.Fprintf(&b, "<p>Please find attached invoice <strong>%s</strong> for %s.</p>",
		html.EscapeString(inv.Number), html.EscapeString(inv.MonthYear))
	fmt.Fprintf(&b, "<p>Amount payable: <strong>&#8377;%s</strong> (%s)</p>",
		render.FormatINR(c.TotalAmountAfterTax), html.EscapeString(c.AmountInWords))
	fmt.Fprintf(&b, "<p>Regards,<br>%s</p>", html.EscapeString(fromName))
	return b.String()
}

// Resolve picks the active settings, falling back to defaults when none are stored.
func Resolve(active *models.EmailSettings, defaults models.EmailSettings) models.EmailSettings {
	if active != nil {
		return *active
	}
	return defaults
}

// CheckSettings reports what is missing for settings to be usable.
func CheckSettings(s models.EmailSettings) error {
	var missing []string
	if strings.TrimSpace(s.SMTPHost) == "" {
		missing = append(missing, "smtp_host")
	}
	if s.SMTPPort <= 0 {
		missing = append(missing, "smtp_port")
	}
	if strings.TrimSpace(s.FromEmail) == "" {
		missing = append(missing, "from_email")
	}
	if s.SMTPUser == "" || s.SMTPPassword == "" {
		missing = append(missing, "credentials")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrNotConfigured, strings.Join(missing, ", "))
	}
	return nil
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
