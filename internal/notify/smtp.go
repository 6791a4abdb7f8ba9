package notify

import (
	"context"
	"crypto/tls"
	"io"

	"gopkg.in/gomail.v2"

	"github.com/diewo77/gst-invoices/internal/models"
)

// SMTPNotifier sends messages with gomail.
type SMTPNotifier struct{}

// NewSMTPNotifier returns an SMTP notifier.
func NewSMTPNotifier() *SMTPNotifier {
	return &SMTPNotifier{}
}

// Send dials the server described by settings and sends msg.
// gomail has no context support, so cancellation abandons the dial without
// aborting it: a message reported as timed out may still be delivered.
func (n *SMTPNotifier) Send(ctx context.Context, settings models.EmailSettings, msg Message) error {
	if err := CheckSettings(settings); err != nil {
		return &DeliveryError{To: msg.To, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return &DeliveryError{To: msg.To, Err: err}
	}
	m := BuildMessage(msg)
	d := dialer(settings)

	done := make(chan error, 1)
	go func() { done <- d.DialAndSend(m) }()
	select {
	case err := <-done:
		if err != nil {
			return &DeliveryError{To: msg.To, Err: err}
		}
		return nil
	case <-ctx.Done():
		return &DeliveryError{To: msg.To, Err: ctx.Err()}
	}
}

// TestConnection checks settings and opens (then closes) an authenticated session.
func (n *SMTPNotifier) TestConnection(ctx context.Context, settings models.EmailSettings) error {
	if err := CheckSettings(settings); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		sc, err := dialer(settings).Dial()
		if err == nil {
			err = sc.Close()
		}
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// BuildMessage converts msg into a gomail message.
func BuildMessage(msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", msg.FromEmail, msg.FromName)
	m.SetHeader("To", msg.To)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTMLBody)
	if a := msg.Attachment; a != nil {
		data := a.Data
		m.Attach(a.Filename,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
			gomail.SetHeader(map[string][]string{"Content-Type": {a.ContentType}}),
		)
	}
	return m
}

func dialer(s models.EmailSettings) *gomail.Dialer {
	d := gomail.NewDialer(s.SMTPHost, s.SMTPPort, s.SMTPUser, s.SMTPPassword)
	// Port 465 is implicit TLS; other ports upgrade with STARTTLS.
	d.SSL = s.SMTPSecure || s.SMTPPort == 465
	d.TLSConfig = &tls.Config{ServerName: s.SMTPHost}
	return d
}
