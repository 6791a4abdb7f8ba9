// Package activity records every generation and delivery attempt.
//
// Entries are append-only: the package exposes Append and read queries, nothing else.
package activity

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/diewo77/gst-invoices/internal/models"
	"github.com/diewo77/gst-invoices/internal/repository"
)

// Log appends entries to the log_entries table and mirrors them to the structured logger.
type Log struct {
	store  *repository.Store
	logger *logrus.Entry
}

// New returns a Log writing through store.
func New(store *repository.Store, logger *logrus.Entry) *Log {
	return &Log{store: store, logger: logger}
}

// In returns a Log bound to tx, for appends that must commit with another write.
func (l *Log) In(tx *repository.Store) *Log {
	return &Log{store: tx, logger: l.logger}
}

// Append writes e. It is the only write operation.
func (l *Log) Append(ctx context.Context, e *models.LogEntry) error {
	if err := l.store.AppendLog(ctx, e); err != nil {
		return fmt.Errorf("append log entry %s: %w", e.Action, err)
	}
	if l.logger != nil {
		fields := logrus.Fields{"action": e.Action, "status": e.Status}
		if e.InvoiceID != nil {
			fields["invoice_id"] = *e.InvoiceID
		}
		if e.ClientID != nil {
			fields["client_id"] = *e.ClientID
		}
		entry := l.logger.WithFields(fields)
		if e.Status == models.LogStatusFailed {
			entry.Warn(e.Details)
		} else {
			entry.Info(e.Details)
		}
	}
	return nil
}

// Recent returns the newest n entries (50 when n <= 0).
func (l *Log) Recent(ctx context.Context, n int) ([]models.LogEntry, error) {
	return l.store.RecentLogs(ctx, n)
}

// ForInvoice returns the entries of one invoice, newest first.
func (l *Log) ForInvoice(ctx context.Context, invoiceID string) ([]models.LogEntry, error) {
	return l.store.LogsForInvoice(ctx, invoiceID)
}

// ForClient returns the entries of one client, newest first.
func (l *Log) ForClient(ctx context.Context, clientID string) ([]models.LogEntry, error) {
	return l.store.LogsForClient(ctx, clientID)
}

// Entry builders keep action and status pairs consistent across callers.

// Generated records a successful render.
func Generated(inv *models.Invoice, details string) *models.LogEntry {
	return forInvoice(inv, models.ActionGenerated, models.LogStatusSuccess, details)
}

// Sent records an accepted delivery.
func Sent(inv *models.Invoice, details string) *models.LogEntry {
	return forInvoice(inv, models.ActionSent, models.LogStatusSuccess, details)
}

// Failed records a failed stage. inv may be nil when no invoice was created.
func Failed(c *models.Client, inv *models.Invoice, details string) *models.LogEntry {
	e := &models.LogEntry{Action: models.ActionFailed, Status: models.LogStatusFailed, Details: details}
	if c != nil {
		e.ClientID = &c.ID
	}
	if inv != nil {
		e.InvoiceID = &inv.ID
		if e.ClientID == nil && inv.ClientID != "" {
			e.ClientID = &inv.ClientID
		}
	}
	return e
}

// Run records the outcome of a whole batch run.
func Run(action models.LogAction, status, details string) *models.LogEntry {
	return &models.LogEntry{Action: action, Status: status, Details: details}
}

// Manual records a manual send or retry step on an invoice.
func Manual(inv *models.Invoice, action models.LogAction, status, details string) *models.LogEntry {
	return forInvoice(inv, action, status, details)
}

func forInvoice(inv *models.Invoice, action models.LogAction, status, details string) *models.LogEntry {
	e := &models.LogEntry{Action: action, Status: status, Details: details, InvoiceID: &inv.ID}
	if inv.ClientID != "" {
		e.ClientID = &inv.ClientID
	}
	return e
}
