package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/gst-invoices/internal/models"
)

// InvoiceFilter narrows ListInvoices. Zero values are ignored.
// From and To are inclusive bounds on Dated.
type InvoiceFilter struct {
	Status   models.InvoiceStatus
	ClientID string
	From     *time.Time
	To       *time.Time
	Limit    int
}

func (f InvoiceFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ClientID != "" {
		q = q.Where("client_id = ?", f.ClientID)
	}
	if f.From != nil {
		q = q.Where("dated >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("dated <= ?", *f.To)
	}
	return q
}

// InvoiceUpdate is a partial update. Nil fields are left untouched.
type InvoiceUpdate struct {
	Status       *models.InvoiceStatus
	DocumentPath *string
	EmailSentAt  *time.Time
}

func (u InvoiceUpdate) columns() map[string]any {
	cols := map[string]any{}
	if u.Status != nil {
		cols["status"] = *u.Status
	}
	if u.DocumentPath != nil {
		cols["document_path"] = *u.DocumentPath
	}
	if u.EmailSentAt != nil {
		cols["email_sent_at"] = *u.EmailSentAt
	}
	return cols
}

// ListInvoices returns invoices with their client, newest first.
func (s *Store) ListInvoices(ctx context.Context, f InvoiceFilter) ([]models.Invoice, error) {
	var invoices []models.Invoice
	q := f.apply(s.conn(ctx).Preload("Client")).Order("dated DESC").Order("invoice_number DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	err := q.Find(&invoices).Error
	return invoices, err
}

// CountInvoices counts invoices matching f.
func (s *Store) CountInvoices(ctx context.Context, f InvoiceFilter) (int64, error) {
	var n int64
	err := f.apply(s.conn(ctx).Model(&models.Invoice{})).Count(&n).Error
	return n, err
}

// GetInvoice loads an invoice with its client.
func (s *Store) GetInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	var inv models.Invoice
	if err := s.conn(ctx).Preload("Client").First(&inv, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &inv, nil
}

// CreateInvoice inserts inv. A duplicate invoice number yields *NumberCollisionError.
func (s *Store) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	if inv.Status == "" {
		inv.Status = models.InvoiceStatusPending
	}
	if err := s.conn(ctx).Omit("Client").Create(inv).Error; err != nil {
		if isUniqueViolation(err) {
			return &NumberCollisionError{Number: inv.Number, Err: err}
		}
		return err
	}
	return nil
}

// UpdateInvoice applies u to invoice id and returns the updated row.
func (s *Store) UpdateInvoice(ctx context.Context, id string, u InvoiceUpdate) (*models.Invoice, error) {
	cols := u.columns()
	if len(cols) == 0 {
		return s.GetInvoice(ctx, id)
	}
	res := s.conn(ctx).Model(&models.Invoice{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetInvoice(ctx, id)
}

// LastNumberWithPrefix returns the highest invoice number starting with prefix, or "".
// Longer numbers sort higher so a sequence past its padding width still orders correctly.
func (s *Store) LastNumberWithPrefix(ctx context.Context, prefix string) (string, error) {
	var inv models.Invoice
	err := s.conn(ctx).
		Select("invoice_number").
		Where("invoice_number LIKE ?", prefix+"%").
		Order("LENGTH(invoice_number) DESC").
		Order("invoice_number DESC").
		Take(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return inv.Number, nil
}
