package repository

import (
	"context"

	"github.com/diewo77/gst-invoices/internal/models"
)

// DefaultLogLimit is used when a caller asks for recent entries without a limit.
const DefaultLogLimit = 50

// AppendLog inserts a log entry. There is no update or delete counterpart.
func (s *Store) AppendLog(ctx context.Context, e *models.LogEntry) error {
	return s.conn(ctx).Create(e).Error
}

// RecentLogs returns the newest limit entries.
func (s *Store) RecentLogs(ctx context.Context, limit int) ([]models.LogEntry, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	var entries []models.LogEntry
	err := s.conn(ctx).Order("timestamp DESC").Limit(limit).Find(&entries).Error
	return entries, err
}

// LogsForInvoice returns the entries referencing invoiceID, newest first.
func (s *Store) LogsForInvoice(ctx context.Context, invoiceID string) ([]models.LogEntry, error) {
	var entries []models.LogEntry
	err := s.conn(ctx).Where("invoice_id = ?", invoiceID).Order("timestamp DESC").Find(&entries).Error
	return entries, err
}

// LogsForClient returns the entries referencing clientID, newest first.
func (s *Store) LogsForClient(ctx context.Context, clientID string) ([]models.LogEntry, error) {
	var entries []models.LogEntry
	err := s.conn(ctx).Where("client_id = ?", clientID).Order("timestamp DESC").Find(&entries).Error
	return entries, err
}
