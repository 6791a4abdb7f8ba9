// Package stats aggregates dashboard counters straight from the database.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/diewo77/gst-invoices/internal/models"
	"github.com/diewo77/gst-invoices/internal/repository"
)

// Statistics is the dashboard summary.
type Statistics struct {
	TotalClients     int64 `json:"total_clients"`
	PendingInvoices  int64 `json:"pending_invoices"`
	SentThisMonth    int64 `json:"sent_this_month"`
	FailedDeliveries int64 `json:"failed_deliveries"`
}

// Counter is the subset of the repository the aggregator reads.
type Counter interface {
	CountClients(ctx context.Context) (int64, error)
	CountInvoices(ctx context.Context, f repository.InvoiceFilter) (int64, error)
}

// Service computes Statistics on demand. Nothing is cached.
type Service struct {
	repo Counter
}

// NewService returns a Service reading from repo.
func NewService(repo Counter) *Service {
	return &Service{repo: repo}
}

// MonthBounds returns the first and last instants of the calendar month containing now,
// in now's location: [1st 00:00:00, last day 23:59:59].
func MonthBounds(now time.Time) (time.Time, time.Time) {
	y, m, _ := now.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	last := first.AddDate(0, 1, -1)
	last = time.Date(last.Year(), last.Month(), last.Day(), 23, 59, 59, 0, now.Location())
	return first, last
}

// Compute runs the four counts for the month containing now.
func (s *Service) Compute(ctx context.Context, now time.Time) (Statistics, error) {
	var out Statistics
	var err error

	if out.TotalClients, err = s.repo.CountClients(ctx); err != nil {
		return Statistics{}, fmt.Errorf("count clients: %w", err)
	}
	if out.PendingInvoices, err = s.repo.CountInvoices(ctx, repository.InvoiceFilter{Status: models.InvoiceStatusPending}); err != nil {
		return Statistics{}, fmt.Errorf("count pending invoices: %w", err)
	}
	first, last := MonthBounds(now)
	sent := repository.InvoiceFilter{Status: models.InvoiceStatusSent, From: &first, To: &last}
	if out.SentThisMonth, err = s.repo.CountInvoices(ctx, sent); err != nil {
		return Statistics{}, fmt.Errorf("count sent invoices: %w", err)
	}
	if out.FailedDeliveries, err = s.repo.CountInvoices(ctx, repository.InvoiceFilter{Status: models.InvoiceStatusFailed}); err != nil {
		return Statistics{}, fmt.Errorf("count failed invoices: %w", err)
	}
	return out, nil
}
