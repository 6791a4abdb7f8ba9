package services

import (
	"context"
	"fmt"

	"github.com/diewo77/gst-invoices/internal/batch"
	"github.com/diewo77/gst-invoices/internal/models"
	"github.com/diewo77/gst-invoices/internal/render"
	"github.com/diewo77/gst-invoices/internal/repository"
	"github.com/diewo77/gst-invoices/internal/storage"
)

// InvoiceService exposes invoice queries and the orchestrator's actions to handlers.
type InvoiceService struct {
	store *repository.Store
	orch  *batch.Orchestrator
	docs  storage.DocumentStore
}

func NewInvoiceService(store *repository.Store, orch *batch.Orchestrator, docs storage.DocumentStore) *InvoiceService {
	return &InvoiceService{store: store, orch: orch, docs: docs}
}

func (s *InvoiceService) List(ctx context.Context, f repository.InvoiceFilter) ([]models.Invoice, error) {
	return s.store.ListInvoices(ctx, f)
}

func (s *InvoiceService) Get(ctx context.Context, id string) (*models.Invoice, error) {
	return s.store.GetInvoice(ctx, id)
}

// Create runs the generation pipeline for one client right away.
func (s *InvoiceService) Create(ctx context.Context, clientID string) (batch.ClientResult, error) {
	return s.orch.Generate(ctx, clientID)
}

// Send delivers (or retries) an existing invoice.
func (s *InvoiceService) Send(ctx context.Context, id string) (*models.Invoice, error) {
	return s.orch.Resend(ctx, id)
}

// RunBatch triggers a monthly run and waits for its summary.
func (s *InvoiceService) RunBatch(ctx context.Context) (batch.Summary, error) {
	return s.orch.Run(ctx)
}

// Document returns the stored rendered document of invoice id.
func (s *InvoiceService) Document(ctx context.Context, id string) (*render.Document, error) {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if !inv.HasDocument() {
		return nil, fmt.Errorf("invoice %s: %w", inv.Number, storage.ErrNotExist)
	}
	data, err := s.docs.Get(ctx, *inv.DocumentPath)
	if err != nil {
		return nil, err
	}
	return &render.Document{Filename: render.AttachmentName(inv.Number), ContentType: "application/pdf", Data: data}, nil
}
