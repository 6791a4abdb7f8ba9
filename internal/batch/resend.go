package batch

import (
	"context"
	"errors"
	"fmt"

	"github.com/diewo77/gst-invoices/internal/activity"
	"github.com/diewo77/gst-invoices/internal/models"
	"github.com/diewo77/gst-invoices/internal/render"
	"github.com/diewo77/gst-invoices/internal/repository"
	"github.com/diewo77/gst-invoices/internal/storage"
)

// Resend delivers an existing invoice again. The stored document is reused when
// present; otherwise the invoice is rendered first. It serves both the manual
// send action and the retry of failed deliveries.
func (o *Orchestrator) Resend(ctx context.Context, invoiceID string) (*models.Invoice, error) {
	inv, err := o.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	c := inv.Client
	if c == nil {
		if c, err = o.store.GetClient(ctx, inv.ClientID); err != nil {
			return nil, fmt.Errorf("load client of invoice %s: %w", inv.Number, err)
		}
	}
	if !c.HasEmail() {
		return inv, &StageError{Client: c.Name, Stage: StageDeliver, Err: ErrSkippedNoEmail}
	}

	if err := o.log.Append(ctx, activity.Manual(inv, models.ActionRetried, models.LogStatusInfo,
		fmt.Sprintf("Send requested for invoice %s (status %s)", inv.Number, inv.Status))); err != nil {
		return inv, err
	}

	doc, err := o.storedDocument(ctx, inv)
	if err != nil {
		serr := &StageError{Client: c.Name, Stage: StageDeliver, Err: err}
		o.appendFailure(ctx, activity.Manual(inv, models.ActionEmailFailed, models.LogStatusFailed, serr.Error()))
		return inv, serr
	}
	if doc == nil {
		if doc, err = o.renderDocument(ctx, c, inv); err != nil {
			serr := &StageError{Client: c.Name, Stage: StageRender, Err: err}
			o.appendFailure(ctx, activity.Failed(c, inv, serr.Error()))
			return inv, serr
		}
		entry := activity.Generated(inv, fmt.Sprintf("Invoice %s regenerated for %s", inv.Number, c.Name))
		if err := o.markGenerated(ctx, inv, entry); err != nil {
			return inv, &StageError{Client: c.Name, Stage: StageRecord, Err: err}
		}
	}

	if err := o.deliver(ctx, c, inv, doc); err != nil {
		serr := &StageError{Client: c.Name, Stage: StageDeliver, Err: err}
		entry := activity.Manual(inv, models.ActionEmailFailed, models.LogStatusFailed, serr.Error())
		if rerr := o.transition(ctx, inv, repository.InvoiceUpdate{Status: statusPtr(models.InvoiceStatusFailed)}, entry); rerr != nil {
			return inv, errors.Join(serr, rerr)
		}
		return inv, serr
	}

	sentAt := o.now()
	entry := activity.Manual(inv, models.ActionInvoiceSent, models.LogStatusSuccess,
		fmt.Sprintf("Invoice %s sent to %s", inv.Number, c.EmailAddress()))
	if err := o.transition(ctx, inv, repository.InvoiceUpdate{Status: statusPtr(models.InvoiceStatusSent), EmailSentAt: &sentAt}, entry); err != nil {
		return inv, &StageError{Client: c.Name, Stage: StageRecord, Err: err}
	}
	inv.Client = c
	return inv, nil
}

// storedDocument loads the rendered document of inv, or nil when it must be rendered again.
func (o *Orchestrator) storedDocument(ctx context.Context, inv *models.Invoice) (*render.Document, error) {
	if !inv.HasDocument() {
		return nil, nil
	}
	data, err := o.docs.Get(ctx, *inv.DocumentPath)
	if errors.Is(err, storage.ErrNotExist) {
		o.logger.WithField("invoice", inv.Number).Warn("stored document missing, rendering again")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load document of invoice %s: %w", inv.Number, err)
	}
	return &render.Document{
		Filename:    render.AttachmentName(inv.Number),
		ContentType: "application/pdf",
		Data:        data,
	}, nil
}
