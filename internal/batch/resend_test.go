package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/diewo77/gst-invoices/internal/models"
	"github.com/diewo77/gst-invoices/internal/repository"
	"github.com/diewo77/gst-invoices/internal/storage"
)

// unreachableDocs stores documents locally but fails every read.
type unreachableDocs struct {
	*storage.LocalStore
}

func (unreachableDocs) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("dial tcp 10.0.0.5:9000: connection refused")
}

func TestResendFailedInvoice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.addClient(t, "Beta", "b@beta.test")
	f.notifier.setFail("b@beta.test", true)
	o := f.orchestrator(Options{})

	if _, err := o.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	inv := f.invoiceOf(t, c)
	if inv.Status != models.InvoiceStatusFailed {
		t.Fatalf("status = %s, want failed", inv.Status)
	}

	// Still failing: the invoice stays failed and the outcome is logged.
	if _, err := o.Resend(ctx, inv.ID); err == nil {
		t.Fatalf("expected delivery error")
	}

	f.notifier.setFail("b@beta.test", false)
	rendersBefore := f.renderer.Calls()
	sent, err := o.Resend(ctx, inv.ID)
	if err != nil {
		t.Fatalf("resend: %v", err)
	}
	if sent.Status != models.InvoiceStatusSent || sent.EmailSentAt == nil {
		t.Fatalf("invoice after resend = %+v", sent)
	}
	if f.renderer.Calls() != rendersBefore {
		t.Fatalf("stored document should be reused")
	}

	entries, err := f.store.LogsForInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	got := map[models.LogAction]int{}
	for _, e := range entries {
		got[e.Action]++
	}
	want := map[models.LogAction]int{
		models.ActionGenerated:   1,
		models.ActionFailed:      1,
		models.ActionRetried:     2,
		models.ActionEmailFailed: 1,
		models.ActionInvoiceSent: 1,
	}
	for action, n := range want {
		if got[action] != n {
			t.Errorf("%s entries = %d, want %d (all: %v)", action, got[action], n, got)
		}
	}
}

func TestResendRendersMissingDocument(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.addClient(t, "Alpha", "a@alpha.test")
	o := f.orchestrator(Options{})
	if _, err := o.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	inv := f.invoiceOf(t, c)
	if err := f.docs.Delete(ctx, *inv.DocumentPath); err != nil {
		t.Fatalf("delete document: %v", err)
	}

	before := f.renderer.Calls()
	if _, err := o.Resend(ctx, inv.ID); err != nil {
		t.Fatalf("resend: %v", err)
	}
	if f.renderer.Calls() != before+1 {
		t.Fatalf("expected a new render")
	}
	if ok, err := f.docs.Exists(ctx, *inv.DocumentPath); err != nil || !ok {
		t.Fatalf("document not stored again: %v %v", ok, err)
	}
}

func TestResendRejectsClientWithoutEmail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.addClient(t, "Walk-in", "")
	o := f.orchestrator(Options{})
	if _, err := o.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	inv := f.invoiceOf(t, c)
	logsBefore := f.countLogs(t)

	if _, err := o.Resend(ctx, inv.ID); !errors.Is(err, ErrSkippedNoEmail) {
		t.Fatalf("expected ErrSkippedNoEmail, got %v", err)
	}
	if f.countLogs(t) != logsBefore {
		t.Fatalf("no entries expected")
	}
}

func TestResendUnknownInvoice(t *testing.T) {
	f := newFixture(t)
	if _, err := f.orchestrator(Options{}).Resend(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResendLogsUnreadableDocument(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.addClient(t, "Beta", "b@beta.test")
	f.notifier.setFail("b@beta.test", true)
	o := f.orchestrator(Options{})
	if _, err := o.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	inv := f.invoiceOf(t, c)
	f.notifier.setFail("b@beta.test", false)

	o.docs = unreachableDocs{f.docs}
	_, err := o.Resend(ctx, inv.ID)
	var serr *StageError
	if !errors.As(err, &serr) || serr.Stage != StageDeliver {
		t.Fatalf("expected deliver StageError, got %v", err)
	}
	if len(f.notifier.sent) != 0 {
		t.Fatalf("nothing should be sent")
	}

	entries, err := f.store.LogsForInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	got := map[models.LogAction]int{}
	for _, e := range entries {
		got[e.Action]++
	}
	if got[models.ActionRetried] != 1 || got[models.ActionEmailFailed] != 1 {
		t.Fatalf("expected one retried and one email_failed entry, got %v", got)
	}
	if reloaded := f.invoiceOf(t, c); reloaded.Status != models.InvoiceStatusFailed {
		t.Fatalf("status = %s, want failed", reloaded.Status)
	}
}
