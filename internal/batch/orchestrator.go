// Package batch runs the monthly invoicing cycle.
//
// A run lists every client and drives each one through the same pipeline:
// create a numbered pending invoice, render its document, mark it generated,
// deliver it when the client has an email address, and mark it sent or failed.
// Every transition is written together with its activity log entry. A failing
// client never stops the others; its error ends up in Summary.Errors.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/diewo77/gst-invoices/internal/activity"
	"github.com/diewo77/gst-invoices/internal/logging"
	"github.com/diewo77/gst-invoices/internal/models"
	"github.com/diewo77/gst-invoices/internal/notify"
	"github.com/diewo77/gst-invoices/internal/numbering"
	"github.com/diewo77/gst-invoices/internal/render"
	"github.com/diewo77/gst-invoices/internal/repository"
	"github.com/diewo77/gst-invoices/internal/storage"
)

var (
	// ErrAlreadyRunning is reported through Summary.AlreadyRunning when a run is in progress.
	ErrAlreadyRunning = errors.New("batch run already in progress")
	// ErrSkippedNoEmail marks a client without an email address. It is not a failure.
	ErrSkippedNoEmail = errors.New("client has no email address")
)

// Default per-call limits for the renderer and the notifier.
const (
	DefaultRenderTimeout = 30 * time.Second
	DefaultSendTimeout   = 30 * time.Second
)

// Stage names the pipeline step a client failed in.
type Stage string

const (
	StageCreate  Stage = "create invoice"
	StageRender  Stage = "render"
	StageRecord  Stage = "record"
	StageDeliver Stage = "deliver"
)

// StageError is a per-client failure. Its message is "<client>: <stage>: <reason>".
type StageError struct {
	Client string
	Stage  Stage
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Client, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// ClientResult is the outcome of one client's pipeline.
type ClientResult struct {
	ClientID      string               `json:"client_id"`
	ClientName    string               `json:"client_name"`
	InvoiceID     string               `json:"invoice_id,omitempty"`
	InvoiceNumber string               `json:"invoice_number,omitempty"`
	Status        models.InvoiceStatus `json:"status,omitempty"`
	EmailSkipped  bool                 `json:"email_skipped,omitempty"`
	Err           error                `json:"-"`
}

// Failed reports whether the client counts as a failure.
func (r ClientResult) Failed() bool { return r.Err != nil }

// Summary is the result of one run. Succeeded + Failed == Processed.
type Summary struct {
	Cycle          string         `json:"cycle,omitempty"`
	Processed      int            `json:"processed"`
	Succeeded      int            `json:"succeeded"`
	Failed         int            `json:"failed"`
	Errors         []string       `json:"errors"`
	AlreadyRunning bool           `json:"already_running,omitempty"`
	Cancelled      bool           `json:"cancelled,omitempty"`
	Results        []ClientResult `json:"results,omitempty"`
}

// Numberer allocates an invoice number and inserts the invoice carrying it.
type Numberer interface {
	Allocate(ctx context.Context, at time.Time, create func(number string) error) (string, error)
}

// Options tune an Orchestrator. Zero values select the defaults.
type Options struct {
	Workers       int
	RenderTimeout time.Duration
	SendTimeout   time.Duration
	// EmailDefaults are used when no email settings row is active.
	EmailDefaults models.EmailSettings
	Numbers       Numberer
	Now           func() time.Time
}

// Orchestrator runs invoicing cycles. Only one run is active at a time per instance.
type Orchestrator struct {
	store    *repository.Store
	numbers  Numberer
	renderer render.Renderer
	notifier notify.Notifier
	docs     storage.DocumentStore
	log      *activity.Log
	logger   *logrus.Entry

	workers       int
	renderTimeout time.Duration
	sendTimeout   time.Duration
	defaults      models.EmailSettings
	now           func() time.Time

	running atomic.Bool
}

// New wires an orchestrator.
func New(store *repository.Store, renderer render.Renderer, notifier notify.Notifier, docs storage.DocumentStore, logger *logrus.Entry, opts Options) *Orchestrator {
	o := &Orchestrator{
		store:         store,
		numbers:       opts.Numbers,
		renderer:      renderer,
		notifier:      notifier,
		docs:          docs,
		log:           activity.New(store, logger),
		logger:        logger,
		workers:       opts.Workers,
		renderTimeout: opts.RenderTimeout,
		sendTimeout:   opts.SendTimeout,
		defaults:      opts.EmailDefaults,
		now:           opts.Now,
	}
	if o.numbers == nil {
		o.numbers = numbering.NewSequential(store)
	}
	if o.workers < 1 {
		o.workers = 1
	}
	if o.renderTimeout <= 0 {
		o.renderTimeout = DefaultRenderTimeout
	}
	if o.sendTimeout <= 0 {
		o.sendTimeout = DefaultSendTimeout
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// Running reports whether a run is in progress.
func (o *Orchestrator) Running() bool { return o.running.Load() }

// Run processes every client once. A concurrent call returns immediately with
// AlreadyRunning set and writes nothing. Cancelling ctx stops the run between
// clients, never in the middle of one. The only returned error is a failure to
// write the run-level log entry.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	if !o.running.CompareAndSwap(false, true) {
		o.logger.WithError(ErrAlreadyRunning).Warn("batch trigger ignored")
		return Summary{AlreadyRunning: true, Errors: []string{}}, nil
	}
	defer o.running.Store(false)

	now := o.now()
	cycle := models.CycleLabel(now)
	logger := o.logger.WithField("cycle", cycle)
	started := time.Now()
	logger.Info("monthly invoice generation started")

	clients, err := o.store.ListClients(ctx)
	if err != nil {
		logging.LogError(logger, "Run", "list clients", nil, err)
		summary := Summary{Cycle: cycle, Errors: []string{fmt.Sprintf("list clients: %v", err)}}
		entry := activity.Run(models.ActionMonthlyGenerationFailed, models.LogStatusFailed,
			fmt.Sprintf("Monthly invoice generation for %s failed: %v", cycle, err))
		if lerr := o.log.Append(context.WithoutCancel(ctx), entry); lerr != nil {
			return summary, fmt.Errorf("write run log: %w", lerr)
		}
		return summary, nil
	}

	results, cancelled := o.process(ctx, clients, now, cycle)
	summary := summarize(cycle, results)
	summary.Cancelled = cancelled

	details := fmt.Sprintf("Monthly invoice generation for %s: processed %d, succeeded %d, failed %d",
		cycle, summary.Processed, summary.Succeeded, summary.Failed)
	if cancelled {
		details += fmt.Sprintf(" (cancelled after %d of %d clients)", summary.Processed, len(clients))
	}
	entry := activity.Run(models.ActionMonthlyGenerationCompleted, runStatus(summary), details)
	if err := o.log.Append(context.WithoutCancel(ctx), entry); err != nil {
		logging.LogError(logger, "Run", "write run log", summary, err)
		return summary, fmt.Errorf("write run log: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"processed": summary.Processed,
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
		"cancelled": cancelled,
		"duration":  time.Since(started).String(),
	}).Info("monthly invoice generation finished")
	return summary, nil
}

// Generate runs the pipeline for a single client outside a monthly run.
func (o *Orchestrator) Generate(ctx context.Context, clientID string) (ClientResult, error) {
	c, err := o.store.GetClient(ctx, clientID)
	if err != nil {
		return ClientResult{}, err
	}
	now := o.now()
	return o.processClient(ctx, c, now, models.CycleLabel(now)), nil
}

// process hands clients to a bounded pool of workers. Each client is processed
// with a context that ignores cancellation so it always runs to completion.
func (o *Orchestrator) process(ctx context.Context, clients []models.Client, now time.Time, cycle string) ([]ClientResult, bool) {
	workers := o.workers
	if workers > len(clients) {
		workers = len(clients)
	}
	results := make([]ClientResult, len(clients))
	done := make([]bool, len(clients))
	jobs := make(chan int)
	clientCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = o.processClient(clientCtx, &clients[i], now, cycle)
				done[i] = true
			}
		}()
	}

	cancelled := false
feed:
	for i := range clients {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		select {
		case <-ctx.Done():
			cancelled = true
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	out := make([]ClientResult, 0, len(clients))
	for i, ok := range done {
		if ok {
			out = append(out, results[i])
		}
	}
	return out, cancelled
}

// processClient never panics and never returns an error: every failure is
// logged and reported in the result.
func (o *Orchestrator) processClient(ctx context.Context, c *models.Client, now time.Time, cycle string) (res ClientResult) {
	res = ClientResult{ClientID: c.ID, ClientName: c.Name}
	stage := StageCreate
	var inv *models.Invoice

	defer func() {
		if r := recover(); r != nil {
			err := &StageError{Client: c.Name, Stage: stage, Err: fmt.Errorf("panic: %v", r)}
			logging.LogError(o.logger.WithField("client_id", c.ID), "processClient", "recovered panic", nil, err)
			if inv != nil && inv.ID == "" {
				inv = nil
			}
			if lerr := o.log.Append(ctx, activity.Failed(c, inv, err.Error())); lerr != nil {
				o.logger.WithError(lerr).Error("write failure log")
			}
			res.Err = err
			res.Status = models.InvoiceStatusFailed
		}
	}()

	inv = &models.Invoice{
		ClientID:  c.ID,
		Dated:     now,
		MonthYear: cycle,
		Status:    models.InvoiceStatusPending,
	}
	if _, err := o.numbers.Allocate(ctx, now, func(number string) error {
		inv.Number = number
		return o.store.CreateInvoice(ctx, inv)
	}); err != nil {
		serr := &StageError{Client: c.Name, Stage: StageCreate, Err: err}
		o.appendFailure(ctx, activity.Failed(c, nil, serr.Error()))
		inv = nil
		res.Err = serr
		return res
	}
	res.InvoiceID, res.InvoiceNumber, res.Status = inv.ID, inv.Number, inv.Status

	stage = StageRender
	doc, err := o.renderDocument(ctx, c, inv)
	if err != nil {
		serr := &StageError{Client: c.Name, Stage: StageRender, Err: err}
		o.appendFailure(ctx, activity.Failed(c, inv, serr.Error()))
		res.Err = serr
		return res
	}

	stage = StageRecord
	details := fmt.Sprintf("Invoice %s generated for %s (%s)", inv.Number, c.Name, cycle)
	if !c.HasEmail() {
		details += ": no email on file, delivery skipped"
	}
	if err := o.markGenerated(ctx, inv, activity.Generated(inv, details)); err != nil {
		serr := &StageError{Client: c.Name, Stage: StageRecord, Err: err}
		o.appendFailure(ctx, activity.Failed(c, inv, serr.Error()))
		res.Err = serr
		return res
	}
	res.Status = inv.Status

	if !c.HasEmail() {
		res.EmailSkipped = true
		o.logger.WithFields(logrus.Fields{"client_id": c.ID, "invoice": inv.Number}).
			Debug(ErrSkippedNoEmail.Error())
		return res
	}

	stage = StageDeliver
	if err := o.deliver(ctx, c, inv, doc); err != nil {
		serr := &StageError{Client: c.Name, Stage: StageDeliver, Err: err}
		if rerr := o.transition(ctx, inv, repository.InvoiceUpdate{Status: statusPtr(models.InvoiceStatusFailed)},
			activity.Failed(c, inv, serr.Error())); rerr != nil {
			logging.LogError(o.logger, "processClient", "record delivery failure", inv.Number, rerr)
		}
		res.Status = models.InvoiceStatusFailed
		res.Err = serr
		return res
	}

	stage = StageRecord
	sentAt := o.now()
	if err := o.transition(ctx, inv, repository.InvoiceUpdate{Status: statusPtr(models.InvoiceStatusSent), EmailSentAt: &sentAt},
		activity.Sent(inv, fmt.Sprintf("Invoice %s sent to %s", inv.Number, c.EmailAddress()))); err != nil {
		serr := &StageError{Client: c.Name, Stage: StageRecord, Err: err}
		o.appendFailure(ctx, activity.Failed(c, inv, serr.Error()))
		res.Err = serr
		return res
	}
	res.Status = inv.Status
	return res
}

// renderDocument renders inv with the active template and stores the result.
func (o *Orchestrator) renderDocument(ctx context.Context, c *models.Client, inv *models.Invoice) (*render.Document, error) {
	tmpl, err := o.store.ActiveTemplate(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		tmpl = nil
	} else if err != nil {
		return nil, &render.RenderError{Op: "template", Err: err}
	}

	fields := render.FieldsFor(c, inv)
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	doc, err := callWithTimeout(ctx, o.renderTimeout, func(ctx context.Context) (*render.Document, error) {
		return o.renderer.Render(ctx, tmpl, fields)
	})
	if err != nil {
		var rerr *render.RenderError
		if !errors.As(err, &rerr) {
			err = &render.RenderError{Op: "render", Err: err}
		}
		return nil, err
	}

	key := storage.InvoiceKey(inv.ID)
	if err := o.docs.Put(ctx, key, doc.Data, doc.ContentType); err != nil {
		return nil, &render.RenderError{Op: "store", Err: err}
	}
	inv.DocumentPath = &key
	return doc, nil
}

func (o *Orchestrator) markGenerated(ctx context.Context, inv *models.Invoice, entry *models.LogEntry) error {
	return o.transition(ctx, inv, repository.InvoiceUpdate{
		Status:       statusPtr(models.InvoiceStatusGenerated),
		DocumentPath: inv.DocumentPath,
	}, entry)
}

// deliver sends doc to the client using the active email settings.
func (o *Orchestrator) deliver(ctx context.Context, c *models.Client, inv *models.Invoice, doc *render.Document) error {
	settings, err := o.emailSettings(ctx)
	if err != nil {
		return &notify.DeliveryError{To: c.EmailAddress(), Err: err}
	}
	msg := notify.Compose(c, inv, settings, doc)
	_, err = callWithTimeout(ctx, o.sendTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, o.notifier.Send(ctx, settings, msg)
	})
	if err != nil {
		var derr *notify.DeliveryError
		if !errors.As(err, &derr) {
			err = &notify.DeliveryError{To: msg.To, Err: err}
		}
		return err
	}
	return nil
}

func (o *Orchestrator) emailSettings(ctx context.Context) (models.EmailSettings, error) {
	active, err := o.store.ActiveEmailSettings(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return notify.Resolve(nil, o.defaults), nil
	}
	if err != nil {
		return models.EmailSettings{}, fmt.Errorf("load email settings: %w", err)
	}
	return notify.Resolve(active, o.defaults), nil
}

// transition applies u to inv and appends entry in one transaction. inv is
// refreshed from the database on success.
func (o *Orchestrator) transition(ctx context.Context, inv *models.Invoice, u repository.InvoiceUpdate, entry *models.LogEntry) error {
	return o.store.Transaction(ctx, func(tx *repository.Store) error {
		updated, err := tx.UpdateInvoice(ctx, inv.ID, u)
		if err != nil {
			return fmt.Errorf("update invoice %s: %w", inv.Number, err)
		}
		if err := o.log.In(tx).Append(ctx, entry); err != nil {
			return err
		}
		inv.Status = updated.Status
		inv.DocumentPath = updated.DocumentPath
		inv.EmailSentAt = updated.EmailSentAt
		return nil
	})
}

func (o *Orchestrator) appendFailure(ctx context.Context, entry *models.LogEntry) {
	if err := o.log.Append(ctx, entry); err != nil {
		logging.LogError(o.logger, "appendFailure", "write failure log", entry.Details, err)
	}
}

func summarize(cycle string, results []ClientResult) Summary {
	s := Summary{Cycle: cycle, Processed: len(results), Errors: []string{}, Results: results}
	for _, r := range results {
		if r.Failed() {
			s.Failed++
			s.Errors = append(s.Errors, r.Err.Error())
		} else {
			s.Succeeded++
		}
	}
	return s
}

func runStatus(s Summary) string {
	switch {
	case s.Failed == 0:
		return models.LogStatusSuccess
	case s.Succeeded == 0:
		return models.LogStatusFailed
	default:
		return models.LogStatusPartial
	}
}

// callWithTimeout runs fn with a deadline. A call that outlives the deadline is
// abandoned and reported as context.DeadlineExceeded.
func callWithTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := fn(ctx)
		ch <- result{v: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func statusPtr(s models.InvoiceStatus) *models.InvoiceStatus { return &s }
