package handlers

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/diewo77/gst-invoices/httpx"
	"github.com/diewo77/gst-invoices/internal/export"
	"github.com/diewo77/gst-invoices/internal/models"
	"github.com/diewo77/gst-invoices/internal/repository"
	"github.com/diewo77/gst-invoices/internal/services"
	"github.com/diewo77/gst-invoices/validation"
)

const dateLayout = "2006-01-02"

type InvoiceHandler struct {
	svc    *services.InvoiceService
	logger *logrus.Entry
}

func NewInvoiceHandler(svc *services.InvoiceService, logger *logrus.Entry) *InvoiceHandler {
	return &InvoiceHandler{svc: svc, logger: logger}
}

// filterFromQuery reads ?status, ?clientId, ?startDate and ?endDate. Dates are
// YYYY-MM-DD; endDate covers the whole day.
func filterFromQuery(r *http.Request) (repository.InvoiceFilter, validation.Violations) {
	q := r.URL.Query()
	v := make(validation.Violations)
	f := repository.InvoiceFilter{ClientID: q.Get("clientId")}

	if s := q.Get("status"); s != "" {
		status := models.InvoiceStatus(s)
		if !status.Valid() {
			v["status"] = "invalid"
		}
		f.Status = status
	}
	if s := q.Get("startDate"); s != "" {
		t, err := time.ParseInLocation(dateLayout, s, time.Local)
		if err != nil {
			v["startDate"] = "invalid_date"
		} else {
			f.From = &t
		}
	}
	if s := q.Get("endDate"); s != "" {
		t, err := time.ParseInLocation(dateLayout, s, time.Local)
		if err != nil {
			v["endDate"] = "invalid_date"
		} else {
			end := t.AddDate(0, 0, 1).Add(-time.Second)
			f.To = &end
		}
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		v["endDate"] = "before_start_date"
	}
	return f, v
}

func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	f, v := filterFromQuery(r)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, httpx.CodeValidationFailed, v)
		return
	}
	invoices, err := h.svc.List(r.Context(), f)
	if err != nil {
		writeError(w, h.logger, "ListInvoices", err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoices)
}

func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	inv, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, "GetInvoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

type createInvoiceRequest struct {
	ClientID string `json:"client_id" validate:"required"`
}

// Create generates (and delivers, when possible) an invoice for one client now.
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, httpx.CodeInvalidJSON, err.Error())
		return
	}
	v := make(validation.Violations)
	validation.Struct(req, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, httpx.CodeValidationFailed, v)
		return
	}

	res, err := h.svc.Create(context.WithoutCancel(r.Context()), req.ClientID)
	if err != nil {
		writeError(w, h.logger, "CreateInvoice", err)
		return
	}
	if res.Failed() {
		writeError(w, h.logger.WithField("invoice", res.InvoiceNumber), "CreateInvoice", res.Err)
		return
	}
	httpx.JSON(w, http.StatusCreated, res)
}

// Send delivers an invoice again, whatever its current status.
func (h *InvoiceHandler) Send(w http.ResponseWriter, r *http.Request) {
	inv, err := h.svc.Send(context.WithoutCancel(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, "SendInvoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Batch runs a monthly cycle synchronously. A run already in progress is
// reported in the summary, not as an error. The run is not tied to the
// request so a dropped connection does not cut it short.
func (h *InvoiceHandler) Batch(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.RunBatch(context.WithoutCancel(r.Context()))
	if err != nil {
		writeError(w, h.logger, "RunBatch", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *InvoiceHandler) Document(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Document(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, "InvoiceDocument", err)
		return
	}
	httpx.Attachment(w, doc.Filename, doc.ContentType, doc.Data)
}

// Export returns the invoices matching the list filters as a workbook.
func (h *InvoiceHandler) Export(w http.ResponseWriter, r *http.Request) {
	f, v := filterFromQuery(r)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, httpx.CodeValidationFailed, v)
		return
	}
	invoices, err := h.svc.List(r.Context(), f)
	if err != nil {
		writeError(w, h.logger, "ExportInvoices", err)
		return
	}
	var buf bytes.Buffer
	if err := export.Invoices(&buf, invoices); err != nil {
		writeError(w, h.logger, "ExportInvoices", err)
		return
	}
	httpx.Attachment(w, "invoices-"+time.Now().Format(dateLayout)+".xlsx", export.ContentType, buf.Bytes())
}

func (h *InvoiceHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/invoices", h.List)
	mux.HandleFunc("POST /api/invoices", h.Create)
	mux.HandleFunc("POST /api/invoices/batch", h.Batch)
	mux.HandleFunc("GET /api/invoices/export", h.Export)
	mux.HandleFunc("GET /api/invoices/{id}", h.Get)
	mux.HandleFunc("POST /api/invoices/{id}/send", h.Send)
	mux.HandleFunc("GET /api/invoices/{id}/document", h.Document)
}
