package handlers

import (
	"bytes"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/diewo77/gst-invoices/httpx"
	"github.com/diewo77/gst-invoices/internal/activity"
	"github.com/diewo77/gst-invoices/internal/export"
	"github.com/diewo77/gst-invoices/internal/models"
)

// maxLogLimit caps ?limit on the log endpoints.
const maxLogLimit = 1000

type LogHandler struct {
	log    *activity.Log
	logger *logrus.Entry
}

func NewLogHandler(log *activity.Log, logger *logrus.Entry) *LogHandler {
	return &LogHandler{log: log, logger: logger}
}

func (h *LogHandler) entries(r *http.Request) ([]models.LogEntry, error) {
	if id := r.URL.Query().Get("invoiceId"); id != "" {
		return h.log.ForInvoice(r.Context(), id)
	}
	limit := queryInt(r, "limit", 0)
	if limit > maxLogLimit {
		limit = maxLogLimit
	}
	return h.log.Recent(r.Context(), limit)
}

// List returns ?invoiceId's entries, or the newest ?limit entries.
func (h *LogHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.entries(r)
	if err != nil {
		writeError(w, h.logger, "ListLogs", err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *LogHandler) Export(w http.ResponseWriter, r *http.Request) {
	entries, err := h.entries(r)
	if err != nil {
		writeError(w, h.logger, "ExportLogs", err)
		return
	}
	var buf bytes.Buffer
	if err := export.Logs(&buf, entries); err != nil {
		writeError(w, h.logger, "ExportLogs", err)
		return
	}
	httpx.Attachment(w, "activity-"+time.Now().Format(dateLayout)+".xlsx", export.ContentType, buf.Bytes())
}

func (h *LogHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/logs", h.List)
	mux.HandleFunc("GET /api/logs/export", h.Export)
}
