package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/diewo77/gst-invoices/httpx"
	"github.com/diewo77/gst-invoices/internal/models"
	"github.com/diewo77/gst-invoices/internal/notify"
	"github.com/diewo77/gst-invoices/internal/services"
	"github.com/diewo77/gst-invoices/internal/stats"
	"github.com/diewo77/gst-invoices/validation"
)

type StatsHandler struct {
	svc    *stats.Service
	logger *logrus.Entry
	now    func() time.Time
}

func NewStatsHandler(svc *stats.Service, logger *logrus.Entry) *StatsHandler {
	return &StatsHandler{svc: svc, logger: logger, now: time.Now}
}

// Get computes the dashboard counters on every call.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Compute(r.Context(), h.now())
	if err != nil {
		writeError(w, h.logger, "Statistics", err)
		return
	}
	httpx.JSON(w, http.StatusOK, s)
}

type EmailSettingsHandler struct {
	svc    *services.EmailSettingsService
	logger *logrus.Entry
}

func NewEmailSettingsHandler(svc *services.EmailSettingsService, logger *logrus.Entry) *EmailSettingsHandler {
	return &EmailSettingsHandler{svc: svc, logger: logger}
}

// emailSettingsRequest carries the password in, which models.EmailSettings never
// serializes.
type emailSettingsRequest struct {
	SMTPHost     string `json:"smtp_host" validate:"required,hostname|ip"`
	SMTPPort     int    `json:"smtp_port"`
	SMTPSecure   bool   `json:"smtp_secure"`
	SMTPUser     string `json:"smtp_user"`
	SMTPPassword string `json:"smtp_password"`
	FromEmail    string `json:"from_email" validate:"required,email"`
	FromName     string `json:"from_name" validate:"max=255"`
	ReplyTo      string `json:"reply_to" validate:"omitempty,email"`
}

func (req emailSettingsRequest) model() models.EmailSettings {
	return models.EmailSettings{
		SMTPHost:     req.SMTPHost,
		SMTPPort:     req.SMTPPort,
		SMTPSecure:   req.SMTPSecure,
		SMTPUser:     req.SMTPUser,
		SMTPPassword: req.SMTPPassword,
		FromEmail:    req.FromEmail,
		FromName:     req.FromName,
		ReplyTo:      req.ReplyTo,
	}
}

func (h *EmailSettingsHandler) decode(w http.ResponseWriter, r *http.Request) (models.EmailSettings, bool) {
	var req emailSettingsRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, httpx.CodeInvalidJSON, err.Error())
		return models.EmailSettings{}, false
	}
	v := make(validation.Violations)
	validation.Struct(req, v)
	validation.RangeInt("smtp_port", req.SMTPPort, 1, 65535, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, httpx.CodeValidationFailed, v)
		return models.EmailSettings{}, false
	}
	return req.model(), true
}

func (h *EmailSettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Get(r.Context())
	if err != nil {
		writeError(w, h.logger, "GetEmailSettings", err)
		return
	}
	httpx.JSON(w, http.StatusOK, s)
}

// Update replaces the active settings. An empty smtp_password keeps the stored one.
func (h *EmailSettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	s, ok := h.decode(w, r)
	if !ok {
		return
	}
	if err := h.svc.Save(r.Context(), &s); err != nil {
		writeError(w, h.logger, "UpdateEmailSettings", err)
		return
	}
	httpx.JSON(w, http.StatusOK, s)
}

// Test dials the SMTP server described by the body without saving it.
func (h *EmailSettingsHandler) Test(w http.ResponseWriter, r *http.Request) {
	s, ok := h.decode(w, r)
	if !ok {
		return
	}
	err := h.svc.Test(r.Context(), s)
	if errors.Is(err, notify.ErrNotConfigured) {
		httpx.JSONError(w, http.StatusBadRequest, httpx.CodeValidationFailed, err.Error())
		return
	}
	if err != nil {
		writeError(w, h.logger, "TestEmailSettings", &notify.DeliveryError{To: s.SMTPHost, Err: err})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *StatsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/statistics", h.Get)
}

func (h *EmailSettingsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/email-settings", h.Get)
	mux.HandleFunc("PUT /api/email-settings", h.Update)
	mux.HandleFunc("POST /api/email-settings/test", h.Test)
}
