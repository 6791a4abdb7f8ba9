package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/diewo77/gst-invoices/httpx"
	"github.com/diewo77/gst-invoices/internal/activity"
	"github.com/diewo77/gst-invoices/internal/models"
	"github.com/diewo77/gst-invoices/internal/repository"
	"github.com/diewo77/gst-invoices/validation"
)

type ClientHandler struct {
	store  *repository.Store
	log    *activity.Log
	logger *logrus.Entry
}

func NewClientHandler(store *repository.Store, log *activity.Log, logger *logrus.Entry) *ClientHandler {
	return &ClientHandler{store: store, log: log, logger: logger}
}

// clientRequest is the writable part of a client.
type clientRequest struct {
	Name               string  `json:"name" validate:"required,max=255"`
	Email              *string `json:"email" validate:"omitempty,email"`
	AtSite             string  `json:"at_site" validate:"required,max=255"`
	GSTIN              *string `json:"gstin" validate:"omitempty,len=15,alphanum"`
	State              string  `json:"state" validate:"required,max=100"`
	ServiceDescription string  `json:"service_description" validate:"required"`
	HSNSACCode         *string `json:"hsn_sac_code" validate:"omitempty,max=20"`

	Rate                decimal.Decimal `json:"rate"`
	CGST                decimal.Decimal `json:"cgst"`
	SGST                decimal.Decimal `json:"sgst"`
	IGST                decimal.Decimal `json:"igst"`
	TotalTax            decimal.Decimal `json:"total_tax"`
	TotalAmountAfterTax decimal.Decimal `json:"total_amount_after_tax"`
	AmountInWords       string          `json:"amount_in_words" validate:"required"`

	CustomEmailBody   *string `json:"custom_email_body"`
	CustomSenderEmail *string `json:"custom_sender_email" validate:"omitempty,email"`
	CustomSenderName  *string `json:"custom_sender_name" validate:"omitempty,max=255"`
}

func (req clientRequest) validate() validation.Violations {
	v := make(validation.Violations)
	validation.Struct(req, v)
	validation.PositiveDecimal("rate", req.Rate, v)
	validation.NonNegativeDecimal("cgst", req.CGST, v)
	validation.NonNegativeDecimal("sgst", req.SGST, v)
	validation.NonNegativeDecimal("igst", req.IGST, v)
	if v.Empty() && !req.model().TaxConsistent() {
		v["total_amount_after_tax"] = "inconsistent_totals"
	}
	return v
}

func (req clientRequest) model() *models.Client {
	return &models.Client{
		Name:                req.Name,
		Email:               req.Email,
		AtSite:              req.AtSite,
		GSTIN:               req.GSTIN,
		State:               req.State,
		ServiceDescription:  req.ServiceDescription,
		HSNSACCode:          req.HSNSACCode,
		Rate:                req.Rate,
		CGST:                req.CGST,
		SGST:                req.SGST,
		IGST:                req.IGST,
		TotalTax:            req.TotalTax,
		TotalAmountAfterTax: req.TotalAmountAfterTax,
		AmountInWords:       req.AmountInWords,
		CustomEmailBody:     req.CustomEmailBody,
		CustomSenderEmail:   req.CustomSenderEmail,
		CustomSenderName:    req.CustomSenderName,
	}
}

func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	clients, err := h.store.ListClients(r.Context())
	if err != nil {
		writeError(w, h.logger, "ListClients", err)
		return
	}
	httpx.JSON(w, http.StatusOK, clients)
}

// Get returns the client with its invoices and activity.
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.GetClientWithInvoices(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, "GetClient", err)
		return
	}
	entries, err := h.log.ForClient(r.Context(), c.ID)
	if err != nil {
		writeError(w, h.logger, "GetClient", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"client": c, "logs": entries})
}

func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, httpx.CodeInvalidJSON, err.Error())
		return
	}
	if v := req.validate(); !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, httpx.CodeValidationFailed, v)
		return
	}
	c := req.model()
	if err := h.store.CreateClient(r.Context(), c); err != nil {
		writeError(w, h.logger, "CreateClient", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, httpx.CodeInvalidJSON, err.Error())
		return
	}
	if v := req.validate(); !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, httpx.CodeValidationFailed, v)
		return
	}
	c, err := h.store.UpdateClient(r.Context(), r.PathValue("id"), req.model())
	if err != nil {
		writeError(w, h.logger, "UpdateClient", err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteClient(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, h.logger, "DeleteClient", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ClientHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/clients", h.List)
	mux.HandleFunc("POST /api/clients", h.Create)
	mux.HandleFunc("GET /api/clients/{id}", h.Get)
	mux.HandleFunc("PUT /api/clients/{id}", h.Update)
	mux.HandleFunc("DELETE /api/clients/{id}", h.Delete)
}
