package handlers

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/diewo77/gst-invoices/httpx"
	"github.com/diewo77/gst-invoices/internal/models"
	"github.com/diewo77/gst-invoices/internal/services"
	"github.com/diewo77/gst-invoices/validation"
)

type TemplateHandler struct {
	svc    *services.TemplateService
	logger *logrus.Entry
}

func NewTemplateHandler(svc *services.TemplateService, logger *logrus.Entry) *TemplateHandler {
	return &TemplateHandler{svc: svc, logger: logger}
}

func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	templates, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, h.logger, "ListTemplates", err)
		return
	}
	httpx.JSON(w, http.StatusOK, templates)
}

type templateRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	FilePath string `json:"file_path" validate:"required,max=500"`
	Version  string `json:"version" validate:"omitempty,max=20"`
	IsActive bool   `json:"is_active"`
}

func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
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
	t := &models.Template{Name: req.Name, FilePath: req.FilePath, Version: req.Version, IsActive: req.IsActive}
	if err := h.svc.Create(r.Context(), t); err != nil {
		writeError(w, h.logger, "CreateTemplate", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, t)
}

func (h *TemplateHandler) Activate(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Activate(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, h.logger, "ActivateTemplate", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TemplateHandler) Preview(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Preview(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, "PreviewTemplate", err)
		return
	}
	w.Header().Set("Content-Type", doc.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Data)
}

// Upload accepts a multipart form with a "template" file and an optional "name".
func (h *TemplateHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxTemplateSize+1<<20)
	if err := r.ParseMultipartForm(services.MaxTemplateSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, h.logger, "UploadTemplate", services.ErrTemplateTooLarge)
			return
		}
		httpx.JSONError(w, http.StatusBadRequest, httpx.CodeValidationFailed, map[string]string{"template": "required"})
		return
	}
	file, header, err := r.FormFile("template")
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, httpx.CodeValidationFailed, map[string]string{"template": "required"})
		return
	}
	defer file.Close()

	t, err := h.svc.Upload(r.Context(), header.Filename, r.FormValue("name"), file)
	if err != nil {
		writeError(w, h.logger, "UploadTemplate", err)
		return
	}
	h.logger.WithFields(logrus.Fields{"template_id": t.ID, "file": t.FilePath}).Info("template uploaded")
	httpx.JSON(w, http.StatusCreated, t)
}

func (h *TemplateHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/templates", h.List)
	mux.HandleFunc("POST /api/templates", h.Create)
	mux.HandleFunc("POST /api/templates/upload", h.Upload)
	mux.HandleFunc("POST /api/templates/{id}/activate", h.Activate)
	mux.HandleFunc("GET /api/templates/{id}/preview", h.Preview)
}
