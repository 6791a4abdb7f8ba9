// Package handlers implements the JSON API.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/diewo77/gst-invoices/httpx"
	"github.com/diewo77/gst-invoices/internal/batch"
	"github.com/diewo77/gst-invoices/internal/logging"
	"github.com/diewo77/gst-invoices/internal/notify"
	"github.com/diewo77/gst-invoices/internal/render"
	"github.com/diewo77/gst-invoices/internal/repository"
	"github.com/diewo77/gst-invoices/internal/services"
	"github.com/diewo77/gst-invoices/internal/storage"
)

// writeError maps domain errors to status codes. Anything unknown is logged and
// answered with 500.
func writeError(w http.ResponseWriter, logger *logrus.Entry, op string, err error) {
	var (
		collision *repository.NumberCollisionError
		delivery  *notify.DeliveryError
		rendering *render.RenderError
		fields    *render.FieldError
	)
	switch {
	case errors.Is(err, repository.ErrDuplicateClient):
		httpx.JSONError(w, http.StatusConflict, httpx.CodeConflict, map[string]string{"name": "already_exists"})
	case errors.As(err, &collision):
		httpx.JSONError(w, http.StatusConflict, httpx.CodeNumberCollision, err.Error())
	case errors.Is(err, batch.ErrSkippedNoEmail):
		httpx.JSONError(w, http.StatusUnprocessableEntity, httpx.CodeValidationFailed, map[string]string{"email": "required"})
	case errors.Is(err, services.ErrUnsupportedTemplate):
		httpx.JSONError(w, http.StatusBadRequest, httpx.CodeValidationFailed, map[string]string{"file": "unsupported_type"})
	case errors.Is(err, services.ErrTemplateTooLarge):
		httpx.JSONError(w, http.StatusRequestEntityTooLarge, httpx.CodeValidationFailed, map[string]string{"file": "too_large"})
	case errors.As(err, &delivery):
		logger.WithError(err).Warn(op)
		httpx.JSONError(w, http.StatusBadGateway, httpx.CodeDeliveryFailed, err.Error())
	case errors.As(err, &fields), errors.As(err, &rendering):
		logger.WithError(err).Warn(op)
		httpx.JSONError(w, http.StatusUnprocessableEntity, httpx.CodeRenderFailed, err.Error())
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, storage.ErrNotExist):
		httpx.JSONError(w, http.StatusNotFound, httpx.CodeNotFound, nil)
	default:
		logging.LogError(logger, op, "request failed", nil, err)
		httpx.JSONError(w, http.StatusInternalServerError, httpx.CodeInternal, nil)
	}
}

func queryInt(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return n
}
