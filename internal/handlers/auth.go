package handlers

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/diewo77/gst-invoices/auth"
	"github.com/diewo77/gst-invoices/httpx"
	"github.com/diewo77/gst-invoices/validation"
)

type AuthHandler struct {
	store  auth.OperatorStore
	logger *logrus.Entry
}

func NewAuthHandler(store auth.OperatorStore, logger *logrus.Entry) *AuthHandler {
	return &AuthHandler{store: store, logger: logger}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
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

	op, err := auth.Authenticate(r.Context(), h.store, req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		h.logger.WithField("username", req.Username).Warn("login rejected")
		httpx.JSONError(w, http.StatusUnauthorized, httpx.CodeUnauthorized, nil)
		return
	}
	if err != nil {
		writeError(w, h.logger, "Login", err)
		return
	}

	auth.CreateSession(w, op.ID)
	httpx.JSON(w, http.StatusOK, op)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/login", h.Login)
	mux.HandleFunc("POST /api/logout", h.Logout)
}
