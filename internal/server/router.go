// Package server assembles the HTTP application: routes, middleware and the
// wiring of services behind them.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/diewo77/gst-invoices/auth"
	"github.com/diewo77/gst-invoices/httpx"
	"github.com/diewo77/gst-invoices/internal/db"
	"github.com/diewo77/gst-invoices/internal/logging"
	"github.com/diewo77/gst-invoices/internal/repository"
)

// New constructs the root http.Handler with all routes and middlewares applied.
// Everything under /api except login and logout requires an operator session.
func New(gdb *gorm.DB, rc *RouterConfig, logger *logrus.Logger) http.Handler {
	store := repository.New(gdb)
	auth.SetOperatorVerifier(func(ctx context.Context, id uint) bool {
		return store.OperatorExists(ctx, id)
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Ping(gdb); err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	rc.AuthHandler.Register(mux)

	api := http.NewServeMux()
	rc.ClientHandler.Register(api)
	rc.InvoiceHandler.Register(api)
	rc.TemplateHandler.Register(api)
	rc.LogHandler.Register(api)
	rc.StatsHandler.Register(api)
	rc.EmailSettingsHandler.Register(api)
	mux.Handle("/api/", auth.RequireAuth(api))

	entry := logging.WithComponent(logger, "http")
	return withLogging(entry, withRecover(entry, auth.Middleware(mux)))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withLogging writes one access log entry per request.
func withLogging(logger *logrus.Entry, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}

func withRecover(logger *logrus.Entry, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				logger.WithFields(logrus.Fields{"path": r.URL.Path, "panic": v}).Error("handler panicked")
				httpx.JSONError(w, http.StatusInternalServerError, httpx.CodeInternal, nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
