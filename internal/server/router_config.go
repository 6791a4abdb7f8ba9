package server

import (
	"github.com/sirupsen/logrus"

	"github.com/diewo77/gst-invoices/internal/activity"
	"github.com/diewo77/gst-invoices/internal/batch"
	"github.com/diewo77/gst-invoices/internal/config"
	"github.com/diewo77/gst-invoices/internal/db"
	"github.com/diewo77/gst-invoices/internal/handlers"
	"github.com/diewo77/gst-invoices/internal/logging"
	"github.com/diewo77/gst-invoices/internal/notify"
	"github.com/diewo77/gst-invoices/internal/render"
	"github.com/diewo77/gst-invoices/internal/repository"
	"github.com/diewo77/gst-invoices/internal/services"
	"github.com/diewo77/gst-invoices/internal/stats"
	"github.com/diewo77/gst-invoices/internal/storage"
)

// Deps are the collaborators the application is built from. Renderer and
// Notifier default to the PDF renderer and the SMTP notifier.
type Deps struct {
	Config   *config.Config
	Store    *repository.Store
	Docs     storage.DocumentStore
	Logger   *logrus.Logger
	Renderer render.Renderer
	Notifier interface {
		notify.Notifier
		services.ConnectionTester
	}
}

// RouterConfig holds the configured handlers and the services behind them.
type RouterConfig struct {
	Orchestrator *batch.Orchestrator
	Activity     *activity.Log
	Stats        *stats.Service

	AuthHandler          *handlers.AuthHandler
	ClientHandler        *handlers.ClientHandler
	InvoiceHandler       *handlers.InvoiceHandler
	TemplateHandler      *handlers.TemplateHandler
	LogHandler           *handlers.LogHandler
	StatsHandler         *handlers.StatsHandler
	EmailSettingsHandler *handlers.EmailSettingsHandler

	InvoiceService *services.InvoiceService
}

// NewRouterConfig wires the orchestrator, services and handlers.
func NewRouterConfig(d Deps) *RouterConfig {
	cfg := d.Config
	renderer := d.Renderer
	if renderer == nil {
		renderer = render.NewPDFRenderer(render.Issuer{
			Name:    cfg.App.IssuerName,
			Address: cfg.App.IssuerAddress,
			GSTIN:   cfg.App.IssuerGSTIN,
		}, d.Docs)
	}
	notifier := d.Notifier
	if notifier == nil {
		notifier = notify.NewSMTPNotifier()
	}
	defaults := db.DefaultEmailSettings(cfg.SMTP)
	httpLog := logging.WithComponent(d.Logger, "http")

	orch := batch.New(d.Store, renderer, notifier, d.Docs, logging.WithComponent(d.Logger, "batch"), batch.Options{
		Workers:       cfg.Batch.Workers,
		RenderTimeout: cfg.Batch.RenderTimeout,
		SendTimeout:   cfg.Batch.SendTimeout,
		EmailDefaults: defaults,
	})
	log := activity.New(d.Store, logging.WithComponent(d.Logger, "activity"))
	statsSvc := stats.NewService(d.Store)
	invoiceSvc := services.NewInvoiceService(d.Store, orch, d.Docs)
	templateSvc := services.NewTemplateService(d.Store, d.Docs, render.NewHTMLRenderer(d.Docs))
	emailSvc := services.NewEmailSettingsService(d.Store, notifier, defaults)

	return &RouterConfig{
		Orchestrator:         orch,
		Activity:             log,
		Stats:                statsSvc,
		AuthHandler:          handlers.NewAuthHandler(d.Store, httpLog),
		ClientHandler:        handlers.NewClientHandler(d.Store, log, httpLog),
		InvoiceHandler:       handlers.NewInvoiceHandler(invoiceSvc, httpLog),
		TemplateHandler:      handlers.NewTemplateHandler(templateSvc, httpLog),
		LogHandler:           handlers.NewLogHandler(log, httpLog),
		StatsHandler:         handlers.NewStatsHandler(statsSvc, httpLog),
		EmailSettingsHandler: handlers.NewEmailSettingsHandler(emailSvc, httpLog),
		InvoiceService:       invoiceSvc,
	}
}
