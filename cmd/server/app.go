package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/diewo77/gst-invoices/auth"
	"github.com/diewo77/gst-invoices/internal/config"
	"github.com/diewo77/gst-invoices/internal/db"
	"github.com/diewo77/gst-invoices/internal/logging"
	"github.com/diewo77/gst-invoices/internal/repository"
	"github.com/diewo77/gst-invoices/internal/server"
	"github.com/diewo77/gst-invoices/internal/storage"
)

// app holds what every command needs: configuration, logger, database and document store.
type app struct {
	cfg    *config.Config
	logger *logrus.Logger
	db     *gorm.DB
	store  *repository.Store
	docs   storage.DocumentStore
}

type bootstrapOptions struct {
	migrate bool
	seed    bool
	storage bool
}

func bootstrap(ctx context.Context, opts bootstrapOptions) (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger := logging.New(cfg.Log)
	auth.SetSecret(cfg.Auth.SessionSecret)

	gdb, err := db.Open(cfg.Database, logging.WithComponent(logger, "db"))
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, db: gdb, store: repository.New(gdb)}

	if opts.migrate {
		if err := db.Migrate(gdb, cfg); err != nil {
			a.close()
			return nil, fmt.Errorf("migration failed: %w", err)
		}
		logger.WithField("strategy", cfg.App.Migrations).Info("migrations completed")
	}
	if opts.seed {
		if err := db.Seed(gdb, cfg); err != nil {
			a.close()
			return nil, fmt.Errorf("seeding failed: %w", err)
		}
	}
	if opts.storage {
		if a.docs, err = storage.New(ctx, cfg.Storage); err != nil {
			a.close()
			return nil, fmt.Errorf("open document storage: %w", err)
		}
	}
	return a, nil
}

func (a *app) routerConfig() *server.RouterConfig {
	return server.NewRouterConfig(server.Deps{
		Config: a.cfg,
		Store:  a.store,
		Docs:   a.docs,
		Logger: a.logger,
	})
}

func (a *app) close() {
	sqlDB, err := a.db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		a.logger.WithError(err).Warn("close database")
	}
}
