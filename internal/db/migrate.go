package db

import (
	"errors"
	"fmt"
	"strings"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// The following blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/gst-invoices/internal/config"
	"github.com/diewo77/gst-invoices/internal/models"
)

const connectAttempts = 10

// Open connects to the configured database, retrying while postgres starts up.
func Open(cfg config.DatabaseConfig, log *logrus.Entry) (*gorm.DB, error) {
	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel), TranslateError: true}

	if cfg.Driver == "sqlite" {
		return gorm.Open(sqlite.Open(cfg.Path), gcfg)
	}

	log.WithField("dsn", MaskDSN(cfg.DSN())).Info("connecting to database")

	var db *gorm.DB
	var err error
	for i := 0; i < connectAttempts; i++ {
		db, err = gorm.Open(postgres.Open(cfg.DSN()), gcfg)
		if err == nil {
			break
		}
		log.WithError(err).Warnf("database not ready, retry %d/%d", i+1, connectAttempts)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}
	if pingErr := Ping(db); pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}
	return db, nil
}

// Ping runs a lightweight SELECT 1.
func Ping(db *gorm.DB) error {
	return db.Exec("SELECT 1").Error
}

// Migrate brings the schema up to date using the configured strategy.
func Migrate(db *gorm.DB, cfg *config.Config) error {
	switch strings.ToLower(cfg.App.Migrations) {
	case "off":
		return nil
	case "sql":
		if cfg.Database.Driver != "postgres" {
			return errors.New("sql migrations require the postgres driver")
		}
		if err := RunSQLMigrations(cfg.App.MigrationsDir, cfg.Database.URL()); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
	default:
		if err := AutoMigrate(db); err != nil {
			return err
		}
	}
	return checkTables(db)
}

// AutoMigrate runs gorm AutoMigrate for every model.
func AutoMigrate(db *gorm.DB) error {
	for _, m := range models.All() {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

// RunSQLMigrations executes the migrations in dir using the golang-migrate file source.
func RunSQLMigrations(dir, databaseURL string) error {
	m, err := migrate.New("file://"+dir, databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()
	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// sanity check: ensure required core tables exist
func checkTables(db *gorm.DB) error {
	for _, table := range []string{"clients", "invoices", "log_entries", "email_settings", "templates"} {
		if !db.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}
