package db

import (
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/gst-invoices/internal/config"
	"github.com/diewo77/gst-invoices/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	d, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestMigrateAuto(t *testing.T) {
	d := openTestDB(t)
	cfg := config.Load()
	cfg.App.Migrations = "auto"
	if err := Migrate(d, cfg); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := Ping(d); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestMigrateSQLRequiresPostgres(t *testing.T) {
	d := openTestDB(t)
	cfg := config.Load()
	cfg.App.Migrations = "sql"
	cfg.Database.Driver = "sqlite"
	if err := Migrate(d, cfg); err == nil {
		t.Fatalf("expected error for sql migrations on sqlite")
	}
}

func TestSeedIdempotent(t *testing.T) {
	d := openTestDB(t)
	if err := AutoMigrate(d); err != nil {
		t.Fatal(err)
	}
	cfg := config.Load()
	cfg.SMTP.FromEmail = "billing@example.com"
	cfg.Auth.PasswordHash = "$2a$10$abcdefghijklmnopqrstuv"

	for i := 0; i < 2; i++ {
		if err := Seed(d, cfg); err != nil {
			t.Fatalf("seed #%d: %v", i+1, err)
		}
		if err := SeedDemo(d); err != nil {
			t.Fatalf("seed demo #%d: %v", i+1, err)
		}
	}

	var ops, settings, templates, clients int64
	d.Model(&models.Operator{}).Count(&ops)
	d.Model(&models.EmailSettings{}).Count(&settings)
	d.Model(&models.Template{}).Count(&templates)
	d.Model(&models.Client{}).Count(&clients)
	if ops != 1 || settings != 1 || templates != 1 || clients != 2 {
		t.Fatalf("unexpected counts ops=%d settings=%d templates=%d clients=%d", ops, settings, templates, clients)
	}

	var active models.EmailSettings
	if err := d.Where("is_active = ?", true).First(&active).Error; err != nil {
		t.Fatalf("active settings: %v", err)
	}
	if active.SMTPPort != 587 || active.FromEmail != "billing@example.com" {
		t.Fatalf("unexpected settings %+v", active)
	}
}

func TestMaskDSN(t *testing.T) {
	tests := []struct{ in, want string }{
		{"host=db user=u password=secret dbname=x", "host=db user=u password=*** dbname=x"},
		{"postgres://u:secret@db:5432/x?sslmode=disable", "postgres://u:***@db:5432/x?sslmode=disable"},
		{"postgres://db:5432/x", "postgres://db:5432/x"},
	}
	for _, tt := range tests {
		if got := MaskDSN(tt.in); got != tt.want {
			t.Errorf("MaskDSN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
