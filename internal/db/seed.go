package db

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/gst-invoices/internal/config"
	"github.com/diewo77/gst-invoices/internal/models"
)

// Seed creates the operator account, default email settings and a default template
// when they are missing. It is idempotent.
func Seed(db *gorm.DB, cfg *config.Config) error {
	if cfg.Auth.PasswordHash != "" {
		var op models.Operator
		err := db.Where("username = ?", cfg.Auth.Username).First(&op).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			op = models.Operator{Username: cfg.Auth.Username, Password: cfg.Auth.PasswordHash}
			if err := db.Create(&op).Error; err != nil {
				return fmt.Errorf("seed operator: %w", err)
			}
		case err != nil:
			return fmt.Errorf("seed operator: %w", err)
		}
	}

	var count int64
	if err := db.Model(&models.EmailSettings{}).Count(&count).Error; err != nil {
		return fmt.Errorf("seed email settings: %w", err)
	}
	if count == 0 && cfg.SMTP.FromEmail != "" {
		settings := DefaultEmailSettings(cfg.SMTP)
		if err := db.Create(&settings).Error; err != nil {
			return fmt.Errorf("seed email settings: %w", err)
		}
	}

	if err := db.Model(&models.Template{}).Count(&count).Error; err != nil {
		return fmt.Errorf("seed template: %w", err)
	}
	if count == 0 {
		tmpl := models.Template{Name: "Default GST Invoice", FilePath: "", Version: "1.0", IsActive: true}
		if err := db.Create(&tmpl).Error; err != nil {
			return fmt.Errorf("seed template: %w", err)
		}
	}
	return nil
}

// SeedDemo adds sample clients for local development.
func SeedDemo(db *gorm.DB) error {
	email := "accounts@example.com"
	clients := []models.Client{
		{
			Name: "Sunrise Apartments", AtSite: "Block A", State: "Maharashtra", Email: &email,
			ServiceDescription: "Security services", Rate: decimal.NewFromInt(25000),
			CGST: decimal.NewFromInt(2250), SGST: decimal.NewFromInt(2250),
			TotalTax: decimal.NewFromInt(4500), TotalAmountAfterTax: decimal.NewFromInt(29500),
			AmountInWords: "Twenty Nine Thousand Five Hundred Rupees Only",
		},
		{
			Name: "Lakeview Offices", AtSite: "Tower 2", State: "Karnataka",
			ServiceDescription: "Housekeeping services", Rate: decimal.NewFromInt(18000),
			IGST: decimal.NewFromInt(3240), TotalTax: decimal.NewFromInt(3240),
			TotalAmountAfterTax: decimal.NewFromInt(21240),
			AmountInWords: "Twenty One Thousand Two Hundred Forty Rupees Only",
		},
	}
	for _, c := range clients {
		var existing models.Client
		err := db.Where("name = ? AND at_site = ?", c.Name, c.AtSite).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := db.Create(&c).Error; err != nil {
				return fmt.Errorf("seed client %s: %w", c.Name, err)
			}
		} else if err != nil {
			return err
		}
	}
	return nil
}

// DefaultEmailSettings converts the SMTP fallback configuration into an active settings row.
func DefaultEmailSettings(smtp config.SMTPConfig) models.EmailSettings {
	return models.EmailSettings{
		SMTPHost:     smtp.Host,
		SMTPPort:     smtp.Port,
		SMTPSecure:   smtp.Secure,
		SMTPUser:     smtp.User,
		SMTPPassword: smtp.Password,
		FromEmail:    smtp.FromEmail,
		FromName:     smtp.FromName,
		ReplyTo:      smtp.ReplyTo,
		IsActive:     true,
	}
}
