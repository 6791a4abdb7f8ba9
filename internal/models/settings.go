package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrLogEntryImmutable is returned by gorm hooks when something tries to update a log entry.
var ErrLogEntryImmutable = errors.New("log entries are append-only")

// EmailSettings is the global SMTP configuration. At most one row is active.
type EmailSettings struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	SMTPHost     string `gorm:"column:smtp_host;size:255;not null;default:'smtp.gmail.com'" json:"smtp_host"`
	SMTPPort     int    `gorm:"column:smtp_port;not null;default:587" json:"smtp_port"`
	SMTPSecure   bool   `gorm:"column:smtp_secure;not null;default:false" json:"smtp_secure"`
	SMTPUser     string `gorm:"column:smtp_user;size:255" json:"smtp_user"`
	SMTPPassword string `gorm:"column:smtp_password;size:255" json:"-"`
	FromEmail    string `gorm:"size:255;not null" json:"from_email"`
	FromName     string `gorm:"size:255;not null;default:'GST Invoicing'" json:"from_name"`
	ReplyTo      string `gorm:"size:255" json:"reply_to,omitempty"`
	IsActive     bool   `gorm:"index;not null" json:"is_active"`
}

// BeforeCreate assigns a UUID when none is set.
func (e *EmailSettings) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// Template is a named, versioned document template file reference. At most one is active.
type Template struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name     string `gorm:"size:255;not null" json:"name"`
	FilePath string `gorm:"size:500;not null" json:"file_path"`
	Version  string `gorm:"size:20;not null;default:'1.0'" json:"version"`
	IsActive bool   `gorm:"index;not null;default:false" json:"is_active"`
}

// BeforeCreate assigns a UUID when none is set.
func (t *Template) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Version == "" {
		t.Version = "1.0"
	}
	return nil
}

// All lists every model managed by AutoMigrate, in dependency order.
func All() []any {
	return []any{&Client{}, &Invoice{}, &Template{}, &LogEntry{}, &EmailSettings{}, &Operator{}}
}
