package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InvoiceStatus represents the status of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusGenerated InvoiceStatus = "generated"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusFailed    InvoiceStatus = "failed"
)

// Valid reports whether s is a known status.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusGenerated, InvoiceStatusSent, InvoiceStatusFailed:
		return true
	}
	return false
}

// Invoice is one billing event for one client in one cycle.
type Invoice struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ClientID string  `gorm:"type:varchar(36);index;not null" json:"client_id"`
	Client   *Client `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE" json:"client,omitempty"`

	Number    string        `gorm:"column:invoice_number;size:50;uniqueIndex;not null" json:"invoice_number"`
	Dated     time.Time     `gorm:"index;not null" json:"dated"`
	MonthYear string        `gorm:"size:50;not null" json:"month_year"`
	Status    InvoiceStatus `gorm:"size:20;index;not null;default:'pending'" json:"status"`

	DocumentPath *string    `gorm:"size:500" json:"document_path,omitempty"`
	EmailSentAt  *time.Time `json:"email_sent_at,omitempty"`
}

// BeforeCreate assigns a UUID when none is set.
func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// HasDocument reports whether a rendered document is stored for the invoice.
func (i *Invoice) HasDocument() bool {
	return i.DocumentPath != nil && *i.DocumentPath != ""
}

// CycleLabel formats the month label stamped on every invoice of a run, e.g. "July 2025".
func CycleLabel(t time.Time) string {
	return t.Format("January 2006")
}
