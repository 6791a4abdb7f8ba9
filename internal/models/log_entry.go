package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LogAction names what a log entry records.
type LogAction string

const (
	ActionGenerated                  LogAction = "generated"
	ActionSent                       LogAction = "sent"
	ActionFailed                     LogAction = "failed"
	ActionRetried                    LogAction = "retried"
	ActionMonthlyGenerationError     LogAction = "monthly_generation_error"
	ActionMonthlyGenerationCompleted LogAction = "monthly_generation_completed"
	ActionMonthlyGenerationFailed    LogAction = "monthly_generation_failed"
	ActionInvoiceSent                LogAction = "invoice_sent"
	ActionEmailFailed                LogAction = "email_failed"
)

// Log entry statuses. The column is free-form; these are the values the app writes.
const (
	LogStatusSuccess = "success"
	LogStatusFailed  = "failed"
	LogStatusInfo    = "info"
	LogStatusPartial = "partial"
)

// LogEntry is an append-only activity record. Invoice and client references are optional.
type LogEntry struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	InvoiceID *string   `gorm:"type:varchar(36);index" json:"invoice_id,omitempty"`
	ClientID  *string   `gorm:"type:varchar(36);index" json:"client_id,omitempty"`
	Action    LogAction `gorm:"size:50;not null" json:"action"`
	Status    string    `gorm:"size:20;not null;default:'info'" json:"status"`
	Details   string    `gorm:"type:text" json:"details,omitempty"`
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
}

// BeforeCreate assigns the id and timestamp.
func (l *LogEntry) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Timestamp.IsZero() {
		l.Timestamp = time.Now()
	}
	if l.Status == "" {
		l.Status = LogStatusInfo
	}
	return nil
}

// BeforeUpdate refuses any update; entries are never mutated.
func (l *LogEntry) BeforeUpdate(tx *gorm.DB) error {
	return ErrLogEntryImmutable
}
