package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Client is a business billed every cycle on fixed recurring terms.
// (Name, AtSite) is unique.
type Client struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name   string  `gorm:"size:255;not null;uniqueIndex:idx_clients_name_site" json:"name"`
	Email  *string `gorm:"size:255" json:"email,omitempty"`
	AtSite string  `gorm:"size:255;not null;uniqueIndex:idx_clients_name_site" json:"at_site"`
	GSTIN  *string `gorm:"column:gstin;size:15" json:"gstin,omitempty"`
	State  string  `gorm:"size:100;not null" json:"state"`

	ServiceDescription string  `gorm:"type:text;not null" json:"service_description"`
	HSNSACCode         *string `gorm:"column:hsn_sac_code;size:20" json:"hsn_sac_code,omitempty"`

	Rate                decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"rate"`
	CGST                decimal.Decimal `gorm:"column:cgst;type:decimal(10,2);not null" json:"cgst"`
	SGST                decimal.Decimal `gorm:"column:sgst;type:decimal(10,2);not null" json:"sgst"`
	IGST                decimal.Decimal `gorm:"column:igst;type:decimal(10,2);not null;default:0" json:"igst"`
	TotalTax            decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_tax"`
	TotalAmountAfterTax decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount_after_tax"`
	AmountInWords       string          `gorm:"type:text;not null" json:"amount_in_words"`

	// Per-client email overrides; empty means the global settings apply.
	CustomEmailBody   *string `gorm:"type:text" json:"custom_email_body,omitempty"`
	CustomSenderEmail *string `gorm:"size:255" json:"custom_sender_email,omitempty"`
	CustomSenderName  *string `gorm:"size:255" json:"custom_sender_name,omitempty"`

	Invoices []Invoice `gorm:"foreignKey:ClientID" json:"invoices,omitempty"`
}

// BeforeCreate assigns a UUID when none is set.
func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// EmailAddress returns the trimmed email, or "" when the client has none.
func (c *Client) EmailAddress() string {
	return deref(c.Email)
}

// HasEmail reports whether invoices can be delivered to this client.
func (c *Client) HasEmail() bool {
	return c.EmailAddress() != ""
}

// ComputedTax is CGST + SGST + IGST.
func (c *Client) ComputedTax() decimal.Decimal {
	return c.CGST.Add(c.SGST).Add(c.IGST)
}

// TaxConsistent reports whether the stored totals match rate and tax components.
func (c *Client) TaxConsistent() bool {
	return c.TotalTax.Equal(c.ComputedTax()) && c.TotalAmountAfterTax.Equal(c.Rate.Add(c.TotalTax))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
