package render

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/diewo77/gst-invoices/internal/models"
)

// BillingFields is everything printed on a GST invoice. It is built from a
// client and an invoice and validated before any renderer sees it.
type BillingFields struct {
	InvoiceNumber string    `validate:"required"`
	InvoiceDate   time.Time `validate:"-"`
	MonthYear     string    `validate:"required"`

	ClientName         string `validate:"required"`
	AtSite             string
	GSTIN              string `validate:"omitempty,len=15,alphanum"`
	State              string `validate:"required"`
	ServiceDescription string `validate:"required"`
	HSNSACCode         string

	Rate                decimal.Decimal `validate:"gt=0"`
	CGST                decimal.Decimal `validate:"gte=0"`
	SGST                decimal.Decimal `validate:"gte=0"`
	IGST                decimal.Decimal `validate:"gte=0"`
	TotalTax            decimal.Decimal `validate:"gte=0"`
	TotalAmountAfterTax decimal.Decimal `validate:"gt=0"`
	AmountInWords       string          `validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// FieldsFor builds the billing record of inv for client c.
func FieldsFor(c *models.Client, inv *models.Invoice) BillingFields {
	return BillingFields{
		InvoiceNumber:       inv.Number,
		InvoiceDate:         inv.Dated,
		MonthYear:           inv.MonthYear,
		ClientName:          strings.TrimSpace(c.Name),
		AtSite:              strings.TrimSpace(c.AtSite),
		GSTIN:               strings.ToUpper(strings.TrimSpace(ptr(c.GSTIN))),
		State:               strings.TrimSpace(c.State),
		ServiceDescription:  strings.TrimSpace(c.ServiceDescription),
		HSNSACCode:          strings.TrimSpace(ptr(c.HSNSACCode)),
		Rate:                c.Rate,
		CGST:                c.CGST,
		SGST:                c.SGST,
		IGST:                c.IGST,
		TotalTax:            c.TotalTax,
		TotalAmountAfterTax: c.TotalAmountAfterTax,
		AmountInWords:       strings.TrimSpace(c.AmountInWords),
	}
}

// Validate rejects records with missing or out of range fields.
func (f BillingFields) Validate() error {
	violations := map[string]string{}
	if f.InvoiceDate.IsZero() {
		violations["InvoiceDate"] = "required"
	}
	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &RenderError{Op: "validate", Err: err}
		}
		for _, fe := range verrs {
			violations[fe.Field()] = fe.Tag()
		}
	}
	if len(violations) == 0 {
		return nil
	}
	return &RenderError{Op: "validate", Err: &FieldError{Violations: violations}}
}

// FieldError lists invalid billing fields and the rule each one broke.
type FieldError struct {
	Violations map[string]string
}

func (e *FieldError) Error() string {
	keys := make([]string, 0, len(e.Violations))
	for k := range e.Violations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s (%s)", k, e.Violations[k])
	}
	return "invalid billing fields: " + strings.Join(parts, ", ")
}

func ptr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
