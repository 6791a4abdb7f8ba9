// Package render turns billing fields into invoice documents.
package render

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/diewo77/gst-invoices/internal/models"
)

// Document is a rendered invoice.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Renderer renders fields with a template. tmpl may be nil, meaning the built-in layout.
type Renderer interface {
	Render(ctx context.Context, tmpl *models.Template, fields BillingFields) (*Document, error)
}

// RenderError covers a missing or unreadable template and invalid or unrenderable fields.
type RenderError struct {
	Op       string
	Template string
	Err      error
}

func (e *RenderError) Error() string {
	if e.Template != "" {
		return fmt.Sprintf("render %s (template %s): %v", e.Op, e.Template, e.Err)
	}
	return fmt.Sprintf("render %s: %v", e.Op, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// AttachmentName is the filename used when a document is mailed.
func AttachmentName(invoiceNumber string) string {
	return "Invoice_" + invoiceNumber + ".pdf"
}

// FormatINR formats an amount with Indian digit grouping, e.g. 1,18,000.00.
func FormatINR(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")
	var grouped string
	if len(intPart) <= 3 {
		grouped = intPart
	} else {
		head, tail := intPart[:len(intPart)-3], intPart[len(intPart)-3:]
		var groups []string
		for len(head) > 2 {
			groups = append([]string{head[len(head)-2:]}, groups...)
			head = head[:len(head)-2]
		}
		if head != "" {
			groups = append([]string{head}, groups...)
		}
		grouped = strings.Join(groups, ",") + "," + tail
	}
	if d.IsNegative() {
		grouped = "-" + grouped
	}
	return grouped + "." + frac
}
