package render

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/diewo77/gst-invoices/internal/models"
	"github.com/diewo77/gst-invoices/internal/storage"
)

const defaultHTML = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Invoice {{.InvoiceNumber}}</title></head>
<body>
<h1>GST TAX INVOICE</h1>
<table>
<tr><th>Invoice No.</th><td>{{.InvoiceNumber}}</td></tr>
<tr><th>Date</th><td>{{formatDate .InvoiceDate}}</td></tr>
<tr><th>Billing Period</th><td>{{.MonthYear}}</td></tr>
<tr><th>Billed To</th><td>{{.ClientName}}{{if .AtSite}}, {{.AtSite}}{{end}}</td></tr>
<tr><th>State</th><td>{{.State}}</td></tr>
{{if .GSTIN}}<tr><th>GSTIN</th><td>{{.GSTIN}}</td></tr>{{end}}
</table>
<table>
<tr><th>Description</th><th>HSN/SAC</th><th>Amount</th></tr>
<tr><td>{{.ServiceDescription}}</td><td>{{.HSNSACCode}}</td><td>{{formatMoney .Rate}}</td></tr>
<tr><td colspan="2">CGST</td><td>{{formatMoney .CGST}}</td></tr>
<tr><td colspan="2">SGST</td><td>{{formatMoney .SGST}}</td></tr>
<tr><td colspan="2">IGST</td><td>{{formatMoney .IGST}}</td></tr>
<tr><td colspan="2">Total Tax</td><td>{{formatMoney .TotalTax}}</td></tr>
<tr><th colspan="2">Total Amount After Tax</th><th>{{formatMoney .TotalAmountAfterTax}}</th></tr>
</table>
<p>Amount in words: {{.AmountInWords}}</p>
</body></html>`

var funcs = template.FuncMap{
	"formatMoney": func(d decimal.Decimal) string { return "₹" + FormatINR(d) },
	"formatDate":  func(t time.Time) string { return t.Format("02 Jan 2006") },
}

// HTMLRenderer renders html templates. It is used for previews.
type HTMLRenderer struct {
	templates storage.DocumentStore
}

// NewHTMLRenderer loads template files from templates (may be nil).
func NewHTMLRenderer(templates storage.DocumentStore) *HTMLRenderer {
	return &HTMLRenderer{templates: templates}
}

// Render executes the template file of tmpl when it is an .html file, otherwise the
// built-in layout.
func (r *HTMLRenderer) Render(ctx context.Context, tmpl *models.Template, f BillingFields) (*Document, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	source := defaultHTML
	name := "default"
	if tmpl != nil && strings.HasSuffix(strings.ToLower(tmpl.FilePath), ".html") {
		if r.templates == nil {
			return nil, &RenderError{Op: "template", Template: tmpl.Name, Err: errors.New("no template store configured")}
		}
		data, err := r.templates.Get(ctx, tmpl.FilePath)
		if err != nil {
			return nil, &RenderError{Op: "template", Template: tmpl.Name, Err: err}
		}
		source = string(data)
		name = tmpl.Name
	}
	t, err := template.New(name).Funcs(funcs).Parse(source)
	if err != nil {
		return nil, &RenderError{Op: "parse", Template: name, Err: err}
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, f); err != nil {
		return nil, &RenderError{Op: "execute", Template: name, Err: err}
	}
	return &Document{
		Filename:    strings.TrimSuffix(AttachmentName(f.InvoiceNumber), ".pdf") + ".html",
		ContentType: "text/html; charset=utf-8",
		Data:        buf.Bytes(),
	}, nil
}

// SampleFields is the record shown by template previews.
func SampleFields(now time.Time) BillingFields {
	return BillingFields{
		InvoiceNumber:       "INV-" + now.Format("2006") + "-0001",
		InvoiceDate:         now,
		MonthYear:           models.CycleLabel(now),
		ClientName:          "Sample Client Pvt Ltd",
		AtSite:              "Head Office",
		GSTIN:               "27AAPFU0939F1ZV",
		State:               "Maharashtra",
		ServiceDescription:  "Security services",
		HSNSACCode:          "998525",
		Rate:                decimal.NewFromInt(10000),
		CGST:                decimal.NewFromInt(900),
		SGST:                decimal.NewFromInt(900),
		TotalTax:            decimal.NewFromInt(1800),
		TotalAmountAfterTax: decimal.NewFromInt(11800),
		AmountInWords:       "Eleven Thousand Eight Hundred Rupees Only",
	}
}
