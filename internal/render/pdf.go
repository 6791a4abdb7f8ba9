package render

import (
	"bytes"
	"context"
	"errors"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/diewo77/gst-invoices/internal/models"
	"github.com/diewo77/gst-invoices/internal/storage"
)

// Issuer identifies the business issuing the invoices.
type Issuer struct {
	Name    string
	Address string
	GSTIN   string
}

// PDFRenderer lays out a GST tax invoice with gofpdf.
// When templates is set, the template file must exist in it.
type PDFRenderer struct {
	Issuer    Issuer
	templates storage.DocumentStore
}

// NewPDFRenderer returns a renderer checking template files against templates (may be nil).
func NewPDFRenderer(issuer Issuer, templates storage.DocumentStore) *PDFRenderer {
	return &PDFRenderer{Issuer: issuer, templates: templates}
}

// Render validates fields and produces the PDF.
func (r *PDFRenderer) Render(ctx context.Context, tmpl *models.Template, f BillingFields) (*Document, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	title := "GST TAX INVOICE"
	version := ""
	if tmpl != nil {
		if err := r.checkTemplate(ctx, tmpl); err != nil {
			return nil, err
		}
		version = tmpl.Version
	}
	if err := ctx.Err(); err != nil {
		return nil, &RenderError{Op: "pdf", Err: err}
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Invoice "+f.InvoiceNumber, true)
	pdf.SetAuthor(r.Issuer.Name, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
	if r.Issuer.Name != "" {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 7, tr(r.Issuer.Name), "", 1, "C", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		if r.Issuer.Address != "" {
			pdf.CellFormat(0, 5, tr(r.Issuer.Address), "", 1, "C", false, 0, "")
		}
		if r.Issuer.GSTIN != "" {
			pdf.CellFormat(0, 5, "GSTIN: "+r.Issuer.GSTIN, "", 1, "C", false, 0, "")
		}
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 10)
	row := func(label, value string) {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(50, 7, label, "1", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 7, tr(value), "1", 1, "L", false, 0, "")
	}
	row("Invoice No.", f.InvoiceNumber)
	row("Date", f.InvoiceDate.Format("02/01/2006"))
	row("Billing Period", f.MonthYear)
	row("Billed To", f.ClientName)
	if f.AtSite != "" {
		row("Site", f.AtSite)
	}
	row("State", f.State)
	if f.GSTIN != "" {
		row("Client GSTIN", f.GSTIN)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(110, 8, "Description of Service", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "HSN/SAC", "1", 0, "C", true, 0, "")
	pdf.CellFormat(0, 8, "Amount (Rs.)", "1", 1, "R", true, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(110, 8, tr(f.ServiceDescription), "1", 0, "L", false, 0, "")
	pdf.CellFormat(30, 8, f.HSNSACCode, "1", 0, "C", false, 0, "")
	pdf.CellFormat(0, 8, FormatINR(f.Rate), "1", 1, "R", false, 0, "")

	amount := func(label string, d decimal.Decimal, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Arial", style, 10)
		pdf.CellFormat(140, 7, label, "1", 0, "R", false, 0, "")
		pdf.CellFormat(0, 7, FormatINR(d), "1", 1, "R", false, 0, "")
	}
	if !f.CGST.IsZero() || !f.SGST.IsZero() {
		amount("CGST", f.CGST, false)
		amount("SGST", f.SGST, false)
	}
	if !f.IGST.IsZero() {
		amount("IGST", f.IGST, false)
	}
	amount("Total Tax", f.TotalTax, false)
	amount("Total Amount After Tax", f.TotalAmountAfterTax, true)
	pdf.Ln(3)
	pdf.SetFont("Arial", "I", 10)
	pdf.MultiCell(0, 6, tr("Amount in words: "+f.AmountInWords), "", "L", false)

	if version != "" {
		pdf.SetY(-20)
		pdf.SetFont("Arial", "", 7)
		pdf.CellFormat(0, 5, tr(tmpl.Name+" v"+version), "", 0, "R", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &RenderError{Op: "pdf", Err: err}
	}
	return &Document{Filename: AttachmentName(f.InvoiceNumber), ContentType: "application/pdf", Data: buf.Bytes()}, nil
}

func (r *PDFRenderer) checkTemplate(ctx context.Context, tmpl *models.Template) error {
	if tmpl.FilePath == "" || r.templates == nil {
		return nil
	}
	ok, err := r.templates.Exists(ctx, tmpl.FilePath)
	if err != nil {
		return &RenderError{Op: "template", Template: tmpl.Name, Err: err}
	}
	if !ok {
		return &RenderError{Op: "template", Template: tmpl.Name, Err: errors.New("template file " + tmpl.FilePath + " not found")}
	}
	return nil
}
