// Package export writes invoices and activity log entries as .xlsx workbooks.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/diewo77/gst-invoices/internal/models"
)

// ContentType is the media type of the produced workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Invoices writes one row per invoice to w.
func Invoices(w io.Writer, invoices []models.Invoice) error {
	header := []any{"Invoice No.", "Client", "Site", "Dated", "Month", "Status", "Taxable", "Total Tax", "Total", "Email Sent"}
	rows := make([][]any, 0, len(invoices))
	for _, inv := range invoices {
		var client, site string
		var taxable, tax, total float64
		if c := inv.Client; c != nil {
			client, site = c.Name, c.AtSite
			taxable = c.Rate.Round(2).InexactFloat64()
			tax = c.TotalTax.Round(2).InexactFloat64()
			total = c.TotalAmountAfterTax.Round(2).InexactFloat64()
		}
		var dated, sent any = "", ""
		if !inv.Dated.IsZero() {
			dated = inv.Dated
		}
		if inv.EmailSentAt != nil {
			sent = *inv.EmailSentAt
		}
		rows = append(rows, []any{
			inv.Number, client, site, dated, inv.MonthYear, string(inv.Status), taxable, tax, total, sent,
		})
	}
	return write(w, sheet{
		name:   "Invoices",
		header: header,
		rows:   rows,
		widths: []float64{16, 28, 20, 12, 14, 12, 14, 14, 14, 18},
		kinds:  []cellKind{plain, plain, plain, date, plain, plain, money, money, money, date},
	})
}

// Logs writes one row per activity log entry to w.
func Logs(w io.Writer, entries []models.LogEntry) error {
	header := []any{"Timestamp", "Action", "Status", "Invoice ID", "Client ID", "Details"}
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []any{e.Timestamp, string(e.Action), e.Status, deref(e.InvoiceID), deref(e.ClientID), e.Details})
	}
	return write(w, sheet{
		name:   "Activity",
		header: header,
		rows:   rows,
		widths: []float64{20, 28, 10, 38, 38, 80},
		kinds:  []cellKind{date},
	})
}

type cellKind int

const (
	plain cellKind = iota
	date
	money
)

// sheet describes one worksheet. kinds may be shorter than a row; missing columns are plain.
type sheet struct {
	name   string
	header []any
	rows   [][]any
	widths []float64
	kinds  []cellKind
}

func write(w io.Writer, s sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", s.name); err != nil {
		return err
	}
	// NumFmt 22 is "m/d/yy h:mm", 2 is "0.00".
	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 22})
	if err != nil {
		return err
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(s.name)
	if err != nil {
		return err
	}
	for i, width := range s.widths {
		if err := sw.SetColWidth(i+1, i+1, width); err != nil {
			return err
		}
	}
	if err := sw.SetRow("A1", s.header); err != nil {
		return err
	}
	for i, row := range s.rows {
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
			if j >= len(s.kinds) {
				continue
			}
			switch s.kinds[j] {
			case date:
				if _, ok := v.(string); !ok {
					values[j] = excelize.Cell{StyleID: dateStyle, Value: v}
				}
			case money:
				values[j] = excelize.Cell{StyleID: moneyStyle, Value: v}
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
