package report

import (
	"bytes"

	"github.com/go-pdf/fpdf"
)

// AuditRow is one line of the rendered audit report.
type AuditRow struct {
	Timestamp string
	UserName  string
	Action    string
	EntityID  string
	Statuses  string
}

// RenderAuditReport renders audit rows as a landscape PDF table.
func RenderAuditReport(rows []AuditRow) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("SecureChain Transaction Report", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Transaction Audit Report", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	widths := []float64{40, 45, 55, 70, 60}
	headers := []string{"Timestamp", "User", "Action", "Entity", "Status Change"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(240, 240, 240)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for _, row := range rows {
		cells := []string{row.Timestamp, row.UserName, row.Action, row.EntityID, row.Statuses}
		for i, cell := range cells {
			pdf.CellFormat(widths[i], 7, cell, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
