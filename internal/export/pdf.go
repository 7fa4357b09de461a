package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"

	"taichinh/internal/analytics"
	"taichinh/internal/core"
)

var hundred = decimal.NewFromInt(100)

// WritePDF writes a one-page A4 summary of r.
func WritePDF(w io.Writer, r analytics.Report) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Bao cao tai chinh", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Bao cao tai chinh")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Ky: %s - %s", core.FormatDate(r.Period.Start), core.FormatDate(r.Period.End)))
	pdf.Ln(6)
	pdf.Cell(0, 7, "Don vi: "+fold(r.SelectedUnit))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Tong quan")
	pdf.Ln(8)
	row(pdf, true, "Don vi", "Doanh thu", "Chi phi", "Loi nhuan", "Bien LN")
	for _, u := range r.Units {
		row(pdf, false, fold(u.Name), amount(u.Revenue), amount(u.Expense), amount(u.Profit), percent(u.Margin))
	}
	row(pdf, true, "Tong cong", amount(r.Totals.Revenue), amount(r.Totals.Expense), amount(r.Totals.Profit), percent(r.Totals.Margin))
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Chi phi theo danh muc")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(80, 7, "Danh muc", "1", 0, "L", false, 0, "")
	pdf.CellFormat(50, 7, "So tien", "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 7, "Ty trong", "1", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, c := range r.Categories {
		pdf.CellFormat(80, 7, fold(c.Name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 7, amount(c.Value), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, percent(c.Percentage), "1", 1, "R", false, 0, "")
	}

	if len(r.Skipped) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(0, 5, fmt.Sprintf("%d ban ghi bi bo qua do ngay khong hop le.", len(r.Skipped)), "", "L", false)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func row(pdf *gofpdf.Fpdf, bold bool, cells ...string) {
	style := ""
	if bold {
		style = "B"
	}
	pdf.SetFont("Helvetica", style, 10)
	widths := []float64{50, 35, 35, 35, 25}
	for i, c := range cells {
		align := "R"
		if i == 0 {
			align = "L"
		}
		ln := 0
		if i == len(cells)-1 {
			ln = 1
		}
		pdf.CellFormat(widths[i], 7, c, "1", ln, align, false, 0, "")
	}
}

// amount renders whole dong without the currency sign, which the core
// fonts cannot encode.
func amount(d decimal.Decimal) string {
	return strings.TrimSuffix(core.FormatVND(d), " ₫")
}

func percent(d decimal.Decimal) string {
	return d.StringFixed(1) + "%"
}
