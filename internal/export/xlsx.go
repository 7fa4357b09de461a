package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"taichinh/internal/analytics"
	"taichinh/internal/core"
)

const (
	colorHeader = "#1F4E79"
	numFmtMoney = 3  // #,##0
	numFmtPct   = 10 // 0.00%
)

// WriteXLSX writes the report as a workbook with an overview, a monthly
// and a category sheet.
func WriteXLSX(w io.Writer, r analytics.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetOverview); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetMonthly, SheetCategories} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	st, err := newStyles(f)
	if err != nil {
		return err
	}
	if err := writeOverview(f, st, r); err != nil {
		return err
	}
	if err := writeMonthly(f, st, r); err != nil {
		return err
	}
	if err := writeCategories(f, st, r); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

type styles struct {
	title, header, money, pct, bold int
}

func newStyles(f *excelize.File) (styles, error) {
	var st styles
	var err error
	if st.title, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14, Color: colorHeader},
	}); err != nil {
		return st, fmt.Errorf("title style: %w", err)
	}
	if st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{colorHeader}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	}); err != nil {
		return st, fmt.Errorf("header style: %w", err)
	}
	if st.money, err = f.NewStyle(&excelize.Style{NumFmt: numFmtMoney}); err != nil {
		return st, fmt.Errorf("money style: %w", err)
	}
	if st.pct, err = f.NewStyle(&excelize.Style{NumFmt: numFmtPct}); err != nil {
		return st, fmt.Errorf("percent style: %w", err)
	}
	if st.bold, err = f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		NumFmt: numFmtMoney,
	}); err != nil {
		return st, fmt.Errorf("bold style: %w", err)
	}
	return st, nil
}

func writeHeader(f *excelize.File, sheet string, row int, st styles, headers ...string) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	last, err := excelize.CoordinatesToCellName(len(headers), row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), last, st.header)
}

func setRow(f *excelize.File, sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// sheetFormat applies cell values, styles and column widths to one sheet and
// keeps the first error; later calls are skipped once one has failed.
type sheetFormat struct {
	f     *excelize.File
	sheet string
	err   error
}

func (sf *sheetFormat) value(cell string, v any) {
	if sf.err == nil {
		if err := sf.f.SetCellValue(sf.sheet, cell, v); err != nil {
			sf.err = fmt.Errorf("%s!%s: %w", sf.sheet, cell, err)
		}
	}
}

func (sf *sheetFormat) style(from, to string, id int) {
	if sf.err == nil {
		if err := sf.f.SetCellStyle(sf.sheet, from, to, id); err != nil {
			sf.err = fmt.Errorf("%s!%s:%s style: %w", sf.sheet, from, to, err)
		}
	}
}

func (sf *sheetFormat) width(from, to string, w float64) {
	if sf.err == nil {
		if err := sf.f.SetColWidth(sf.sheet, from, to, w); err != nil {
			sf.err = fmt.Errorf("%s columns %s:%s: %w", sf.sheet, from, to, err)
		}
	}
}

func writeOverview(f *excelize.File, st styles, r analytics.Report) error {
	s := SheetOverview
	head := &sheetFormat{f: f, sheet: s}
	head.value("A1", "Báo cáo tài chính theo đơn vị kinh doanh")
	head.style("A1", "A1", st.title)
	head.value("A2", fmt.Sprintf("Kỳ: %s - %s", core.FormatDate(r.Period.Start), core.FormatDate(r.Period.End)))
	head.value("A3", fmt.Sprintf("Đơn vị: %s", r.SelectedUnit))
	if head.err != nil {
		return fmt.Errorf("overview title: %w", head.err)
	}

	if err := writeHeader(f, s, 5, st, "Đơn vị", "Doanh thu", "Chi phí", "Lợi nhuận", "Biên lợi nhuận"); err != nil {
		return fmt.Errorf("overview header: %w", err)
	}
	row := 6
	for _, u := range r.Units {
		if err := setRow(f, s, row,
			u.Name,
			u.Revenue.InexactFloat64(),
			u.Expense.InexactFloat64(),
			u.Profit.InexactFloat64(),
			u.Margin.Div(hundred).InexactFloat64()); err != nil {
			return fmt.Errorf("overview row: %w", err)
		}
		row++
	}
	if err := setRow(f, s, row,
		"Tổng cộng",
		r.Totals.Revenue.InexactFloat64(),
		r.Totals.Expense.InexactFloat64(),
		r.Totals.Profit.InexactFloat64(),
		r.Totals.Margin.Div(hundred).InexactFloat64()); err != nil {
		return fmt.Errorf("overview totals: %w", err)
	}

	sf := &sheetFormat{f: f, sheet: s}
	sf.style("B6", fmt.Sprintf("D%d", row), st.money)
	sf.style("E6", fmt.Sprintf("E%d", row), st.pct)
	sf.style(fmt.Sprintf("A%d", row), fmt.Sprintf("D%d", row), st.bold)
	sf.width("A", "A", 28)
	sf.width("B", "E", 18)
	return sf.err
}

func writeMonthly(f *excelize.File, st styles, r analytics.Report) error {
	s := SheetMonthly
	if err := writeHeader(f, s, 1, st, "Tháng", "Thu", "Chi", "Lợi nhuận"); err != nil {
		return fmt.Errorf("monthly header: %w", err)
	}
	row := 2
	for _, b := range r.Monthly {
		if err := setRow(f, s, row,
			b.Label,
			b.Income.InexactFloat64(),
			b.Expense.InexactFloat64(),
			b.Profit.InexactFloat64()); err != nil {
			return fmt.Errorf("monthly row: %w", err)
		}
		row++
	}
	sf := &sheetFormat{f: f, sheet: s}
	if row > 2 {
		sf.style("B2", fmt.Sprintf("D%d", row-1), st.money)
	}
	sf.width("A", "A", 12)
	sf.width("B", "D", 18)
	return sf.err
}

func writeCategories(f *excelize.File, st styles, r analytics.Report) error {
	s := SheetCategories
	if err := writeHeader(f, s, 1, st, "Hạng", "Danh mục", "Số tiền", "Tỷ trọng"); err != nil {
		return fmt.Errorf("categories header: %w", err)
	}
	row := 2
	for i, c := range r.Categories {
		if err := setRow(f, s, row,
			i+1,
			c.Name,
			c.Value.InexactFloat64(),
			c.Percentage.Div(hundred).InexactFloat64()); err != nil {
			return fmt.Errorf("categories row: %w", err)
		}
		row++
	}
	sf := &sheetFormat{f: f, sheet: s}
	if row > 2 {
		sf.style("C2", fmt.Sprintf("C%d", row-1), st.money)
		sf.style("D2", fmt.Sprintf("D%d", row-1), st.pct)
	}
	sf.width("B", "B", 28)
	sf.width("C", "D", 18)
	return sf.err
}
