// Package export renders a built report as an XLSX workbook or a one-page
// PDF summary. It only formats; every figure comes from the report as is.
package export

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"taichinh/internal/analytics"
)

const (
	SheetOverview   = "Tong quan"
	SheetMonthly    = "Theo thang"
	SheetCategories = "Chi phi"
)

// Filename returns the download name for r, e.g.
// "taichinh-month-20260101-20260131.xlsx".
func Filename(r analytics.Report, ext string) string {
	return fmt.Sprintf("taichinh-%s-%s-%s.%s",
		r.Period.Mode,
		r.Period.Start.Format("20060102"),
		r.Period.End.Format("20060102"),
		strings.TrimPrefix(ext, "."))
}

// fold strips Vietnamese diacritics so text fits the PDF core fonts.
func fold(s string) string {
	s = strings.NewReplacer("đ", "d", "Đ", "D").Replace(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
